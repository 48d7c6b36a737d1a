package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [working-on...]",
		Short: "Set what you are working on and announce it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			me, err := ctx.requireHandle()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				if working := ctx.Cfg.GetWorkingOn(); working != "" {
					fmt.Fprintf(out, "working on: %s\n", working)
				} else {
					fmt.Fprintln(out, "No status set")
				}
				return nil
			}

			ctx.Cfg.SetWorkingOn(strings.Join(args, " "))
			ctx.Presence.ForceHeartbeat(cmd.Context(), me)
			fmt.Fprintf(out, "Status set: %s\n", ctx.Cfg.GetWorkingOn())
			return nil
		},
	}
}
