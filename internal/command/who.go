package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoCmd creates the who command.
func NewWhoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "who",
		Short: "See who is online and what they are working on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			users := ctx.Engine.ActiveUsers(cmd.Context())
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(users)
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "Nobody is online right now")
				return nil
			}
			for _, user := range users {
				line := "@" + user.Username
				if user.WorkingOn != "" {
					line += " - " + user.WorkingOn
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show your configured identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			cfg := ctx.Cfg.Load()
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"handle":     cfg.Handle,
					"one_liner":  cfg.OneLiner,
					"session_id": ctx.Cfg.GetSessionID(),
					"working_on": ctx.Cfg.GetWorkingOn(),
				})
			}

			out := cmd.OutOrStdout()
			if cfg.Handle == "" {
				fmt.Fprintln(out, "No handle configured. Run 'vibe config set handle <name>'.")
				return nil
			}
			fmt.Fprintf(out, "@%s\n", cfg.Handle)
			if cfg.OneLiner != "" {
				fmt.Fprintln(out, cfg.OneLiner)
			}
			fmt.Fprintf(out, "session %s\n", ctx.Cfg.GetSessionID())
			if working := ctx.Cfg.GetWorkingOn(); working != "" {
				fmt.Fprintf(out, "working on: %s\n", working)
			}
			return nil
		},
	}
}
