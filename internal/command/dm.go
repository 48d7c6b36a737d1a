package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
	"github.com/VibeCodingInc/vibe-mcp/internal/vibesync"
)

// NewDMCmd creates the dm command.
func NewDMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dm <to> <message...>",
		Short: "Send a direct message",
		Args:  cobra.MinimumNArgs(2),
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

			body := strings.Join(args[1:], " ")
			if clipped := types.TruncateContent(body); clipped != body {
				body = clipped
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: message truncated to %d characters\n", types.MaxContentLength)
			}

			msg, err := ctx.Engine.SendMessage(cmd.Context(), me, args[0], body, nil)
			if errors.Is(err, vibesync.ErrTransient) {
				fmt.Fprintf(cmd.OutOrStdout(), "Server unreachable. Message to @%s queued for retry.\n", msg.ToHandle)
				return nil
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent to @%s\n", msg.ToHandle)
			return nil
		},
	}
}
