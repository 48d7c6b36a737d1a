package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

// NewInboxCmd creates the inbox command.
func NewInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "List conversations with unread counts",
		Args:  cobra.NoArgs,
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

			threads := ctx.Engine.GetInbox(cmd.Context(), me)
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(threads)
			}

			out := cmd.OutOrStdout()
			if len(threads) == 0 {
				fmt.Fprintln(out, "No conversations yet")
				return nil
			}
			for _, thread := range threads {
				marker := ""
				if thread.UnreadCount > 0 {
					marker = fmt.Sprintf(" [%d unread]", thread.UnreadCount)
				}
				preview := strings.ReplaceAll(thread.LastMessage.Content, "\n", " ")
				if clipped := types.ClipRunes(preview, 60); clipped != preview {
					preview = clipped + "..."
				}
				fmt.Fprintf(out, "@%s%s: %s\n", thread.Partner, marker, preview)
			}
			return nil
		},
	}
}
