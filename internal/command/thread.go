package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

// NewThreadCmd creates the thread command.
func NewThreadCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "thread <with>",
		Short: "Show the conversation with one user",
		Args:  cobra.ExactArgs(1),
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

			peer := types.NormalizeHandle(args[0])
			messages := ctx.Engine.GetThread(cmd.Context(), me, peer, limit)
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(messages)
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintf(out, "No messages with @%s\n", peer)
				return nil
			}
			for _, msg := range messages {
				from := "me"
				if msg.Direction == types.DirectionReceived {
					from = "@" + msg.FromHandle
				}
				fmt.Fprintf(out, "[%s] %s: %s\n", msg.CreatedAt, from, msg.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum messages to show")
	return cmd
}

// NewReadCmd creates the read command.
func NewReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <with>",
		Short: "Mark every message from one user as read",
		Args:  cobra.ExactArgs(1),
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

			peer := types.NormalizeHandle(args[0])
			n := ctx.Engine.MarkThreadRead(me, peer)
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"marked": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d messages from @%s as read\n", n, peer)
			return nil
		},
	}
}
