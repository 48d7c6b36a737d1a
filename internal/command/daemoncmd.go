package command

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VibeCodingInc/vibe-mcp/internal/daemon"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
)

// NewDaemonCmd creates the daemon command: presence heartbeats plus the
// inbox watcher, running until interrupted.
func NewDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run presence heartbeats and desktop notifications",
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

			if err := ctx.Presence.Start(cmd.Context(), me); err != nil {
				return writeCommandError(cmd, err)
			}

			var watcher *daemon.InboxWatcher
			if dbPath, err := store.DefaultPath(); err == nil {
				notifier := daemon.NewNotifier(ctx.Cfg, ctx.Log)
				watcher = daemon.NewInboxWatcher(dbPath, me, ctx.Store, notifier, ctx.Log)
				if err := watcher.Start(cmd.Context()); err != nil {
					ctx.Log.Warnw("inbox watcher unavailable", "error", err)
					watcher = nil
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "vibe daemon running as @%s (ctrl-c to stop)\n", me)

			signals := make(chan os.Signal, 2)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-signals:
			case <-cmd.Context().Done():
			}

			if watcher != nil {
				watcher.Stop()
			}
			ctx.Presence.Stop("")
			fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return nil
		},
	}
}
