// Package command holds the cobra command tree for the vibe CLI.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "vibe"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "vibe - DMs and presence for people who live in the terminal",
		Long:          "vibe is the local client for the vibecodings messaging service: send DMs, read threads, see who is online, and keep a journal of your sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewDMCmd(),
		NewInboxCmd(),
		NewThreadCmd(),
		NewReadCmd(),
		NewWhoCmd(),
		NewWhoamiCmd(),
		NewStatusCmd(),
		NewSessionsCmd(),
		NewResumeCmd(),
		NewSaveCmd(),
		NewConfigCmd(),
		NewDaemonCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
