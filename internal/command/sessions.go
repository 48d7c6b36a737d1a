package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command.
func NewSessionsCmd() *cobra.Command {
	var limit int
	var repo string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions",
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

			sessions, err := ctx.Sessions.Recent(me, limit, repo)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(sessions)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			for _, s := range sessions {
				line := fmt.Sprintf("%s  %s", s.SessionID, s.StartedAt)
				if s.GitRepo != "" {
					line += "  " + s.GitRepo
				}
				if s.Summary != "" {
					line += "  " + s.Summary
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum sessions to list")
	cmd.Flags().StringVar(&repo, "repo", "", "only sessions from this repository")
	return cmd
}

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Pick up context from your previous session",
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

			resumed, err := ctx.Sessions.Resume(me, repo)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(resumed)
			}

			out := cmd.OutOrStdout()
			if resumed.Previous == nil {
				fmt.Fprintln(out, "No previous session to resume")
				return nil
			}
			digest, err := ctx.Sessions.Summarize(resumed.Previous.SessionID)
			if err != nil {
				digest = "session " + resumed.Previous.SessionID
			}
			fmt.Fprintln(out, digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "only resume sessions from this repository")
	return cmd
}

// NewSaveCmd creates the save command.
func NewSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <summary...>",
		Short: "Close the current session with a summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.Sessions.Save(strings.Join(args, " ")); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session saved")
			return nil
		},
	}
}
