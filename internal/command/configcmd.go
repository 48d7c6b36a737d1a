package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with get/set subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change identity and preferences",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Show configuration (auth token redacted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			cfg := ctx.Cfg.Load()
			values := map[string]string{
				"handle":           cfg.Handle,
				"one_liner":        cfg.OneLiner,
				"notifications":    cfg.Notifications,
				"activity_privacy": cfg.ActivityPrivacy,
			}
			if cfg.AuthToken != "" {
				values["auth_token"] = "(set)"
			}

			if len(args) == 1 {
				value, ok := values[args[0]]
				if !ok {
					return writeCommandError(cmd, fmt.Errorf("unknown key %q", args[0]))
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(values)
			}
			for _, key := range []string{"handle", "one_liner", "notifications", "activity_privacy", "auth_token"} {
				if values[key] != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, values[key])
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value...>",
		Short: "Change a configuration value",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			key := args[0]
			value := strings.Join(args[1:], " ")

			switch key {
			case "auth_token":
				// Check the token against the server before keeping it, so a
				// paste error surfaces now instead of as failed sends later.
				if resp := ctx.Client.VerifyToken(cmd.Context(), value); !resp.OK && !resp.Timeout && !resp.Network {
					return writeCommandError(cmd, fmt.Errorf("token rejected by server: %s", resp.Err))
				}
				err = ctx.Cfg.SetAuthToken(value)
			case "handle":
				cfg := ctx.Cfg.Load()
				err = ctx.Cfg.SetIdentity(value, cfg.OneLiner)
			case "one_liner":
				cfg := ctx.Cfg.Load()
				err = ctx.Cfg.SetIdentity(cfg.Handle, value)
			case "notifications":
				err = ctx.Cfg.SetNotifications(value)
			case "activity_privacy":
				err = ctx.Cfg.SetActivityPrivacy(value)
			default:
				err = fmt.Errorf("unknown key %q", key)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set\n", key)
			return nil
		},
	}
}
