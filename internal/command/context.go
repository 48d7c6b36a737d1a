package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VibeCodingInc/vibe-mcp/internal/api"
	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/daemon"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/session"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/vibesync"
)

// Context bundles the wired services every command needs.
type Context struct {
	Store    store.Store
	Cfg      *config.Store
	Client   *api.Client
	Engine   *vibesync.Engine
	Sessions *session.Service
	Presence *daemon.Presence
	Log      *logging.Logger
	JSONMode bool
}

// GetContext wires the service stack for one command invocation. The store
// degrades to a null implementation when the database cannot be opened, so
// commands stay usable offline and on broken disks.
func GetContext(cmd *cobra.Command) (*Context, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")

	log := logging.FromEnv()
	cfg := config.NewStore()
	st := store.OpenDefault(log)
	client := api.NewClient(cfg.GetAuthToken, Version)
	engine := vibesync.NewEngine(st, client, cfg, log)

	return &Context{
		Store:    st,
		Cfg:      cfg,
		Client:   client,
		Engine:   engine,
		Sessions: session.NewService(st, cfg, log),
		Presence: daemon.NewPresence(client, cfg, engine, st, log),
		Log:      log,
		JSONMode: jsonMode,
	}, nil
}

// Close releases the context's resources.
func (c *Context) Close() {
	if err := c.Store.Close(); err != nil {
		c.Log.Debugw("store close failed", "error", err)
	}
	c.Log.Sync()
}

// requireHandle returns the configured handle or a setup hint.
func (c *Context) requireHandle() (string, error) {
	handle := c.Cfg.GetHandle()
	if handle == "" {
		return "", fmt.Errorf("no handle configured. Run 'vibe config set handle <name>' first")
	}
	return handle, nil
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	return err
}
