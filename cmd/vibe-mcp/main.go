package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/VibeCodingInc/vibe-mcp/internal/api"
	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/daemon"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/mcp"
	"github.com/VibeCodingInc/vibe-mcp/internal/session"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/vibesync"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	log := logging.FromEnv()
	defer log.Sync()

	cfg := config.NewStore()
	st := store.OpenDefault(log)
	defer st.Close()

	client := api.NewClient(cfg.GetAuthToken, Version)
	engine := vibesync.NewEngine(st, client, cfg, log)
	presence := daemon.NewPresence(client, cfg, engine, st, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Presence needs an identity; without one the tools still work and the
	// whoami tool explains how to configure a handle.
	if handle := cfg.GetHandle(); handle != "" {
		if err := presence.Start(ctx, handle); err != nil {
			log.Warnw("presence loop not started", "error", err)
		}
	}

	server := mcp.NewServer(mcp.Deps{
		Engine:   engine,
		Sessions: session.NewService(st, cfg, log),
		Store:    st,
		Cfg:      cfg,
		Log:      log,
	}, Version)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		presence.Stop("")
		cancel()
	}()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		presence.Stop("")
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
	presence.Stop("")
}
