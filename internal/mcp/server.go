// Package mcp exposes the messaging engine to agents as MCP tools over
// stdio.
package mcp

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/session"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/vibesync"
)

// Deps carries everything the tool handlers touch.
type Deps struct {
	Engine   *vibesync.Engine
	Sessions *session.Service
	Store    store.Store
	Cfg      *config.Store
	Log      *logging.Logger
}

// Server wraps the SDK server with tool registration.
type Server struct {
	server *mcp.Server
	deps   Deps
}

func NewServer(deps Deps, version string) *Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "vibe", Version: version}, nil)
	registerTools(srv, deps)
	return &Server{server: srv, deps: deps}
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
