// Package daemon runs the background side of the client: the presence
// heartbeat loop, the pending-send sweep, and the inbox watcher.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VibeCodingInc/vibe-mcp/internal/api"
	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
	"github.com/VibeCodingInc/vibe-mcp/internal/vibesync"
)

// State is the presence loop lifecycle.
type State string

const (
	StateIdle        State = "idle"
	StateRegistering State = "registering"
	StateBeating     State = "beating"
	StateStopped     State = "stopped"
)

const defaultBeatInterval = 30 * time.Second

// Presence registers the user with the server and keeps them visible with
// periodic heartbeats. One instance per process.
type Presence struct {
	client   *api.Client
	cfg      *config.Store
	engine   *vibesync.Engine
	store    store.Store
	log      *logging.Logger
	interval time.Duration

	mu     sync.Mutex
	state  State
	handle string
	// legacy mode: the server issued no token at registration, so every
	// heartbeat must carry the username instead of a bearer.
	legacy bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPresence(client *api.Client, cfg *config.Store, engine *vibesync.Engine, st store.Store, log *logging.Logger) *Presence {
	return &Presence{
		client:   client,
		cfg:      cfg,
		engine:   engine,
		store:    st,
		log:      log,
		interval: defaultBeatInterval,
		state:    StateIdle,
	}
}

func (p *Presence) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start registers presence and launches the heartbeat loop: one immediate
// beat, then one every interval until Stop or context cancellation. Starting
// an already running loop is a no-op.
func (p *Presence) Start(ctx context.Context, handle string) error {
	handle = types.NormalizeHandle(handle)
	if handle == "" {
		return fmt.Errorf("a handle is required to register presence")
	}

	p.mu.Lock()
	if p.state == StateRegistering || p.state == StateBeating {
		p.mu.Unlock()
		return nil
	}
	p.state = StateRegistering
	p.handle = handle
	p.mu.Unlock()

	legacy := p.register(ctx, handle)
	p.startJournalSession(handle)

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.legacy = legacy
	p.state = StateBeating
	p.mu.Unlock()

	p.beat(runCtx)
	p.sweep(runCtx)
	p.wg.Add(1)
	go p.loop(runCtx)
	return nil
}

// sweep flushes the pending queue. Runs at start and on every tick so
// messages queued offline go out as soon as connectivity returns.
func (p *Presence) sweep(ctx context.Context) {
	result := p.engine.SweepPending(ctx)
	if result.Sent > 0 {
		p.log.Infow("pending sweep delivered messages", "sent", result.Sent)
	}
}

// register announces the user and adopts whatever identity material the
// server returns. Returns true when the loop must run in legacy mode.
func (p *Presence) register(ctx context.Context, handle string) bool {
	resp := p.client.RegisterPresence(ctx, handle)
	if !resp.OK {
		p.log.Warnw("presence registration failed, beating in legacy mode",
			"error", resp.Err, "handle", handle)
		return true
	}

	legacy := true
	if token := resp.String("token"); token != "" {
		if err := p.cfg.SetAuthToken(token); err != nil {
			p.log.Warnw("could not persist presence token", "error", err)
		}
		legacy = false
	}
	if sid := resp.String("sessionId"); sid != "" {
		p.cfg.SetSessionID(sid)
	}
	return legacy
}

func (p *Presence) startJournalSession(handle string) {
	session := types.Session{
		SessionID: p.cfg.GetSessionID(),
		Handle:    handle,
		MachineID: p.cfg.MachineID(),
		StartedAt: types.NowISO(),
	}
	if err := p.store.StartSession(session); err != nil {
		p.log.Warnw("journal session start failed", "error", err)
	}
}

func (p *Presence) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.beat(ctx)
			p.sweep(ctx)
		}
	}
}

func (p *Presence) beat(ctx context.Context) {
	p.mu.Lock()
	legacy := p.legacy
	handle := p.handle
	p.mu.Unlock()

	req := api.HeartbeatRequest{
		Source:    "vibe-mcp",
		WorkingOn: p.cfg.GetWorkingOn(),
	}
	if p.cfg.Load().ActivityPrivacy == config.PrivacyOff {
		req.WorkingOn = ""
	}
	if legacy {
		req.Username = handle
	}

	resp := p.client.Heartbeat(ctx, req)
	if !resp.OK {
		p.log.Debugw("heartbeat failed", "error", resp.Err)
	}
}

// ForceHeartbeat sends a single beat right away, registering first if the
// loop is not running. Used by the status command.
func (p *Presence) ForceHeartbeat(ctx context.Context, handle string) {
	handle = types.NormalizeHandle(handle)
	if p.State() != StateBeating && handle != "" {
		legacy := p.register(ctx, handle)
		p.mu.Lock()
		p.handle = handle
		p.legacy = legacy
		p.mu.Unlock()
	}
	p.beat(ctx)
}

// Stop halts the loop, ends the journal session with the given summary, and
// clears ephemeral identity. No beat is sent after Stop returns.
func (p *Presence) Stop(summary string) {
	p.mu.Lock()
	if p.state != StateBeating {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.cancel = nil
	p.state = StateStopped
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()

	if err := p.store.EndSession(p.cfg.GetSessionID(), summary); err != nil {
		p.log.Warnw("journal session end failed", "error", err)
	}
	p.cfg.ClearSession()
}
