// Package vibesync composes the local store and the remote transport into
// the convergent messaging contract: optimistic sends, merged reads, and the
// pending sweep.
package vibesync

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/VibeCodingInc/vibe-mcp/internal/api"
	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

// maxSendRetries bounds the pending sweep. A message that keeps failing is
// left in failed for human intervention.
const maxSendRetries = 5

// Engine is the sync policy layer between the local store and the API.
type Engine struct {
	store  store.Store
	client *api.Client
	cfg    *config.Store
	log    *logging.Logger
}

// NewEngine wires the engine. All dependencies are required; pass a Null
// store and a Nop logger rather than nil.
func NewEngine(st store.Store, client *api.Client, cfg *config.Store, log *logging.Logger) *Engine {
	return &Engine{store: st, client: client, cfg: cfg, log: log}
}

// SendMessage performs an optimistic send: the message is durably recorded
// as pending before the server is contacted, then advanced or failed based
// on the server's answer.
func (e *Engine) SendMessage(ctx context.Context, from, to, body string, payload []byte) (types.Message, error) {
	from = types.NormalizeHandle(from)
	to = types.NormalizeHandle(to)
	if from == "" || to == "" {
		return types.Message{}, fmt.Errorf("both handles are required")
	}
	if from == to {
		return types.Message{}, ErrSelfSend
	}
	if len([]rune(body)) > types.MaxContentLength {
		return types.Message{}, ErrBodyTooLong
	}

	msg := types.Message{
		LocalID:    uuid.NewString(),
		FromHandle: from,
		ToHandle:   to,
		Content:    body,
		Payload:    payload,
		Status:     types.StatusPending,
		CreatedAt:  types.NowISO(),
	}
	if err := e.store.InsertMessage(msg); err != nil {
		// Degraded persistence must not block the send itself.
		e.log.Warnw("optimistic insert failed", "error", err)
	}

	resp := e.client.SendMessage(ctx, api.SendMessageRequest{To: to, Body: body, Payload: payload})
	result, err := e.applySendResult(msg, resp)
	if err != nil {
		return result, err
	}

	e.journalMessage(types.DirectionSent, to, body)
	return result, nil
}

// applySendResult maps one server answer onto the stored row and the error
// kind surfaced to the caller.
func (e *Engine) applySendResult(msg types.Message, resp api.Response) (types.Message, error) {
	if resp.OK {
		serverID, threadID := extractMessageIDs(resp)
		if serverID == nil {
			// A sent row must carry a server id. An ack without one cannot
			// satisfy that, so the row stays queued for the sweep.
			e.log.Warnw("server ack carried no message id", "local_id", msg.LocalID)
			return msg, fmt.Errorf("%w: server ack carried no message id", ErrTransient)
		}
		if err := e.store.UpdateStatus(msg.LocalID, types.StatusSent, serverID, threadID); err != nil {
			e.log.Warnw("status update failed after send", "local_id", msg.LocalID, "error", err)
		}
		msg.Status = types.StatusSent
		msg.ServerID = serverID
		msg.ThreadID = threadID
		return msg, nil
	}

	e.failMessage(msg.LocalID)
	msg.Status = types.StatusFailed

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return msg, fmt.Errorf("%w: %s", ErrAuthExpired, resp.Err)
	case strings.Contains(resp.Err, "Authentication"):
		return msg, fmt.Errorf("%w: %s", ErrAuthFailed, resp.Err)
	case resp.Err == "storage_error":
		return msg, fmt.Errorf("%w", ErrRemoteStorage)
	case resp.Timeout || resp.Network:
		return msg, fmt.Errorf("%w: %s", ErrTransient, resp.Err)
	default:
		return msg, fmt.Errorf("send failed: %s", resp.Err)
	}
}

func (e *Engine) failMessage(localID string) {
	if err := e.store.UpdateStatus(localID, types.StatusFailed, nil, nil); err != nil {
		e.log.Warnw("could not mark message failed", "local_id", localID, "error", err)
	}
}

// GetInbox returns inbox threads: the server's view when reachable (merged
// into the local store first), the local view otherwise. It never fails.
func (e *Engine) GetInbox(ctx context.Context, me string) []types.InboxThread {
	me = types.NormalizeHandle(me)

	local, err := e.store.GetInboxThreads(me)
	if err != nil {
		e.log.Warnw("local inbox read failed", "error", err)
	}

	resp := e.client.FetchInbox(ctx, me)
	if !resp.OK {
		e.log.Debugw("inbox fetch failed, serving local", "error", resp.Err)
		return local
	}

	threads := parseInboxThreads(resp, me)
	var latest []types.Message
	for _, thread := range threads {
		if thread.LastMessage.ServerID != nil {
			latest = append(latest, thread.LastMessage)
		}
	}
	if _, err := e.store.MergeServerMessages(latest); err != nil {
		e.log.Warnw("inbox merge failed", "error", err)
	}
	return threads
}

// GetThread returns the conversation with peer, newest last, each message
// annotated with its direction. Server view wins when reachable; the local
// store answers offline.
func (e *Engine) GetThread(ctx context.Context, me, peer string, limit int) []types.ThreadMessage {
	me = types.NormalizeHandle(me)
	peer = types.NormalizeHandle(peer)

	resp := e.client.FetchThread(ctx, me, peer)
	if resp.OK {
		messages := parseThreadMessages(resp, me, peer)
		if _, err := e.store.MergeServerMessages(messages); err != nil {
			e.log.Warnw("thread merge failed", "error", err)
		}
	} else {
		e.log.Debugw("thread fetch failed, serving local", "error", resp.Err)
	}

	local, err := e.store.GetThread(me, peer, limit)
	if err != nil {
		e.log.Warnw("local thread read failed", "error", err)
		return nil
	}

	result := make([]types.ThreadMessage, 0, len(local))
	for _, msg := range local {
		direction := types.DirectionReceived
		if msg.FromHandle == me {
			direction = types.DirectionSent
		}
		result = append(result, types.ThreadMessage{Message: msg, Direction: direction})
	}
	return result
}

// MarkThreadRead updates local statuses only. The server auto-marks on
// thread fetch, so acknowledging again over the network would double-count.
func (e *Engine) MarkThreadRead(me, peer string) int {
	n, err := e.store.MarkThreadRead(me, peer)
	if err != nil {
		e.log.Warnw("mark read failed", "error", err)
		return 0
	}
	return n
}

// SweepResult summarizes one pending sweep pass.
type SweepResult struct {
	Attempted int
	Sent      int
	Exhausted int
}

// SweepPending retries pending and failed messages through the send path,
// oldest first. Each attempt increments retry_count; rows past the retry cap
// stay failed.
func (e *Engine) SweepPending(ctx context.Context) SweepResult {
	result := SweepResult{}

	pending, err := e.store.GetPendingMessages()
	if err != nil {
		e.log.Warnw("pending read failed", "error", err)
		return result
	}

	for _, msg := range pending {
		if msg.RetryCount >= maxSendRetries {
			result.Exhausted++
			continue
		}
		result.Attempted++
		if err := e.store.IncrementRetry(msg.LocalID); err != nil {
			e.log.Warnw("retry increment failed", "local_id", msg.LocalID, "error", err)
		}

		resp := e.client.SendMessage(ctx, api.SendMessageRequest{
			To:      msg.ToHandle,
			Body:    msg.Content,
			Payload: msg.Payload,
		})
		if _, err := e.applySendResult(msg, resp); err != nil {
			e.log.Debugw("retry failed", "local_id", msg.LocalID, "error", err)
			continue
		}
		result.Sent++
	}
	return result
}

// ActiveUser is one entry from the presence roster.
type ActiveUser struct {
	Username  string `json:"username"`
	Status    string `json:"status,omitempty"`
	WorkingOn string `json:"workingOn,omitempty"`
}

// ActiveUsers lists who is online. There is no local mirror; failures
// return an empty slice.
func (e *Engine) ActiveUsers(ctx context.Context) []ActiveUser {
	resp := e.client.ActiveUsers(ctx)
	if !resp.OK {
		e.log.Debugw("active users fetch failed", "error", resp.Err)
		return nil
	}
	var users []ActiveUser
	for _, raw := range resp.Array("users") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		user := ActiveUser{
			Username:  stringField(entry, "username"),
			Status:    stringField(entry, "status"),
			WorkingOn: stringField(entry, "workingOn", "working_on"),
		}
		if user.Username != "" {
			users = append(users, user)
		}
	}
	return users
}

// UnreadCount reports the server's total unread count, falling back to the
// local store when offline.
func (e *Engine) UnreadCount(ctx context.Context, me string) int {
	me = types.NormalizeHandle(me)
	resp := e.client.FetchInbox(ctx, me)
	if resp.OK {
		if unread, ok := resp.Data["unread"].(float64); ok {
			return int(unread)
		}
	}
	threads, err := e.store.GetInboxThreads(me)
	if err != nil {
		return 0
	}
	total := 0
	for _, thread := range threads {
		total += thread.UnreadCount
	}
	return total
}

// journalMessage records a send/receive in the session journal, best effort.
func (e *Engine) journalMessage(direction types.Direction, peer, body string) {
	preview := types.ClipRunes(body, 80)
	if err := e.store.LogMessage(e.cfg.GetSessionID(), direction, peer, preview); err != nil {
		e.log.Debugw("journal write dropped", "error", err)
	}
}
