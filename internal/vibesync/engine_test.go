package vibesync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VibeCodingInc/vibe-mcp/internal/api"
	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

func newTestEngine(t *testing.T, baseURL string) (*Engine, store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.NewStoreAt(filepath.Join(dir, "config.json"), filepath.Join(dir, "legacy.json"))
	client := api.NewClientAt(baseURL, func() string { return "tok-1" }, "test")
	return NewEngine(st, client, cfg, logging.Nop()), st
}

// sendServer acknowledges POST /api/messages with a server-assigned id.
func sendServer(t *testing.T) *httptest.Server {
	t.Helper()
	n := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			http.NotFound(w, r)
			return
		}
		n++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{
				"id":        "srv-" + strings.Repeat("x", n),
				"thread_id": "th-1",
			},
		})
	}))
}

func TestSendMessageRoundTrip(t *testing.T) {
	srv := sendServer(t)
	defer srv.Close()

	eng, st := newTestEngine(t, srv.URL)
	msg, err := eng.SendMessage(context.Background(), "alice", "@Bob", "hey there", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != types.StatusSent {
		t.Errorf("status = %q, want sent", msg.Status)
	}
	if msg.ServerID == nil || *msg.ServerID != "srv-x" {
		t.Errorf("server id = %v, want srv-x", msg.ServerID)
	}
	if msg.ThreadID == nil || *msg.ThreadID != "th-1" {
		t.Errorf("thread id = %v, want th-1", msg.ThreadID)
	}

	stored, err := st.GetMessage(msg.LocalID)
	if err != nil || stored == nil {
		t.Fatalf("stored row missing: %v", err)
	}
	if stored.Status != types.StatusSent {
		t.Errorf("stored status = %q, want sent", stored.Status)
	}
	if stored.ToHandle != "bob" {
		t.Errorf("to handle = %q, want bob (normalized)", stored.ToHandle)
	}
	if stored.SentAt == nil {
		t.Error("sent_at not stamped")
	}
}

func TestSendSelf(t *testing.T) {
	eng, _ := newTestEngine(t, "http://127.0.0.1:1")
	if _, err := eng.SendMessage(context.Background(), "alice", "@Alice", "hi me", nil); !errors.Is(err, ErrSelfSend) {
		t.Fatalf("err = %v, want ErrSelfSend", err)
	}
}

func TestSendBodyLimit(t *testing.T) {
	srv := sendServer(t)
	defer srv.Close()

	eng, _ := newTestEngine(t, srv.URL)
	atLimit := strings.Repeat("a", types.MaxContentLength)
	if _, err := eng.SendMessage(context.Background(), "alice", "bob", atLimit, nil); err != nil {
		t.Fatalf("body at limit rejected: %v", err)
	}
	if _, err := eng.SendMessage(context.Background(), "alice", "bob", atLimit+"a", nil); !errors.Is(err, ErrBodyTooLong) {
		t.Fatalf("err = %v, want ErrBodyTooLong", err)
	}
}

func TestSendOfflineLeavesFailedRow(t *testing.T) {
	eng, st := newTestEngine(t, "http://127.0.0.1:1")
	msg, err := eng.SendMessage(context.Background(), "alice", "bob", "unreachable", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	stored, err := st.GetMessage(msg.LocalID)
	if err != nil || stored == nil {
		t.Fatalf("stored row missing: %v", err)
	}
	if stored.Status != types.StatusFailed {
		t.Errorf("stored status = %q, want failed", stored.Status)
	}
}

func TestSendAckWithoutIDStaysQueued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	eng, st := newTestEngine(t, srv.URL)
	msg, err := eng.SendMessage(context.Background(), "alice", "bob", "lost ack", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}

	stored, err := st.GetMessage(msg.LocalID)
	if err != nil || stored == nil {
		t.Fatalf("stored row missing: %v", err)
	}
	if stored.Status != types.StatusPending {
		t.Errorf("status = %q, want pending (sent requires a server id)", stored.Status)
	}
	if stored.ServerID != nil {
		t.Errorf("server id = %v, want nil", stored.ServerID)
	}

	// The sweep delivers it once the server answers properly.
	good := sendServer(t)
	defer good.Close()
	eng.client = api.NewClientAt(good.URL, func() string { return "tok-1" }, "test")
	if result := eng.SweepPending(context.Background()); result.Sent != 1 {
		t.Fatalf("sweep = %+v, want 1 sent", result)
	}
	stored, _ = st.GetMessage(msg.LocalID)
	if stored.Status != types.StatusSent || stored.ServerID == nil {
		t.Errorf("after sweep: status = %q, server id = %v", stored.Status, stored.ServerID)
	}
}

func TestSendAuthExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": "token expired"})
	}))
	defer srv.Close()

	eng, _ := newTestEngine(t, srv.URL)
	if _, err := eng.SendMessage(context.Background(), "alice", "bob", "hi", nil); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("err = %v, want ErrAuthExpired", err)
	}
}

func TestSweepRetriesFailedSend(t *testing.T) {
	eng, st := newTestEngine(t, "http://127.0.0.1:1")
	msg, err := eng.SendMessage(context.Background(), "alice", "bob", "try again later", nil)
	if err == nil {
		t.Fatal("expected offline send to fail")
	}

	srv := sendServer(t)
	defer srv.Close()
	eng.client = api.NewClientAt(srv.URL, func() string { return "tok-1" }, "test")

	result := eng.SweepPending(context.Background())
	if result.Attempted != 1 || result.Sent != 1 {
		t.Fatalf("sweep = %+v, want 1 attempted 1 sent", result)
	}

	stored, err := st.GetMessage(msg.LocalID)
	if err != nil || stored == nil {
		t.Fatalf("stored row missing: %v", err)
	}
	if stored.Status != types.StatusSent {
		t.Errorf("status after sweep = %q, want sent", stored.Status)
	}
	if stored.ServerID == nil {
		t.Error("server id not recorded by sweep")
	}
	if stored.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", stored.RetryCount)
	}
}

func TestSweepSkipsExhaustedMessages(t *testing.T) {
	srv := sendServer(t)
	defer srv.Close()
	eng, st := newTestEngine(t, srv.URL)

	msg := types.Message{
		LocalID:    "exhausted-1",
		FromHandle: "alice",
		ToHandle:   "bob",
		Content:    "never going out",
		Status:     types.StatusFailed,
		CreatedAt:  types.NowISO(),
	}
	if err := st.InsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < maxSendRetries; i++ {
		if err := st.IncrementRetry(msg.LocalID); err != nil {
			t.Fatal(err)
		}
	}

	result := eng.SweepPending(context.Background())
	if result.Exhausted != 1 || result.Attempted != 0 {
		t.Fatalf("sweep = %+v, want 1 exhausted 0 attempted", result)
	}
	stored, _ := st.GetMessage(msg.LocalID)
	if stored.Status != types.StatusFailed {
		t.Errorf("status = %q, want failed to stay", stored.Status)
	}
}

func TestInboxOfflineFallsBackToLocal(t *testing.T) {
	eng, st := newTestEngine(t, "http://127.0.0.1:1")
	err := st.InsertMessage(types.Message{
		LocalID:    "m1",
		FromHandle: "bob",
		ToHandle:   "alice",
		Content:    "stored earlier",
		Status:     types.StatusDelivered,
		CreatedAt:  types.NowISO(),
	})
	if err != nil {
		t.Fatal(err)
	}

	threads := eng.GetInbox(context.Background(), "alice")
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	if threads[0].Partner != "bob" || threads[0].UnreadCount != 1 {
		t.Errorf("thread = %+v", threads[0])
	}
}

func TestInboxMergesServerView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"threads": []map[string]any{{
				"with":   "@Carol",
				"unread": 2,
				"lastMessage": map[string]any{
					"id":         "srv-99",
					"from":       "carol",
					"to":         "alice",
					"body":       "seen on server only",
					"created_at": "2026-02-01T10:00:00.000Z",
				},
			}},
			"unread": 2,
		})
	}))
	defer srv.Close()

	eng, st := newTestEngine(t, srv.URL)
	threads := eng.GetInbox(context.Background(), "alice")
	if len(threads) != 1 || threads[0].Partner != "carol" || threads[0].UnreadCount != 2 {
		t.Fatalf("threads = %+v", threads)
	}

	// The merged copy must now be answerable offline.
	local, err := st.GetThread("alice", "carol", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(local) != 1 || local[0].Content != "seen on server only" {
		t.Fatalf("local mirror = %+v", local)
	}
	if local[0].ServerID == nil || *local[0].ServerID != "srv-99" {
		t.Errorf("server id not preserved: %v", local[0].ServerID)
	}
}

func TestGetThreadMergesAndAnnotatesDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{
					"id": "srv-1", "from": "alice", "to": "bob",
					"body": "ping", "created_at": "2026-02-01T10:00:00.000Z",
				},
				{
					"id": "srv-2", "from": "bob", "to": "alice",
					"body": "pong", "created_at": "2026-02-01T10:00:01.000Z",
				},
			},
		})
	}))
	defer srv.Close()

	eng, _ := newTestEngine(t, srv.URL)
	thread := eng.GetThread(context.Background(), "alice", "bob", 0)
	if len(thread) != 2 {
		t.Fatalf("got %d messages, want 2", len(thread))
	}
	if thread[0].Direction != types.DirectionSent || thread[0].Content != "ping" {
		t.Errorf("first = %+v, want sent ping", thread[0])
	}
	if thread[1].Direction != types.DirectionReceived || thread[1].Content != "pong" {
		t.Errorf("second = %+v, want received pong", thread[1])
	}
}

func TestGetThreadMergeIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{{
				"id": "srv-7", "from": "bob", "to": "alice",
				"body": "once only", "created_at": "2026-02-01T10:00:00.000Z",
			}},
		})
	}))
	defer srv.Close()

	eng, _ := newTestEngine(t, srv.URL)
	for i := 0; i < 3; i++ {
		if got := eng.GetThread(context.Background(), "alice", "bob", 0); len(got) != 1 {
			t.Fatalf("fetch %d: got %d messages, want 1", i, len(got))
		}
	}
}

func TestMarkThreadReadIsLocalOnly(t *testing.T) {
	// An unreachable server must not affect marking read.
	eng, st := newTestEngine(t, "http://127.0.0.1:1")
	err := st.InsertMessage(types.Message{
		LocalID:    "m1",
		FromHandle: "bob",
		ToHandle:   "alice",
		Content:    "unread",
		Status:     types.StatusDelivered,
		CreatedAt:  types.NowISO(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := eng.MarkThreadRead("alice", "bob"); n != 1 {
		t.Fatalf("marked %d, want 1", n)
	}
	if n := eng.UnreadCount(context.Background(), "alice"); n != 0 {
		t.Errorf("unread after mark = %d, want 0", n)
	}
}

func TestUnreadCountPrefersServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"threads": []any{}, "unread": 7})
	}))
	defer srv.Close()

	eng, _ := newTestEngine(t, srv.URL)
	if n := eng.UnreadCount(context.Background(), "alice"); n != 7 {
		t.Fatalf("unread = %d, want server's 7", n)
	}
}

func TestActiveUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"username": "carol", "status": "active", "workingOn": "parser"},
				{"status": "ghost"},
			},
		})
	}))
	defer srv.Close()

	eng, _ := newTestEngine(t, srv.URL)
	users := eng.ActiveUsers(context.Background())
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1 (nameless entry dropped)", len(users))
	}
	if users[0].Username != "carol" || users[0].WorkingOn != "parser" {
		t.Errorf("user = %+v", users[0])
	}
}
