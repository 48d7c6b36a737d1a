package store

import (
	"path/filepath"
	"testing"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func strPtr(value string) *string {
	return &value
}

func newMessage(from, to, content string, status types.MessageStatus) types.Message {
	return types.Message{
		LocalID:    "local-" + from + "-" + to + "-" + content,
		FromHandle: from,
		ToHandle:   to,
		Content:    content,
		Status:     status,
		CreatedAt:  types.NowISO(),
	}
}
