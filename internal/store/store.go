package store

import (
	"errors"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

// ErrStatusRegression is returned when an update would move a message
// status backward through the lifecycle.
var ErrStatusRegression = errors.New("message status cannot move backward")

// MessageStore is the durable table of direct messages.
type MessageStore interface {
	// InsertMessage upserts by local_id. Used by optimistic send.
	InsertMessage(m types.Message) error
	// UpdateStatus advances a message's status, setting server/thread ids
	// with COALESCE semantics. Backward transitions are refused.
	UpdateStatus(localID string, status types.MessageStatus, serverID, threadID *string) error
	// IncrementRetry bumps retry_count for a message.
	IncrementRetry(localID string) error
	// GetMessage returns a message by local_id, or nil.
	GetMessage(localID string) (*types.Message, error)
	// GetThread returns messages between a and b, created_at ascending.
	// A positive limit keeps the most recent limit messages.
	GetThread(a, b string, limit int) ([]types.Message, error)
	// GetInboxThreads returns one summary per conversation partner,
	// ordered by latest message time descending.
	GetInboxThreads(me string) ([]types.InboxThread, error)
	// MergeServerMessages idempotently inserts messages absent locally
	// (keyed by server_id) inside one transaction. Returns inserted count.
	MergeServerMessages(batch []types.Message) (int, error)
	// MarkThreadRead transitions unread messages from peer to read.
	// Returns the number of rows updated.
	MarkThreadRead(me, peer string) (int, error)
	// GetPendingMessages returns pending/failed messages, oldest first.
	GetPendingMessages() ([]types.Message, error)
}

// SessionJournal is the append-only log of MCP sessions and their events.
type SessionJournal interface {
	StartSession(s types.Session) error
	EndSession(sessionID, summary string) error
	SetSessionParent(sessionID, parentID string) error
	GetSession(sessionID string) (*types.Session, error)
	GetLastSession(handle, repo, excludeID string) (*types.Session, error)
	GetRecentSessions(handle string, limit int, repo string) ([]types.Session, error)
	LogToolCall(sessionID, toolName, target string) error
	LogMessage(sessionID string, direction types.Direction, peer, preview string) error
	LogNote(sessionID, note string) error
	GetSessionJournal(sessionID string, limit int) ([]types.JournalEntry, error)
}

// Store combines both stores over one database handle.
type Store interface {
	MessageStore
	SessionJournal
	Close() error
}
