package types

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageStatus is the delivery state of a direct message.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// MaxContentLength is the longest message body the store accepts.
// Callers truncate before insert.
const MaxContentLength = 2000

// statusTransitions lists the allowed forward edges. pending→sent→delivered→read,
// pending|sent→failed, and failed→sent when a retry lands.
var statusTransitions = map[MessageStatus][]MessageStatus{
	StatusPending:   {StatusSent, StatusDelivered, StatusRead, StatusFailed},
	StatusSent:      {StatusDelivered, StatusRead, StatusFailed},
	StatusDelivered: {StatusRead},
	StatusRead:      {},
	StatusFailed:    {StatusSent, StatusDelivered, StatusRead},
}

// Valid reports whether s is one of the five allowed status tokens.
func (s MessageStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanAdvanceTo reports whether the transition s → next is allowed.
// Transitions never go backward; a no-op transition is allowed.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AtLeastSent reports whether the message has been acknowledged by the server.
func (s MessageStatus) AtLeastSent() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusRead
}

// Message is a direct message between two handles.
type Message struct {
	LocalID     string          `json:"local_id"`
	ServerID    *string         `json:"server_id,omitempty"`
	ThreadID    *string         `json:"thread_id,omitempty"`
	FromHandle  string          `json:"from_handle"`
	ToHandle    string          `json:"to_handle"`
	Content     string          `json:"content"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      MessageStatus   `json:"status"`
	CreatedAt   string          `json:"created_at"`
	SentAt      *string         `json:"sent_at,omitempty"`
	DeliveredAt *string         `json:"delivered_at,omitempty"`
	ReadAt      *string         `json:"read_at,omitempty"`
	SyncedAt    *string         `json:"synced_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
}

// Direction marks a thread message relative to the viewing handle.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ThreadMessage is a message annotated with its direction for the viewer.
type ThreadMessage struct {
	Message
	Direction Direction `json:"direction"`
}

// InboxThread summarizes a conversation with one partner.
type InboxThread struct {
	Partner     string  `json:"partner"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}

// Session records one MCP process lifetime in the local journal.
type Session struct {
	SessionID string  `json:"session_id"`
	Handle    string  `json:"handle"`
	MachineID string  `json:"machine_id,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
	GitRepo   string  `json:"git_repo,omitempty"`
	GitBranch string  `json:"git_branch,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	ParentID  *string `json:"parent_id,omitempty"`
}

// JournalEventType classifies journal entries.
type JournalEventType string

const (
	EventToolCall        JournalEventType = "tool_call"
	EventMessageSent     JournalEventType = "message_sent"
	EventMessageReceived JournalEventType = "message_received"
	EventNote            JournalEventType = "note"
)

// JournalEntry is one append-only record within a session.
type JournalEntry struct {
	ID        int64            `json:"id"`
	SessionID string           `json:"session_id"`
	Timestamp string           `json:"timestamp"`
	EventType JournalEventType `json:"event_type"`
	ToolName  string           `json:"tool_name,omitempty"`
	Target    string           `json:"target,omitempty"`
	Summary   string           `json:"summary,omitempty"`
	Metadata  json.RawMessage  `json:"metadata,omitempty"`
}

// NormalizeHandle lowercases a handle and strips whitespace and a leading @.
func NormalizeHandle(handle string) string {
	trimmed := strings.TrimSpace(handle)
	trimmed = strings.TrimPrefix(trimmed, "@")
	return strings.ToLower(trimmed)
}

// isoFormat is fixed-width so timestamps sort lexically.
const isoFormat = "2006-01-02T15:04:05.000Z07:00"

// NowISO returns the current UTC time as an ISO-8601 string.
func NowISO() string {
	return time.Now().UTC().Format(isoFormat)
}

// TruncateContent clips a body to MaxContentLength runes.
func TruncateContent(body string) string {
	return ClipRunes(body, MaxContentLength)
}

// ClipRunes returns at most n runes of s, never splitting a rune.
func ClipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
