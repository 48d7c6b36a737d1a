package store

import "github.com/VibeCodingInc/vibe-mcp/internal/types"

// Null is the degraded-mode store used when the database cannot be opened.
// Every read returns an empty value and every write is dropped, so tool
// shells keep working without local persistence.
type Null struct{}

var _ Store = Null{}

func (Null) InsertMessage(types.Message) error { return nil }

func (Null) UpdateStatus(string, types.MessageStatus, *string, *string) error { return nil }

func (Null) IncrementRetry(string) error { return nil }

func (Null) GetMessage(string) (*types.Message, error) { return nil, nil }

func (Null) GetThread(string, string, int) ([]types.Message, error) { return nil, nil }

func (Null) GetInboxThreads(string) ([]types.InboxThread, error) { return nil, nil }

func (Null) MergeServerMessages([]types.Message) (int, error) { return 0, nil }

func (Null) MarkThreadRead(string, string) (int, error) { return 0, nil }

func (Null) GetPendingMessages() ([]types.Message, error) { return nil, nil }

func (Null) StartSession(types.Session) error { return nil }

func (Null) EndSession(string, string) error { return nil }

func (Null) SetSessionParent(string, string) error { return nil }

func (Null) GetSession(string) (*types.Session, error) { return nil, nil }

func (Null) GetLastSession(string, string, string) (*types.Session, error) { return nil, nil }

func (Null) GetRecentSessions(string, int, string) ([]types.Session, error) { return nil, nil }

func (Null) LogToolCall(string, string, string) error { return nil }

func (Null) LogMessage(string, types.Direction, string, string) error { return nil }

func (Null) LogNote(string, string) error { return nil }

func (Null) GetSessionJournal(string, int) ([]types.JournalEntry, error) { return nil, nil }

func (Null) Close() error { return nil }
