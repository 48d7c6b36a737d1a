package store

import (
	"database/sql"
	"fmt"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

const sessionColumns = `session_id, handle, machine_id, started_at, ended_at, git_repo, git_branch, summary, parent_id`

// StartSession records a new session. started_at defaults to now.
func (s *SQLite) StartSession(sess types.Session) error {
	if sess.SessionID == "" {
		return fmt.Errorf("session id required")
	}
	startedAt := sess.StartedAt
	if startedAt == "" {
		startedAt = types.NowISO()
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (session_id, handle, machine_id, started_at, ended_at, git_repo, git_branch, summary, parent_id)
		VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sess.SessionID, types.NormalizeHandle(sess.Handle), sess.MachineID, startedAt,
		sess.GitRepo, sess.GitBranch, sess.Summary, sess.ParentID)
	return err
}

// EndSession stamps ended_at and records the closing summary, if any.
func (s *SQLite) EndSession(sessionID, summary string) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET
		  ended_at = COALESCE(ended_at, ?),
		  summary = CASE WHEN ? != '' THEN ? ELSE summary END
		WHERE session_id = ?
	`, types.NowISO(), summary, summary, sessionID)
	return err
}

// SetSessionParent links a session to its predecessor in the resume chain.
func (s *SQLite) SetSessionParent(sessionID, parentID string) error {
	_, err := s.db.Exec("UPDATE sessions SET parent_id = ? WHERE session_id = ?", parentID, sessionID)
	return err
}

// GetSession returns a session by id, or nil.
func (s *SQLite) GetSession(sessionID string) (*types.Session, error) {
	row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE session_id = ?", sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetLastSession returns the most recent session for a handle, optionally
// scoped to a repo, excluding the given session id (normally the current one).
func (s *SQLite) GetLastSession(handle, repo, excludeID string) (*types.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE handle = ?"
	params := []any{types.NormalizeHandle(handle)}
	if repo != "" {
		query += " AND git_repo = ?"
		params = append(params, repo)
	}
	if excludeID != "" {
		query += " AND session_id != ?"
		params = append(params, excludeID)
	}
	query += " ORDER BY started_at DESC, session_id DESC LIMIT 1"

	row := s.db.QueryRow(query, params...)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetRecentSessions returns sessions for a handle, newest first.
func (s *SQLite) GetRecentSessions(handle string, limit int, repo string) ([]types.Session, error) {
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT " + sessionColumns + " FROM sessions WHERE handle = ?"
	params := []any{types.NormalizeHandle(handle)}
	if repo != "" {
		query += " AND git_repo = ?"
		params = append(params, repo)
	}
	query += " ORDER BY started_at DESC, session_id DESC LIMIT ?"
	params = append(params, limit)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// LogToolCall appends a tool_call entry to the journal.
func (s *SQLite) LogToolCall(sessionID, toolName, target string) error {
	return s.appendJournal(types.JournalEntry{
		SessionID: sessionID,
		EventType: types.EventToolCall,
		ToolName:  toolName,
		Target:    target,
	})
}

// LogMessage appends a message_sent or message_received entry.
func (s *SQLite) LogMessage(sessionID string, direction types.Direction, peer, preview string) error {
	eventType := types.EventMessageSent
	if direction == types.DirectionReceived {
		eventType = types.EventMessageReceived
	}
	return s.appendJournal(types.JournalEntry{
		SessionID: sessionID,
		EventType: eventType,
		Target:    types.NormalizeHandle(peer),
		Summary:   preview,
	})
}

// LogNote appends a free-form note entry.
func (s *SQLite) LogNote(sessionID, note string) error {
	return s.appendJournal(types.JournalEntry{
		SessionID: sessionID,
		EventType: types.EventNote,
		Summary:   note,
	})
}

func (s *SQLite) appendJournal(entry types.JournalEntry) error {
	timestamp := entry.Timestamp
	if timestamp == "" {
		timestamp = types.NowISO()
	}
	var metadata *string
	if len(entry.Metadata) > 0 {
		text := string(entry.Metadata)
		metadata = &text
	}
	_, err := s.db.Exec(`
		INSERT INTO session_journal (session_id, timestamp, event_type, tool_name, target, summary, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, timestamp, entry.EventType, entry.ToolName, entry.Target, entry.Summary, metadata)
	return err
}

// GetSessionJournal returns a session's entries in append order.
func (s *SQLite) GetSessionJournal(sessionID string, limit int) ([]types.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, timestamp, event_type, tool_name, target, summary, metadata
		FROM session_journal
		WHERE session_id = ?
		ORDER BY id ASC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.JournalEntry
	for rows.Next() {
		var entry types.JournalEntry
		var toolName, target, summary, metadata sql.NullString
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Timestamp, &entry.EventType,
			&toolName, &target, &summary, &metadata); err != nil {
			return nil, err
		}
		entry.ToolName = toolName.String
		entry.Target = target.String
		entry.Summary = summary.String
		if metadata.Valid && metadata.String != "" {
			entry.Metadata = []byte(metadata.String)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (types.Session, error) {
	var sess types.Session
	var machineID, endedAt, gitRepo, gitBranch, summary, parentID sql.NullString
	if err := scanner.Scan(&sess.SessionID, &sess.Handle, &machineID, &sess.StartedAt,
		&endedAt, &gitRepo, &gitBranch, &summary, &parentID); err != nil {
		return types.Session{}, err
	}
	sess.MachineID = machineID.String
	sess.EndedAt = nullStringPtr(endedAt)
	sess.GitRepo = gitRepo.String
	sess.GitBranch = gitBranch.String
	sess.Summary = summary.String
	sess.ParentID = nullStringPtr(parentID)
	return sess, nil
}
