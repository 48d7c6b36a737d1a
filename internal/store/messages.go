package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

// messageColumns is the explicit column list for SELECT queries so additive
// migrations can't shift scan order.
const messageColumns = `local_id, server_id, thread_id, from_handle, to_handle, content, payload, status, created_at, sent_at, delivered_at, read_at, synced_at, retry_count`

// InsertMessage upserts a message by local_id. Re-inserting the same local_id
// refreshes the body and payload but never touches lifecycle columns.
func (s *SQLite) InsertMessage(m types.Message) error {
	if !m.Status.Valid() {
		return fmt.Errorf("invalid status %q", m.Status)
	}
	var payload *string
	if len(m.Payload) > 0 {
		text := string(m.Payload)
		payload = &text
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (local_id, server_id, thread_id, from_handle, to_handle, content, payload, status, created_at, sent_at, delivered_at, read_at, synced_at, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET content = excluded.content, payload = excluded.payload
	`, m.LocalID, m.ServerID, m.ThreadID, m.FromHandle, m.ToHandle, m.Content, payload,
		m.Status, m.CreatedAt, m.SentAt, m.DeliveredAt, m.ReadAt, m.SyncedAt, m.RetryCount)
	return err
}

// UpdateStatus advances status forward only and stamps lifecycle timestamps.
// server_id and thread_id use COALESCE semantics: an already-set id is never
// cleared or replaced.
func (s *SQLite) UpdateStatus(localID string, status types.MessageStatus, serverID, threadID *string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current types.MessageStatus
	err = tx.QueryRow("SELECT status FROM messages WHERE local_id = ?", localID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("message not found: %s", localID)
	}
	if err != nil {
		return err
	}
	if !current.CanAdvanceTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current, status)
	}

	now := types.NowISO()
	query := `
		UPDATE messages SET
		  status = ?,
		  server_id = COALESCE(server_id, ?),
		  thread_id = COALESCE(thread_id, ?)`
	args := []any{status, serverID, threadID}

	if status.AtLeastSent() {
		query += `, sent_at = COALESCE(sent_at, ?), synced_at = COALESCE(synced_at, ?)`
		args = append(args, now, now)
	}
	if status == types.StatusDelivered || status == types.StatusRead {
		query += `, delivered_at = COALESCE(delivered_at, ?)`
		args = append(args, now)
	}
	if status == types.StatusRead {
		query += `, read_at = COALESCE(read_at, ?)`
		args = append(args, now)
	}
	query += ` WHERE local_id = ?`
	args = append(args, localID)

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// IncrementRetry bumps the retry counter for a message.
func (s *SQLite) IncrementRetry(localID string) error {
	_, err := s.db.Exec("UPDATE messages SET retry_count = retry_count + 1 WHERE local_id = ?", localID)
	return err
}

// GetMessage returns a single message by local_id, or nil when absent.
func (s *SQLite) GetMessage(localID string) (*types.Message, error) {
	row := s.db.QueryRow("SELECT "+messageColumns+" FROM messages WHERE local_id = ?", localID)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetThread returns messages between a and b ordered by created_at ascending.
// With a positive limit, the most recent limit messages are returned (still
// ascending), mirroring how the bounded room view works.
func (s *SQLite) GetThread(a, b string, limit int) ([]types.Message, error) {
	a = types.NormalizeHandle(a)
	b = types.NormalizeHandle(b)

	pairClause := `((from_handle = ? AND to_handle = ?) OR (from_handle = ? AND to_handle = ?))`
	params := []any{a, b, b, a}

	query := "SELECT " + messageColumns + " FROM messages WHERE " + pairClause + " ORDER BY created_at ASC, local_id ASC"
	if limit > 0 {
		query = fmt.Sprintf(`
			SELECT %s FROM (
				SELECT %s FROM messages WHERE %s
				ORDER BY created_at DESC, local_id DESC
				LIMIT ?
			) ORDER BY created_at ASC, local_id ASC
		`, messageColumns, messageColumns, pairClause)
		params = append(params, limit)
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetInboxThreads returns one summary per partner: the latest message and the
// unread count (messages to me still in sent/delivered). Ordered by latest
// message time descending.
func (s *SQLite) GetInboxThreads(me string) ([]types.InboxThread, error) {
	me = types.NormalizeHandle(me)

	rows, err := s.db.Query(`
		SELECT `+messageColumns+` FROM messages
		WHERE from_handle = ? OR to_handle = ?
		ORDER BY created_at DESC, local_id DESC
	`, me, me)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	unread := map[string]int{}
	unreadRows, err := s.db.Query(`
		SELECT from_handle, COUNT(*) FROM messages
		WHERE to_handle = ? AND status IN ('sent','delivered')
		GROUP BY from_handle
	`, me)
	if err != nil {
		return nil, err
	}
	defer unreadRows.Close()
	for unreadRows.Next() {
		var partner string
		var count int
		if err := unreadRows.Scan(&partner, &count); err != nil {
			return nil, err
		}
		unread[partner] = count
	}
	if err := unreadRows.Err(); err != nil {
		return nil, err
	}

	// Messages are newest-first, so the first message seen per partner is
	// that thread's latest.
	var threads []types.InboxThread
	seen := map[string]bool{}
	for _, msg := range messages {
		partner := msg.FromHandle
		if partner == me {
			partner = msg.ToHandle
		}
		if seen[partner] {
			continue
		}
		seen[partner] = true
		threads = append(threads, types.InboxThread{
			Partner:     partner,
			LastMessage: msg,
			UnreadCount: unread[partner],
		})
	}
	return threads, nil
}

// MergeServerMessages inserts server messages absent from the local store,
// keyed by server_id, inside one transaction. Existing rows are never
// overwritten, so applying the same batch twice is a no-op.
func (s *SQLite) MergeServerMessages(batch []types.Message) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO messages (local_id, server_id, thread_id, from_handle, to_handle, content, payload, status, created_at, sent_at, delivered_at, read_at, synced_at, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range batch {
		if m.ServerID == nil || *m.ServerID == "" {
			continue
		}
		var payload *string
		if len(m.Payload) > 0 {
			text := string(m.Payload)
			payload = &text
		}
		status := m.Status
		if !status.Valid() {
			status = types.StatusDelivered
		}
		res, err := stmt.Exec(m.LocalID, m.ServerID, m.ThreadID, m.FromHandle, m.ToHandle,
			m.Content, payload, status, m.CreatedAt, m.SentAt, m.DeliveredAt, m.ReadAt, m.SyncedAt)
		if err != nil {
			return inserted, err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// MarkThreadRead transitions all unread messages from peer to read, stamping
// read_at. Unrelated rows are untouched.
func (s *SQLite) MarkThreadRead(me, peer string) (int, error) {
	me = types.NormalizeHandle(me)
	peer = types.NormalizeHandle(peer)

	res, err := s.db.Exec(`
		UPDATE messages SET status = 'read', read_at = COALESCE(read_at, ?)
		WHERE to_handle = ? AND from_handle = ? AND status IN ('sent','delivered')
	`, types.NowISO(), me, peer)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetPendingMessages returns messages awaiting (re)send, oldest first.
func (s *SQLite) GetPendingMessages() ([]types.Message, error) {
	rows, err := s.db.Query(`
		SELECT ` + messageColumns + ` FROM messages
		WHERE status IN ('pending','failed')
		ORDER BY created_at ASC, local_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

type messageRow struct {
	LocalID     string
	ServerID    sql.NullString
	ThreadID    sql.NullString
	FromHandle  string
	ToHandle    string
	Content     string
	Payload     sql.NullString
	Status      string
	CreatedAt   string
	SentAt      sql.NullString
	DeliveredAt sql.NullString
	ReadAt      sql.NullString
	SyncedAt    sql.NullString
	RetryCount  int
}

func (row messageRow) toMessage() types.Message {
	var payload json.RawMessage
	if row.Payload.Valid && row.Payload.String != "" {
		payload = json.RawMessage(row.Payload.String)
	}
	return types.Message{
		LocalID:     row.LocalID,
		ServerID:    nullStringPtr(row.ServerID),
		ThreadID:    nullStringPtr(row.ThreadID),
		FromHandle:  row.FromHandle,
		ToHandle:    row.ToHandle,
		Content:     row.Content,
		Payload:     payload,
		Status:      types.MessageStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		SentAt:      nullStringPtr(row.SentAt),
		DeliveredAt: nullStringPtr(row.DeliveredAt),
		ReadAt:      nullStringPtr(row.ReadAt),
		SyncedAt:    nullStringPtr(row.SyncedAt),
		RetryCount:  row.RetryCount,
	}
}

func scanMessage(scanner interface{ Scan(dest ...any) error }) (types.Message, error) {
	var row messageRow
	if err := scanner.Scan(&row.LocalID, &row.ServerID, &row.ThreadID, &row.FromHandle, &row.ToHandle,
		&row.Content, &row.Payload, &row.Status, &row.CreatedAt, &row.SentAt, &row.DeliveredAt,
		&row.ReadAt, &row.SyncedAt, &row.RetryCount); err != nil {
		return types.Message{}, err
	}
	return row.toMessage(), nil
}

func scanMessages(rows *sql.Rows) ([]types.Message, error) {
	var messages []types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
