package store

import (
	"database/sql"
	"strings"
)

const schemaSQL = `
-- Direct messages
CREATE TABLE IF NOT EXISTS messages (
  local_id TEXT PRIMARY KEY,           -- client UUID assigned at optimistic insert
  server_id TEXT,                      -- assigned by the server on ack
  thread_id TEXT,                      -- server thread grouping, optional metadata
  from_handle TEXT NOT NULL,
  to_handle TEXT NOT NULL,
  content TEXT NOT NULL,
  payload TEXT,                        -- opaque structured payload, stored verbatim
  status TEXT NOT NULL DEFAULT 'pending'
    CHECK (status IN ('pending','sent','delivered','read','failed')),
  created_at TEXT NOT NULL,            -- ISO-8601, client clock
  sent_at TEXT,
  delivered_at TEXT,
  read_at TEXT,
  synced_at TEXT,
  retry_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_handle, to_handle, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_server ON messages(server_id) WHERE server_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status);
CREATE INDEX IF NOT EXISTS idx_messages_synced ON messages(synced_at);

-- MCP sessions
CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  handle TEXT NOT NULL,
  machine_id TEXT,
  started_at TEXT NOT NULL,
  ended_at TEXT,
  git_repo TEXT,
  git_branch TEXT,
  summary TEXT,
  parent_id TEXT                       -- previous session in the resume chain
);

CREATE INDEX IF NOT EXISTS idx_sessions_handle ON sessions(handle, started_at);
CREATE INDEX IF NOT EXISTS idx_sessions_repo ON sessions(git_repo, started_at);

-- Session journal
CREATE TABLE IF NOT EXISTS session_journal (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  timestamp TEXT NOT NULL,
  event_type TEXT NOT NULL,
  tool_name TEXT,
  target TEXT,
  summary TEXT,
  metadata TEXT,
  FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_journal_session ON session_journal(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_journal_event ON session_journal(event_type);
`

// migrations are additive columns for databases created by older builds.
// Each statement is safe to re-run; duplicate-column errors are expected.
var migrations = []string{
	"ALTER TABLE messages ADD COLUMN payload TEXT",
	"ALTER TABLE messages ADD COLUMN retry_count INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE sessions ADD COLUMN parent_id TEXT",
}

// InitSchema creates tables and indices, then applies additive migrations.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return err
		}
	}
	return nil
}
