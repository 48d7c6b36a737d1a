package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
)

// SQLite implements Store over a shared database file. The file is opened in
// WAL mode so multiple processes (editor instances, the CLI, the desktop app)
// can read and write concurrently.
type SQLite struct {
	db *sql.DB
}

// DefaultPath resolves the shared database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vibecodings", "sessions.db"), nil
}

// dsnPragmas rides on the DSN so the driver applies them to every pooled
// connection, not just the one that happens to serve an Exec.
const dsnPragmas = "?_pragma=journal_mode(WAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=foreign_keys(1)"

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// OpenDefault opens the store at the well-known path. If construction fails
// for any reason the null store is returned instead, so callers keep working
// in degraded mode with every write dropped.
func OpenDefault(log *logging.Logger) Store {
	path, err := DefaultPath()
	if err != nil {
		log.Warnw("local store unavailable, running without persistence", "error", err)
		return Null{}
	}
	s, err := Open(path)
	if err != nil {
		log.Warnw("local store unavailable, running without persistence", "path", path, "error", err)
		return Null{}
	}
	return s
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
