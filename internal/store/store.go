// Package store provides a SQLite-backed chat transcript store. Each chat
// session has its own transcript of question/answer turns. Transcripts are
// persisted across server restarts so a session's history endpoint can be
// replayed after a redeploy.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Role identifies the author of a transcript turn.
type Role string

const (
	// RoleUser is a question asked by the user.
	RoleUser Role = "user"
	// RoleAssistant is an answer produced from the document.
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in a session transcript.
type Turn struct {
	// Role is the author of the turn.
	Role Role
	// Content is the text of the turn.
	Content string
	// CitedPages are the document pages an assistant turn cited. Empty for
	// user turns and for answers that carried no citations.
	CitedPages []int
	// CreatedAt is when the turn was persisted.
	CreatedAt time.Time
}

// TranscriptStore persists and retrieves chat transcripts keyed by session
// ID. Implementations must be safe for concurrent use.
type TranscriptStore interface {
	// Append persists a single turn for the given session.
	Append(ctx context.Context, sessionID string, turn Turn) error
	// History returns all turns for the session, oldest-first.
	History(ctx context.Context, sessionID string) ([]Turn, error)
	// Clear removes every turn for the session. Used when a session is
	// deleted or its document is replaced.
	Clear(ctx context.Context, sessionID string) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a TranscriptStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the transcript database.
// It resolves to ~/.whochat/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".whochat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS turns (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session      TEXT    NOT NULL,
    role         TEXT    NOT NULL CHECK(role IN ('user','assistant')),
    content      TEXT    NOT NULL,
    cited_pages  TEXT    NOT NULL DEFAULT '[]',  -- JSON array of page numbers
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_turns_session_created
    ON turns (session, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a single turn for the given session.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	pages := turn.CitedPages
	if pages == nil {
		pages = []int{}
	}
	encoded, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("store: encode cited pages: %w", err)
	}
	created := turn.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	const q = `INSERT INTO turns (session, role, content, cited_pages, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, sessionID, string(turn.Role), turn.Content, string(encoded), created.Unix()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// History returns all turns for the session, oldest-first.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	const q = `
SELECT role, content, cited_pages, created_at
FROM   turns
WHERE  session = ?
ORDER  BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var ts int64
		var role, pages string
		if err := rows.Scan(&role, &t.Content, &pages, &ts); err != nil {
			return nil, fmt.Errorf("store: history scan: %w", err)
		}
		if err := json.Unmarshal([]byte(pages), &t.CitedPages); err != nil {
			return nil, fmt.Errorf("store: decode cited pages: %w", err)
		}
		t.Role = Role(role)
		t.CreatedAt = time.Unix(ts, 0)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: history rows: %w", err)
	}
	return turns, nil
}

// Clear removes every turn for the session.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM turns WHERE session = ?`
	if _, err := s.db.ExecContext(ctx, q, sessionID); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
