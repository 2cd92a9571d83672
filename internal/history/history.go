// Package history persists executed queries in a small SQLite database
// under the user config directory, so past statements survive restarts
// and can be searched from the history browser.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dbscope/dbscope/internal/config"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	query         TEXT NOT NULL,
	adapter       TEXT,
	database_name TEXT,
	executed_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms   INTEGER,
	row_count     INTEGER,
	is_error      BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_history_executed_at ON history(executed_at);
`

const selectCols = "id, query, adapter, database_name, executed_at, duration_ms, row_count, is_error"

// HistoryEntry is one executed statement with its outcome.
type HistoryEntry struct {
	ID           int64
	Query        string
	Adapter      string
	DatabaseName string
	ExecutedAt   time.Time
	DurationMS   int64
	RowCount     int64
	IsError      bool
}

// History is a SQLite-backed query log.
type History struct {
	db *sql.DB
}

// New opens the history database at ConfigDir()/history.db, creating the
// directory and schema as needed.
func New() (*History, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("history: config dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	return Open(filepath.Join(dir, "history.db"))
}

// Open opens a history database at an explicit path.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &History{db: db}, nil
}

// Add appends one entry to the log.
func (h *History) Add(entry HistoryEntry) error {
	_, err := h.db.Exec(
		`INSERT INTO history (query, adapter, database_name, executed_at, duration_ms, row_count, is_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Query, entry.Adapter, entry.DatabaseName, entry.ExecutedAt,
		entry.DurationMS, entry.RowCount, entry.IsError,
	)
	if err != nil {
		return fmt.Errorf("history: add: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(limit int) ([]HistoryEntry, error) {
	rows, err := h.db.Query(
		`SELECT `+selectCols+` FROM history ORDER BY executed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Search returns up to limit entries whose query text matches the LIKE
// pattern, newest first. The caller supplies the wildcards.
func (h *History) Search(pattern string, limit int) ([]HistoryEntry, error) {
	rows, err := h.db.Query(
		`SELECT `+selectCols+` FROM history WHERE query LIKE ? ORDER BY executed_at DESC LIMIT ?`,
		pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Clear deletes every entry.
func (h *History) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

func collect(rows *sql.Rows) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		err := rows.Scan(&e.ID, &e.Query, &e.Adapter, &e.DatabaseName,
			&e.ExecutedAt, &e.DurationMS, &e.RowCount, &e.IsError)
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return out, nil
}
