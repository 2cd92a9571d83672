// Package audit appends query and connection events to a JSON Lines file.
package audit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Entry is one audit record. Action names the event kind: "query" (the
// default when empty), "connect" or "export".
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action,omitempty"`
	Query        string    `json:"query"`
	Adapter      string    `json:"adapter"`
	DatabaseName string    `json:"database_name"`
	DurationMS   int64     `json:"duration_ms"`
	RowCount     int64     `json:"row_count"`
	IsError      bool      `json:"is_error"`
	DSN          string    `json:"dsn"`
}

// Logger appends entries to a single file, rotating it once over the
// size limit. All methods are safe on a nil Logger so callers can keep
// auditing optional.
type Logger struct {
	mu    sync.Mutex
	f     *os.File
	enc   *json.Encoder
	path  string
	limit int64 // rotation threshold in bytes, 0 disables
}

// New opens (or creates) the audit file at path. Parent directories are
// created 0o700 and the file 0o600 since entries carry DSNs and queries.
func New(path string, maxSizeMB int) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}

	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Logger{
		f:     f,
		enc:   json.NewEncoder(f),
		path:  path,
		limit: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// Log writes e as one JSON line, stamping it with the current time when
// the caller left Timestamp zero.
func (l *Logger) Log(e Entry) {
	if l == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.enc.Encode(e)
	if l.limit > 0 {
		l.rotateIfNeeded()
	}
}

// Close closes the audit file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// rotateIfNeeded moves the file aside as <path>.1 once it reaches the
// limit. A single rotation generation is kept.
func (l *Logger) rotateIfNeeded() {
	info, err := l.f.Stat()
	if err != nil || info.Size() < l.limit {
		return
	}

	_ = l.f.Close()
	_ = os.Rename(l.path, l.path+".1")

	f, err := openAppend(l.path)
	if err != nil {
		return
	}
	l.f = f
	l.enc = json.NewEncoder(f)
}

var (
	mysqlCreds = regexp.MustCompile(`[^@]+@tcp\(`)
	pgPassword = regexp.MustCompile(`password=[^\s]+`)
)

// SanitizeDSN removes credentials from a DSN before it is persisted.
// URL forms keep their structure with the user info replaced; driver
// specific forms are patched textually.
func SanitizeDSN(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://", "mysql://", "duckdb://"} {
		if !strings.HasPrefix(strings.ToLower(dsn), scheme) {
			continue
		}
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		if u.User != nil {
			u.User = url.User("***")
		}
		return u.String()
	}

	dsn = mysqlCreds.ReplaceAllString(dsn, "***@tcp(")
	return pgPassword.ReplaceAllString(dsn, "password=***")
}
