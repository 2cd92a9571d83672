// Package adapter defines the contract every database backend
// implements and the process-wide registry the UI connects through.
package adapter

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/dbscope/dbscope/internal/schema"
)

var (
	// ErrNoBidirectional is returned by FetchPrev when the iterator is
	// already at the first page or cannot scroll backwards at all.
	ErrNoBidirectional = errors.New("adapter does not support bidirectional scrolling")

	// ErrNotConnected marks operations attempted without an active
	// connection.
	ErrNotConnected = errors.New("not connected to database")

	// ErrCancelled replaces the driver error when a query dies to
	// context cancellation, so the UI can report it as user-initiated.
	ErrCancelled = errors.New("query cancelled")
)

// DefaultMaxRows caps how many rows Execute buffers before marking the
// result truncated. Streaming execution has no such cap.
const DefaultMaxRows = 5000

// Adapter creates connections for one database engine.
type Adapter interface {
	Connect(ctx context.Context, dsn string) (Connection, error)
	Name() string
	DefaultPort() int
}

// Connection is an open session against one database. Implementations
// are expected to survive Cancel and stay usable for further queries.
type Connection interface {
	// Introspection
	Databases(ctx context.Context) ([]schema.Database, error)
	Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error)
	Views(ctx context.Context, db, schemaName string) ([]schema.View, error)
	Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error)
	Indexes(ctx context.Context, db, schemaName, table string) ([]schema.Index, error)
	ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error)
	Constraints(ctx context.Context, db, schemaName, table string) ([]schema.Constraint, error)

	// Query execution
	Execute(ctx context.Context, query string) (*QueryResult, error)
	Cancel() error

	// Streaming for large results
	ExecuteStreaming(ctx context.Context, query string, pageSize int) (RowIterator, error)

	// Completions
	Completions(ctx context.Context) ([]CompletionItem, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Info
	DatabaseName() string
	AdapterName() string
}

// BatchIntrospector is an optional Connection upgrade: a single query
// per concern instead of one per table. Used when loading a whole
// schema's metadata at once.
type BatchIntrospector interface {
	AllColumns(ctx context.Context, db, schemaName string) (map[string][]schema.Column, error)
	AllIndexes(ctx context.Context, db, schemaName string) (map[string][]schema.Index, error)
	AllForeignKeys(ctx context.Context, db, schemaName string) (map[string][]schema.ForeignKey, error)
}

// RowIterator pages through a result set. FetchNext returns io.EOF when
// exhausted; FetchPrev returns ErrNoBidirectional at the first page.
type RowIterator interface {
	FetchNext(ctx context.Context) ([][]string, error)
	FetchPrev(ctx context.Context) ([][]string, error)
	Columns() []ColumnMeta
	TotalRows() int64 // -1 if unknown
	Close() error
}

// QueryResult is a fully buffered query outcome. Row values are already
// rendered as display strings, with SQL NULL as the literal "NULL".
type QueryResult struct {
	Columns   []ColumnMeta
	Rows      [][]string
	RowCount  int64 // -1 if unknown
	Duration  time.Duration
	IsSelect  bool
	Truncated bool // Rows was cut off at DefaultMaxRows
	Message   string
}

// ColumnMeta describes one result column.
type ColumnMeta struct {
	Name     string
	Type     string
	Nullable bool
}

// CompletionItem is a schema-aware autocomplete candidate.
type CompletionItem struct {
	Label  string
	Kind   CompletionKind
	Detail string
}

// CompletionKind categorizes autocomplete items.
type CompletionKind int

const (
	CompletionTable CompletionKind = iota
	CompletionColumn
	CompletionKeyword
	CompletionFunction
	CompletionSchema
	CompletionDatabase
	CompletionView
)

// SentinelEOF reports whether err means a cleanly exhausted iterator.
func SentinelEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// Registry holds registered adapters by name. Adapters add themselves
// from their package init, so importing an adapter package enables it.
var Registry = map[string]Adapter{}

// Register adds an adapter under its Name.
func Register(a Adapter) {
	Registry[a.Name()] = a
}
