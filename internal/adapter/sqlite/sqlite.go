// Package sqlite implements the SQLite adapter on top of the pure-Go
// modernc.org driver, so the binary stays cgo-free. Introspection uses
// sqlite_master and the table PRAGMAs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/schema"
)

func init() {
	adapter.Register(driver{})
}

type driver struct{}

func (driver) Name() string     { return "sqlite" }
func (driver) DefaultPort() int { return 0 }

func (driver) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	path := toPath(dsn)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	dbName := path
	if path != ":memory:" {
		dbName = filepath.Base(path)
	}
	return &conn{db: db, dbName: dbName}, nil
}

// toPath strips the URI prefixes accepted in connection forms down to a
// plain file path (or :memory:).
func toPath(dsn string) string {
	for _, prefix := range []string{"sqlite://", "file:"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

type conn struct {
	db     *sql.DB
	dbName string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *conn) AdapterName() string  { return "sqlite" }
func (c *conn) DatabaseName() string { return c.dbName }

func (c *conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *conn) Close() error                   { return c.db.Close() }

func (c *conn) arm(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

func (c *conn) disarm() {
	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()
}

// Cancel aborts the in-flight query. SQLite runs in-process, so context
// cancellation is all it takes.
func (c *conn) Cancel() error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Databases reports the single attached file as one database with one
// "main" schema, preloaded with its tables and views.
func (c *conn) Databases(ctx context.Context) ([]schema.Database, error) {
	tables, err := c.Tables(ctx, c.dbName, "main")
	if err != nil {
		return nil, err
	}
	views, err := c.Views(ctx, c.dbName, "main")
	if err != nil {
		return nil, err
	}
	return []schema.Database{{
		Name: c.dbName,
		Schemas: []schema.Schema{{
			Name:   "main",
			Tables: tables,
			Views:  views,
		}},
	}}, nil
}

func (c *conn) Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error) {
	names, err := c.stringColumn(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tables: %w", err)
	}
	tables := make([]schema.Table, len(names))
	for i, n := range names {
		tables[i] = schema.Table{Name: n}
	}
	return tables, nil
}

func (c *conn) Views(ctx context.Context, db, schemaName string) ([]schema.View, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, COALESCE(sql, '') FROM sqlite_master
		 WHERE type = 'view' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: views: %w", err)
	}
	defer rows.Close()

	var views []schema.View
	for rows.Next() {
		var v schema.View
		if err := rows.Scan(&v.Name, &v.Definition); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (c *conn) Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: table_info: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			cid     int
			col     schema.Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		col.Nullable = notNull == 0
		col.IsPK = pk > 0
		col.Default = dflt.String
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// indexEntry is one row of PRAGMA index_list. origin is 'c' for CREATE
// INDEX, 'u' for UNIQUE constraints and 'pk' for primary keys.
type indexEntry struct {
	name   string
	unique bool
	origin string
}

func (c *conn) indexList(ctx context.Context, table string) ([]indexEntry, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: index_list: %w", err)
	}
	defer rows.Close()

	var entries []indexEntry
	for rows.Next() {
		var (
			seq     int
			e       indexEntry
			unique  int
			partial int
		)
		if err := rows.Scan(&seq, &e.name, &unique, &e.origin, &partial); err != nil {
			return nil, err
		}
		e.unique = unique == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (c *conn) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return nil, fmt.Errorf("sqlite: index_info: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name string
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (c *conn) Indexes(ctx context.Context, db, schemaName, table string) ([]schema.Index, error) {
	entries, err := c.indexList(ctx, table)
	if err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, e := range entries {
		cols, err := c.indexColumns(ctx, e.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, schema.Index{
			Name:    e.name,
			Unique:  e.unique,
			Columns: cols,
		})
	}
	return indexes, nil
}

// ForeignKeys groups PRAGMA foreign_key_list rows by their id column,
// since one constraint spans a row per member column. SQLite does not
// name FK constraints, so a stable synthetic name is used.
func (c *conn) ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: foreign_key_list: %w", err)
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	lastID := -1
	for rows.Next() {
		var (
			id, seq                   int
			refTable, from, to        string
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		if id == lastID {
			last := &fks[len(fks)-1]
			last.Columns = append(last.Columns, from)
			last.RefColumns = append(last.RefColumns, to)
			continue
		}
		lastID = id
		fks = append(fks, schema.ForeignKey{
			Name:       fmt.Sprintf("fk_%s_%d", table, id),
			RefTable:   refTable,
			Columns:    []string{from},
			RefColumns: []string{to},
		})
	}
	return fks, rows.Err()
}

// Constraints reports the primary key and UNIQUE constraints. CHECK
// clauses exist only inside the raw CREATE TABLE text, so they are not
// surfaced.
func (c *conn) Constraints(ctx context.Context, db, schemaName, table string) ([]schema.Constraint, error) {
	cols, err := c.Columns(ctx, db, schemaName, table)
	if err != nil {
		return nil, err
	}

	var cons []schema.Constraint
	var pkCols []string
	for _, col := range cols {
		if col.IsPK {
			pkCols = append(pkCols, col.Name)
		}
	}
	if len(pkCols) > 0 {
		cons = append(cons, schema.Constraint{
			Name:       "pk_" + table,
			Type:       "PRIMARY KEY",
			Definition: fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")),
		})
	}

	// UNIQUE table constraints surface as auto-created indexes with
	// origin 'u'.
	entries, err := c.indexList(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.origin != "u" {
			continue
		}
		idxCols, err := c.indexColumns(ctx, e.name)
		if err != nil {
			return nil, err
		}
		cons = append(cons, schema.Constraint{
			Name:       e.name,
			Type:       "UNIQUE",
			Definition: fmt.Sprintf("UNIQUE (%s)", strings.Join(idxCols, ", ")),
		})
	}
	return cons, nil
}

func (c *conn) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.arm(cancel)
	defer func() {
		c.disarm()
		cancel()
	}()

	start := time.Now()
	if producesRows(query) {
		return c.runQuery(ctx, query, start)
	}
	return c.runExec(ctx, query, start)
}

func (c *conn) runQuery(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryErr(ctx, err)
	}
	defer rows.Close()

	columns, err := columnMeta(rows)
	if err != nil {
		return nil, err
	}

	var data [][]string
	truncated := false
	for rows.Next() {
		if len(data) >= adapter.DefaultMaxRows {
			truncated = true
			break
		}
		row, err := scanStrings(rows, len(columns))
		if err != nil {
			return nil, err
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(ctx, err)
	}

	return &adapter.QueryResult{
		Columns:   columns,
		Rows:      data,
		RowCount:  int64(len(data)),
		Duration:  time.Since(start),
		IsSelect:  true,
		Truncated: truncated,
	}, nil
}

func (c *conn) runExec(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	res, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return nil, queryErr(ctx, err)
	}
	affected, _ := res.RowsAffected()
	return &adapter.QueryResult{
		RowCount: affected,
		Duration: time.Since(start),
		Message:  fmt.Sprintf("%d row(s) affected", affected),
	}, nil
}

// queryErr maps an error caused by context cancellation to the shared
// sentinel so the UI can tell "cancelled" apart from a real failure.
func queryErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return adapter.ErrCancelled
	}
	return err
}

// ExecuteStreaming pages through the query with LIMIT/OFFSET over a
// derived table, re-running it per page. OFFSET scans are cheap here
// since the file is local.
func (c *conn) ExecuteStreaming(ctx context.Context, query string, pageSize int) (adapter.RowIterator, error) {
	base := strings.TrimRight(query, "; \t\n")

	// LIMIT 0 probe for column metadata.
	rows, err := c.db.QueryContext(ctx, pageQuery(base, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("sqlite: streaming probe: %w", err)
	}
	columns, err := columnMeta(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	return &pageIter{conn: c, base: base, pageSize: pageSize, columns: columns}, nil
}

func pageQuery(base string, limit, offset int64) string {
	return fmt.Sprintf("SELECT * FROM (%s) LIMIT %d OFFSET %d", base, limit, offset)
}

type pageIter struct {
	conn     *conn
	base     string
	pageSize int
	columns  []adapter.ColumnMeta
	offset   int64
}

func (it *pageIter) Columns() []adapter.ColumnMeta { return it.columns }
func (it *pageIter) TotalRows() int64              { return -1 }
func (it *pageIter) Close() error                  { return nil }

func (it *pageIter) FetchNext(ctx context.Context) ([][]string, error) {
	return it.fetchAt(ctx, it.offset)
}

func (it *pageIter) FetchPrev(ctx context.Context) ([][]string, error) {
	back := it.offset - 2*int64(it.pageSize)
	if back < 0 {
		if it.offset <= int64(it.pageSize) {
			return nil, adapter.ErrNoBidirectional
		}
		back = 0
	}
	return it.fetchAt(ctx, back)
}

func (it *pageIter) fetchAt(ctx context.Context, offset int64) ([][]string, error) {
	rows, err := it.conn.db.QueryContext(ctx, pageQuery(it.base, int64(it.pageSize), offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page [][]string
	for rows.Next() {
		row, err := scanStrings(rows, len(it.columns))
		if err != nil {
			return nil, err
		}
		page = append(page, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, io.EOF
	}
	it.offset = offset + int64(len(page))
	return page, nil
}

func (c *conn) Completions(ctx context.Context) ([]adapter.CompletionItem, error) {
	tables, err := c.Tables(ctx, c.dbName, "main")
	if err != nil {
		return nil, err
	}

	var items []adapter.CompletionItem
	for _, t := range tables {
		items = append(items, adapter.CompletionItem{
			Label:  t.Name,
			Kind:   adapter.CompletionTable,
			Detail: "table",
		})
		cols, err := c.Columns(ctx, c.dbName, "main", t.Name)
		if err != nil {
			continue
		}
		for _, col := range cols {
			items = append(items, adapter.CompletionItem{
				Label:  col.Name,
				Kind:   adapter.CompletionColumn,
				Detail: fmt.Sprintf("%s.%s (%s)", t.Name, col.Name, col.Type),
			})
		}
	}
	return items, nil
}

// stringColumn runs a query whose result is a single string column.
func (c *conn) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func columnMeta(rows *sql.Rows) ([]adapter.ColumnMeta, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columns := make([]adapter.ColumnMeta, len(types))
	for i, ct := range types {
		columns[i].Name = ct.Name()
		columns[i].Type = ct.DatabaseTypeName()
		if n, ok := ct.Nullable(); ok {
			columns[i].Nullable = n
		}
	}
	return columns, nil
}

// scanStrings reads the current row as display strings, rendering SQL
// NULL as the literal "NULL".
func scanStrings(rows *sql.Rows, n int) ([]string, error) {
	vals := make([]sql.NullString, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i, v := range vals {
		if v.Valid {
			out[i] = v.String
		} else {
			out[i] = "NULL"
		}
	}
	return out, nil
}

// producesRows reports whether the statement's first keyword yields a
// result set. PRAGMA counts: its introspection forms return rows.
func producesRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "PRAGMA", "EXPLAIN", "WITH", "VALUES":
		return true
	}
	return false
}
