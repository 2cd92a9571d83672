//go:build duckdb

// Package duckdb implements the adapter for DuckDB database files. The
// CGO driver is heavy, so the real implementation builds behind the
// duckdb tag.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/schema"
)

func init() {
	adapter.Register(driver{})
}

type driver struct{}

func (driver) Name() string     { return "duckdb" }
func (driver) DefaultPort() int { return 0 }

func (driver) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	path := strings.TrimPrefix(dsn, "duckdb://")
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}

	return &conn{db: db, path: path}, nil
}

type conn struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *conn) AdapterName() string  { return "duckdb" }
func (c *conn) DatabaseName() string { return c.path }

func (c *conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *conn) Close() error                   { return c.db.Close() }

// Cancel aborts the in-flight query. DuckDB runs in-process, so context
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

func (c *conn) Databases(ctx context.Context) ([]schema.Database, error) {
	names, err := c.stringColumn(ctx,
		`SELECT database_name FROM duckdb_databases() ORDER BY database_name`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: databases: %w", err)
	}

	dbs := make([]schema.Database, len(names))
	for i, name := range names {
		dbs[i] = schema.Database{Name: name}
	}
	return dbs, nil
}

func (c *conn) Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error) {
	names, err := c.stringColumn(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_catalog = ? AND table_schema = ?
		ORDER BY table_name`, db, schemaName)
	if err != nil {
		return nil, fmt.Errorf("duckdb: tables: %w", err)
	}

	tables := make([]schema.Table, len(names))
	for i, name := range names {
		tables[i] = schema.Table{Name: name}
	}
	return tables, nil
}

func (c *conn) Views(ctx context.Context, db, schemaName string) ([]schema.View, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT view_name, COALESCE(sql, '') FROM duckdb_views()
		WHERE database_name = ? AND schema_name = ?
		ORDER BY view_name`, db, schemaName)
	if err != nil {
		return nil, fmt.Errorf("duckdb: views: %w", err)
	}
	defer rows.Close()

	var views []schema.View
	for rows.Next() {
		var v schema.View
		if err := rows.Scan(&v.Name, &v.Definition); err != nil {
			return nil, fmt.Errorf("duckdb: views scan: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

const columnsQuery = `
	SELECT column_name,
		data_type,
		is_nullable = 'YES',
		COALESCE(column_default, ''),
		column_name IN (
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			 AND tc.table_catalog = kcu.table_catalog
			 AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_catalog = ? AND tc.table_schema = ? AND tc.table_name = ?
		)
	FROM information_schema.columns
	WHERE table_catalog = ? AND table_schema = ? AND table_name = ?
	ORDER BY ordinal_position`

func (c *conn) Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx, columnsQuery,
		db, schemaName, table, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns: %w", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default, &col.IsPK); err != nil {
			return nil, fmt.Errorf("duckdb: columns scan: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (c *conn) Indexes(ctx context.Context, db, schemaName, table string) ([]schema.Index, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT index_name, is_unique, sql FROM duckdb_indexes()
		WHERE database_name = ? AND schema_name = ? AND table_name = ?
		ORDER BY index_name`, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: indexes: %w", err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var ddl sql.NullString
		if err := rows.Scan(&idx.Name, &idx.Unique, &ddl); err != nil {
			return nil, fmt.Errorf("duckdb: indexes scan: %w", err)
		}
		// duckdb_indexes() has no column list; recover it from the DDL.
		idx.Columns = indexColumns(ddl.String)
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// indexColumns pulls the column list out of a CREATE INDEX statement,
// e.g. "CREATE INDEX i ON t (a, b)" yields a and b.
func indexColumns(ddl string) []string {
	start := strings.LastIndex(ddl, "(")
	end := strings.LastIndex(ddl, ")")
	if start < 0 || end <= start {
		return nil
	}

	var cols []string
	for _, part := range strings.Split(ddl[start+1:end], ",") {
		if col := strings.TrimSpace(part); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

func (c *conn) ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT rc.constraint_name,
			kcu.column_name,
			ref.table_name,
			ref.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON rc.constraint_catalog = kcu.constraint_catalog
		 AND rc.constraint_schema = kcu.constraint_schema
		 AND rc.constraint_name = kcu.constraint_name
		JOIN information_schema.key_column_usage ref
		  ON rc.unique_constraint_catalog = ref.constraint_catalog
		 AND rc.unique_constraint_schema = ref.constraint_schema
		 AND rc.unique_constraint_name = ref.constraint_name
		 AND kcu.ordinal_position = ref.ordinal_position
		WHERE kcu.table_catalog = ? AND kcu.table_schema = ? AND kcu.table_name = ?
		ORDER BY rc.constraint_name, kcu.ordinal_position`, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var name, col, refTable, refCol string
		if err := rows.Scan(&name, &col, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("duckdb: foreign keys scan: %w", err)
		}
		// Rows arrive ordered by constraint, so a name change starts a
		// new key.
		if n := len(fks); n == 0 || fks[n-1].Name != name {
			fks = append(fks, schema.ForeignKey{Name: name, RefTable: refTable})
		}
		fk := &fks[len(fks)-1]
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}
	return fks, rows.Err()
}

func (c *conn) Constraints(ctx context.Context, db, schemaName, table string) ([]schema.Constraint, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT constraint_type, constraint_text FROM duckdb_constraints()
		WHERE database_name = ? AND schema_name = ? AND table_name = ?
		  AND constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'CHECK')
		ORDER BY constraint_type, constraint_text`, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: constraints: %w", err)
	}
	defer rows.Close()

	// duckdb_constraints() exposes no constraint names; synthesize
	// stable ones from the kind and position.
	var cons []schema.Constraint
	for rows.Next() {
		var cn schema.Constraint
		if err := rows.Scan(&cn.Type, &cn.Definition); err != nil {
			return nil, fmt.Errorf("duckdb: constraints scan: %w", err)
		}
		kind := strings.ToLower(strings.ReplaceAll(cn.Type, " ", "_"))
		cn.Name = fmt.Sprintf("%s_%s_%d", kind, table, len(cons))
		cons = append(cons, cn)
	}
	return cons, rows.Err()
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
		return nil, fmt.Errorf("duckdb: query: %w", err)
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
		return nil, err
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
		return nil, fmt.Errorf("duckdb: exec: %w", err)
	}
	affected, _ := res.RowsAffected()
	return &adapter.QueryResult{
		RowCount: affected,
		Duration: time.Since(start),
		Message:  fmt.Sprintf("%d row(s) affected", affected),
	}, nil
}

// ExecuteStreaming pages with LIMIT/OFFSET over a derived table; the
// database/sql DuckDB driver has no scrollable cursor.
func (c *conn) ExecuteStreaming(ctx context.Context, query string, pageSize int) (adapter.RowIterator, error) {
	base := strings.TrimRight(query, "; \t\n")

	// LIMIT 0 probe for column metadata.
	rows, err := c.db.QueryContext(ctx, pageQuery(base, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("duckdb: streaming probe: %w", err)
	}
	columns, err := columnMeta(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	return &pageIter{conn: c, base: base, pageSize: pageSize, columns: columns}, nil
}

func pageQuery(base string, limit, offset int64) string {
	return fmt.Sprintf("SELECT * FROM (%s) AS _t LIMIT %d OFFSET %d", base, limit, offset)
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
			return nil, io.EOF
		}
		back = 0
	}
	return it.fetchAt(ctx, back)
}

func (it *pageIter) fetchAt(ctx context.Context, offset int64) ([][]string, error) {
	rows, err := it.conn.db.QueryContext(ctx, pageQuery(it.base, int64(it.pageSize), offset))
	if err != nil {
		return nil, fmt.Errorf("duckdb: fetch page: %w", err)
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
	items, err := c.tableCompletions(ctx)
	if err != nil {
		return nil, err
	}
	cols, err := c.columnCompletions(ctx)
	if err != nil {
		return nil, err
	}
	return append(items, cols...), nil
}

func (c *conn) tableCompletions(ctx context.Context) ([]adapter.CompletionItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_catalog, table_schema, table_name, table_type
		FROM information_schema.tables
		ORDER BY table_catalog, table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: completions tables: %w", err)
	}
	defer rows.Close()

	var items []adapter.CompletionItem
	for rows.Next() {
		var catalog, sch, name, typ string
		if err := rows.Scan(&catalog, &sch, &name, &typ); err != nil {
			return nil, fmt.Errorf("duckdb: completions tables scan: %w", err)
		}
		kind := adapter.CompletionTable
		if strings.Contains(strings.ToUpper(typ), "VIEW") {
			kind = adapter.CompletionView
		}
		items = append(items, adapter.CompletionItem{
			Label:  name,
			Kind:   kind,
			Detail: fmt.Sprintf("%s.%s (%s)", catalog, sch, typ),
		})
	}
	return items, rows.Err()
}

func (c *conn) columnCompletions(ctx context.Context) ([]adapter.CompletionItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: completions columns: %w", err)
	}
	defer rows.Close()

	var items []adapter.CompletionItem
	for rows.Next() {
		var tbl, col, typ string
		if err := rows.Scan(&tbl, &col, &typ); err != nil {
			return nil, fmt.Errorf("duckdb: completions columns scan: %w", err)
		}
		items = append(items, adapter.CompletionItem{
			Label:  col,
			Kind:   adapter.CompletionColumn,
			Detail: fmt.Sprintf("%s.%s %s", tbl, col, typ),
		})
	}
	return items, rows.Err()
}

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
// result set. FROM starts DuckDB's shorthand form of SELECT.
func producesRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "PRAGMA", "FROM", "TABLE":
		return true
	}
	return false
}
