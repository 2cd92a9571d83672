// Package postgres implements the PostgreSQL adapter on pgx. Queries run
// on a pgxpool; streaming results use a dedicated connection holding a
// SCROLL cursor inside a transaction.
package postgres

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/schema"
)

func init() {
	adapter.Register(driver{})
}

type driver struct{}

func (driver) Name() string     { return "postgres" }
func (driver) DefaultPort() int { return 5432 }

func (driver) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &conn{pool: pool, dsn: dsn, dbName: dbFromDSN(dsn)}, nil
}

// dbFromDSN pulls the database name out of either a postgres:// URL or a
// keyword=value connection string.
func dbFromDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	for _, kv := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(kv, "dbname="); ok {
			return v
		}
	}
	return ""
}

type conn struct {
	pool   *pgxpool.Pool
	dsn    string
	dbName string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *conn) DatabaseName() string { return c.dbName }
func (c *conn) AdapterName() string  { return "postgres" }

func (c *conn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *conn) Close() error {
	c.pool.Close()
	return nil
}

// Cancel aborts the in-flight query, if any. pgx translates context
// cancellation into a wire-level cancel request.
func (c *conn) Cancel() error {
	c.mu.Lock()
	fn := c.cancel
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (c *conn) arm(fn context.CancelFunc) {
	c.mu.Lock()
	c.cancel = fn
	c.mu.Unlock()
}

func (c *conn) disarm() { c.arm(nil) }

func (c *conn) Databases(ctx context.Context) ([]schema.Database, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT datname FROM pg_database
		 WHERE datistemplate = false
		 ORDER BY datname`)
	if err != nil {
		return nil, fmt.Errorf("databases: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("databases: %w", err)
	}

	// information_schema only covers the connected database; the rest
	// show up as bare names.
	dbs := make([]schema.Database, 0, len(names))
	for _, name := range names {
		db := schema.Database{Name: name}
		if name == c.dbName {
			if schemas, err := c.schemasFor(ctx, name); err == nil {
				db.Schemas = schemas
			}
		}
		dbs = append(dbs, db)
	}
	return dbs, nil
}

func (c *conn) schemasFor(ctx context.Context, dbName string) ([]schema.Schema, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE catalog_name = $1
		   AND schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		 ORDER BY schema_name`, dbName)
	if err != nil {
		return nil, fmt.Errorf("schemas: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("schemas: %w", err)
	}

	var schemas []schema.Schema
	for _, name := range names {
		tables, _ := c.Tables(ctx, dbName, name)
		views, _ := c.Views(ctx, dbName, name)
		schemas = append(schemas, schema.Schema{Name: name, Tables: tables, Views: views})
	}
	return schemas, nil
}

// orPublic substitutes the default schema when the caller passes "".
func orPublic(schemaName string) string {
	if schemaName == "" {
		return "public"
	}
	return schemaName
}

func (c *conn) Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT table_name
		 FROM information_schema.tables
		 WHERE table_catalog = $1
		   AND table_schema  = $2
		   AND table_type    = 'BASE TABLE'
		 ORDER BY table_name`, db, orPublic(schemaName))
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}

	tables := make([]schema.Table, len(names))
	for i, n := range names {
		tables[i] = schema.Table{Name: n}
	}
	return tables, nil
}

func (c *conn) Views(ctx context.Context, db, schemaName string) ([]schema.View, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT table_name, COALESCE(view_definition, '')
		 FROM information_schema.views
		 WHERE table_catalog = $1
		   AND table_schema  = $2
		 ORDER BY table_name`, db, orPublic(schemaName))
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	defer rows.Close()

	var views []schema.View
	for rows.Next() {
		var v schema.View
		if err := rows.Scan(&v.Name, &v.Definition); err != nil {
			return nil, fmt.Errorf("views scan: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// scanColumns serves both the per-table and whole-schema paths; an empty
// table argument disables the filter.
func (c *conn) scanColumns(ctx context.Context, db, schemaName, table string) (map[string][]schema.Column, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT c.table_name,
		        c.column_name,
		        c.data_type,
		        c.is_nullable,
		        COALESCE(c.column_default, ''),
		        EXISTS (
		            SELECT 1
		            FROM pg_index i
		            JOIN pg_class t     ON t.oid = i.indrelid
		            JOIN pg_namespace n ON n.oid = t.relnamespace
		            JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		            WHERE n.nspname = c.table_schema
		              AND t.relname = c.table_name
		              AND a.attname = c.column_name
		              AND i.indisprimary
		        )
		 FROM information_schema.columns c
		 WHERE c.table_catalog = $1
		   AND c.table_schema  = $2
		   AND ($3 = '' OR c.table_name = $3)
		 ORDER BY c.table_name, c.ordinal_position`, db, orPublic(schemaName), table)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	defer rows.Close()

	byTable := make(map[string][]schema.Column)
	for rows.Next() {
		var (
			tbl      string
			col      schema.Column
			nullable string
		)
		if err := rows.Scan(&tbl, &col.Name, &col.Type, &nullable, &col.Default, &col.IsPK); err != nil {
			return nil, fmt.Errorf("columns scan: %w", err)
		}
		col.Nullable = nullable == "YES"
		byTable[tbl] = append(byTable[tbl], col)
	}
	return byTable, rows.Err()
}

func (c *conn) Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error) {
	byTable, err := c.scanColumns(ctx, db, schemaName, table)
	if err != nil {
		return nil, err
	}
	return byTable[table], nil
}

func (c *conn) AllColumns(ctx context.Context, db, schemaName string) (map[string][]schema.Column, error) {
	return c.scanColumns(ctx, db, schemaName, "")
}

func (c *conn) scanIndexes(ctx context.Context, schemaName, table string) (map[string][]schema.Index, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT t.relname,
		        i.relname,
		        array_agg(a.attname ORDER BY k.n),
		        ix.indisunique
		 FROM pg_index ix
		 JOIN pg_class  t ON t.oid  = ix.indrelid
		 JOIN pg_class  i ON i.oid  = ix.indexrelid
		 JOIN pg_namespace n ON n.oid = t.relnamespace
		 JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, n) ON true
		 JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		 WHERE n.nspname = $1
		   AND ($2 = '' OR t.relname = $2)
		 GROUP BY t.relname, i.relname, ix.indisunique
		 ORDER BY t.relname, i.relname`, orPublic(schemaName), table)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]schema.Index)
	for rows.Next() {
		var (
			tbl string
			idx schema.Index
		)
		if err := rows.Scan(&tbl, &idx.Name, &idx.Columns, &idx.Unique); err != nil {
			return nil, fmt.Errorf("indexes scan: %w", err)
		}
		result[tbl] = append(result[tbl], idx)
	}
	return result, rows.Err()
}

func (c *conn) Indexes(ctx context.Context, db, schemaName, table string) ([]schema.Index, error) {
	result, err := c.scanIndexes(ctx, schemaName, table)
	if err != nil {
		return nil, err
	}
	return result[table], nil
}

func (c *conn) AllIndexes(ctx context.Context, db, schemaName string) (map[string][]schema.Index, error) {
	return c.scanIndexes(ctx, schemaName, "")
}

func (c *conn) scanForeignKeys(ctx context.Context, schemaName, table string) (map[string][]schema.ForeignKey, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT tc.table_name,
		        tc.constraint_name,
		        kcu.column_name,
		        ccu.table_name,
		        ccu.column_name
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		      ON kcu.constraint_name = tc.constraint_name
		     AND kcu.table_schema    = tc.table_schema
		 JOIN information_schema.constraint_column_usage ccu
		      ON ccu.constraint_name = tc.constraint_name
		     AND ccu.table_schema    = tc.table_schema
		 WHERE tc.constraint_type = 'FOREIGN KEY'
		   AND tc.table_schema    = $1
		   AND ($2 = '' OR tc.table_name = $2)
		 ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`,
		orPublic(schemaName), table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]schema.ForeignKey)
	for rows.Next() {
		var tbl, name, col, refTable, refCol string
		if err := rows.Scan(&tbl, &name, &col, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("foreign keys scan: %w", err)
		}
		list := result[tbl]
		if n := len(list); n > 0 && list[n-1].Name == name {
			list[n-1].Columns = append(list[n-1].Columns, col)
			list[n-1].RefColumns = append(list[n-1].RefColumns, refCol)
		} else {
			list = append(list, schema.ForeignKey{
				Name:       name,
				RefTable:   refTable,
				Columns:    []string{col},
				RefColumns: []string{refCol},
			})
		}
		result[tbl] = list
	}
	return result, rows.Err()
}

func (c *conn) ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error) {
	result, err := c.scanForeignKeys(ctx, schemaName, table)
	if err != nil {
		return nil, err
	}
	return result[table], nil
}

func (c *conn) AllForeignKeys(ctx context.Context, db, schemaName string) (map[string][]schema.ForeignKey, error) {
	return c.scanForeignKeys(ctx, schemaName, "")
}

func (c *conn) Constraints(ctx context.Context, db, schemaName, table string) ([]schema.Constraint, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT con.conname,
		        CASE con.contype
		             WHEN 'p' THEN 'PRIMARY KEY'
		             WHEN 'u' THEN 'UNIQUE'
		             WHEN 'c' THEN 'CHECK'
		             ELSE upper(con.contype::text)
		        END,
		        pg_get_constraintdef(con.oid)
		 FROM pg_constraint con
		 JOIN pg_class t     ON t.oid = con.conrelid
		 JOIN pg_namespace n ON n.oid = t.relnamespace
		 WHERE n.nspname = $1
		   AND t.relname = $2
		   AND con.contype IN ('p', 'u', 'c')
		 ORDER BY con.conname`, orPublic(schemaName), table)
	if err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}
	defer rows.Close()

	var cons []schema.Constraint
	for rows.Next() {
		var cn schema.Constraint
		if err := rows.Scan(&cn.Name, &cn.Type, &cn.Definition); err != nil {
			return nil, fmt.Errorf("constraints scan: %w", err)
		}
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
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, execErr(ctx, err)
	}
	defer rows.Close()

	cols := columnMeta(rows.FieldDescriptions())

	var data [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("execute values: %w", err)
		}
		data = append(data, renderRow(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, execErr(ctx, err)
	}

	return &adapter.QueryResult{
		Columns:  cols,
		Rows:     data,
		RowCount: int64(len(data)),
		Duration: time.Since(start),
		IsSelect: true,
	}, nil
}

func (c *conn) runExec(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	tag, err := c.pool.Exec(ctx, query)
	if err != nil {
		return nil, execErr(ctx, err)
	}
	return &adapter.QueryResult{
		RowCount: tag.RowsAffected(),
		Duration: time.Since(start),
		Message:  tag.String(),
	}, nil
}

// execErr folds a cancelled context into the sentinel error.
func execErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return adapter.ErrCancelled
	}
	return fmt.Errorf("execute: %w", err)
}

const cursorName = "dbscope_cursor"

// ExecuteStreaming declares a SCROLL cursor on a dedicated connection and
// pages through it with FETCH. The first page is read eagerly so column
// metadata is available before the iterator is handed out.
func (c *conn) ExecuteStreaming(ctx context.Context, query string, pageSize int) (adapter.RowIterator, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.arm(cancel)

	fail := func(err error) error {
		cancel()
		c.disarm()
		return err
	}

	// A pool connection cannot host the cursor: the transaction has to
	// outlive this call.
	dedicated, err := pgx.Connect(ctx, c.dsn)
	if err != nil {
		return nil, fail(fmt.Errorf("streaming connect: %w", err))
	}

	tx, err := dedicated.Begin(ctx)
	if err != nil {
		dedicated.Close(ctx)
		return nil, fail(fmt.Errorf("streaming begin tx: %w", err))
	}

	abort := func(err error) error {
		tx.Rollback(ctx)
		dedicated.Close(ctx)
		return fail(err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("DECLARE %s SCROLL CURSOR FOR %s", cursorName, query)); err != nil {
		return nil, abort(fmt.Errorf("declare cursor: %w", err))
	}

	rows, err := tx.Query(ctx, fmt.Sprintf("FETCH FORWARD %d FROM %s", pageSize, cursorName))
	if err != nil {
		return nil, abort(fmt.Errorf("initial fetch: %w", err))
	}

	cols := columnMeta(rows.FieldDescriptions())

	var first [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			rows.Close()
			return nil, abort(fmt.Errorf("initial fetch values: %w", err))
		}
		first = append(first, renderRow(vals))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, abort(fmt.Errorf("initial fetch rows: %w", err))
	}

	return &cursorIter{
		conn:     dedicated,
		tx:       tx,
		pageSize: pageSize,
		cols:     cols,
		cancel:   cancel,
		owner:    c,
		buffered: first,
	}, nil
}

type cursorIter struct {
	conn     *pgx.Conn
	tx       pgx.Tx
	pageSize int
	cols     []adapter.ColumnMeta
	cancel   context.CancelFunc
	owner    *conn
	closed   atomic.Bool

	// buffered holds the page read during ExecuteStreaming; the first
	// FetchNext drains it instead of touching the cursor.
	buffered [][]string
}

func (it *cursorIter) Columns() []adapter.ColumnMeta { return it.cols }
func (it *cursorIter) TotalRows() int64              { return -1 }

func (it *cursorIter) FetchNext(ctx context.Context) ([][]string, error) {
	if it.closed.Load() {
		return nil, io.EOF
	}
	if it.buffered != nil {
		page := it.buffered
		it.buffered = nil
		if len(page) == 0 {
			return nil, io.EOF
		}
		return page, nil
	}
	return it.fetch(ctx, "FORWARD")
}

func (it *cursorIter) FetchPrev(ctx context.Context) ([][]string, error) {
	if it.closed.Load() {
		return nil, io.EOF
	}
	return it.fetch(ctx, "BACKWARD")
}

func (it *cursorIter) fetch(ctx context.Context, direction string) ([][]string, error) {
	rows, err := it.tx.Query(ctx, fmt.Sprintf("FETCH %s %d FROM %s", direction, it.pageSize, cursorName))
	if err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("cursor fetch: %w", err)
	}
	defer rows.Close()

	var page [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("cursor fetch values: %w", err)
		}
		page = append(page, renderRow(vals))
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("cursor fetch rows: %w", err)
	}

	if len(page) == 0 {
		return nil, io.EOF
	}
	return page, nil
}

func (it *cursorIter) Close() error {
	if !it.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx := context.Background()
	it.tx.Exec(ctx, "CLOSE "+cursorName)
	it.tx.Rollback(ctx)
	err := it.conn.Close(ctx)

	it.cancel()
	it.owner.disarm()
	return err
}

// Completions walks the user-visible catalog in three queries: schemas,
// relations, columns.
func (c *conn) Completions(ctx context.Context) ([]adapter.CompletionItem, error) {
	const hidden = `('pg_catalog', 'information_schema', 'pg_toast')`

	var items []adapter.CompletionItem

	rows, err := c.pool.Query(ctx,
		`SELECT schema_name
		 FROM information_schema.schemata
		 WHERE schema_name NOT IN `+hidden+`
		 ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("completions schemas: %w", err)
	}
	schemas, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("completions schemas: %w", err)
	}
	for _, s := range schemas {
		items = append(items, adapter.CompletionItem{
			Label:  s,
			Kind:   adapter.CompletionSchema,
			Detail: "schema",
		})
	}

	rows, err = c.pool.Query(ctx,
		`SELECT table_schema, table_name, table_type
		 FROM information_schema.tables
		 WHERE table_schema NOT IN `+hidden+`
		 ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("completions tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s, name, ttype string
		if err := rows.Scan(&s, &name, &ttype); err != nil {
			return nil, fmt.Errorf("completions tables scan: %w", err)
		}
		item := adapter.CompletionItem{Label: name, Kind: adapter.CompletionTable, Detail: "table"}
		if ttype == "VIEW" {
			item.Kind = adapter.CompletionView
			item.Detail = "view"
		}
		if s != "public" {
			item.Label = s + "." + name
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cols, err := c.pool.Query(ctx,
		`SELECT table_name, column_name, data_type
		 FROM information_schema.columns
		 WHERE table_schema NOT IN `+hidden+`
		 ORDER BY table_schema, table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("completions columns: %w", err)
	}
	defer cols.Close()

	for cols.Next() {
		var tbl, col, typ string
		if err := cols.Scan(&tbl, &col, &typ); err != nil {
			return nil, fmt.Errorf("completions columns scan: %w", err)
		}
		items = append(items, adapter.CompletionItem{
			Label:  col,
			Kind:   adapter.CompletionColumn,
			Detail: fmt.Sprintf("%s.%s (%s)", tbl, col, typ),
		})
	}
	return items, cols.Err()
}

// producesRows reports whether the statement returns a result set,
// skipping leading SQL comments first.
func producesRows(query string) bool {
	q := stripLeadingComments(query)
	upper := strings.ToUpper(q)
	for _, kw := range []string{"SELECT", "WITH", "VALUES", "TABLE", "SHOW", "EXPLAIN"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

func stripLeadingComments(q string) string {
	q = strings.TrimSpace(q)
	for {
		switch {
		case strings.HasPrefix(q, "--"):
			i := strings.Index(q, "\n")
			if i < 0 {
				return ""
			}
			q = strings.TrimSpace(q[i+1:])
		case strings.HasPrefix(q, "/*"):
			i := strings.Index(q, "*/")
			if i < 0 {
				return ""
			}
			q = strings.TrimSpace(q[i+2:])
		default:
			return q
		}
	}
}

// typeMap resolves wire OIDs to type names for display.
var typeMap = pgtype.NewMap()

func columnMeta(fds []pgconn.FieldDescription) []adapter.ColumnMeta {
	cols := make([]adapter.ColumnMeta, len(fds))
	for i, fd := range fds {
		cols[i] = adapter.ColumnMeta{
			Name: fd.Name,
			Type: typeName(fd.DataTypeOID),
		}
	}
	return cols
}

// typeName renders an OID as a readable type name, turning pgtype's
// "_elem" array naming into "elem[]".
func typeName(oid uint32) string {
	t, ok := typeMap.TypeForOID(oid)
	if !ok {
		return fmt.Sprintf("oid:%d", oid)
	}
	if elem, ok := strings.CutPrefix(t.Name, "_"); ok {
		return elem + "[]"
	}
	return t.Name
}

func renderRow(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = renderValue(v)
	}
	return out
}

// renderValue formats a pgx-decoded value for the results grid. SQL NULL
// renders as the empty string.
func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case [16]byte: // uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []string:
		return "{" + strings.Join(val, ",") + "}"
	case []int32:
		return renderSlice(val, func(n int32) string { return strconv.FormatInt(int64(n), 10) })
	case []int64:
		return renderSlice(val, func(n int64) string { return strconv.FormatInt(n, 10) })
	case []float64:
		return renderSlice(val, func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) })
	case []bool:
		return renderSlice(val, strconv.FormatBool)
	case pgtype.Numeric:
		dv, err := val.Value()
		if err != nil || dv == nil {
			return ""
		}
		if s, ok := dv.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", dv)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func renderSlice[T any](vals []T, render func(T) string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = render(v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
