// Package mysql implements the MySQL/MariaDB adapter on top of
// go-sql-driver. Introspection goes through information_schema so the
// same queries work on both servers.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/schema"
)

const defaultPort = 3306

func init() {
	adapter.Register(driver{})
}

type driver struct{}

func (driver) Name() string     { return "mysql" }
func (driver) DefaultPort() int { return defaultPort }

func (driver) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	driverDSN, dbName, err := toDriverDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid dsn: %w", err)
	}

	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	return &conn{db: db, dsn: driverDSN, dbName: dbName}, nil
}

// toDriverDSN accepts either a mysql:// URL or a DSN already in
// go-sql-driver syntax and returns the go-sql-driver form plus the
// database name. parseTime=true is forced in both cases so DATETIME
// columns scan as time.Time.
func toDriverDSN(dsn string) (driverDSN, dbName string, err error) {
	if strings.HasPrefix(dsn, "mysql://") {
		return fromURL(dsn)
	}

	// go-sql-driver syntax: [user[:pass]@][tcp(host:port)]/dbname[?params]
	dbName = dsn
	if i := strings.LastIndex(dbName, "/"); i >= 0 {
		dbName = dbName[i+1:]
	}
	dbName, _, _ = strings.Cut(dbName, "?")

	return withParseTime(dsn), dbName, nil
}

func fromURL(dsn string) (driverDSN, dbName string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", err
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = fmt.Sprint(defaultPort)
	}
	dbName = strings.TrimPrefix(u.Path, "/")

	var b strings.Builder
	if user := u.User.Username(); user != "" {
		b.WriteString(user)
		if pass, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pass)
		}
		b.WriteString("@")
	}
	fmt.Fprintf(&b, "tcp(%s:%s)/%s", host, port, dbName)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return withParseTime(b.String()), dbName, nil
}

func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

type conn struct {
	db     *sql.DB
	dsn    string
	dbName string

	mu      sync.Mutex
	cancel  context.CancelFunc
	session int64 // CONNECTION_ID() of the session running the active query
}

func (c *conn) AdapterName() string  { return "mysql" }
func (c *conn) DatabaseName() string { return c.dbName }

func (c *conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *conn) Close() error                   { return c.db.Close() }

// target returns the schema to introspect, falling back to the database
// named in the DSN.
func (c *conn) target(db string) string {
	if db == "" {
		return c.dbName
	}
	return db
}

func (c *conn) Databases(ctx context.Context) ([]schema.Database, error) {
	names, err := c.stringColumn(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, err
	}
	dbs := make([]schema.Database, len(names))
	for i, n := range names {
		dbs[i] = schema.Database{Name: n}
	}
	return dbs, nil
}

func (c *conn) Tables(ctx context.Context, db, schemaName string) ([]schema.Table, error) {
	names, err := c.stringColumn(ctx, `
		SELECT TABLE_NAME
		FROM information_schema.tables
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, c.target(db))
	if err != nil {
		return nil, err
	}
	tables := make([]schema.Table, len(names))
	for i, n := range names {
		tables[i] = schema.Table{Name: n}
	}
	return tables, nil
}

func (c *conn) Views(ctx context.Context, db, schemaName string) ([]schema.View, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT TABLE_NAME, COALESCE(VIEW_DEFINITION, '')
		FROM information_schema.views
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`, c.target(db))
	if err != nil {
		return nil, err
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

// columnsQuery joins key_column_usage to flag primary key members. The
// optional table filter keeps it usable for both per-table and whole
// schema introspection.
const columnsQuery = `
	SELECT c.TABLE_NAME, c.COLUMN_NAME, c.COLUMN_TYPE, c.IS_NULLABLE,
	       COALESCE(c.COLUMN_DEFAULT, ''),
	       kcu.COLUMN_NAME IS NOT NULL
	FROM information_schema.columns c
	LEFT JOIN information_schema.key_column_usage kcu
		ON  kcu.TABLE_SCHEMA    = c.TABLE_SCHEMA
		AND kcu.TABLE_NAME      = c.TABLE_NAME
		AND kcu.COLUMN_NAME     = c.COLUMN_NAME
		AND kcu.CONSTRAINT_NAME = 'PRIMARY'
	WHERE c.TABLE_SCHEMA = ? AND (? = '' OR c.TABLE_NAME = ?)
	ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

func (c *conn) scanColumns(ctx context.Context, db, table string) (map[string][]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx, columnsQuery, c.target(db), table, table)
	if err != nil {
		return nil, err
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
			return nil, err
		}
		col.Nullable = nullable == "YES"
		byTable[tbl] = append(byTable[tbl], col)
	}
	return byTable, rows.Err()
}

func (c *conn) Columns(ctx context.Context, db, schemaName, table string) ([]schema.Column, error) {
	byTable, err := c.scanColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	return byTable[table], nil
}

func (c *conn) AllColumns(ctx context.Context, db, schemaName string) (map[string][]schema.Column, error) {
	return c.scanColumns(ctx, db, "")
}

// indexRow is one row of information_schema.statistics; grouping into
// schema.Index values happens after the scan, relying on the query's
// ORDER BY for member order.
type indexRow struct {
	table, index, column string
	nonUnique            int
}

func (c *conn) scanIndexes(ctx context.Context, db, table string) (map[string][]schema.Index, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT TABLE_NAME, INDEX_NAME, COLUMN_NAME, NON_UNIQUE
		FROM information_schema.statistics
		WHERE TABLE_SCHEMA = ? AND (? = '' OR TABLE_NAME = ?)
		ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`, c.target(db), table, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []indexRow
	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.table, &r.index, &r.column, &r.nonUnique); err != nil {
			return nil, err
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[string][]schema.Index)
	for _, r := range flat {
		list := result[r.table]
		if n := len(list); n > 0 && list[n-1].Name == r.index {
			list[n-1].Columns = append(list[n-1].Columns, r.column)
		} else {
			list = append(list, schema.Index{
				Name:    r.index,
				Unique:  r.nonUnique == 0,
				Columns: []string{r.column},
			})
		}
		result[r.table] = list
	}
	return result, nil
}

func (c *conn) Indexes(ctx context.Context, db, schemaName, table string) ([]schema.Index, error) {
	result, err := c.scanIndexes(ctx, db, table)
	if err != nil {
		return nil, err
	}
	return result[table], nil
}

func (c *conn) AllIndexes(ctx context.Context, db, schemaName string) (map[string][]schema.Index, error) {
	return c.scanIndexes(ctx, db, "")
}

type fkRow struct {
	table, name, column, refTable, refColumn string
}

func (c *conn) scanForeignKeys(ctx context.Context, db, table string) (map[string][]schema.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME,
		       kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON  rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
			AND rc.CONSTRAINT_NAME   = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = ?
		  AND (? = '' OR kcu.TABLE_NAME = ?)
		  AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		c.target(db), table, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.table, &r.name, &r.column, &r.refTable, &r.refColumn); err != nil {
			return nil, err
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[string][]schema.ForeignKey)
	for _, r := range flat {
		list := result[r.table]
		if n := len(list); n > 0 && list[n-1].Name == r.name {
			list[n-1].Columns = append(list[n-1].Columns, r.column)
			list[n-1].RefColumns = append(list[n-1].RefColumns, r.refColumn)
		} else {
			list = append(list, schema.ForeignKey{
				Name:       r.name,
				RefTable:   r.refTable,
				Columns:    []string{r.column},
				RefColumns: []string{r.refColumn},
			})
		}
		result[r.table] = list
	}
	return result, nil
}

func (c *conn) ForeignKeys(ctx context.Context, db, schemaName, table string) ([]schema.ForeignKey, error) {
	result, err := c.scanForeignKeys(ctx, db, table)
	if err != nil {
		return nil, err
	}
	return result[table], nil
}

func (c *conn) AllForeignKeys(ctx context.Context, db, schemaName string) (map[string][]schema.ForeignKey, error) {
	return c.scanForeignKeys(ctx, db, "")
}

func (c *conn) Constraints(ctx context.Context, db, schemaName, table string) ([]schema.Constraint, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT
			tc.CONSTRAINT_NAME,
			tc.CONSTRAINT_TYPE,
			COALESCE(GROUP_CONCAT(kcu.COLUMN_NAME ORDER BY kcu.ORDINAL_POSITION SEPARATOR ', '), ''),
			COALESCE(MAX(cc.CHECK_CLAUSE), '')
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON  kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND kcu.CONSTRAINT_NAME   = tc.CONSTRAINT_NAME
			AND kcu.TABLE_NAME        = tc.TABLE_NAME
		LEFT JOIN information_schema.check_constraints cc
			ON  cc.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND cc.CONSTRAINT_NAME   = tc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = ?
		  AND tc.TABLE_NAME   = ?
		  AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE', 'CHECK')
		GROUP BY tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE
		ORDER BY tc.CONSTRAINT_NAME`, c.target(db), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cons []schema.Constraint
	for rows.Next() {
		var (
			cn     schema.Constraint
			cols   string
			clause string
		)
		if err := rows.Scan(&cn.Name, &cn.Type, &cols, &clause); err != nil {
			return nil, err
		}
		switch {
		case clause != "":
			// CHECK_CLAUSE comes back already parenthesised.
			cn.Definition = "CHECK " + clause
		case cols != "":
			cn.Definition = cn.Type + " (" + cols + ")"
		default:
			cn.Definition = cn.Type
		}
		cons = append(cons, cn)
	}
	return cons, rows.Err()
}

func (c *conn) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
	ctx, cancel := context.WithCancel(ctx)

	// Pin a dedicated pool connection so CONNECTION_ID() names the
	// session our query runs on; Cancel needs it for KILL QUERY.
	session, err := c.db.Conn(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mysql: acquire conn: %w", err)
	}

	var id int64
	if err := session.QueryRowContext(ctx, "SELECT CONNECTION_ID()").Scan(&id); err != nil {
		session.Close()
		cancel()
		return nil, fmt.Errorf("mysql: connection_id: %w", err)
	}

	c.mu.Lock()
	c.cancel = cancel
	c.session = id
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.session = 0
		c.mu.Unlock()
		session.Close()
		cancel()
	}()

	start := time.Now()
	if producesRows(query) {
		return runQuery(ctx, session, query, start)
	}
	return runExec(ctx, session, query, start)
}

func runQuery(ctx context.Context, session *sql.Conn, query string, start time.Time) (*adapter.QueryResult, error) {
	rows, err := session.QueryContext(ctx, query)
	if err != nil {
		return nil, err
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

func runExec(ctx context.Context, session *sql.Conn, query string, start time.Time) (*adapter.QueryResult, error) {
	res, err := session.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &adapter.QueryResult{
		RowCount: affected,
		Duration: time.Since(start),
		Message:  fmt.Sprintf("%d row(s) affected", affected),
	}, nil
}

// Cancel aborts the in-flight query. Context cancellation alone can
// leave the server-side query running, so KILL QUERY is issued from a
// throwaway connection as well.
func (c *conn) Cancel() error {
	c.mu.Lock()
	cancel := c.cancel
	session := c.session
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if session == 0 {
		return nil
	}

	killDB, err := sql.Open("mysql", c.dsn)
	if err != nil {
		return fmt.Errorf("mysql: cancel open: %w", err)
	}
	defer killDB.Close()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	if _, err := killDB.ExecContext(ctx, fmt.Sprintf("KILL QUERY %d", session)); err != nil {
		return fmt.Errorf("mysql: kill query: %w", err)
	}
	return nil
}

// ExecuteStreaming pages through the query with LIMIT/OFFSET over a
// derived table. MySQL has no scrollable cursor over the wire protocol,
// so re-running the query per page is the tradeoff.
func (c *conn) ExecuteStreaming(ctx context.Context, query string, pageSize int) (adapter.RowIterator, error) {
	base := strings.TrimRight(query, "; \t\n")

	// LIMIT 0 probe for column metadata.
	rows, err := c.db.QueryContext(ctx, pageQuery(base, 0, 0))
	if err != nil {
		return nil, err
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
		SELECT TABLE_NAME, TABLE_TYPE
		FROM information_schema.tables
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`, c.dbName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []adapter.CompletionItem
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, err
		}
		item := adapter.CompletionItem{Label: name, Kind: adapter.CompletionTable, Detail: kind}
		if kind == "VIEW" {
			item.Kind = adapter.CompletionView
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (c *conn) columnCompletions(ctx context.Context) ([]adapter.CompletionItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT TABLE_NAME, COLUMN_NAME, COLUMN_TYPE
		FROM information_schema.columns
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION`, c.dbName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []adapter.CompletionItem
	for rows.Next() {
		var tbl, col, typ string
		if err := rows.Scan(&tbl, &col, &typ); err != nil {
			return nil, err
		}
		items = append(items, adapter.CompletionItem{
			Label:  col,
			Kind:   adapter.CompletionColumn,
			Detail: fmt.Sprintf("%s.%s (%s)", tbl, col, typ),
		})
	}
	return items, rows.Err()
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
// result set.
func producesRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH", "TABLE":
		return true
	}
	return false
}
