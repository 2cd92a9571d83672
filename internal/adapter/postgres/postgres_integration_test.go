package postgres

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/dbscope/dbscope/internal/adapter"
)

// Integration tests need a reachable server; they skip themselves when
// Connect fails. Override the target with DBSCOPE_PG_DSN.
const localDSN = "postgres://localhost:5432/dbscope_test?sslmode=disable"

func open(t *testing.T) adapter.Connection {
	t.Helper()

	dsn := os.Getenv("DBSCOPE_PG_DSN")
	if dsn == "" {
		dsn = localDSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := driver{}.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("skipping: cannot connect to PostgreSQL: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIntegrationConnect(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if c.AdapterName() != "postgres" {
		t.Errorf("AdapterName() = %q, want postgres", c.AdapterName())
	}
	if c.DatabaseName() != "dbscope_test" {
		t.Errorf("DatabaseName() = %q, want dbscope_test", c.DatabaseName())
	}
}

func TestIntegrationExecute(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	c.Execute(ctx, "DROP TABLE IF EXISTS test_users")
	t.Cleanup(func() { c.Execute(ctx, "DROP TABLE IF EXISTS test_users") })

	res, err := c.Execute(ctx, `
		CREATE TABLE test_users (
			id     SERIAL PRIMARY KEY,
			name   VARCHAR(100) NOT NULL,
			email  VARCHAR(200) UNIQUE,
			active BOOLEAN DEFAULT true
		)
	`)
	if err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	if res.IsSelect {
		t.Error("CREATE TABLE marked as select result")
	}

	res, err = c.Execute(ctx, `
		INSERT INTO test_users (name, email) VALUES
		('Alice', 'alice@example.com'),
		('Bob', 'bob@example.com'),
		('Charlie', 'charlie@example.com')
	`)
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if res.RowCount != 3 {
		t.Errorf("INSERT RowCount = %d, want 3", res.RowCount)
	}

	res, err = c.Execute(ctx, "SELECT id, name, email, active FROM test_users ORDER BY id")
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if !res.IsSelect {
		t.Error("SELECT not marked as select result")
	}
	if len(res.Rows) != 3 {
		t.Fatalf("SELECT returned %d rows, want 3", len(res.Rows))
	}
	if res.Rows[0][1] != "Alice" {
		t.Errorf("first row name = %q, want Alice", res.Rows[0][1])
	}
	if len(res.Columns) != 4 {
		t.Errorf("got %d columns, want 4", len(res.Columns))
	}

	res, err = c.Execute(ctx, "UPDATE test_users SET active = false WHERE name = 'Bob'")
	if err != nil {
		t.Fatalf("UPDATE: %v", err)
	}
	if res.RowCount != 1 {
		t.Errorf("UPDATE RowCount = %d, want 1", res.RowCount)
	}

	res, err = c.Execute(ctx, "DELETE FROM test_users WHERE name = 'Charlie'")
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if res.RowCount != 1 {
		t.Errorf("DELETE RowCount = %d, want 1", res.RowCount)
	}

	res, err = c.Execute(ctx, "SELECT name, active FROM test_users ORDER BY id")
	if err != nil {
		t.Fatalf("final SELECT: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}
	if res.Rows[1][1] != "false" {
		t.Errorf("Bob active = %q, want false", res.Rows[1][1])
	}
}

func TestIntegrationIntrospection(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	drop := func() {
		c.Execute(ctx, "DROP VIEW IF EXISTS test_cheap_products")
		c.Execute(ctx, "DROP TABLE IF EXISTS test_orders")
		c.Execute(ctx, "DROP TABLE IF EXISTS test_products")
	}
	drop()
	t.Cleanup(drop)

	c.Execute(ctx, `
		CREATE TABLE test_products (
			id    SERIAL PRIMARY KEY,
			name  VARCHAR(100) NOT NULL,
			price NUMERIC(10,2),
			CONSTRAINT test_products_price_check CHECK (price >= 0)
		)
	`)
	c.Execute(ctx, `
		CREATE TABLE test_orders (
			id         SERIAL PRIMARY KEY,
			product_id INT REFERENCES test_products(id),
			quantity   INT NOT NULL DEFAULT 1
		)
	`)
	c.Execute(ctx, "CREATE INDEX idx_test_orders_product ON test_orders(product_id)")
	c.Execute(ctx, "CREATE VIEW test_cheap_products AS SELECT id, name FROM test_products WHERE price < 10")

	t.Run("Databases", func(t *testing.T) {
		dbs, err := c.Databases(ctx)
		if err != nil {
			t.Fatalf("Databases: %v", err)
		}
		found := false
		for _, db := range dbs {
			if db.Name == "dbscope_test" {
				found = true
			}
		}
		if !found {
			t.Error("dbscope_test missing from Databases()")
		}
	})

	t.Run("Tables", func(t *testing.T) {
		tables, err := c.Tables(ctx, "dbscope_test", "public")
		if err != nil {
			t.Fatalf("Tables: %v", err)
		}
		names := map[string]bool{}
		for _, tbl := range tables {
			names[tbl.Name] = true
		}
		for _, want := range []string{"test_products", "test_orders"} {
			if !names[want] {
				t.Errorf("%s missing from Tables()", want)
			}
		}
	})

	t.Run("Columns", func(t *testing.T) {
		cols, err := c.Columns(ctx, "dbscope_test", "public", "test_products")
		if err != nil {
			t.Fatalf("Columns: %v", err)
		}
		if len(cols) != 3 {
			t.Fatalf("got %d columns, want 3", len(cols))
		}
		byName := map[string]bool{}
		for _, col := range cols {
			byName[col.Name] = true
			if col.Name == "id" && !col.IsPK {
				t.Error("id column not flagged as primary key")
			}
		}
		for _, want := range []string{"id", "name", "price"} {
			if !byName[want] {
				t.Errorf("column %q missing", want)
			}
		}
	})

	t.Run("Indexes", func(t *testing.T) {
		idxs, err := c.Indexes(ctx, "", "public", "test_orders")
		if err != nil {
			t.Fatalf("Indexes: %v", err)
		}
		found := false
		for _, idx := range idxs {
			if idx.Name == "idx_test_orders_product" {
				found = true
				if len(idx.Columns) != 1 || idx.Columns[0] != "product_id" {
					t.Errorf("index columns = %v, want [product_id]", idx.Columns)
				}
			}
		}
		if !found {
			t.Error("idx_test_orders_product missing from Indexes()")
		}
	})

	t.Run("ForeignKeys", func(t *testing.T) {
		fks, err := c.ForeignKeys(ctx, "", "public", "test_orders")
		if err != nil {
			t.Fatalf("ForeignKeys: %v", err)
		}
		if len(fks) == 0 {
			t.Fatal("expected at least one foreign key")
		}
		fk := fks[0]
		if fk.RefTable != "test_products" {
			t.Errorf("RefTable = %q, want test_products", fk.RefTable)
		}
		if len(fk.Columns) != 1 || fk.Columns[0] != "product_id" {
			t.Errorf("Columns = %v, want [product_id]", fk.Columns)
		}
		if len(fk.RefColumns) != 1 || fk.RefColumns[0] != "id" {
			t.Errorf("RefColumns = %v, want [id]", fk.RefColumns)
		}
	})

	t.Run("Views", func(t *testing.T) {
		views, err := c.Views(ctx, c.DatabaseName(), "public")
		if err != nil {
			t.Fatalf("Views: %v", err)
		}
		found := false
		for _, v := range views {
			if v.Name == "test_cheap_products" {
				found = true
				if v.Definition == "" {
					t.Error("view definition is empty")
				}
			}
		}
		if !found {
			t.Error("test_cheap_products missing from Views()")
		}
	})

	t.Run("Constraints", func(t *testing.T) {
		cons, err := c.Constraints(ctx, "", "public", "test_products")
		if err != nil {
			t.Fatalf("Constraints: %v", err)
		}
		byType := map[string]int{}
		for _, cn := range cons {
			byType[cn.Type]++
			if cn.Definition == "" {
				t.Errorf("constraint %q has empty definition", cn.Name)
			}
		}
		if byType["PRIMARY KEY"] != 1 {
			t.Errorf("PRIMARY KEY count = %d, want 1", byType["PRIMARY KEY"])
		}
		if byType["CHECK"] < 1 {
			t.Errorf("CHECK count = %d, want at least 1", byType["CHECK"])
		}
	})

	t.Run("Batch", func(t *testing.T) {
		bi, ok := c.(adapter.BatchIntrospector)
		if !ok {
			t.Fatal("connection does not implement BatchIntrospector")
		}

		cols, err := bi.AllColumns(ctx, "dbscope_test", "public")
		if err != nil {
			t.Fatalf("AllColumns: %v", err)
		}
		if len(cols["test_products"]) != 3 {
			t.Errorf("AllColumns[test_products] = %d, want 3", len(cols["test_products"]))
		}
		if len(cols["test_orders"]) != 3 {
			t.Errorf("AllColumns[test_orders] = %d, want 3", len(cols["test_orders"]))
		}

		idxs, err := bi.AllIndexes(ctx, "dbscope_test", "public")
		if err != nil {
			t.Fatalf("AllIndexes: %v", err)
		}
		found := false
		for _, idx := range idxs["test_orders"] {
			if idx.Name == "idx_test_orders_product" {
				found = true
			}
		}
		if !found {
			t.Error("idx_test_orders_product missing from AllIndexes()[test_orders]")
		}

		fks, err := bi.AllForeignKeys(ctx, "dbscope_test", "public")
		if err != nil {
			t.Fatalf("AllForeignKeys: %v", err)
		}
		if len(fks["test_orders"]) == 0 {
			t.Error("no foreign keys for test_orders in AllForeignKeys()")
		}
	})
}

func TestIntegrationStreaming(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	c.Execute(ctx, "DROP TABLE IF EXISTS test_stream")
	t.Cleanup(func() { c.Execute(ctx, "DROP TABLE IF EXISTS test_stream") })

	c.Execute(ctx, "CREATE TABLE test_stream (id INT, val TEXT)")
	c.Execute(ctx, `
		INSERT INTO test_stream (id, val)
		SELECT g, 'row-' || g FROM generate_series(1, 50) AS g
	`)

	iter, err := c.ExecuteStreaming(ctx, "SELECT * FROM test_stream ORDER BY id", 10)
	if err != nil {
		t.Fatalf("ExecuteStreaming: %v", err)
	}
	defer iter.Close()

	if got := len(iter.Columns()); got != 2 {
		t.Fatalf("got %d columns, want 2", got)
	}

	page, err := iter.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext page 1: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("page 1: %d rows, want 10", len(page))
	}
	if page[0][0] != "1" {
		t.Errorf("page 1 first id = %q, want 1", page[0][0])
	}

	page, err = iter.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext page 2: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("page 2: %d rows, want 10", len(page))
	}
	if page[0][0] != "11" {
		t.Errorf("page 2 first id = %q, want 11", page[0][0])
	}

	page, err = iter.FetchPrev(ctx)
	if err != nil {
		t.Fatalf("FetchPrev: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("prev page: %d rows, want 10", len(page))
	}

	for {
		page, err = iter.FetchNext(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("FetchNext drain: %v", err)
		}
		if len(page) == 0 {
			break
		}
	}
}

func TestIntegrationCompletions(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	c.Execute(ctx, "DROP TABLE IF EXISTS test_comp")
	t.Cleanup(func() { c.Execute(ctx, "DROP TABLE IF EXISTS test_comp") })
	c.Execute(ctx, "CREATE TABLE test_comp (id INT, description TEXT)")

	items, err := c.Completions(ctx)
	if err != nil {
		t.Fatalf("Completions: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no completions returned")
	}

	var haveTable, haveColumn bool
	for _, item := range items {
		if item.Label == "test_comp" && item.Kind == adapter.CompletionTable {
			haveTable = true
		}
		if item.Label == "description" && item.Kind == adapter.CompletionColumn {
			haveColumn = true
		}
	}
	if !haveTable {
		t.Error("test_comp table missing from completions")
	}
	if !haveColumn {
		t.Error("description column missing from completions")
	}
}

func TestIntegrationDataTypes(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	c.Execute(ctx, "DROP TABLE IF EXISTS test_types")
	t.Cleanup(func() { c.Execute(ctx, "DROP TABLE IF EXISTS test_types") })

	c.Execute(ctx, `
		CREATE TABLE test_types (
			c_bool    BOOLEAN,
			c_int     INT,
			c_bigint  BIGINT,
			c_float   DOUBLE PRECISION,
			c_numeric NUMERIC(10,2),
			c_text    TEXT,
			c_varchar VARCHAR(50),
			c_date    DATE,
			c_ts      TIMESTAMP,
			c_json    JSONB,
			c_uuid    UUID
		)
	`)
	c.Execute(ctx, `
		INSERT INTO test_types VALUES (
			true, 42, 9999999999, 3.14, 99.99,
			'hello world', 'varchar val',
			'2024-06-15', '2024-06-15 14:30:00',
			'{"key": "value"}',
			'a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11'
		)
	`)

	res, err := c.Execute(ctx, "SELECT * FROM test_types")
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
	row := res.Rows[0]

	checks := []struct {
		idx  int
		name string
		want string
	}{
		{0, "bool", "true"},
		{1, "int", "42"},
		{2, "bigint", "9999999999"},
		{4, "numeric", "99.99"},
		{5, "text", "hello world"},
		{6, "varchar", "varchar val"},
		{7, "date", "2024-06-15"},
		{10, "uuid", "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"},
	}
	for _, check := range checks {
		if row[check.idx] != check.want {
			t.Errorf("%s: got %q, want %q", check.name, row[check.idx], check.want)
		}
	}
}

func TestIntegrationErrors(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	if _, err := c.Execute(ctx, "SELECT * FROM nonexistent_table_xyz"); err == nil {
		t.Error("expected error for nonexistent table")
	}
	if _, err := c.Execute(ctx, "SELEC broken"); err == nil {
		t.Error("expected error for syntax error")
	}
}
