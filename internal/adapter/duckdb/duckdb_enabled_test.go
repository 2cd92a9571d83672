//go:build duckdb

package duckdb

import (
	"context"
	"strings"
	"testing"

	"github.com/dbscope/dbscope/internal/adapter"
)

func openMemory(t *testing.T) adapter.Connection {
	t.Helper()
	conn, err := driver{}.Connect(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Connect(:memory:) error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnect_InMemory(t *testing.T) {
	conn := openMemory(t)

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
	if got := conn.AdapterName(); got != "duckdb" {
		t.Errorf("AdapterName() = %q, want %q", got, "duckdb")
	}
}

func TestExecute_InMemory(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	if _, err := conn.Execute(ctx, "CREATE TABLE metrics (id INTEGER PRIMARY KEY, name VARCHAR, value DOUBLE)"); err != nil {
		t.Fatalf("CREATE TABLE error: %v", err)
	}
	if _, err := conn.Execute(ctx, "INSERT INTO metrics VALUES (1, 'latency', 9.5), (2, 'errors', 0)"); err != nil {
		t.Fatalf("INSERT error: %v", err)
	}

	result, err := conn.Execute(ctx, "SELECT name, value FROM metrics ORDER BY id")
	if err != nil {
		t.Fatalf("SELECT error: %v", err)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if len(result.Columns) != 2 {
		t.Errorf("got %d columns, want 2", len(result.Columns))
	}
	if result.Rows[0][0] != "latency" {
		t.Errorf("Rows[0][0] = %q, want %q", result.Rows[0][0], "latency")
	}
}

func TestIntrospection_InMemory(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	mustExec := func(q string) {
		t.Helper()
		if _, err := conn.Execute(ctx, q); err != nil {
			t.Fatalf("Execute(%q) error: %v", q, err)
		}
	}
	mustExec(`CREATE TABLE readings (
		id      INTEGER PRIMARY KEY,
		sensor  VARCHAR NOT NULL,
		celsius DOUBLE,
		UNIQUE (sensor),
		CHECK (celsius > -274)
	)`)
	mustExec("CREATE VIEW warm_readings AS SELECT id, sensor FROM readings WHERE celsius > 20")

	t.Run("Tables", func(t *testing.T) {
		tables, err := conn.Tables(ctx, "memory", "main")
		if err != nil {
			t.Fatalf("Tables: %v", err)
		}
		found := false
		for _, tbl := range tables {
			if tbl.Name == "readings" {
				found = true
			}
		}
		if !found {
			t.Error("readings not found in Tables()")
		}
	})

	t.Run("Columns", func(t *testing.T) {
		cols, err := conn.Columns(ctx, "memory", "main", "readings")
		if err != nil {
			t.Fatalf("Columns: %v", err)
		}
		if len(cols) != 3 {
			t.Fatalf("got %d columns, want 3", len(cols))
		}
	})

	t.Run("Views", func(t *testing.T) {
		views, err := conn.Views(ctx, "memory", "main")
		if err != nil {
			t.Fatalf("Views: %v", err)
		}
		if len(views) != 1 {
			t.Fatalf("got %d views, want 1", len(views))
		}
		if views[0].Name != "warm_readings" {
			t.Errorf("Views()[0].Name = %q, want %q", views[0].Name, "warm_readings")
		}
	})

	t.Run("Constraints", func(t *testing.T) {
		cons, err := conn.Constraints(ctx, "memory", "main", "readings")
		if err != nil {
			t.Fatalf("Constraints: %v", err)
		}
		types := map[string]int{}
		for _, c := range cons {
			types[c.Type]++
			if c.Name == "" {
				t.Error("constraint name should be synthesized, got empty")
			}
			if c.Definition == "" {
				t.Errorf("constraint %q has empty definition", c.Name)
			}
		}
		if types["PRIMARY KEY"] != 1 {
			t.Errorf("PRIMARY KEY constraints = %d, want 1", types["PRIMARY KEY"])
		}
		if types["UNIQUE"] < 1 {
			t.Errorf("UNIQUE constraints = %d, want at least 1", types["UNIQUE"])
		}
		if types["CHECK"] < 1 {
			t.Errorf("CHECK constraints = %d, want at least 1", types["CHECK"])
		}
	})
}

func TestExecuteStreaming_InMemory(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	if _, err := conn.Execute(ctx, "CREATE TABLE seq AS SELECT range AS id FROM range(0, 30)"); err != nil {
		t.Fatalf("CREATE TABLE error: %v", err)
	}

	iter, err := conn.ExecuteStreaming(ctx, "SELECT id FROM seq ORDER BY id", 8)
	if err != nil {
		t.Fatalf("ExecuteStreaming: %v", err)
	}
	defer iter.Close()

	total := 0
	pages := 0
	for {
		rows, err := iter.FetchNext(ctx)
		if adapter.SentinelEOF(err) {
			break
		}
		if err != nil {
			t.Fatalf("FetchNext: %v", err)
		}
		total += len(rows)
		pages++
	}
	if total != 30 {
		t.Errorf("streamed %d rows, want 30", total)
	}
	if pages < 4 {
		t.Errorf("streamed in %d pages, want at least 4 with page size 8", pages)
	}
}

func TestNormalizeDSNPrefix(t *testing.T) {
	conn := openMemory(t)
	if !strings.Contains(conn.DatabaseName(), ":memory:") {
		t.Errorf("DatabaseName() = %q, want to contain %q", conn.DatabaseName(), ":memory:")
	}
}
