// Package schema defines the engine-neutral catalog model. Adapters
// translate whatever their engine exposes (information_schema, PRAGMA
// output, duckdb_* functions) into these types, and the UI renders
// them without knowing which engine they came from.
package schema

// Database is a named database and the schemas it contains. Engines
// without a schema layer report a single synthetic one.
type Database struct {
	Name    string
	Schemas []Schema
}

// Schema groups the tables and views of one namespace, such as
// "public" on PostgreSQL or "main" on SQLite.
type Schema struct {
	Name   string
	Tables []Table
	Views  []View
}

// Table carries a table's full introspected shape.
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	FKs         []ForeignKey
	Constraints []Constraint
}

// Column describes one table or view column. Type keeps the engine's
// own spelling of the data type.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
	IsPK     bool
}

// Index lists the columns an index covers, in index order.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKey maps local columns to the referenced table's columns,
// position by position.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Constraint is a non-FK table constraint (primary key, unique,
// check). Definition holds the engine's rendition of the constraint
// body, e.g. "PRIMARY KEY (id)" or "CHECK (total >= 0)".
type Constraint struct {
	Name       string
	Type       string
	Definition string
}

// View pairs a view's columns with its defining SQL when the engine
// exposes it.
type View struct {
	Name       string
	Columns    []Column
	Definition string
}
