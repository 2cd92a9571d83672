//go:build !duckdb

// Package duckdb registers the DuckDB adapter. The CGO driver is heavy,
// so it only builds behind the duckdb tag; without it the adapter still
// registers and explains how to enable it.
package duckdb

import (
	"context"
	"errors"

	"github.com/dbscope/dbscope/internal/adapter"
)

var errDisabled = errors.New("DuckDB support not compiled in; rebuild with -tags duckdb")

func init() {
	adapter.Register(driver{})
}

type driver struct{}

func (driver) Name() string     { return "duckdb" }
func (driver) DefaultPort() int { return 0 }

func (driver) Connect(context.Context, string) (adapter.Connection, error) {
	return nil, errDisabled
}
