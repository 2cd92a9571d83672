// Package msg defines the messages exchanged between the app model and
// its components, plus the small shared enums they carry. Keeping them
// here avoids import cycles between the UI packages.
package msg

import (
	"time"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/schema"
)

// Pane identifies one of the three focusable panes.
type Pane int

const (
	PaneSidebar Pane = iota
	PaneEditor
	PaneResults
)

// KeyMode selects the active keybinding set.
type KeyMode int

const (
	KeyModeStandard KeyMode = iota
	KeyModeVim
)

func (m KeyMode) String() string {
	if m == KeyModeVim {
		return "vim"
	}
	return "standard"
}

// ParseKeyMode maps a config value to a KeyMode; anything unknown is
// the standard mode.
func ParseKeyMode(s string) KeyMode {
	if s == "vim" {
		return KeyModeVim
	}
	return KeyModeStandard
}

// VimState is the sub-mode shown while vim keybindings are active.
type VimState int

const (
	VimNormal VimState = iota
	VimInsert
	VimVisual
)

func (s VimState) String() string {
	switch s {
	case VimInsert:
		return "INSERT"
	case VimVisual:
		return "VISUAL"
	}
	return "NORMAL"
}

// FocusMsg moves focus to the given pane.
type FocusMsg struct {
	Pane Pane
}

// Connection lifecycle. ConnGen increments on every successful connect;
// messages stamped with an older generation refer to a connection that
// has since been replaced and are dropped by the app model.

// ConnectMsg reports an established connection.
type ConnectMsg struct {
	Conn    adapter.Connection
	Adapter string
	DSN     string
}

// ConnectErrMsg reports a failed connection attempt.
type ConnectErrMsg struct {
	Err error
}

// DisconnectMsg reports that the connection was closed.
type DisconnectMsg struct{}

// SchemaLoadedMsg delivers the introspected schema tree. Warnings hold
// per-object introspection failures that did not abort the load.
type SchemaLoadedMsg struct {
	Databases []schema.Database
	ConnGen   uint64
	Warnings  []string
}

// SchemaErrMsg reports a schema load failure.
type SchemaErrMsg struct {
	Err     error
	ConnGen uint64
}

// Query lifecycle. RunID distinguishes runs within a tab so a slow
// query finishing late cannot clobber the result of a newer one.

// ExecuteQueryMsg asks the app to run a query in the given tab.
type ExecuteQueryMsg struct {
	Query string
	TabID int
}

// QueryStartedMsg marks the start of a run.
type QueryStartedMsg struct {
	TabID   int
	RunID   uint64
	ConnGen uint64
}

// QueryResultMsg delivers a completed, fully buffered result.
type QueryResultMsg struct {
	Result  *adapter.QueryResult
	TabID   int
	RunID   uint64
	ConnGen uint64
}

// QueryStreamingMsg delivers a result that is paged on demand through
// the iterator. Duration covers the time to the first page only.
type QueryStreamingMsg struct {
	Iterator adapter.RowIterator
	Columns  []adapter.ColumnMeta
	Duration time.Duration
	TabID    int
	RunID    uint64
	ConnGen  uint64
}

// QueryErrMsg reports a failed run.
type QueryErrMsg struct {
	Err     error
	TabID   int
	RunID   uint64
	ConnGen uint64
}

// NewTabMsg opens a tab, optionally pre-filled with a query.
type NewTabMsg struct {
	Query string
}

// CloseTabMsg closes a tab. Force skips the unsaved-changes prompt.
type CloseTabMsg struct {
	TabID int
	Force bool
}

// SwitchTabMsg activates the given tab.
type SwitchTabMsg struct {
	TabID int
}

// StatusMsg shows a transient message in the status bar.
type StatusMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}

// ToggleKeyModeMsg flips between standard and vim keybindings.
type ToggleKeyModeMsg struct{}

// ExportRequestMsg asks for the current result set to be exported.
type ExportRequestMsg struct {
	Format string
	Path   string
}

// ExportCompleteMsg reports a finished export.
type ExportCompleteMsg struct {
	Path     string
	RowCount int64
}

// ExportErrMsg reports a failed export.
type ExportErrMsg struct {
	Err error
}

// InsertTextMsg inserts text into the active editor, e.g. a sidebar pick.
type InsertTextMsg struct {
	Text string
}

// RefreshSchemaMsg asks for the schema tree to be re-introspected.
type RefreshSchemaMsg struct{}

// OpenHistoryMsg opens the query history browser.
type OpenHistoryMsg struct{}
