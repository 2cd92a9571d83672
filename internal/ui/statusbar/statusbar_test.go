package statusbar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dbscope/dbscope/internal/adapter"
	appmsg "github.com/dbscope/dbscope/internal/msg"
	"github.com/dbscope/dbscope/internal/schema"
	"github.com/dbscope/dbscope/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

// stubConn provides just enough of adapter.Connection for ConnectMsg.
type stubConn struct {
	db      string
	adapter string
}

func (c *stubConn) DatabaseName() string { return c.db }
func (c *stubConn) AdapterName() string  { return c.adapter }
func (c *stubConn) Databases(context.Context) ([]schema.Database, error) {
	return nil, nil
}
func (c *stubConn) Tables(context.Context, string, string) ([]schema.Table, error) {
	return nil, nil
}
func (c *stubConn) Views(context.Context, string, string) ([]schema.View, error) {
	return nil, nil
}
func (c *stubConn) Columns(context.Context, string, string, string) ([]schema.Column, error) {
	return nil, nil
}
func (c *stubConn) Indexes(context.Context, string, string, string) ([]schema.Index, error) {
	return nil, nil
}
func (c *stubConn) ForeignKeys(context.Context, string, string, string) ([]schema.ForeignKey, error) {
	return nil, nil
}
func (c *stubConn) Constraints(context.Context, string, string, string) ([]schema.Constraint, error) {
	return nil, nil
}
func (c *stubConn) Execute(context.Context, string) (*adapter.QueryResult, error) {
	return nil, nil
}
func (c *stubConn) ExecuteStreaming(context.Context, string, int) (adapter.RowIterator, error) {
	return nil, nil
}
func (c *stubConn) Completions(context.Context) ([]adapter.CompletionItem, error) {
	return nil, nil
}
func (c *stubConn) Cancel() error              { return nil }
func (c *stubConn) Ping(context.Context) error { return nil }
func (c *stubConn) Close() error               { return nil }

func connect(m Model) Model {
	m, _ = m.Update(appmsg.ConnectMsg{
		Conn:    &stubConn{db: "testdb", adapter: "postgres"},
		Adapter: "postgres",
		DSN:     "postgres://localhost/testdb",
	})
	return m
}

func TestNew(t *testing.T) {
	m := New()

	if m.rowCount != -1 {
		t.Fatalf("rowCount = %d, want -1", m.rowCount)
	}
	if m.keyMode != appmsg.KeyModeStandard {
		t.Fatalf("keyMode = %v, want standard", m.keyMode)
	}
	if m.connected || m.message != "" {
		t.Fatal("fresh bar is connected or carries a message")
	}
	if m.Init() != nil {
		t.Fatal("Init returned a command")
	}
}

func TestConnectDisconnect(t *testing.T) {
	m := connect(New())

	if !m.connected {
		t.Fatal("not connected after ConnectMsg")
	}
	if m.adapter != "postgres" || m.database != "testdb" {
		t.Fatalf("adapter/database = %q/%q", m.adapter, m.database)
	}
	if m.dsn != "postgres://localhost/testdb" {
		t.Fatalf("dsn = %q", m.dsn)
	}

	m, _ = m.Update(appmsg.DisconnectMsg{})
	if m.connected || m.adapter != "" || m.database != "" || m.dsn != "" {
		t.Fatalf("state not cleared on disconnect: %+v", m)
	}
}

func TestConnectClearsMessage(t *testing.T) {
	m := New()
	m, _ = m.Update(appmsg.QueryErrMsg{Err: errors.New("boom")})

	m = connect(m)
	if m.message != "" || m.isError {
		t.Fatalf("stale error survived connect: %q", m.message)
	}
}

func TestQueryResult(t *testing.T) {
	m := New()

	m, cmd := m.Update(appmsg.QueryResultMsg{Result: &adapter.QueryResult{
		Duration: 150 * time.Millisecond,
		RowCount: 42,
		Message:  "42 rows affected",
	}})

	if m.elapsed != 150*time.Millisecond || m.rowCount != 42 {
		t.Fatalf("elapsed=%v rowCount=%d", m.elapsed, m.rowCount)
	}
	if m.message != "42 rows affected" || m.isError {
		t.Fatalf("message = %q (err=%v)", m.message, m.isError)
	}
	if cmd == nil {
		t.Fatal("no clear timer scheduled")
	}
}

func TestQueryResultWithoutMessage(t *testing.T) {
	m := New()
	m, _ = m.Update(appmsg.QueryResultMsg{Result: &adapter.QueryResult{
		Duration: 5 * time.Second,
		RowCount: 1000,
	}})

	if m.message != "" {
		t.Fatalf("message = %q, want empty", m.message)
	}
	if m.elapsed != 5*time.Second || m.rowCount != 1000 {
		t.Fatalf("elapsed=%v rowCount=%d", m.elapsed, m.rowCount)
	}
}

func TestQueryResultNil(t *testing.T) {
	m := New()
	m, _ = m.Update(appmsg.QueryResultMsg{})
	if m.rowCount != -1 {
		t.Fatalf("rowCount = %d after nil result, want -1", m.rowCount)
	}
}

func TestQueryStreaming(t *testing.T) {
	m := New()
	m, cmd := m.Update(appmsg.QueryStreamingMsg{Duration: time.Second})

	if m.message != "streaming" || m.isError {
		t.Fatalf("message = %q (err=%v)", m.message, m.isError)
	}
	if m.rowCount != -1 {
		t.Fatalf("rowCount = %d while streaming, want -1", m.rowCount)
	}
	if cmd == nil {
		t.Fatal("no clear timer scheduled")
	}
}

func TestQueryError(t *testing.T) {
	m := New()

	m, _ = m.Update(appmsg.QueryErrMsg{Err: errors.New("syntax error near 'SELEC'")})
	if m.message != "syntax error near 'SELEC'" || !m.isError {
		t.Fatalf("message = %q (err=%v)", m.message, m.isError)
	}

	m, _ = m.Update(appmsg.QueryErrMsg{})
	if m.message != "unknown error" {
		t.Fatalf("message = %q for nil error", m.message)
	}
}

func TestStatusMsg(t *testing.T) {
	m := New()

	m, _ = m.Update(appmsg.StatusMsg{
		Text:     "Export complete",
		Duration: 200 * time.Millisecond,
	})
	if m.message != "Export complete" || m.isError {
		t.Fatalf("message = %q (err=%v)", m.message, m.isError)
	}
	if m.elapsed != 200*time.Millisecond {
		t.Fatalf("elapsed = %v", m.elapsed)
	}

	m, _ = m.Update(appmsg.StatusMsg{Text: "Connection failed", IsError: true})
	if !m.isError {
		t.Fatal("isError not set")
	}
	// Zero duration leaves the last timing alone.
	if m.elapsed != 200*time.Millisecond {
		t.Fatalf("elapsed = %v, want unchanged", m.elapsed)
	}
}

func TestClearStatus(t *testing.T) {
	m := New()
	m, _ = m.Update(appmsg.StatusMsg{Text: "done", Duration: time.Second})

	m, _ = m.Update(ClearStatusMsg{Gen: m.gen})
	if m.message != "" || m.elapsed != 0 || m.rowCount != -1 {
		t.Fatalf("not cleared: %+v", m)
	}
}

func TestStaleClearIgnored(t *testing.T) {
	m := New()

	m, cmd := m.Update(appmsg.StatusMsg{Text: "first"})
	if cmd == nil {
		t.Fatal("no timer for first message")
	}
	firstGen := m.gen

	m, _ = m.Update(appmsg.StatusMsg{Text: "second"})
	if m.gen == firstGen {
		t.Fatal("generation not bumped for second message")
	}

	m, _ = m.Update(ClearStatusMsg{Gen: firstGen})
	if m.message != "second" {
		t.Fatalf("stale timer cleared newer message: %q", m.message)
	}

	m, _ = m.Update(ClearStatusMsg{Gen: m.gen})
	if m.message != "" {
		t.Fatalf("current timer did not clear: %q", m.message)
	}
}

func TestToggleKeyMode(t *testing.T) {
	m := New()

	m, _ = m.Update(appmsg.ToggleKeyModeMsg{})
	if m.KeyMode() != appmsg.KeyModeVim {
		t.Fatalf("keyMode = %v after toggle", m.KeyMode())
	}

	m, _ = m.Update(appmsg.ToggleKeyModeMsg{})
	if m.KeyMode() != appmsg.KeyModeStandard {
		t.Fatalf("keyMode = %v after second toggle", m.KeyMode())
	}

	m.SetKeyMode(appmsg.KeyModeVim)
	if m.KeyMode() != appmsg.KeyModeVim {
		t.Fatal("SetKeyMode not applied")
	}
}

func TestSetters(t *testing.T) {
	m := New()

	m.SetCursor(10, 25)
	if m.cursorLine != 10 || m.cursorCol != 25 {
		t.Fatalf("cursor = %d:%d", m.cursorLine, m.cursorCol)
	}

	m.SetVimState(appmsg.VimInsert)
	if m.vimState != appmsg.VimInsert {
		t.Fatalf("vimState = %v", m.vimState)
	}
}

func TestViewZeroWidth(t *testing.T) {
	m := New()
	if m.View() != "" {
		t.Fatal("zero-width bar rendered output")
	}
}

func TestViewVariants(t *testing.T) {
	variants := map[string]func(Model) Model{
		"idle": func(m Model) Model { return m },
		"connected": func(m Model) Model {
			return connect(m)
		},
		"with stats": func(m Model) Model {
			m, _ = m.Update(appmsg.QueryResultMsg{Result: &adapter.QueryResult{
				Duration: 42 * time.Millisecond,
				RowCount: 100,
			}})
			return m
		},
		"with error": func(m Model) Model {
			m, _ = m.Update(appmsg.QueryErrMsg{Err: errors.New("test error")})
			return m
		},
		"vim mode": func(m Model) Model {
			m.SetKeyMode(appmsg.KeyModeVim)
			m.SetVimState(appmsg.VimInsert)
			return m
		},
		"with cursor": func(m Model) Model {
			m.SetCursor(5, 10)
			return m
		},
	}

	for name, setup := range variants {
		t.Run(name, func(t *testing.T) {
			m := New()
			m.SetSize(120)
			if setup(m).View() == "" {
				t.Error("empty view")
			}
		})
	}
}

func TestHintsShownWhenIdle(t *testing.T) {
	m := New()
	m.SetSize(120)
	m.SetHints("f5 run query")

	if !strings.Contains(m.View(), "f5 run query") {
		t.Fatal("idle view missing hints")
	}

	m, _ = m.Update(appmsg.StatusMsg{Text: "copied"})
	if strings.Contains(m.View(), "f5 run query") {
		t.Fatal("hints rendered while a message is shown")
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.d); got != tt.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestHumanCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5k"},
		{2_500_000, "2.5M"},
	}
	for _, tt := range tests {
		if got := humanCount(tt.n); got != tt.want {
			t.Errorf("humanCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestClip(t *testing.T) {
	if got := clip("a long error message", 10); got != "a long ..." {
		t.Errorf("clip = %q", got)
	}
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip = %q", got)
	}
	if got := clip("anything", 3); got != "anything" {
		t.Errorf("clip = %q with tiny max", got)
	}
}
