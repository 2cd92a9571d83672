package app

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/config"
	"github.com/dbscope/dbscope/internal/ui/historybrowser"
)

// ---------------------------------------------------------------------------
// TestNew: default config
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	t.Run("focusedPane is PaneEditor", func(t *testing.T) {
		if m.focusedPane != PaneEditor {
			t.Errorf("focusedPane = %d, want PaneEditor (%d)", m.focusedPane, PaneEditor)
		}
	})

	t.Run("showSidebar is true", func(t *testing.T) {
		if !m.showSidebar {
			t.Error("showSidebar should be true by default")
		}
	})

	t.Run("keyMode matches config standard", func(t *testing.T) {
		if m.keyMode != KeyModeStandard {
			t.Errorf("keyMode = %d, want KeyModeStandard (%d)", m.keyMode, KeyModeStandard)
		}
	})

	t.Run("tabStates has one entry for tab 0", func(t *testing.T) {
		if len(m.tabStates) != 1 {
			t.Fatalf("tabStates length = %d, want 1", len(m.tabStates))
		}
		ts, ok := m.tabStates[0]
		if !ok {
			t.Fatal("tabStates[0] does not exist")
		}
		if ts == nil {
			t.Fatal("tabStates[0] is nil")
		}
	})

	t.Run("sidebarWidth has default", func(t *testing.T) {
		if m.sidebarWidth != 30 {
			t.Errorf("sidebarWidth = %d, want 30", m.sidebarWidth)
		}
	})

	t.Run("editorHeight has default", func(t *testing.T) {
		if m.editorHeight != 50 {
			t.Errorf("editorHeight = %d, want 50", m.editorHeight)
		}
	})

	t.Run("conn is nil", func(t *testing.T) {
		if m.conn != nil {
			t.Error("conn should be nil initially")
		}
	})

	t.Run("not quitting", func(t *testing.T) {
		if m.quitting {
			t.Error("quitting should be false initially")
		}
	})

	t.Run("not executing", func(t *testing.T) {
		if m.executing {
			t.Error("executing should be false initially")
		}
	})

	t.Run("showHelp is false", func(t *testing.T) {
		if m.showHelp {
			t.Error("showHelp should be false initially")
		}
	})

	t.Run("config is stored", func(t *testing.T) {
		if m.cfg != cfg {
			t.Error("cfg pointer does not match the config passed to New")
		}
	})

	t.Run("history is nil when passed nil", func(t *testing.T) {
		if m.history != nil {
			t.Error("history should be nil when nil was passed")
		}
	})

	t.Run("compEngine is not nil", func(t *testing.T) {
		if m.compEngine == nil {
			t.Error("compEngine should not be nil after New")
		}
	})

	t.Run("standard keymap is used", func(t *testing.T) {
		// Verify that VimUp has no keys (standard mode)
		if len(m.keyMap.VimUp.Keys()) != 0 {
			t.Errorf("keyMap.VimUp should have no keys in standard mode, got %v", m.keyMap.VimUp.Keys())
		}
	})
}

// ---------------------------------------------------------------------------
// TestNew_VimMode
// ---------------------------------------------------------------------------

func TestNew_VimMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KeyMode = "vim"
	m := New(cfg, nil, nil)

	t.Run("keyMode is KeyModeVim", func(t *testing.T) {
		if m.keyMode != KeyModeVim {
			t.Errorf("keyMode = %d, want KeyModeVim (%d)", m.keyMode, KeyModeVim)
		}
	})

	t.Run("VimKeyMap is used", func(t *testing.T) {
		// Vim keymap should have vim-specific bindings
		if len(m.keyMap.VimUp.Keys()) == 0 {
			t.Error("VimKeyMap.VimUp should have keys")
		}
		if !hasKey(m.keyMap.VimUp, "k") {
			t.Errorf("VimKeyMap.VimUp keys = %v, want to contain %q", m.keyMap.VimUp.Keys(), "k")
		}
		if !hasKey(m.keyMap.VimDown, "j") {
			t.Errorf("VimKeyMap.VimDown keys = %v, want to contain %q", m.keyMap.VimDown.Keys(), "j")
		}
		if !hasKey(m.keyMap.VimTop, "g") {
			t.Errorf("VimKeyMap.VimTop keys = %v, want to contain %q", m.keyMap.VimTop.Keys(), "g")
		}
		if !hasKey(m.keyMap.VimBottom, "G") {
			t.Errorf("VimKeyMap.VimBottom keys = %v, want to contain %q", m.keyMap.VimBottom.Keys(), "G")
		}
	})

	t.Run("standard bindings still present", func(t *testing.T) {
		if !hasKey(m.keyMap.Quit, "ctrl+q") {
			t.Errorf("VimKeyMap.Quit should still contain ctrl+q")
		}
		if !hasKey(m.keyMap.ExecuteQuery, "ctrl+enter") {
			t.Errorf("VimKeyMap.ExecuteQuery should still contain ctrl+enter")
		}
	})

	t.Run("other defaults unchanged", func(t *testing.T) {
		if m.focusedPane != PaneEditor {
			t.Errorf("focusedPane = %d, want PaneEditor", m.focusedPane)
		}
		if !m.showSidebar {
			t.Error("showSidebar should be true by default")
		}
		if len(m.tabStates) != 1 {
			t.Errorf("tabStates length = %d, want 1", len(m.tabStates))
		}
	})
}

// ---------------------------------------------------------------------------
// TestNew_WithConnections
// ---------------------------------------------------------------------------

func TestNew_WithConnections(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Connections = []config.SavedConnection{
		{Name: "prod-pg", Adapter: "postgres", Host: "localhost", Port: 5432},
		{Name: "local-sqlite", Adapter: "sqlite", File: "/tmp/test.db"},
	}
	m := New(cfg, nil, nil)

	// Should still create normally without crashing
	if m.cfg != cfg {
		t.Error("cfg should be stored in model")
	}
	if len(m.cfg.Connections) != 2 {
		t.Errorf("cfg.Connections length = %d, want 2", len(m.cfg.Connections))
	}
}

// ---------------------------------------------------------------------------
// TestIsTypingKey
// ---------------------------------------------------------------------------

func TestIsTypingKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		// Regular printable characters
		{"letter a", "a", true},
		{"letter z", "z", true},
		{"letter A", "A", true},
		{"letter Z", "Z", true},
		{"digit 0", "0", true},
		{"digit 9", "9", true},
		{"space", " ", true},
		{"exclamation", "!", true},
		{"at sign", "@", true},
		{"hash", "#", true},
		{"dollar", "$", true},
		{"percent", "%", true},
		{"ampersand", "&", true},
		{"asterisk", "*", true},
		{"open paren", "(", true},
		{"close paren", ")", true},
		{"semicolon", ";", true},
		{"dot", ".", true},
		{"comma", ",", true},
		{"equals", "=", true},
		{"plus", "+", true},
		{"minus", "-", true},
		{"underscore", "_", true},
		{"tilde", "~", true},

		// Backspace and delete are typing keys
		{"backspace", "backspace", true},
		{"delete", "delete", true},

		// Non-typing keys
		{"ctrl+c", "ctrl+c", false},
		{"enter", "enter", false},
		{"tab", "tab", false},
		{"esc", "esc", false},
		{"up", "up", false},
		{"down", "down", false},
		{"left", "left", false},
		{"right", "right", false},
		{"ctrl+q", "ctrl+q", false},
		{"ctrl+t", "ctrl+t", false},
		{"f1", "f1", false},
		{"f5", "f5", false},
		{"shift+tab", "shift+tab", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := keyMsgFromString(tt.key)
			got := isTypingKey(msg)
			if got != tt.want {
				t.Errorf("isTypingKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestInit
// ---------------------------------------------------------------------------

func TestInit(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)
	if m.Init() == nil {
		t.Error("Init() should start the spinner tick")
	}
}

// ---------------------------------------------------------------------------
// TestView_BeforeWindowSize
// ---------------------------------------------------------------------------

func TestView_BeforeWindowSize(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)
	// Before receiving a WindowSizeMsg, width and height are 0
	view := m.View()
	if view != "Loading..." {
		t.Errorf("View() before WindowSize = %q, want %q", view, "Loading...")
	}
}

// ---------------------------------------------------------------------------
// TestView_Quitting
// ---------------------------------------------------------------------------

func TestView_Quitting(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)
	m.quitting = true
	view := m.View()
	if view != "Goodbye!\n" {
		t.Errorf("View() when quitting = %q, want %q", view, "Goodbye!\n")
	}
}

// ---------------------------------------------------------------------------
// TestUpdate_OpenHistory
// ---------------------------------------------------------------------------

func TestUpdate_OpenHistory(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	mi, _ := m.Update(OpenHistoryMsg{})
	m = mi.(Model)
	if !m.histBrowser.Visible() {
		t.Fatal("history browser should be visible after OpenHistoryMsg")
	}

	// While open, the browser consumes keys.
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	m = mi.(Model)
	if m.histBrowser.Visible() {
		t.Error("esc should close the history browser")
	}
}

// ---------------------------------------------------------------------------
// TestUpdate_SelectQueryFromHistory
// ---------------------------------------------------------------------------

func TestUpdate_SelectQueryFromHistory(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	mi, _ := m.Update(historybrowser.SelectQueryMsg{Query: "SELECT 1;"})
	m = mi.(Model)
	if got := m.tabStates[0].Editor.Value(); got != "SELECT 1;" {
		t.Errorf("editor value = %q, want the selected query", got)
	}
	if m.focusedPane != PaneEditor {
		t.Error("focus should move to the editor")
	}
}

// ---------------------------------------------------------------------------
// TestUpdate_InsertText
// ---------------------------------------------------------------------------

func TestUpdate_InsertText(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	mi, _ := m.Update(InsertTextMsg{Text: "users"})
	m = mi.(Model)
	if got := m.tabStates[0].Editor.Value(); !strings.Contains(got, "users") {
		t.Errorf("editor value = %q, want %q inserted", got, "users")
	}
}

// ---------------------------------------------------------------------------
// TestUpdate_QueryStreaming
// ---------------------------------------------------------------------------

// stubIterator is a RowIterator with canned pages for routing tests.
type stubIterator struct {
	closed bool
	cols   []adapter.ColumnMeta
	rows   [][]string
}

func (s *stubIterator) FetchNext(ctx context.Context) ([][]string, error) {
	rows := s.rows
	s.rows = nil
	return rows, nil
}

func (s *stubIterator) FetchPrev(ctx context.Context) ([][]string, error) { return nil, nil }
func (s *stubIterator) Columns() []adapter.ColumnMeta                     { return s.cols }
func (s *stubIterator) TotalRows() int64                                  { return -1 }
func (s *stubIterator) Close() error                                      { s.closed = true; return nil }

func TestUpdate_QueryStreaming(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)
	m.tabStates[0].RunID = 1

	iter := &stubIterator{
		cols: []adapter.ColumnMeta{{Name: "id"}},
		rows: [][]string{{"1"}},
	}
	mi, cmd := m.Update(QueryStreamingMsg{Iterator: iter, Columns: iter.cols, TabID: 0, RunID: 1})
	m = mi.(Model)
	if cmd == nil {
		t.Fatal("expected a first-page fetch cmd")
	}
	if iter.closed {
		t.Error("iterator should stay open for the current run")
	}
	if m.executing {
		t.Error("executing should clear once streaming starts")
	}
}

func TestUpdate_QueryStreaming_StaleRunClosesIterator(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)
	m.tabStates[0].RunID = 2 // a newer run superseded this result

	iter := &stubIterator{}
	mi, _ := m.Update(QueryStreamingMsg{Iterator: iter, TabID: 0, RunID: 1})
	_ = mi
	if !iter.closed {
		t.Error("stale streaming result should close its iterator")
	}
}

// ---------------------------------------------------------------------------
// TestUpdate_CloseTab
// ---------------------------------------------------------------------------

func TestUpdate_CloseModifiedTabAsksFirst(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	// Open a second tab and type into its editor.
	mi, _ := m.Update(NewTabMsg{})
	m = mi.(Model)
	tabID := m.tabs.ActiveID()
	mi, _ = m.Update(keyMsgFromString("x"))
	m = mi.(Model)
	if !m.tabStates[tabID].Editor.Modified() {
		t.Fatal("typing should mark the editor modified")
	}

	mi, _ = m.Update(CloseTabMsg{TabID: tabID})
	m = mi.(Model)
	if !m.confirm.Visible() {
		t.Fatal("closing a modified tab should raise the confirm dialog")
	}
	if _, ok := m.tabStates[tabID]; !ok {
		t.Fatal("tab state should survive until the close is confirmed")
	}

	// Force close skips the dialog.
	mi, _ = m.Update(CloseTabMsg{TabID: tabID, Force: true})
	m = mi.(Model)
	if _, ok := m.tabStates[tabID]; ok {
		t.Error("forced close should drop the tab state")
	}
}

func TestUpdate_CloseCleanTabSkipsConfirm(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	mi, _ := m.Update(NewTabMsg{})
	m = mi.(Model)
	tabID := m.tabs.ActiveID()

	mi, _ = m.Update(CloseTabMsg{TabID: tabID})
	m = mi.(Model)
	if m.confirm.Visible() {
		t.Error("closing an unmodified tab should not ask for confirmation")
	}
	if _, ok := m.tabStates[tabID]; ok {
		t.Error("tab state should be removed")
	}
}

func TestUpdate_LastTabNeverCloses(t *testing.T) {
	cfg := config.DefaultConfig()
	m := New(cfg, nil, nil)

	mi, _ := m.Update(CloseTabMsg{TabID: 0})
	m = mi.(Model)
	if m.tabs.Count() != 1 {
		t.Error("the only tab should stay open")
	}
	if _, ok := m.tabStates[0]; !ok {
		t.Error("the only tab's state should survive")
	}
}

// ---------------------------------------------------------------------------
// keyMsgFromString creates a tea.KeyMsg from a string representation.
// This handles common key names by mapping to the appropriate KeyType.
// ---------------------------------------------------------------------------

func keyMsgFromString(s string) tea.KeyMsg {
	// For single printable characters (length 1, ASCII 32-126)
	if len(s) == 1 && s[0] >= 32 && s[0] <= 126 {
		return tea.KeyMsg{
			Type:  tea.KeyRunes,
			Runes: []rune(s),
		}
	}

	// Map named keys to their bubbletea KeyType
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "delete":
		return tea.KeyMsg{Type: tea.KeyDelete}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+q":
		return tea.KeyMsg{Type: tea.KeyCtrlQ}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "f1":
		return tea.KeyMsg{Type: tea.KeyF1}
	case "f5":
		return tea.KeyMsg{Type: tea.KeyF5}
	default:
		// Fallback: treat as runes (multi-byte string)
		return tea.KeyMsg{
			Type:  tea.KeyRunes,
			Runes: []rune(s),
		}
	}
}
