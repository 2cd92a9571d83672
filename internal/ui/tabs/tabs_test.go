package tabs

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	appmsg "github.com/dbscope/dbscope/internal/msg"
	"github.com/dbscope/dbscope/internal/theme"
	"github.com/mattn/go-runewidth"
)

func init() {
	theme.Current = theme.Default()
}

// three returns a bar with tabs 0, 1, 2 and the last one active.
func three(t *testing.T) Model {
	t.Helper()
	m := New()
	m, _ = m.Update(appmsg.NewTabMsg{})
	m, _ = m.Update(appmsg.NewTabMsg{})
	if m.Count() != 3 || m.ActiveID() != 2 {
		t.Fatalf("setup: count=%d active=%d", m.Count(), m.ActiveID())
	}
	return m
}

// wantSwitch asserts the cmd yields a SwitchTabMsg for the given tab.
func wantSwitch(t *testing.T, cmd tea.Cmd, id int) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a cmd, got nil")
	}
	sw, ok := cmd().(appmsg.SwitchTabMsg)
	if !ok {
		t.Fatalf("expected SwitchTabMsg, got %T", cmd())
	}
	if sw.TabID != id {
		t.Fatalf("expected switch to tab %d, got %d", id, sw.TabID)
	}
}

func TestNew(t *testing.T) {
	m := New()

	if m.Count() != 1 {
		t.Fatalf("expected 1 tab, got %d", m.Count())
	}
	if got := m.ActiveTab(); got.ID != 0 || got.Title != "Query 1" {
		t.Fatalf("unexpected default tab: %+v", got)
	}
	if m.Init() != nil {
		t.Fatal("expected nil cmd from Init")
	}
}

func TestOpenTab(t *testing.T) {
	m := New()

	m, cmd := m.Update(appmsg.NewTabMsg{})
	if m.Count() != 2 {
		t.Fatalf("expected 2 tabs, got %d", m.Count())
	}
	if got := m.ActiveTab(); got.ID != 1 || got.Title != "Query 2" {
		t.Fatalf("unexpected new tab: %+v", got)
	}
	wantSwitch(t, cmd, 1)
}

func TestTabIDsNotReused(t *testing.T) {
	m := three(t)

	m, _ = m.Update(appmsg.CloseTabMsg{TabID: 2})
	m, _ = m.Update(appmsg.NewTabMsg{})
	if got := m.ActiveID(); got != 3 {
		t.Fatalf("expected closed ID to stay retired, new tab got ID %d", got)
	}
}

func TestCloseActiveTab(t *testing.T) {
	m := three(t)

	m, cmd := m.Update(appmsg.CloseTabMsg{TabID: 2})
	if m.Count() != 2 {
		t.Fatalf("expected 2 tabs after close, got %d", m.Count())
	}
	// Active index clamps to the new last tab.
	wantSwitch(t, cmd, 1)
	if m.ActiveID() != 1 {
		t.Fatalf("expected active ID=1, got %d", m.ActiveID())
	}
}

func TestCloseBeforeActive(t *testing.T) {
	m := three(t)
	m, _ = m.Update(appmsg.SwitchTabMsg{TabID: 1})

	// Removing an earlier tab shifts the list left under the active
	// index, so the active slot now holds the next tab over.
	m, _ = m.Update(appmsg.CloseTabMsg{TabID: 0})
	if m.Count() != 2 {
		t.Fatalf("expected 2 tabs, got %d", m.Count())
	}
	if m.ActiveID() != 2 {
		t.Fatalf("expected active ID=2, got %d", m.ActiveID())
	}
}

func TestCloseLastTabRefused(t *testing.T) {
	m := New()

	m, cmd := m.Update(appmsg.CloseTabMsg{TabID: 0})
	if m.Count() != 1 {
		t.Fatalf("expected the last tab to survive, got %d tabs", m.Count())
	}
	if cmd != nil {
		t.Fatal("expected nil cmd when refusing to close the last tab")
	}
}

func TestCloseUnknownTab(t *testing.T) {
	m := three(t)

	m, cmd := m.Update(appmsg.CloseTabMsg{TabID: 999})
	if m.Count() != 3 {
		t.Fatalf("expected 3 tabs, got %d", m.Count())
	}
	if cmd != nil {
		t.Fatal("expected nil cmd for unknown tab ID")
	}
}

func TestSwitchTab(t *testing.T) {
	m := three(t)

	for _, id := range []int{0, 1, 2} {
		m, _ = m.Update(appmsg.SwitchTabMsg{TabID: id})
		if m.ActiveID() != id {
			t.Fatalf("expected active ID=%d, got %d", id, m.ActiveID())
		}
	}

	// Unknown IDs leave the selection alone.
	m, _ = m.Update(appmsg.SwitchTabMsg{TabID: 999})
	if m.ActiveID() != 2 {
		t.Fatalf("expected active ID=2 unchanged, got %d", m.ActiveID())
	}
}

func TestNextPrevCycle(t *testing.T) {
	m := three(t)
	m, _ = m.Update(appmsg.SwitchTabMsg{TabID: 0})

	cmd := m.NextTab()
	wantSwitch(t, cmd, 1)

	m.NextTab()
	m.NextTab() // wraps
	if m.ActiveID() != 0 {
		t.Fatalf("expected NextTab to wrap to 0, got %d", m.ActiveID())
	}

	cmd = m.PrevTab() // wraps the other way
	wantSwitch(t, cmd, 2)
	m.PrevTab()
	m.PrevTab()
	if m.ActiveID() != 0 {
		t.Fatalf("expected PrevTab to land on 0, got %d", m.ActiveID())
	}
}

func TestSetModified(t *testing.T) {
	m := New()

	m.SetModified(0, true)
	if !m.ActiveTab().Modified {
		t.Fatal("expected Modified=true")
	}
	m.SetModified(0, false)
	if m.ActiveTab().Modified {
		t.Fatal("expected Modified=false")
	}

	m.SetModified(999, true) // unknown ID is a no-op
}

func TestSetTitle(t *testing.T) {
	m := New()

	m.SetTitle(0, "users")
	if got := m.ActiveTab().Title; got != "users" {
		t.Fatalf("expected title %q, got %q", "users", got)
	}

	m.SetTitle(0, strings.Repeat("a", 80))
	got := m.ActiveTab().Title
	if w := runewidth.StringWidth(got); w > maxTitleWidth {
		t.Fatalf("title too wide: %d > %d", w, maxTitleWidth)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncated title to end in ellipsis, got %q", got)
	}

	m.SetTitle(999, "x") // unknown ID is a no-op
}

func TestTabsOrder(t *testing.T) {
	m := three(t)

	tabs := m.Tabs()
	for i, tab := range tabs {
		if tab.ID != i {
			t.Fatalf("expected tab %d to have ID %d, got %d", i, i, tab.ID)
		}
	}
}

func TestView(t *testing.T) {
	m := three(t)
	if m.View() != "" {
		t.Fatal("expected empty view at zero width")
	}

	m.SetSize(80)
	m.SetModified(0, true)
	if m.View() == "" {
		t.Fatal("expected non-empty view once sized")
	}

	// A crowded bar must not exceed one line.
	m.SetSize(10)
	if strings.Contains(m.View(), "\n") {
		t.Fatalf("expected single-line bar, got %q", m.View())
	}
}

func TestUpdateIgnoresOtherMsgs(t *testing.T) {
	m := New()
	m, cmd := m.Update(tea.KeyMsg{})
	if cmd != nil || m.Count() != 1 {
		t.Fatalf("expected no-op, got cmd=%v count=%d", cmd, m.Count())
	}
}
