// Package tabs renders the query tab bar and tracks the active tab.
package tabs

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	appmsg "github.com/dbscope/dbscope/internal/msg"
	"github.com/dbscope/dbscope/internal/theme"
	"github.com/mattn/go-runewidth"
)

// maxTitleWidth bounds a single tab label in cells.
const maxTitleWidth = 24

// Tab is one entry in the bar.
type Tab struct {
	ID       int
	Title    string
	Modified bool
}

// Model holds the tab list. IDs are never reused so late messages for a
// closed tab fall through harmlessly.
type Model struct {
	tabs   []Tab
	active int
	seq    int
	width  int
}

// New creates a bar with a single default tab.
func New() Model {
	return Model{
		tabs: []Tab{{ID: 0, Title: "Query 1"}},
		seq:  1,
	}
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles tab lifecycle messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.NewTabMsg:
		return m.open()
	case appmsg.CloseTabMsg:
		return m.close(msg.TabID)
	case appmsg.SwitchTabMsg:
		if idx := m.indexOf(msg.TabID); idx >= 0 {
			m.active = idx
		}
	}
	return m, nil
}

func (m Model) open() (Model, tea.Cmd) {
	tab := Tab{ID: m.seq, Title: fmt.Sprintf("Query %d", m.seq+1)}
	m.seq++
	m.tabs = append(m.tabs, tab)
	m.active = len(m.tabs) - 1
	return m, switchCmd(tab.ID)
}

func (m Model) close(id int) (Model, tea.Cmd) {
	// The last tab stays open.
	if len(m.tabs) <= 1 {
		return m, nil
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return m, nil
	}

	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	if m.active >= len(m.tabs) {
		m.active = len(m.tabs) - 1
	}
	return m, switchCmd(m.tabs[m.active].ID)
}

func switchCmd(id int) tea.Cmd {
	return func() tea.Msg { return appmsg.SwitchTabMsg{TabID: id} }
}

// View renders the bar, cut off at the pane width.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current
	cells := make([]string, 0, len(m.tabs)+1)
	for i, tab := range m.tabs {
		title := tab.Title
		if tab.Modified {
			title += " *"
		}
		style := th.TabInactive
		if i == m.active {
			style = th.TabActive
		}
		cells = append(cells, style.Render(title))
	}
	cells = append(cells, th.TabInactive.Render(" + "))

	bar := lipgloss.JoinHorizontal(lipgloss.Bottom, cells...)
	// TabBar.Width only pads; trim overflow so a crowded bar cannot wrap.
	bar = ansi.Truncate(bar, m.width, "")
	return th.TabBar.Width(m.width).Render(bar)
}

// SetSize sets the bar width.
func (m *Model) SetSize(width int) { m.width = width }

// ActiveTab returns the active tab, or a zero Tab when the list is empty.
func (m Model) ActiveTab() Tab {
	if m.active < len(m.tabs) {
		return m.tabs[m.active]
	}
	return Tab{}
}

// ActiveID returns the active tab's ID.
func (m Model) ActiveID() int { return m.ActiveTab().ID }

// SetModified toggles the unsaved-changes marker on a tab.
func (m *Model) SetModified(tabID int, modified bool) {
	if idx := m.indexOf(tabID); idx >= 0 {
		m.tabs[idx].Modified = modified
	}
}

// SetTitle renames a tab. Long names are cut down so one browsed
// relation cannot crowd the others out of the bar.
func (m *Model) SetTitle(tabID int, title string) {
	if idx := m.indexOf(tabID); idx >= 0 {
		m.tabs[idx].Title = runewidth.Truncate(title, maxTitleWidth, "…")
	}
}

// NextTab cycles forward.
func (m *Model) NextTab() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	m.active = (m.active + 1) % len(m.tabs)
	return switchCmd(m.tabs[m.active].ID)
}

// PrevTab cycles backward.
func (m *Model) PrevTab() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	m.active = (m.active + len(m.tabs) - 1) % len(m.tabs)
	return switchCmd(m.tabs[m.active].ID)
}

// Tabs returns the tab list in display order.
func (m Model) Tabs() []Tab { return m.tabs }

// Count returns how many tabs are open.
func (m Model) Count() int { return len(m.tabs) }

func (m Model) indexOf(id int) int {
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
