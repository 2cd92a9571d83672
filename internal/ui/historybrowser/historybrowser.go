// Package historybrowser is the modal for browsing and re-running past
// queries.
package historybrowser

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dbscope/dbscope/internal/history"
	"github.com/dbscope/dbscope/internal/theme"
	"github.com/mattn/go-runewidth"
)

// fetchLimit caps how many entries one refresh pulls from the store.
const fetchLimit = 200

// SelectQueryMsg carries the query text of the picked entry.
type SelectQueryMsg struct {
	Query string
}

// Model is the history browser modal.
type Model struct {
	hist    *history.History
	entries []history.HistoryEntry
	cursor  int
	offset  int
	visible bool
	width   int
	height  int
	search  textinput.Model

	// confirmClear arms the wipe; a second ctrl+x clears, anything
	// else disarms.
	confirmClear bool
}

// New creates a browser over the given store. hist may be nil, in which
// case the list stays empty.
func New(hist *history.History) Model {
	ti := textinput.New()
	ti.Placeholder = "Search queries..."
	ti.Prompt = "  > "
	ti.Width = 50
	return Model{hist: hist, search: ti}
}

// Show opens the modal with a fresh search and entry list.
func (m *Model) Show() {
	m.visible = true
	m.cursor = 0
	m.offset = 0
	m.confirmClear = false
	m.search.SetValue("")
	m.search.Focus()
	m.refresh()
}

// Hide closes the modal.
func (m *Model) Hide() {
	m.visible = false
	m.search.Blur()
}

// Visible reports whether the modal is open.
func (m Model) Visible() bool { return m.visible }

// SetSize records the terminal size the modal may occupy.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles input while the modal is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}

	// Cursor blink and friends.
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() != "ctrl+x" {
		m.confirmClear = false
	}

	switch msg.String() {
	case "esc", "ctrl+h":
		m.Hide()
		return m, nil
	case "ctrl+x":
		return m.clearRequested()
	case "up", "ctrl+p":
		m.moveCursor(-1)
		return m, nil
	case "down", "ctrl+n":
		m.moveCursor(1)
		return m, nil
	case "pgup":
		m.moveCursor(-m.listHeight())
		return m, nil
	case "pgdown":
		m.moveCursor(m.listHeight())
		return m, nil
	case "enter":
		if m.cursor >= len(m.entries) {
			return m, nil
		}
		query := m.entries[m.cursor].Query
		m.Hide()
		return m, func() tea.Msg { return SelectQueryMsg{Query: query} }
	}

	// Everything else edits the search filter.
	prev := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != prev {
		m.cursor = 0
		m.offset = 0
		m.refresh()
	}
	return m, cmd
}

func (m Model) clearRequested() (Model, tea.Cmd) {
	if !m.confirmClear {
		m.confirmClear = true
		return m, nil
	}
	m.confirmClear = false
	if m.hist != nil {
		if err := m.hist.Clear(); err == nil {
			m.cursor = 0
			m.offset = 0
			m.refresh()
		}
	}
	return m, nil
}

// moveCursor shifts the selection by delta, clamped to the list, and
// keeps it scrolled into view.
func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if h := m.listHeight(); m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// View renders the modal dialog.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	th := theme.Current
	w := m.dialogWidth()

	rows := m.listRows(th, w)
	count := th.MutedText.Render(fmt.Sprintf("  %d entries", len(m.entries)))
	help := th.MutedText.Render("  enter:select  esc:close  up/down:navigate  ctrl+x:clear")
	if m.confirmClear {
		help = th.WarningText.Render("  press ctrl+x again to clear all history")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render("  Query History  "),
		"  "+m.search.View(),
		"",
		strings.Join(rows, "\n"),
		"",
		count,
		help,
	)
	return th.DialogBorder.Width(w).Render(content)
}

func (m Model) listRows(th *theme.Theme, w int) []string {
	end := m.offset + m.listHeight()
	if end > len(m.entries) {
		end = len(m.entries)
	}

	rows := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		row := m.entryRow(e, w-6)
		switch {
		case i == m.cursor:
			rows = append(rows, th.SidebarSelected.Render(row))
		case e.IsError:
			rows = append(rows, th.ErrorText.Render("  "+row))
		default:
			rows = append(rows, "  "+row)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, th.MutedText.Render("  No history entries"))
	}
	return rows
}

func (m Model) dialogWidth() int {
	w := 80
	if m.width > 0 && w > m.width-4 {
		w = m.width - 4
	}
	return w
}

// listHeight is the terminal height minus the dialog chrome (title,
// search, spacers, count, help and the border).
func (m Model) listHeight() int {
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) refresh() {
	if m.hist == nil {
		m.entries = nil
		return
	}

	var err error
	if q := m.search.Value(); q != "" {
		m.entries, err = m.hist.Search("%"+q+"%", fetchLimit)
	} else {
		m.entries, err = m.hist.Recent(fetchLimit)
	}
	if err != nil {
		m.entries = nil
	}
}

// entryRow lays out one entry: the query's first line padded to a fixed
// column, then adapter, duration and age. Display-width truncation keeps
// the metadata column aligned when the query holds wide runes.
func (m Model) entryRow(e history.HistoryEntry, maxWidth int) string {
	queryMax := maxWidth - 30
	if queryMax < 10 {
		queryMax = 10
	}
	query := runewidth.Truncate(firstLine(e.Query), queryMax, "…")
	query = runewidth.FillRight(query, queryMax)

	var meta []string
	if e.Adapter != "" {
		meta = append(meta, e.Adapter)
	}
	if e.DurationMS > 0 {
		meta = append(meta, durationLabel(e.DurationMS))
	}
	meta = append(meta, relativeTime(e.ExecutedAt))

	return query + "  " + strings.Join(meta, " | ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

func durationLabel(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
