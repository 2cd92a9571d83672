// Package autocomplete renders the completion dropdown that floats over
// the query editor.
package autocomplete

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/completion"
	"github.com/dbscope/dbscope/internal/theme"
	"github.com/mattn/go-runewidth"
)

// maxRows caps how many suggestions are shown at once; the list scrolls
// when more match.
const maxRows = 5

// SelectedMsg reports the chosen completion. Text is the full label;
// PrefixLen is how many bytes of it the user had already typed.
type SelectedMsg struct {
	Text      string
	PrefixLen int
}

// DismissMsg is sent when the dropdown is closed without a selection.
type DismissMsg struct{}

// Model is the dropdown overlay state.
type Model struct {
	engine  *completion.Engine
	matches []adapter.CompletionItem
	cursor  int
	prefix  string
	visible bool
	width   int
	posX    int
	posY    int
}

// New creates a dropdown backed by the given completion engine.
func New(engine *completion.Engine) Model {
	return Model{engine: engine, width: 40}
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles navigation and selection keys while the dropdown is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "ctrl+n":
		if m.cursor < len(m.matches)-1 {
			m.cursor++
		}

	case "enter", "tab":
		if m.cursor >= len(m.matches) {
			break
		}
		picked := m.matches[m.cursor].Label
		typed := len(m.prefix)
		m.visible = false
		return m, func() tea.Msg {
			return SelectedMsg{Text: picked, PrefixLen: typed}
		}

	case "esc", "ctrl+c":
		m.visible = false
		return m, func() tea.Msg { return DismissMsg{} }
	}

	return m, nil
}

// View renders the dropdown box, or nothing when hidden.
func (m Model) View() string {
	if !m.visible || len(m.matches) == 0 {
		return ""
	}

	th := theme.Current
	start, end := m.window()

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		row := m.rowText(m.matches[i])
		if i == m.cursor {
			b.WriteString(th.AutocompleteSelected.Render(row))
		} else {
			b.WriteString(th.AutocompleteItem.Render(row))
		}
	}
	return th.AutocompleteBorder.Render(b.String())
}

// window returns the slice bounds of the rows currently in view, keeping
// the cursor inside them.
func (m Model) window() (int, int) {
	if len(m.matches) <= maxRows {
		return 0, len(m.matches)
	}
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	end := start + maxRows
	if end > len(m.matches) {
		end = len(m.matches)
	}
	return start, end
}

// rowText formats one suggestion at a fixed display width. Truncation and
// padding count terminal cells so CJK identifiers stay aligned.
func (m Model) rowText(item adapter.CompletionItem) string {
	row := kindIcon(item.Kind) + " " + item.Label
	if item.Detail != "" {
		row += "  " + item.Detail
	}
	row = runewidth.Truncate(row, m.width-2, "…")
	return runewidth.FillRight(row, m.width-2)
}

// Trigger recomputes suggestions for the text up to cursorPos and opens
// the dropdown when anything matches.
func (m *Model) Trigger(text string, cursorPos int) {
	if m.engine == nil {
		return
	}

	matches := m.engine.Complete(text, cursorPos)
	if len(matches) == 0 {
		m.visible = false
		return
	}

	m.matches = matches
	m.cursor = 0
	m.prefix = wordAt(text, cursorPos)
	m.visible = true
}

// TriggerForced opens the dropdown on explicit request (ctrl+space).
func (m *Model) TriggerForced(text string, cursorPos int) {
	m.Trigger(text, cursorPos)
}

// Dismiss hides the dropdown.
func (m *Model) Dismiss() { m.visible = false }

// Visible reports whether the dropdown is open.
func (m Model) Visible() bool { return m.visible }

// SetPosition records where the editor cursor sits so the overlay can be
// anchored near it.
func (m *Model) SetPosition(x, y int) {
	m.posX = x
	m.posY = y
}

// SetEngine swaps the completion engine, e.g. after switching adapters.
func (m *Model) SetEngine(engine *completion.Engine) { m.engine = engine }

// wordBreaks are the bytes that end an identifier in SQL text.
const wordBreaks = " \t\n(),;.=<>"

// wordAt returns the partial word immediately before cursorPos.
func wordAt(text string, cursorPos int) string {
	if cursorPos > len(text) {
		cursorPos = len(text)
	}
	before := text[:cursorPos]
	return before[strings.LastIndexAny(before, wordBreaks)+1:]
}

func kindIcon(k adapter.CompletionKind) string {
	switch k {
	case adapter.CompletionTable:
		return "T"
	case adapter.CompletionColumn:
		return "C"
	case adapter.CompletionKeyword:
		return "K"
	case adapter.CompletionFunction:
		return "F"
	case adapter.CompletionSchema:
		return "S"
	case adapter.CompletionDatabase:
		return "D"
	case adapter.CompletionView:
		return "V"
	}
	return " "
}
