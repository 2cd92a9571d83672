package editor

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dbscope/dbscope/internal/theme"
)

// Model wraps a textarea with SQL-aware presentation. While focused, the
// textarea owns all editing and the text is shown plain; once blurred, the
// same text is re-rendered through the syntax highlighter with a line
// number gutter.
//
// TODO: inline highlighting during editing needs textarea v2 or a custom
// widget; until then only the blurred view is coloured.
type Model struct {
	textarea    textarea.Model
	highlighter *Highlighter
	id          int
	width       int
	height      int
	focused     bool
	modified    bool
}

// New creates an editor bound to the tab with the given id.
func New(id int) Model {
	ta := textarea.New()
	ta.Placeholder = "Enter SQL query..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0

	th := theme.Current
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = th.EditorLineNumber
	ta.FocusedStyle.Text = lipgloss.NewStyle()
	ta.BlurredStyle.Prompt = th.EditorLineNumber
	ta.BlurredStyle.Text = lipgloss.NewStyle()
	ta.Blur()

	return Model{
		textarea:    ta,
		highlighter: NewHighlighter(),
		id:          id,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update forwards input to the textarea and flags the content as modified
// when it changes. A blurred editor swallows nothing and changes nothing.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if m.textarea.Value() != before {
		m.modified = true
	}
	return m, cmd
}

// View renders the editor inside a border that reflects focus. The focused
// view is the live textarea; the blurred view is the highlighted preview.
func (m Model) View() string {
	th := theme.Current
	border := th.UnfocusedBorder
	if m.focused {
		border = th.FocusedBorder
	}

	w, h := m.innerSize()

	var content string
	if m.focused {
		m.textarea.SetWidth(w)
		m.textarea.SetHeight(h)
		content = m.textarea.View()
	} else {
		content = m.previewView(th, h)
	}

	return border.Width(w).Height(h).Render(content)
}

// innerSize returns the content area inside the one-cell border, clamped
// to at least one cell.
func (m Model) innerSize() (int, int) {
	w, h := m.width-2, m.height-2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// previewView renders the blurred state: highlighted SQL behind a line
// number gutter, cut off at the available height.
func (m Model) previewView(th *theme.Theme, height int) string {
	raw := m.textarea.Value()
	if raw == "" {
		return th.MutedText.Render(m.textarea.Placeholder)
	}

	lines := strings.Split(m.highlighter.Highlight(raw, th), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}

	gutter := len(strconv.Itoa(strings.Count(raw, "\n") + 1))
	if gutter < 2 {
		gutter = 2
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		num := strconv.Itoa(i + 1)
		b.WriteString(th.EditorLineNumber.Render(strings.Repeat(" ", gutter-len(num)) + num + " "))
		b.WriteString(line)
	}
	return b.String()
}

// SetDialect swaps in the highlighter lexer for the connected adapter.
func (m *Model) SetDialect(dialect string) {
	m.highlighter = NewHighlighterForDialect(dialect)
}

// Value returns the editor text.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetValue replaces the editor text.
func (m *Model) SetValue(s string) {
	m.textarea.SetValue(s)
}

// SetSize sets the outer dimensions, border included.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	iw, ih := m.innerSize()
	m.textarea.SetWidth(iw)
	m.textarea.SetHeight(ih)
}

// Focus gives the editor input focus.
func (m *Model) Focus() {
	m.focused = true
	m.textarea.Focus()
}

// Blur takes input focus away.
func (m *Model) Blur() {
	m.focused = false
	m.textarea.Blur()
}

// Focused reports whether the editor has input focus.
func (m Model) Focused() bool {
	return m.focused
}

// Modified reports whether the text changed since the last ResetModified.
func (m Model) Modified() bool {
	return m.modified
}

// ResetModified clears the modified flag, e.g. after executing the query.
func (m *Model) ResetModified() {
	m.modified = false
}

// ID returns the tab this editor belongs to.
func (m Model) ID() int {
	return m.id
}

// InsertText inserts text at the cursor, prepending a space when the
// existing text does not already end in one. Used for sidebar picks.
func (m *Model) InsertText(text string) {
	if cur := m.textarea.Value(); cur != "" {
		switch cur[len(cur)-1] {
		case ' ', '\n', '\t':
		default:
			text = " " + text
		}
	}
	m.textarea.InsertString(text)
	m.modified = true
}

// ReplaceWord completes the word being typed: the prefixLen bytes before
// the cursor are removed and text is inserted in their place.
func (m *Model) ReplaceWord(text string, prefixLen int) {
	for i := 0; i < prefixLen; i++ {
		m.textarea, _ = m.textarea.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m.textarea.InsertString(text)
	m.modified = true
}
