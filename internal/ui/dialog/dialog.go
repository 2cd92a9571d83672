// Package dialog is a reusable confirmation modal with a row of buttons.
package dialog

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dbscope/dbscope/internal/theme"
)

// defaultBoxWidth is the dialog width before terminal clamping.
const defaultBoxWidth = 60

// Button pairs a label with the message its selection produces.
type Button struct {
	Label  string
	Action func() tea.Msg
}

// Model is a modal dialog. The zero value is hidden.
type Model struct {
	title    string
	body     string
	buttons  []Button
	focus    int
	visible  bool
	width    int
	height   int
	boxWidth int
}

// New creates a dialog with the given buttons. The first button starts
// focused.
func New(title, body string, buttons ...Button) Model {
	return Model{
		title:    title,
		body:     body,
		buttons:  buttons,
		boxWidth: defaultBoxWidth,
	}
}

func (m Model) Init() tea.Cmd { return nil }

// Update moves focus between buttons and fires the focused action on
// enter. Esc dismisses without firing anything.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "left", "shift+tab":
		if m.focus > 0 {
			m.focus--
		}
	case "right", "tab":
		if m.focus < len(m.buttons)-1 {
			m.focus++
		}
	case "enter":
		if m.focus < len(m.buttons) && m.buttons[m.focus].Action != nil {
			m.visible = false
			return m, m.buttons[m.focus].Action
		}
	case "esc":
		m.visible = false
	}
	return m, nil
}

// View renders the dialog box.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	th := theme.Current
	inner := m.boxWidth - 4

	body := lipgloss.NewStyle().Width(inner).Render(m.body)
	content := lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render(m.title),
		"",
		body,
		"",
		m.buttonRow(th, inner),
	)
	return th.DialogBorder.Render(content)
}

func (m Model) buttonRow(th *theme.Theme, width int) string {
	cells := make([]string, 0, len(m.buttons))
	for i, btn := range m.buttons {
		style := th.DialogButton
		if i == m.focus {
			style = th.DialogButtonActive
		}
		cells = append(cells, style.Render(" "+btn.Label+" "))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, cells...)
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(row)
}

// Show opens the dialog with focus on the first button.
func (m *Model) Show() {
	m.visible = true
	m.focus = 0
}

// Hide closes the dialog.
func (m *Model) Hide() { m.visible = false }

// Visible reports whether the dialog is open.
func (m Model) Visible() bool { return m.visible }

// SetSize records the terminal size used for centering and clamps the
// box to fit.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.boxWidth > width-4 {
		m.boxWidth = width - 4
	}
}

// Overlay renders the dialog centered over the given background.
// Splicing is escape-sequence aware, so styled background lines survive
// on either side of the dialog instead of being cut mid-sequence.
func (m Model) Overlay(background string) string {
	if !m.visible {
		return background
	}

	box := m.View()
	bgLines := strings.Split(background, "\n")
	boxLines := strings.Split(box, "\n")

	startY := (len(bgLines) - len(boxLines)) / 2
	if startY < 0 {
		startY = 0
	}
	startX := (m.width - lipgloss.Width(box)) / 2
	if startX < 0 {
		startX = 0
	}

	for i, boxLine := range boxLines {
		y := startY + i
		if y >= len(bgLines) {
			break
		}
		bgLines[y] = splice(bgLines[y], boxLine, startX)
	}
	return strings.Join(bgLines, "\n")
}

// splice overwrites the cells of line from column startX for the
// display width of mid. Truncation on both sides goes through the ansi
// package so escape sequences never get split in half.
func splice(line, mid string, startX int) string {
	prefix := ansi.Truncate(line, startX, "")
	if pad := startX - ansi.StringWidth(prefix); pad > 0 {
		prefix += strings.Repeat(" ", pad)
	}
	suffix := ansi.TruncateLeft(line, startX+ansi.StringWidth(mid), "")
	return prefix + mid + suffix
}
