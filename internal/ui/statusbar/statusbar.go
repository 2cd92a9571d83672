// Package statusbar renders the single-line footer with connection info,
// query stats, transient messages and the key mode indicator.
package statusbar

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	appmsg "github.com/dbscope/dbscope/internal/msg"
	"github.com/dbscope/dbscope/internal/theme"
)

// messageTTL is how long a transient message stays before the bar falls
// back to idle key hints.
const messageTTL = 5 * time.Second

// ClearStatusMsg reverts the bar to its idle state. Gen ties the timer
// to the message that started it so a stale timer cannot wipe a newer
// message.
type ClearStatusMsg struct {
	Gen int
}

// Model is the status bar state.
type Model struct {
	width     int
	connected bool
	adapter   string
	database  string
	dsn       string

	elapsed  time.Duration
	rowCount int64
	message  string
	isError  bool

	keyMode    appmsg.KeyMode
	vimState   appmsg.VimState
	cursorLine int
	cursorCol  int
	hints      string

	gen int // bumped per transient message
}

// New creates an idle, disconnected status bar.
func New() Model {
	return Model{rowCount: -1, keyMode: appmsg.KeyModeStandard}
}

func (m Model) Init() tea.Cmd { return nil }

// clearTick schedules the expiry of the current message generation.
func (m *Model) clearTick() tea.Cmd {
	m.gen++
	gen := m.gen
	return tea.Tick(messageTTL, func(time.Time) tea.Msg {
		return ClearStatusMsg{Gen: gen}
	})
}

// Update reacts to connection, query and mode messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.ConnectMsg:
		m.connected = true
		m.adapter = msg.Adapter
		m.dsn = msg.DSN
		m.database = msg.Conn.DatabaseName()
		m.message = ""
		m.isError = false

	case appmsg.DisconnectMsg:
		m.connected = false
		m.adapter = ""
		m.database = ""
		m.dsn = ""

	case appmsg.QueryResultMsg:
		if msg.Result != nil {
			m.elapsed = msg.Result.Duration
			m.rowCount = msg.Result.RowCount
			if msg.Result.Message != "" {
				m.message = msg.Result.Message
				m.isError = false
			}
		}
		return m, m.clearTick()

	case appmsg.QueryStreamingMsg:
		m.elapsed = msg.Duration
		m.rowCount = -1
		m.message = "streaming"
		m.isError = false
		return m, m.clearTick()

	case appmsg.QueryErrMsg:
		m.message = "unknown error"
		if msg.Err != nil {
			m.message = msg.Err.Error()
		}
		m.isError = true
		return m, m.clearTick()

	case appmsg.StatusMsg:
		m.message = msg.Text
		m.isError = msg.IsError
		if msg.Duration > 0 {
			m.elapsed = msg.Duration
		}
		return m, m.clearTick()

	case ClearStatusMsg:
		if msg.Gen != m.gen {
			break // a newer message restarted the timer
		}
		m.elapsed = 0
		m.rowCount = -1
		m.message = ""
		m.isError = false

	case appmsg.ToggleKeyModeMsg:
		if m.keyMode == appmsg.KeyModeStandard {
			m.keyMode = appmsg.KeyModeVim
		} else {
			m.keyMode = appmsg.KeyModeStandard
		}
	}

	return m, nil
}

// View lays the bar out as left / center / right sections padded to the
// full width.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current
	left := m.connSection(th)
	center := m.middleSection(th)
	right := m.modeSection(th)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left +
		th.StatusBar.Render(strings.Repeat(" ", gap/2)) +
		center +
		th.StatusBar.Render(strings.Repeat(" ", gap-gap/2)) +
		right
	return th.StatusBar.Width(m.width).Render(bar)
}

func (m Model) connSection(th *theme.Theme) string {
	if !m.connected {
		return th.StatusBarKey.Render(" disconnected ")
	}
	return th.StatusBarKey.Render(fmt.Sprintf(" %s://%s ", m.adapter, m.database))
}

// middleSection shows, in order of priority: the transient message, the
// last query stats, or the idle key hints.
func (m Model) middleSection(th *theme.Theme) string {
	if m.message != "" {
		if m.isError {
			return th.StatusBarError.Render(" " + clip(m.message, m.width/2) + " ")
		}
		return th.StatusBarSuccess.Render(" " + m.message + " ")
	}

	if m.elapsed > 0 {
		s := th.StatusBarValue.Render(" " + humanDuration(m.elapsed) + " ")
		if m.rowCount >= 0 {
			s += th.StatusBarValue.Render(" " + humanCount(m.rowCount) + " rows ")
		}
		return s
	}

	return m.hints
}

func (m Model) modeSection(th *theme.Theme) string {
	mode := fmt.Sprintf(" %s ", m.keyMode)
	if m.keyMode == appmsg.KeyModeVim {
		mode = fmt.Sprintf(" %s:%s ", m.keyMode, m.vimState)
	}
	s := th.StatusBarKey.Render(mode)
	if m.cursorLine > 0 {
		s += th.StatusBarValue.Render(fmt.Sprintf(" %d:%d ", m.cursorLine, m.cursorCol))
	}
	return s
}

// SetSize sets the bar width.
func (m *Model) SetSize(width int) { m.width = width }

// SetCursor updates the cursor position shown on the right.
func (m *Model) SetCursor(line, col int) {
	m.cursorLine = line
	m.cursorCol = col
}

// SetHints installs the pre-rendered key hint line for the idle state.
func (m *Model) SetHints(hints string) { m.hints = hints }

// SetVimState updates the vim sub-mode indicator.
func (m *Model) SetVimState(state appmsg.VimState) { m.vimState = state }

// KeyMode returns the active key mode.
func (m Model) KeyMode() appmsg.KeyMode { return m.keyMode }

// SetKeyMode sets the active key mode.
func (m *Model) SetKeyMode(mode appmsg.KeyMode) { m.keyMode = mode }

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func humanCount(n int64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
}

func clip(s string, max int) string {
	if max > 3 && len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
