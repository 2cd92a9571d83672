// Package results renders query output: a zebra-striped grid for SELECT
// rows, status text for everything else. Large result sets are paged in
// through adapter.RowIterator and kept in a bounded in-memory window.
package results

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dbscope/dbscope/internal/adapter"
	appmsg "github.com/dbscope/dbscope/internal/msg"
	"github.com/dbscope/dbscope/internal/theme"
	"github.com/mattn/go-runewidth"
)

// FetchedPageMsg carries one page of rows fetched from an iterator.
type FetchedPageMsg struct {
	Rows    [][]string
	Forward bool // true = FetchNext, false = FetchPrev
	Err     error
	TabID   int
}

const (
	// maxBufferedRows bounds the streamed-row window; the far end is
	// trimmed when a fetched page would overflow it.
	maxBufferedRows = 5000

	fetchTimeout = 30 * time.Second

	minColWidth = 4
	maxColWidth = 50
	sampleRows  = 100
)

// Model is the results pane. A bubbles table tracks the cursor and key
// handling while rendering is done by a custom painter, so streamed
// windows and zebra striping stay under this package's control.
type Model struct {
	table     table.Model
	meta      []adapter.ColumnMeta
	cols      []table.Column // fitted layout for the current pane width
	window    [][]string     // buffered rows; the full set unless streaming
	winStart  int            // global index of window[0] in the result set
	top       int            // first rendered row within the window
	totalRows int64          // -1 while unknown
	iterator  adapter.RowIterator
	tabID     int
	width     int
	height    int
	focused   bool
	loading   bool
	message   string // engine status for non-SELECT statements
	queryTime time.Duration
	err       error
}

// New creates an empty results pane bound to a tab.
func New(tabID int) Model {
	return Model{
		table:     table.New(table.WithFocused(false), table.WithHeight(10)),
		tabID:     tabID,
		totalRows: -1,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles keys and fetched pages. Paging keys at the window edges
// trigger the next iterator fetch; other keys move the table cursor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		switch msg.String() {
		case "pgdown":
			if m.iterator != nil && m.table.Cursor() >= len(m.window)-1 {
				m.loading = true
				return m, fetchPage(m.iterator, m.tabID, true)
			}
		case "pgup":
			if m.iterator != nil && m.winStart > 0 && m.table.Cursor() == 0 {
				m.loading = true
				return m, fetchPage(m.iterator, m.tabID, false)
			}
		case "y":
			return m, m.copyRow()
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.keepCursorVisible()
		return m, cmd

	case appmsg.QueryResultMsg:
		m.SetResults(msg.Result)
		return m, nil

	case FetchedPageMsg:
		return m.absorbPage(msg), nil
	}

	if m.focused {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// absorbPage merges a fetched page into the window, trimming the opposite
// end when the window outgrows maxBufferedRows. io.EOF is not an error,
// only the end of the result set.
func (m Model) absorbPage(msg FetchedPageMsg) Model {
	if msg.TabID != m.tabID {
		return m
	}
	m.loading = false
	if msg.Err != nil {
		if !adapter.SentinelEOF(msg.Err) {
			m.err = msg.Err
		}
		return m
	}

	if msg.Forward {
		m.window = append(m.window, msg.Rows...)
		if excess := len(m.window) - maxBufferedRows; excess > 0 {
			m.window = m.window[excess:]
			m.winStart += excess
		}
	} else {
		m.window = append(msg.Rows, m.window...)
		m.winStart = max(m.winStart-len(msg.Rows), 0)
		if len(m.window) > maxBufferedRows {
			m.window = m.window[:maxBufferedRows]
		}
	}
	m.refreshRows()
	return m
}

// View renders the pane: placeholder text while idle, loading or failed,
// otherwise the grid plus a count-and-timing footer.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	th := theme.Current

	inner := max(m.height-3, 1) // border top/bottom + footer

	switch {
	case m.loading && len(m.window) == 0:
		return m.frame(th.MutedText.Render("  Executing query..."), inner)
	case m.err != nil:
		return m.frame(th.ErrorText.Render("  Error: "+m.err.Error()), inner)
	case m.message != "" && len(m.window) == 0:
		return m.frame(th.SuccessText.Render("  "+m.message), inner)
	case len(m.meta) == 0 && len(m.window) == 0:
		return m.frame(th.MutedText.Render("  No results. Write a query and press F5 to run it."), inner)
	}

	grid := m.paintGrid(th)
	return m.frame(lipgloss.JoinVertical(lipgloss.Left, grid, m.footer(th)), 0)
}

// SetResults loads a completed QueryResult, replacing any streamed state.
func (m *Model) SetResults(result *adapter.QueryResult) {
	m.err = nil
	m.loading = false
	if m.iterator != nil {
		m.iterator.Close()
		m.iterator = nil
	}
	m.winStart = 0
	m.queryTime = result.Duration

	if !result.IsSelect {
		m.message = result.Message
		m.meta = nil
		m.window = nil
		m.totalRows = result.RowCount
		m.table.SetRows(nil)
		m.table.SetColumns(nil)
		return
	}

	m.message = ""
	m.meta = result.Columns
	m.window = result.Rows
	m.totalRows = result.RowCount
	m.top = 0
	if m.totalRows < 0 {
		m.totalRows = int64(len(result.Rows))
	}
	m.refit()
}

// SetIterator switches the pane into streaming mode. Headers appear
// immediately; rows arrive through FetchedPageMsg.
func (m *Model) SetIterator(iter adapter.RowIterator) {
	if m.iterator != nil {
		m.iterator.Close()
	}
	m.iterator = iter
	m.meta = iter.Columns()
	m.totalRows = iter.TotalRows()
	m.winStart = 0
	m.top = 0
	m.err = nil
	m.message = ""
	m.window = nil

	m.cols = fitColumns(m.meta, nil, m.innerWidth())
	m.table.SetColumns(m.cols)
	m.table.SetRows(nil)
}

// SetSize updates the pane dimensions and refits the column layout.
func (m *Model) SetSize(w, h int) {
	if m.width == w && m.height == h {
		return
	}
	m.width = w
	m.height = h

	m.table.SetWidth(max(w-2, 0))
	m.table.SetHeight(max(h-3, 1))

	if len(m.meta) > 0 {
		m.cols = fitColumns(m.meta, m.window, m.innerWidth())
		m.table.SetColumns(m.cols)
	}
}

// SetLoading toggles the in-flight indicator.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.err = nil
	}
}

// SetError puts the pane into the error state.
func (m *Model) SetError(err error) {
	m.err = err
	m.loading = false
}

// SetMessage shows an engine status line for a non-SELECT statement.
func (m *Model) SetMessage(msg string, duration time.Duration) {
	m.message = msg
	m.queryTime = duration
	m.err = nil
	m.loading = false
}

// SetQueryDuration records the execution time shown in the footer.
func (m *Model) SetQueryDuration(d time.Duration) {
	m.queryTime = d
}

// Close releases the streaming iterator, if any. Call when the owning tab
// is discarded.
func (m *Model) Close() {
	if m.iterator != nil {
		m.iterator.Close()
		m.iterator = nil
	}
}

func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

func (m *Model) Blur() {
	m.focused = false
	m.table.Blur()
}

func (m Model) Focused() bool {
	return m.focused
}

// SelectedRow returns the data under the cursor, or nil.
func (m Model) SelectedRow() []string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return nil
	}
	return row
}

// RowCount returns the total result size, -1 while a stream has not
// reached its end.
func (m Model) RowCount() int64 {
	return m.totalRows
}

func (m Model) QueryDuration() time.Duration {
	return m.queryTime
}

func (m Model) Columns() []adapter.ColumnMeta {
	return m.meta
}

// Rows returns the buffered rows: the full set for loaded results, the
// current window for streamed ones.
func (m Model) Rows() [][]string {
	return m.window
}

// Streaming reports whether rows are paged through an iterator, in which
// case Rows holds only a window of the result set.
func (m Model) Streaming() bool {
	return m.iterator != nil
}

// copyRow puts the selected row on the clipboard, tab-separated.
func (m Model) copyRow() tea.Cmd {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return nil
	}
	text := strings.Join(row, "\t")
	n := len(row)
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return appmsg.StatusMsg{Text: "Copy failed: " + err.Error(), IsError: true}
		}
		return appmsg.StatusMsg{Text: fmt.Sprintf("Copied row (%d fields)", n), Duration: 2 * time.Second}
	}
}

// refit recomputes the column layout and pushes rows to the table widget.
func (m *Model) refit() {
	m.cols = fitColumns(m.meta, m.window, m.innerWidth())
	m.table.SetColumns(m.cols)
	m.refreshRows()
}

func (m *Model) refreshRows() {
	rows := make([]table.Row, len(m.window))
	for i, r := range m.window {
		rows[i] = table.Row(r)
	}
	m.table.SetRows(rows)
}

func (m Model) innerWidth() int {
	return max(m.width-2, 10)
}

// gridRows returns the number of data lines the pane can paint, after the
// header line and its underline.
func (m Model) gridRows() int {
	return max(m.height-3-2, 1)
}

// keepCursorVisible scrolls the paint window so the cursor stays on
// screen after the table widget moved it.
func (m *Model) keepCursorVisible() {
	cursor := m.table.Cursor()
	visible := m.gridRows()
	if cursor < m.top {
		m.top = cursor
	}
	if cursor >= m.top+visible {
		m.top = cursor - visible + 1
	}
	m.top = max(m.top, 0)
}

// paintGrid draws the header, its underline and the visible data rows.
// Lines past the data are padded so the grid height stays constant.
func (m Model) paintGrid(th *theme.Theme) string {
	if len(m.cols) == 0 {
		return ""
	}
	w := m.innerWidth()

	titles := make([]string, len(m.cols))
	for i, c := range m.cols {
		titles[i] = c.Title
	}

	var b strings.Builder
	b.WriteString(paintCells(th.ResultsHeader, titles, m.cols, w))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("─", w))

	cursor := m.table.Cursor()
	for i := 0; i < m.gridRows(); i++ {
		b.WriteByte('\n')
		idx := m.top + i
		if idx >= len(m.window) {
			b.WriteString(strings.Repeat(" ", w))
			continue
		}
		b.WriteString(paintCells(m.rowStyle(th, idx, idx == cursor), m.window[idx], m.cols, w))
	}
	return b.String()
}

// rowStyle picks the selected, alternate or plain cell style. Striping is
// keyed to the global row index so it does not shift as the window slides.
func (m Model) rowStyle(th *theme.Theme, idx int, selected bool) lipgloss.Style {
	switch {
	case selected:
		return th.ResultsSelectedRow
	case (m.winStart+idx)%2 == 1:
		return th.ResultsCellAlt
	default:
		return th.ResultsCell
	}
}

// paintCells renders one grid line: every cell truncated and padded to its
// column width with a space of breathing room on each side, then the tail
// filled so the style's background reaches the right edge.
func paintCells(style lipgloss.Style, cells []string, cols []table.Column, totalWidth int) string {
	var b strings.Builder
	used := 0
	for i, col := range cols {
		var val string
		if i < len(cells) {
			val = cells[i]
		}
		cell := runewidth.FillRight(runewidth.Truncate(val, col.Width, "…"), col.Width)
		b.WriteString(style.Padding(0, 1).Render(cell))
		used += col.Width + 2
	}
	if used < totalWidth {
		b.WriteString(style.Padding(0).Render(strings.Repeat(" ", totalWidth-used)))
	}
	return b.String()
}

// footer builds the "N rows | 12 ms" line under the grid.
func (m Model) footer(th *theme.Theme) string {
	var parts []string

	switch {
	case m.totalRows >= 0:
		parts = append(parts, fmt.Sprintf("%d rows", m.totalRows))
	case len(m.window) > 0:
		parts = append(parts, fmt.Sprintf("%d rows loaded", len(m.window)))
	}
	if m.queryTime > 0 {
		parts = append(parts, formatDuration(m.queryTime))
	}
	if m.loading {
		parts = append(parts, "loading...")
	}
	if len(parts) == 0 {
		return ""
	}
	return th.MutedText.Render("  " + strings.Join(parts, " | "))
}

// frame wraps content in the focus-aware border, stretched to minHeight
// when the content alone would not fill the pane.
func (m Model) frame(content string, minHeight int) string {
	th := theme.Current
	style := th.UnfocusedBorder
	if m.focused {
		style = th.FocusedBorder
	}
	style = style.Width(max(m.width-2, 0))
	if minHeight > 0 {
		style = style.Height(minHeight)
	}
	return style.Render(content)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d us", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2f s", d.Seconds())
	default:
		return fmt.Sprintf("%.1f min", d.Minutes())
	}
}

// FetchFirstPage starts a streamed result by fetching its first page.
func FetchFirstPage(iter adapter.RowIterator, tabID int) tea.Cmd {
	return fetchPage(iter, tabID, true)
}

// fetchPage reads the next or previous page off the iterator under a
// timeout and reports it as a FetchedPageMsg.
func fetchPage(iter adapter.RowIterator, tabID int, forward bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		var (
			rows [][]string
			err  error
		)
		if forward {
			rows, err = iter.FetchNext(ctx)
		} else {
			rows, err = iter.FetchPrev(ctx)
		}
		return FetchedPageMsg{Rows: rows, Forward: forward, Err: err, TabID: tabID}
	}
}

// fitColumns sizes columns from header and sampled cell widths: floor
// minColWidth, cap maxColWidth, then proportional shrink when the total
// plus per-column padding overflows the pane width.
func fitColumns(meta []adapter.ColumnMeta, rows [][]string, maxWidth int) []table.Column {
	if len(meta) == 0 {
		return nil
	}

	widths := make([]int, len(meta))
	for i, c := range meta {
		widths[i] = max(runewidth.StringWidth(c.Name), minColWidth)
	}

	sample := min(len(rows), sampleRows)
	for _, row := range rows[:sample] {
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			widths[j] = max(widths[j], runewidth.StringWidth(cell))
		}
	}

	padding := 2 * len(meta)
	total := padding
	for i := range widths {
		widths[i] = min(widths[i], maxColWidth)
		total += widths[i]
	}

	if total > maxWidth {
		avail := max(maxWidth-padding, len(meta))
		sum := total - padding
		for i := range widths {
			widths[i] = max(widths[i]*avail/sum, 2)
		}
	}

	cols := make([]table.Column, len(meta))
	for i, c := range meta {
		cols[i] = table.Column{Title: c.Name, Width: widths[i]}
	}
	return cols
}
