package sidebar

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/dbscope/dbscope/internal/adapter"
	appmsg "github.com/dbscope/dbscope/internal/msg"
	"github.com/dbscope/dbscope/internal/schema"
	"github.com/dbscope/dbscope/internal/theme"
	"github.com/dbscope/dbscope/internal/tree"
)

// useSimpleIcons returns true when running inside Neovim's terminal emulator,
// which has emoji width rendering issues in libvterm.
var useSimpleIcons = os.Getenv("NVIM") != ""

// ChildrenLoadedMsg delivers the result of a lazy child load for one tree
// node. Node and Token echo the LoadRequest that started the load; results
// whose token no longer matches are dropped, as are results from a
// connection that has since been replaced.
type ChildrenLoadedMsg struct {
	Node    tree.NodeID
	Token   uint64
	Specs   []tree.ChildSpec
	Err     error
	ConnGen uint64
}

// BrowseRequestMsg asks the app to run a row-browsing query for the table
// or view activated in the sidebar. Title carries the bare relation name
// for the tab label.
type BrowseRequestMsg struct {
	Query string
	Title string
}

// Model is the schema browser sidebar. It renders the visible rows of a
// tree.Navigator and turns expansion of unloaded nodes into background
// schema queries against the active connection.
type Model struct {
	nav     *tree.Navigator
	conn    adapter.Connection
	connGen uint64

	limit   int           // row cap for browse queries
	timeout time.Duration // budget for one child load

	width   int
	height  int
	offset  int
	focused bool
	loading bool

	filtering   bool
	filterInput textinput.Model
	matches     []int // indices into the visible rows
	filterPos   int   // cursor within matches
}

// New creates a new sidebar. limit caps generated browse queries and
// timeout bounds each lazy schema load; zero values pick the defaults.
func New(limit int, timeout time.Duration) Model {
	if limit <= 0 {
		limit = 200
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"
	ti.CharLimit = 64
	return Model{
		nav:         tree.NewNavigator(nil),
		limit:       limit,
		timeout:     timeout,
		filterInput: ti,
	}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles sidebar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.SchemaLoadedMsg:
		return m.applySnapshot(msg)

	case ChildrenLoadedMsg:
		return m.applyChildren(msg)

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// applySnapshot installs a fresh names-level tree. The first snapshot after
// a connect opens the connected database; a refresh instead reopens the
// table and view subtrees the user had expanded, reloading their children
// through the normal lazy path.
func (m Model) applySnapshot(msg appmsg.SchemaLoadedMsg) (Model, tea.Cmd) {
	m.loading = false

	reopen := m.expandedRelationPaths()
	first := m.nav.Empty()
	m.nav.Rebuild(buildSnapshot(msg.Databases))

	var cmds []tea.Cmd
	if first {
		cmds = m.expandInitial()
	} else {
		for _, p := range reopen {
			id, ok := m.nav.Tree().Resolve(p)
			if !ok {
				continue
			}
			if req, ok := m.nav.Expand(id); ok {
				cmds = append(cmds, m.loadChildren(req))
			}
		}
	}
	m.clearFilter()
	m.ensureVisible()
	return m, tea.Batch(cmds...)
}

func (m Model) applyChildren(msg ChildrenLoadedMsg) (Model, tea.Cmd) {
	if msg.ConnGen != m.connGen {
		return m, nil
	}
	if msg.Err != nil {
		if m.nav.FailLoad(msg.Node, msg.Token, msg.Err) {
			err := msg.Err
			return m, func() tea.Msg {
				return appmsg.StatusMsg{Text: "Schema load failed: " + err.Error(), IsError: true}
			}
		}
		return m, nil
	}
	if m.nav.ApplyChildren(msg.Node, msg.Token, msg.Specs) {
		m.refreshFilter()
		m.ensureVisible()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.nav.Empty() {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		m.nav.SelectPrev()
		m.ensureVisible()
	case "down", "j":
		m.nav.SelectNext()
		m.ensureVisible()
	case "home", "g":
		m.nav.SelectFirst()
		m.offset = 0
	case "end", "G":
		m.nav.SelectLast()
		m.ensureVisible()
	case "right", "l":
		return m.expandSelected()
	case "left", "h":
		m.collapseSelected()
		m.ensureVisible()
	case " ":
		return m.toggleSelected()
	case "enter":
		return m.activateSelected()
	case "y":
		return m.copySelected()
	case "/":
		m.filtering = true
		m.filterInput.Focus()
		m.refreshFilter()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearFilter()
		return m, nil
	case "enter":
		if len(m.matches) > 0 {
			rows := m.nav.VisibleRows()
			if i := m.matches[m.filterPos]; i < len(rows) {
				m.nav.Select(rows[i].ID)
			}
		}
		m.clearFilter()
		m.ensureVisible()
		return m, nil
	case "up", "ctrl+p":
		if m.filterPos > 0 {
			m.filterPos--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.filterPos < len(m.matches)-1 {
			m.filterPos++
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.refreshFilter()
	return m, cmd
}

// expandSelected expands the selected node, kicking off a child load when
// its children are not cached yet.
func (m Model) expandSelected() (Model, tea.Cmd) {
	if req, ok := m.nav.ExpandSelected(); ok {
		m.ensureVisible()
		return m, m.loadChildren(req)
	}
	m.ensureVisible()
	return m, nil
}

// collapseSelected collapses an open node. On a node with a load in flight
// it abandons the load; on a closed or leaf node it jumps to the parent.
func (m *Model) collapseSelected() {
	id := m.nav.Selected()
	node := m.nav.SelectedNode()
	if node == nil {
		return
	}
	if m.nav.Loading(id) {
		m.nav.Collapse(id)
		return
	}
	if !node.Leaf() && !m.nav.Collapsed(id) {
		m.nav.Collapse(id)
		return
	}
	if node.Parent != tree.InvalidID {
		m.nav.Select(node.Parent)
	}
}

func (m Model) toggleSelected() (Model, tea.Cmd) {
	if req, ok := m.nav.ToggleSelected(); ok {
		m.ensureVisible()
		return m, m.loadChildren(req)
	}
	m.ensureVisible()
	return m, nil
}

// activateSelected acts on enter: tables and views generate a browse
// query, columns insert their name into the editor, anything else toggles.
func (m Model) activateSelected() (Model, tea.Cmd) {
	node := m.nav.SelectedNode()
	if node == nil {
		return m, nil
	}
	switch node.Kind {
	case tree.KindTable, tree.KindView:
		query := m.browseQuery(node)
		name := node.Name
		return m, func() tea.Msg {
			return BrowseRequestMsg{Query: query, Title: name}
		}
	case tree.KindColumn:
		name := node.Name
		return m, func() tea.Msg {
			return appmsg.InsertTextMsg{Text: name}
		}
	default:
		return m.toggleSelected()
	}
}

func (m Model) copySelected() (Model, tea.Cmd) {
	node := m.nav.SelectedNode()
	if node == nil {
		return m, nil
	}
	name := node.Name
	return m, func() tea.Msg {
		if err := clipboard.WriteAll(name); err != nil {
			return appmsg.StatusMsg{Text: "Copy failed: " + err.Error(), IsError: true}
		}
		return appmsg.StatusMsg{Text: "Copied " + name, Duration: 2 * time.Second}
	}
}

// browseQuery builds the row-browsing statement for a table or view node.
// Relations in a named schema get a schema qualifier, those in another
// database a database qualifier; default schemas stay bare.
func (m Model) browseQuery(node *tree.Node) string {
	dbName, schemaName := "", ""
	for cur := node.Parent; cur != tree.InvalidID; cur = m.nav.Tree().Node(cur).Parent {
		switch p := m.nav.Tree().Node(cur); p.Kind {
		case tree.KindSchema:
			schemaName = p.Name
		case tree.KindDatabase:
			dbName = p.Name
		}
	}
	tableName := m.quote(node.Name)
	switch {
	case schemaName != "" && schemaName != "main":
		tableName = m.quote(schemaName) + "." + tableName
	case m.conn != nil && dbName != "" && dbName != m.conn.DatabaseName():
		tableName = m.quote(dbName) + "." + tableName
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d;", tableName, m.limit)
}

// quote wraps an identifier for the connected engine. mysql wants
// backticks, everything else takes ANSI double quotes.
func (m Model) quote(name string) string {
	if m.conn != nil && m.conn.AdapterName() == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return quoteIdentifier(name)
}

// View renders the sidebar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	th := theme.Current

	// Account for border (left + right = 2, top + bottom = 2).
	innerW := m.width - 2
	innerH := m.height - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}

	// Title
	title := " Schema Browser "
	titleStyle := th.SidebarTitle
	if m.focused {
		titleStyle = th.SidebarSelected.PaddingLeft(1)
	}
	titleLine := titleStyle.Width(innerW).Render(title)

	if m.loading {
		content := titleLine + "\n\n  Loading schema..."
		return m.borderStyle().Width(innerW).Height(innerH).Render(content)
	}

	rows := m.nav.VisibleRows()
	if len(rows) == 0 {
		content := titleLine + "\n\n  No schema loaded.\n  Connect to a database."
		return m.borderStyle().Width(innerW).Height(innerH).Render(content)
	}

	header := titleLine
	contentHeight := innerH - 1
	if m.filtering {
		header += "\n" + m.filterInput.View()
		contentHeight--
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	var lines []string
	if m.filtering && m.filterInput.Value() != "" {
		lines = m.renderMatches(rows, contentHeight, th)
	} else {
		end := m.offset + contentHeight
		if end > len(rows) {
			end = len(rows)
		}
		for i := m.offset; i < end; i++ {
			lines = append(lines, m.renderRow(rows[i], rows[i].Selected, th))
		}
	}

	content := header + "\n" + strings.Join(lines, "\n")
	return m.borderStyle().Width(innerW).Height(innerH).Render(content)
}

// renderMatches renders the fuzzy-filtered subset of rows, keeping each
// row's normal indentation. The filter cursor, not the tree selection,
// decides the highlight.
func (m Model) renderMatches(rows []tree.Row, contentHeight int, th *theme.Theme) []string {
	start := 0
	if m.filterPos >= contentHeight {
		start = m.filterPos - contentHeight + 1
	}
	end := start + contentHeight
	if end > len(m.matches) {
		end = len(m.matches)
	}
	var lines []string
	for i := start; i < end; i++ {
		idx := m.matches[i]
		if idx >= len(rows) {
			continue
		}
		lines = append(lines, m.renderRow(rows[idx], i == m.filterPos, th))
	}
	if len(lines) == 0 {
		lines = append(lines, "  No matches.")
	}
	return lines
}

func (m Model) renderRow(row tree.Row, selected bool, th *theme.Theme) string {
	indent := strings.Repeat("  ", row.Depth)

	var icon string
	if useSimpleIcons {
		switch row.Kind {
		case tree.KindDatabase:
			icon = "■ "
		case tree.KindSchema:
			icon = "▪ "
		case tree.KindTable:
			icon = "◆ "
		case tree.KindView:
			icon = "◇ "
		case tree.KindConstraintGroup, tree.KindForeignKeyGroup, tree.KindIndexGroup:
			icon = "≡ "
		default:
			icon = "  "
		}
	} else {
		switch row.Kind {
		case tree.KindDatabase:
			icon = "🗄 "
		case tree.KindSchema:
			icon = "📁 "
		case tree.KindTable:
			icon = "📊 "
		case tree.KindView:
			icon = "📄 "
		case tree.KindConstraintGroup, tree.KindForeignKeyGroup, tree.KindIndexGroup:
			icon = "📋 "
		default:
			icon = "  "
		}
	}

	// Expand/collapse indicator for parent nodes; loading nodes show an
	// ellipsis until their children arrive.
	expandIcon := "  "
	switch {
	case row.Leaf:
	case row.Loading:
		expandIcon = "… "
	case row.Collapsed:
		expandIcon = "▶ "
	default:
		expandIcon = "▼ "
	}

	label := row.Name
	if row.Detail != "" {
		label = fmt.Sprintf("%s %s", row.Name, row.Detail)
	}
	if row.Failed {
		label += " (load failed)"
	}

	line := indent + expandIcon + icon + label

	// Truncate and pad by display width; labels and icons are not ASCII.
	maxW := m.width - 4
	line = runewidth.FillRight(runewidth.Truncate(line, maxW, "…"), maxW)

	if selected {
		return th.SidebarSelected.Render(line)
	}
	if row.Failed {
		return th.ErrorText.Render(line)
	}

	switch row.Kind {
	case tree.KindDatabase:
		return th.SidebarDatabase.Render(line)
	case tree.KindSchema:
		return th.SidebarSchema.Render(line)
	case tree.KindTable:
		return th.SidebarTable.Render(line)
	case tree.KindView:
		return th.SidebarView.Render(line)
	case tree.KindColumn:
		if strings.HasSuffix(row.Detail, " PK") {
			return th.SidebarColumn.Bold(true).Render(line)
		}
		return th.SidebarColumn.Render(line)
	default:
		return th.SidebarColumn.Render(line)
	}
}

func (m Model) borderStyle() lipgloss.Style {
	th := theme.Current
	if m.focused {
		return th.FocusedBorder
	}
	return th.UnfocusedBorder
}

// loadChildren runs the schema queries for one expanded node off the event
// loop and reports back as a ChildrenLoadedMsg.
func (m Model) loadChildren(req tree.LoadRequest) tea.Cmd {
	conn := m.conn
	gen := m.connGen
	timeout := m.timeout
	kind := tree.KindDatabase
	if len(req.Path) > 0 {
		kind = req.Path[len(req.Path)-1].Kind
	}
	return func() tea.Msg {
		out := ChildrenLoadedMsg{Node: req.Node, Token: req.Token, ConnGen: gen}
		if conn == nil {
			out.Err = adapter.ErrNotConnected
			return out
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		db, schemaName, rel := pathNames(req.Path)
		switch kind {
		case tree.KindTable:
			out.Specs, out.Err = tableChildren(ctx, conn, db, schemaName, rel)
		case tree.KindView:
			out.Specs, out.Err = viewChildren(ctx, conn, db, schemaName, rel)
		case tree.KindDatabase:
			out.Specs, out.Err = databaseChildren(ctx, conn, db)
		default:
			out.Err = fmt.Errorf("no child loader for %s nodes", kind)
		}
		return out
	}
}

// pathNames pulls the database, schema and relation names out of a load
// request path.
func pathNames(p tree.Path) (db, schemaName, rel string) {
	for _, step := range p {
		switch step.Kind {
		case tree.KindDatabase:
			db = step.Name
		case tree.KindSchema:
			schemaName = step.Name
		case tree.KindTable, tree.KindView:
			rel = step.Name
		}
	}
	return db, schemaName, rel
}

// tableChildren builds the subtree under one table: its columns first, then
// collapsed groups for constraints, foreign keys and indexes. Group counts
// ride in Detail so the group name stays a stable path step across
// refreshes.
func tableChildren(ctx context.Context, conn adapter.Connection, db, schemaName, table string) ([]tree.ChildSpec, error) {
	cols, err := conn.Columns(ctx, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	specs := make([]tree.ChildSpec, 0, len(cols)+3)
	for _, c := range cols {
		specs = append(specs, tree.ChildSpec{Kind: tree.KindColumn, Name: c.Name, Detail: columnDetail(c)})
	}

	cons, err := conn.Constraints(ctx, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("constraints of %s: %w", table, err)
	}
	if len(cons) > 0 {
		group := tree.ChildSpec{
			Kind:      tree.KindConstraintGroup,
			Name:      "Constraints",
			Detail:    fmt.Sprintf("(%d)", len(cons)),
			Collapsed: true,
		}
		for _, cn := range cons {
			group.Children = append(group.Children, tree.ChildSpec{
				Kind:   tree.KindConstraint,
				Name:   cn.Name,
				Detail: cn.Definition,
			})
		}
		specs = append(specs, group)
	}

	fks, err := conn.ForeignKeys(ctx, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %w", table, err)
	}
	if len(fks) > 0 {
		group := tree.ChildSpec{
			Kind:      tree.KindForeignKeyGroup,
			Name:      "Foreign Keys",
			Detail:    fmt.Sprintf("(%d)", len(fks)),
			Collapsed: true,
		}
		for _, fk := range fks {
			detail := fmt.Sprintf("(%s) -> %s(%s)",
				strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
			group.Children = append(group.Children, tree.ChildSpec{
				Kind:   tree.KindForeignKey,
				Name:   fk.Name,
				Detail: detail,
			})
		}
		specs = append(specs, group)
	}

	idxs, err := conn.Indexes(ctx, db, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("indexes of %s: %w", table, err)
	}
	if len(idxs) > 0 {
		group := tree.ChildSpec{
			Kind:      tree.KindIndexGroup,
			Name:      "Indexes",
			Detail:    fmt.Sprintf("(%d)", len(idxs)),
			Collapsed: true,
		}
		for _, ix := range idxs {
			detail := "(" + strings.Join(ix.Columns, ", ") + ")"
			if ix.Unique {
				detail += " unique"
			}
			group.Children = append(group.Children, tree.ChildSpec{
				Kind:   tree.KindIndex,
				Name:   ix.Name,
				Detail: detail,
			})
		}
		specs = append(specs, group)
	}
	return specs, nil
}

// viewChildren builds the subtree under one view: just its columns.
func viewChildren(ctx context.Context, conn adapter.Connection, db, schemaName, view string) ([]tree.ChildSpec, error) {
	cols, err := conn.Columns(ctx, db, schemaName, view)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", view, err)
	}
	specs := make([]tree.ChildSpec, 0, len(cols))
	for _, c := range cols {
		specs = append(specs, tree.ChildSpec{Kind: tree.KindColumn, Name: c.Name, Detail: columnDetail(c)})
	}
	return specs, nil
}

// databaseChildren lists the relations of a database the snapshot left
// unexplored, e.g. a sibling database on the same server.
func databaseChildren(ctx context.Context, conn adapter.Connection, db string) ([]tree.ChildSpec, error) {
	tables, err := conn.Tables(ctx, db, "")
	if err != nil {
		return nil, fmt.Errorf("tables of %s: %w", db, err)
	}
	views, err := conn.Views(ctx, db, "")
	if err != nil {
		return nil, fmt.Errorf("views of %s: %w", db, err)
	}
	specs := make([]tree.ChildSpec, 0, len(tables)+len(views))
	for _, t := range tables {
		specs = append(specs, tree.ChildSpec{Kind: tree.KindTable, Name: t.Name, Lazy: true})
	}
	for _, v := range views {
		specs = append(specs, tree.ChildSpec{Kind: tree.KindView, Name: v.Name, Lazy: true})
	}
	return specs, nil
}

func columnDetail(c schema.Column) string {
	if c.IsPK {
		return c.Type + " PK"
	}
	return c.Type
}

// expandedRelationPaths returns the paths of loaded, open table and view
// nodes, so a refresh can reopen them in the rebuilt tree.
func (m Model) expandedRelationPaths() []tree.Path {
	t := m.nav.Tree()
	var paths []tree.Path
	for i := 0; i < t.Len(); i++ {
		id := tree.NodeID(i)
		node := t.Node(id)
		switch node.Kind {
		case tree.KindTable, tree.KindView:
		default:
			continue
		}
		if node.State() == tree.StateLoaded && !m.nav.Collapsed(id) {
			paths = append(paths, t.Path(id))
		}
	}
	return paths
}

// expandInitial opens the obvious entry point on a fresh snapshot: the
// connected database's node, or the sole root when only one came back.
func (m *Model) expandInitial() []tea.Cmd {
	roots := m.nav.Tree().Roots()
	if len(roots) == 0 {
		return nil
	}
	target := tree.InvalidID
	if len(roots) == 1 {
		target = roots[0]
	} else if m.conn != nil {
		name := m.conn.DatabaseName()
		for _, id := range roots {
			if m.nav.Tree().Node(id).Name == name {
				target = id
				break
			}
		}
	}
	if target == tree.InvalidID {
		return nil
	}
	var cmds []tea.Cmd
	if req, ok := m.nav.Expand(target); ok {
		cmds = append(cmds, m.loadChildren(req))
	}
	m.nav.Select(target)
	return cmds
}

// refreshFilter recomputes the fuzzy matches over the visible rows.
func (m *Model) refreshFilter() {
	m.matches = m.matches[:0]
	query := m.filterInput.Value()
	if !m.filtering || query == "" {
		m.filterPos = 0
		return
	}
	rows := m.nav.VisibleRows()
	for _, match := range fuzzy.FindFrom(query, rowLabels(rows)) {
		m.matches = append(m.matches, match.Index)
	}
	if m.filterPos >= len(m.matches) {
		m.filterPos = 0
	}
}

// rowLabels implements fuzzy.Source over the visible rows.
type rowLabels []tree.Row

func (r rowLabels) String(i int) string { return r[i].Name }
func (r rowLabels) Len() int            { return len(r) }

func (m *Model) clearFilter() {
	m.filtering = false
	m.filterInput.SetValue("")
	m.filterInput.Blur()
	m.matches = nil
	m.filterPos = 0
}

func (m *Model) ensureVisible() {
	contentHeight := m.height - 3
	if m.filtering {
		contentHeight--
	}
	if contentHeight < 1 {
		contentHeight = 1
	}
	cursor := m.nav.SelectedIndex()
	if cursor < 0 {
		m.offset = 0
		return
	}
	if cursor < m.offset {
		m.offset = cursor
	}
	if cursor >= m.offset+contentHeight {
		m.offset = cursor - contentHeight + 1
	}
}

// SetSize sets the sidebar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Focus focuses the sidebar.
func (m *Model) Focus() { m.focused = true }

// Blur unfocuses the sidebar.
func (m *Model) Blur() { m.focused = false }

// Focused returns whether the sidebar is focused.
func (m Model) Focused() bool { return m.focused }

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) { m.loading = loading }

// SetConnection points the sidebar at a new connection and resets the
// tree; results still in flight from the previous connection are dropped
// by generation.
func (m *Model) SetConnection(conn adapter.Connection, gen uint64) {
	m.conn = conn
	m.connGen = gen
	m.nav = tree.NewNavigator(nil)
	m.offset = 0
	m.clearFilter()
}

// Navigator exposes the underlying navigator.
func (m Model) Navigator() *tree.Navigator { return m.nav }

// quoteIdentifier wraps a SQL identifier in double-quotes (ANSI style),
// escaping any embedded double-quotes by doubling them.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// buildSnapshot turns an introspected database list into the names-level
// tree. Tables and views go in lazy so their subtrees load on first
// expansion; databases the snapshot did not introspect load their relation
// lists the same way. With several databases all start closed and only the
// connected one is opened afterwards. Engines without a schema level report
// one unnamed schema; its relations attach straight to the database node.
func buildSnapshot(databases []schema.Database) *tree.Tree {
	t := tree.New()
	multi := len(databases) > 1
	for _, db := range databases {
		if len(db.Schemas) == 0 {
			t.AddLazy(tree.InvalidID, tree.KindDatabase, db.Name, "")
			continue
		}
		dbID := t.Add(tree.InvalidID, tree.KindDatabase, db.Name, "")
		if multi {
			t.MarkCollapsed(dbID)
		}
		for _, s := range db.Schemas {
			parent := dbID
			if s.Name != "" {
				parent = t.Add(dbID, tree.KindSchema, s.Name, "")
				if s.Name != "public" && s.Name != "main" {
					t.MarkCollapsed(parent)
				}
			}
			for _, tbl := range s.Tables {
				t.AddLazy(parent, tree.KindTable, tbl.Name, "")
			}
			for _, v := range s.Views {
				t.AddLazy(parent, tree.KindView, v.Name, "")
			}
		}
	}
	return t
}
