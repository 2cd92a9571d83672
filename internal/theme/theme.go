// Package theme holds the lipgloss styles for every UI element. All
// components read styles through the Current pointer so the whole
// look-and-feel can swap at runtime.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds lipgloss.Style values for every UI element.
type Theme struct {
	Name string

	// App-level
	AppBackground lipgloss.Style

	// Sidebar / Schema browser
	SidebarBorder     lipgloss.Style
	SidebarTitle      lipgloss.Style
	SidebarDatabase   lipgloss.Style
	SidebarSchema     lipgloss.Style
	SidebarTable      lipgloss.Style
	SidebarView       lipgloss.Style
	SidebarColumn     lipgloss.Style
	SidebarColumnType lipgloss.Style
	SidebarSelected   lipgloss.Style

	// Editor
	EditorBorder     lipgloss.Style
	EditorLineNumber lipgloss.Style
	EditorCursor     lipgloss.Style

	// SQL Syntax highlighting
	SQLKeyword    lipgloss.Style
	SQLString     lipgloss.Style
	SQLNumber     lipgloss.Style
	SQLComment    lipgloss.Style
	SQLOperator   lipgloss.Style
	SQLFunction   lipgloss.Style
	SQLType       lipgloss.Style
	SQLIdentifier lipgloss.Style

	// Results table
	ResultsBorder      lipgloss.Style
	ResultsHeader      lipgloss.Style
	ResultsCell        lipgloss.Style
	ResultsCellAlt     lipgloss.Style
	ResultsSelectedRow lipgloss.Style
	ResultsNull        lipgloss.Style

	// Tab bar
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	TabBar      lipgloss.Style

	// Status bar
	StatusBar        lipgloss.Style
	StatusBarKey     lipgloss.Style
	StatusBarValue   lipgloss.Style
	StatusBarError   lipgloss.Style
	StatusBarSuccess lipgloss.Style

	// Autocomplete
	AutocompleteItem     lipgloss.Style
	AutocompleteSelected lipgloss.Style
	AutocompleteBorder   lipgloss.Style

	// Dialog/Modal
	DialogBorder       lipgloss.Style
	DialogTitle        lipgloss.Style
	DialogButton       lipgloss.Style
	DialogButtonActive lipgloss.Style

	// General
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style
	ErrorText       lipgloss.Style
	SuccessText     lipgloss.Style
	WarningText     lipgloss.Style
	MutedText       lipgloss.Style
}

// palette is the color set a theme is built from. Most styles derive
// from a handful of roles; the rest get dedicated slots where themes
// genuinely diverge.
type palette struct {
	bg     lipgloss.Color // main background
	bgAlt  lipgloss.Color // alternating rows, header strips
	border lipgloss.Color // unfocused borders, dialog buttons
	accent lipgloss.Color // focused borders, titles
	text   lipgloss.Color
	muted  lipgloss.Color
	gutter lipgloss.Color // editor line numbers
	cursor lipgloss.Color

	selFg lipgloss.Color // selected rows, status text on colored strips
	selBg lipgloss.Color

	primaryFg lipgloss.Color // active buttons, status bar key segment
	primaryBg lipgloss.Color

	err  lipgloss.Color
	ok   lipgloss.Color
	warn lipgloss.Color

	// Sidebar object kinds
	dbName     lipgloss.Color
	schemaName lipgloss.Color
	tableName  lipgloss.Color
	viewName   lipgloss.Color

	headerFg      lipgloss.Color // results header text
	tabFg         lipgloss.Color // active tab text
	tabInactiveBg lipgloss.Color
	tabBarBg      lipgloss.Color
	statusBg      lipgloss.Color // status bar base strip
	statusValBg   lipgloss.Color // status bar value segment

	// Syntax colors
	sqlKeyword  lipgloss.Color
	sqlString   lipgloss.Color
	sqlNumber   lipgloss.Color
	sqlComment  lipgloss.Color
	sqlOperator lipgloss.Color
	sqlFunction lipgloss.Color
	sqlType     lipgloss.Color
	sqlIdent    lipgloss.Color
}

// build derives the full style set from a palette.
func build(name string, p palette) *Theme {
	border := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c)
	}
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Theme{
		Name: name,

		AppBackground: lipgloss.NewStyle().Background(p.bg),

		SidebarBorder:     border(p.border),
		SidebarTitle:      fg(p.accent).Bold(true).PaddingLeft(1),
		SidebarDatabase:   fg(p.dbName).Bold(true),
		SidebarSchema:     fg(p.schemaName),
		SidebarTable:      fg(p.tableName),
		SidebarView:       fg(p.viewName),
		SidebarColumn:     fg(p.text),
		SidebarColumnType: fg(p.muted).Italic(true),
		SidebarSelected:   fg(p.selFg).Background(p.selBg).Bold(true),

		EditorBorder:     border(p.border),
		EditorLineNumber: fg(p.gutter),
		EditorCursor:     lipgloss.NewStyle().Background(p.cursor),

		SQLKeyword:    fg(p.sqlKeyword).Bold(true),
		SQLString:     fg(p.sqlString),
		SQLNumber:     fg(p.sqlNumber),
		SQLComment:    fg(p.sqlComment).Italic(true),
		SQLOperator:   fg(p.sqlOperator),
		SQLFunction:   fg(p.sqlFunction),
		SQLType:       fg(p.sqlType),
		SQLIdentifier: fg(p.sqlIdent),

		ResultsBorder:      border(p.border),
		ResultsHeader:      fg(p.headerFg).Background(p.bgAlt).Bold(true),
		ResultsCell:        fg(p.text),
		ResultsCellAlt:     fg(p.text).Background(p.bgAlt),
		ResultsSelectedRow: fg(p.selFg).Background(p.selBg),
		ResultsNull:        fg(p.muted).Italic(true),

		TabActive: fg(p.tabFg).
			Background(p.bg).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(false).
			BorderForeground(p.accent).
			PaddingLeft(1).
			PaddingRight(1),
		TabInactive: fg(p.muted).
			Background(p.tabInactiveBg).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.border).
			PaddingLeft(1).
			PaddingRight(1),
		TabBar: lipgloss.NewStyle().Background(p.tabBarBg),

		StatusBar: fg(p.selFg).Background(p.statusBg),
		StatusBarKey: fg(p.primaryFg).
			Background(p.primaryBg).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1),
		StatusBarValue: fg(p.text).
			Background(p.statusValBg).
			PaddingLeft(1).
			PaddingRight(1),
		StatusBarError:   fg(p.selFg).Background(p.err).Bold(true),
		StatusBarSuccess: fg(p.primaryFg).Background(p.ok).Bold(true),

		AutocompleteItem: fg(p.text).
			Background(p.bgAlt).
			PaddingLeft(1).
			PaddingRight(1),
		AutocompleteSelected: fg(p.selFg).
			Background(p.selBg).
			PaddingLeft(1).
			PaddingRight(1),
		AutocompleteBorder: border(p.accent),

		DialogBorder: border(p.accent).Padding(1, 2),
		DialogTitle:  fg(p.accent).Bold(true),
		DialogButton: fg(p.text).
			Background(p.border).
			PaddingLeft(2).
			PaddingRight(2),
		DialogButtonActive: fg(p.primaryFg).
			Background(p.primaryBg).
			Bold(true).
			PaddingLeft(2).
			PaddingRight(2),

		FocusedBorder:   border(p.accent),
		UnfocusedBorder: border(p.border),
		ErrorText:       fg(p.err).Bold(true),
		SuccessText:     fg(p.ok),
		WarningText:     fg(p.warn),
		MutedText:       fg(p.muted),
	}
}

// newDefaultTheme is the default dark theme on the Nord palette.
func newDefaultTheme() *Theme {
	return build("default", palette{
		bg:     "#2E3440",
		bgAlt:  "#3B4252",
		border: "#4C566A",
		accent: "#88C0D0",
		text:   "#D8DEE9",
		muted:  "#7B88A1",
		gutter: "#616E88",
		cursor: "#D8DEE9",

		selFg:     "#ECEFF4",
		selBg:     "#5E81AC",
		primaryFg: "#ECEFF4",
		primaryBg: "#5E81AC",

		err:  "#BF616A",
		ok:   "#A3BE8C",
		warn: "#EBCB8B",

		dbName:     "#EBCB8B",
		schemaName: "#81A1C1",
		tableName:  "#8FBCBB",
		viewName:   "#B48EAD",

		headerFg:      "#88C0D0",
		tabFg:         "#ECEFF4",
		tabInactiveBg: "#434C5E",
		tabBarBg:      "#3B4252",
		statusBg:      "#5E81AC",
		statusValBg:   "#2E3440",

		sqlKeyword:  "#88C0D0",
		sqlString:   "#D08770",
		sqlNumber:   "#A3BE8C",
		sqlComment:  "#616E88",
		sqlOperator: "#D8DEE9",
		sqlFunction: "#EBCB8B",
		sqlType:     "#8FBCBB",
		sqlIdent:    "#81A1C1",
	})
}

// newLightTheme is a GitHub-flavored theme for light terminals.
func newLightTheme() *Theme {
	return build("light", palette{
		bg:     "#FFFFFF",
		bgAlt:  "#F6F8FA",
		border: "#D0D7DE",
		accent: "#0550AE",
		text:   "#1F2328",
		muted:  "#8C959F",
		gutter: "#6E7781",
		cursor: "#24292F",

		selFg:     "#FFFFFF",
		selBg:     "#0969DA",
		primaryFg: "#FFFFFF",
		primaryBg: "#0969DA",

		err:  "#CF222E",
		ok:   "#1A7F37",
		warn: "#9A6700",

		dbName:     "#8250DF",
		schemaName: "#24292F",
		tableName:  "#953800",
		viewName:   "#8250DF",

		headerFg:      "#0550AE",
		tabFg:         "#1F2328",
		tabInactiveBg: "#EAEEF2",
		tabBarBg:      "#F6F8FA",
		statusBg:      "#0969DA",
		statusValBg:   "#F6F8FA",

		sqlKeyword:  "#CF222E",
		sqlString:   "#0A3069",
		sqlNumber:   "#0550AE",
		sqlComment:  "#6E7781",
		sqlOperator: "#1F2328",
		sqlFunction: "#8250DF",
		sqlType:     "#953800",
		sqlIdent:    "#24292F",
	})
}

// newMonokaiTheme is a Monokai-inspired dark theme.
func newMonokaiTheme() *Theme {
	t := build("monokai", palette{
		bg:     "#272822",
		bgAlt:  "#3E3D32",
		border: "#49483E",
		accent: "#F92672",
		text:   "#F8F8F2",
		muted:  "#75715E",
		gutter: "#90908A",
		cursor: "#F8F8F0",

		selFg: "#F8F8F2",
		selBg: "#49483E",
		// Monokai inverts its highlighted buttons: dark text on green.
		primaryFg: "#272822",
		primaryBg: "#A6E22E",

		err:  "#F92672",
		ok:   "#A6E22E",
		warn: "#E6DB74",

		dbName:     "#E6DB74",
		schemaName: "#66D9EF",
		tableName:  "#A6E22E",
		viewName:   "#AE81FF",

		headerFg:      "#A6E22E",
		tabFg:         "#F8F8F2",
		tabInactiveBg: "#3E3D32",
		tabBarBg:      "#1E1F1C",
		statusBg:      "#75715E",
		statusValBg:   "#3E3D32",

		sqlKeyword:  "#F92672",
		sqlString:   "#E6DB74",
		sqlNumber:   "#AE81FF",
		sqlComment:  "#75715E",
		sqlOperator: "#F92672",
		sqlFunction: "#A6E22E",
		sqlType:     "#66D9EF",
		sqlIdent:    "#F8F8F2",
	})
	t.SQLType = t.SQLType.Italic(true)
	return t
}

// Themes maps theme names to their definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"monokai": newMonokaiTheme(),
}

// Current is the active theme.
var Current = Themes["default"]

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the named theme, falling back to the default when the
// name is unknown.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}
