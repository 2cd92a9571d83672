package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all application keybindings. The vim fields are zero
// values in standard mode, which the help widget treats as disabled.
type KeyMap struct {
	// Navigation
	FocusNext    key.Binding
	FocusPrev    key.Binding
	FocusSidebar key.Binding
	FocusEditor  key.Binding
	FocusResults key.Binding

	// Tabs
	NewTab   key.Binding
	CloseTab key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding

	// Editor
	ExecuteQuery key.Binding
	CancelQuery  key.Binding
	Complete     key.Binding

	// Sidebar and results
	Copy       key.Binding
	FilterTree key.Binding
	PageUp     key.Binding
	PageDown   key.Binding

	// App
	Quit          key.Binding
	Help          key.Binding
	ToggleKeyMode key.Binding
	ToggleSidebar key.Binding
	RefreshSchema key.Binding
	OpenConnMgr   key.Binding
	History       key.Binding
	Export        key.Binding

	// Pane resizing
	ResizeLeft  key.Binding
	ResizeRight key.Binding
	ResizeUp    key.Binding
	ResizeDown  key.Binding

	// Vim-style navigation
	VimUp     key.Binding
	VimDown   key.Binding
	VimLeft   key.Binding
	VimRight  key.Binding
	VimTop    key.Binding
	VimBottom key.Binding
}

// bind builds a binding whose help label is its first key.
func bind(desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], desc))
}

// bindAs is bind with an explicit help label, for bindings whose
// primary key spelling differs from what the help view should show.
func bindAs(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// StandardKeyMap returns keybindings for standard mode.
func StandardKeyMap() KeyMap {
	return KeyMap{
		FocusNext:    bind("next pane", "tab"),
		FocusPrev:    bind("prev pane", "shift+tab"),
		FocusSidebar: bind("sidebar", "alt+1"),
		FocusEditor:  bind("editor", "alt+2"),
		FocusResults: bind("results", "alt+3"),

		NewTab:   bind("new tab", "ctrl+t"),
		CloseTab: bind("close tab", "ctrl+w"),
		NextTab:  bind("next tab", "ctrl+]"),
		PrevTab:  bind("prev tab", "ctrl+["),

		ExecuteQuery: bindAs("f5", "run query", "ctrl+enter", "f5", "ctrl+g"),
		CancelQuery:  bind("cancel query", "ctrl+c"),
		Complete:     bindAs("ctrl+space", "autocomplete", "ctrl+@", "ctrl+ "),

		Copy:       bind("copy selection", "y"),
		FilterTree: bind("filter schema", "/"),
		PageUp:     bind("page up", "pgup"),
		PageDown:   bindAs("pgdn", "page down", "pgdown"),

		Quit:          bind("quit", "ctrl+q"),
		Help:          bind("help", "f1", "?"),
		ToggleKeyMode: bind("vim/standard", "f2"),
		ToggleSidebar: bind("toggle sidebar", "ctrl+b"),
		RefreshSchema: bind("refresh schema", "ctrl+r"),
		OpenConnMgr:   bind("connections", "ctrl+o"),
		History:       bind("history", "ctrl+h"),
		Export:        bind("export results", "ctrl+e"),

		ResizeLeft:  bindAs("ctrl+←", "shrink left", "ctrl+left"),
		ResizeRight: bindAs("ctrl+→", "grow right", "ctrl+right"),
		ResizeUp:    bindAs("ctrl+↑", "shrink up", "ctrl+up"),
		ResizeDown:  bindAs("ctrl+↓", "grow down", "ctrl+down"),
	}
}

// VimKeyMap returns keybindings for vim mode. It extends the standard
// map with the vim-style navigation keys the sidebar accepts.
func VimKeyMap() KeyMap {
	km := StandardKeyMap()
	km.VimUp = bind("up", "k")
	km.VimDown = bind("down", "j")
	km.VimLeft = bind("collapse", "h")
	km.VimRight = bind("expand", "l")
	km.VimTop = bind("top", "g")
	km.VimBottom = bind("bottom", "G")
	return km
}

// ShortHelp returns the bindings shown in the status bar when idle.
// Disabled bindings are skipped, so the vim entries only appear in
// vim mode.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.ExecuteQuery, k.FocusNext, k.OpenConnMgr, k.VimUp, k.VimDown, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ExecuteQuery, k.CancelQuery, k.Complete, k.Export},
		{k.FocusNext, k.FocusPrev, k.FocusSidebar, k.FocusEditor, k.FocusResults},
		{k.NewTab, k.CloseTab, k.NextTab, k.PrevTab},
		{k.Copy, k.FilterTree, k.PageUp, k.PageDown},
		{k.ToggleKeyMode, k.ToggleSidebar, k.RefreshSchema, k.OpenConnMgr, k.History},
		{k.ResizeLeft, k.ResizeRight, k.ResizeUp, k.ResizeDown},
		{k.VimUp, k.VimDown, k.VimLeft, k.VimRight, k.VimTop, k.VimBottom},
		{k.Quit, k.Help},
	}
}
