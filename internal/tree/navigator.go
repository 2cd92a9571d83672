package tree

// Row is one line of the flattened visible sequence as consumed by the
// display layer. Rows are snapshots: they must not be retained across
// navigator operations, since Rebuild may replace the tree at any time.
type Row struct {
	ID        NodeID
	Depth     int
	Kind      Kind
	Name      string
	Detail    string
	Leaf      bool
	Collapsed bool
	Loading   bool
	Failed    bool
	Selected  bool
}

// LoadRequest asks the external schema loader for the children of one
// node. Token identifies the request: a completion carrying a token that
// no longer matches the node's pending slot is stale and is discarded
// without touching the tree. Path is snapshotted at request time so the
// loader never needs to read the tree while the request is in flight.
type LoadRequest struct {
	Node  NodeID
	Token uint64
	Path  Path
}

// Navigator owns a schema tree, its collapse set, and the current
// selection. All operations are synchronous and run on the UI event loop.
// Lazy child loading is split in two so the loop never blocks: Expand
// returns a LoadRequest for the caller to run elsewhere, and the result
// comes back through ApplyChildren or FailLoad. While a load is
// outstanding the node renders as loading and every other operation stays
// available; a second Expand on the same node coalesces into the in-flight
// request.
type Navigator struct {
	tree      *Tree
	collapsed CollapseSet
	selected  NodeID
	selIndex  int // cached flattened index of selected; -1 when stale

	pending map[NodeID]uint64
	loadSeq uint64
}

// NewNavigator returns a navigator over t. A nil tree starts empty; every
// operation on an empty navigator is a no-op. Selection starts on the
// first visible node.
func NewNavigator(t *Tree) *Navigator {
	n := &Navigator{
		tree:      New(),
		collapsed: CollapseSet{},
		selected:  InvalidID,
		selIndex:  -1,
		pending:   map[NodeID]uint64{},
	}
	if t != nil {
		n.adopt(t)
	}
	return n
}

// adopt installs t, seeding the collapse set from the tree's recorded
// initially-collapsed ids and selecting the first root.
func (n *Navigator) adopt(t *Tree) {
	n.tree = t
	n.collapsed = CollapseSet{}
	for _, id := range t.InitialCollapsed() {
		n.collapsed.Add(id)
	}
	n.pending = map[NodeID]uint64{}
	n.selected = InvalidID
	n.selIndex = -1
	if roots := t.Roots(); len(roots) > 0 {
		n.selected = roots[0]
	}
}

// Tree returns the current tree for read-only node lookups.
func (n *Navigator) Tree() *Tree { return n.tree }

// Empty reports whether the navigator has no nodes.
func (n *Navigator) Empty() bool { return n.tree.Empty() }

// Selected returns the selected node id, or InvalidID when the tree is
// empty.
func (n *Navigator) Selected() NodeID { return n.selected }

// SelectedNode returns the selected node, or nil when the tree is empty.
func (n *Navigator) SelectedNode() *Node { return n.tree.Node(n.selected) }

// Collapsed reports whether id is currently collapsed.
func (n *Navigator) Collapsed(id NodeID) bool { return n.collapsed.Has(id) }

// Loading reports whether a child load is in flight for id.
func (n *Navigator) Loading(id NodeID) bool {
	_, ok := n.pending[id]
	return ok
}

// Visible returns a fresh iterator over the visible sequence.
func (n *Navigator) Visible() *Iter { return NewIter(n.tree, n.collapsed) }

// VisibleRows materializes the visible sequence for rendering.
func (n *Navigator) VisibleRows() []Row {
	var rows []Row
	it := n.Visible()
	for {
		id, _, depth, ok := it.Next()
		if !ok {
			return rows
		}
		node := n.tree.Node(id)
		rows = append(rows, Row{
			ID:        id,
			Depth:     depth,
			Kind:      node.Kind,
			Name:      node.Name,
			Detail:    node.Detail,
			Leaf:      node.leaf,
			Collapsed: n.collapsed.Has(id) || node.state != StateLoaded,
			Loading:   node.state == StateLoading,
			Failed:    node.state == StateFailed,
			Selected:  id == n.selected,
		})
	}
}

// SelectedIndex returns the selected node's flattened index, recomputing
// it if a structural change invalidated the cache. Returns -1 on an empty
// tree.
func (n *Navigator) SelectedIndex() int {
	if n.selected == InvalidID {
		return -1
	}
	if n.selIndex >= 0 {
		return n.selIndex
	}
	it := n.Visible()
	for {
		id, idx, _, ok := it.Next()
		if !ok {
			return -1
		}
		if id == n.selected {
			n.selIndex = idx
			return idx
		}
	}
}

// invalidate drops the cached flattened index after any visibility change.
func (n *Navigator) invalidate() { n.selIndex = -1 }

// ---------------------------------------------------------------------------
// Selection movement
// ---------------------------------------------------------------------------

// SelectNext moves selection one step down the visible sequence. On the
// last visible node it is a no-op; there is no wraparound.
func (n *Navigator) SelectNext() {
	if n.Empty() {
		return
	}
	it := n.Visible()
	for {
		id, idx, _, ok := it.Next()
		if !ok {
			return
		}
		if id != n.selected {
			continue
		}
		if next, nextIdx, _, ok := it.Next(); ok {
			n.selected = next
			n.selIndex = nextIdx
		} else {
			n.selIndex = idx
		}
		return
	}
}

// SelectPrev moves selection one step up the visible sequence. On the
// first visible node it is a no-op.
func (n *Navigator) SelectPrev() {
	if n.Empty() {
		return
	}
	prev := InvalidID
	prevIdx := -1
	it := n.Visible()
	for {
		id, idx, _, ok := it.Next()
		if !ok {
			return
		}
		if id == n.selected {
			if prev != InvalidID {
				n.selected = prev
				n.selIndex = prevIdx
			} else {
				n.selIndex = idx
			}
			return
		}
		prev, prevIdx = id, idx
	}
}

// SelectFirst jumps to the first visible node.
func (n *Navigator) SelectFirst() {
	if id, idx, _, ok := n.Visible().Next(); ok {
		n.selected = id
		n.selIndex = idx
	}
}

// SelectLast jumps to the last visible node.
func (n *Navigator) SelectLast() {
	it := n.Visible()
	for {
		id, idx, _, ok := it.Next()
		if !ok {
			return
		}
		n.selected = id
		n.selIndex = idx
	}
}

// Select moves selection to a specific node if it exists and is visible.
// It reports whether the selection changed.
func (n *Navigator) Select(id NodeID) bool {
	if !n.tree.Valid(id) || !n.visible(id) {
		return false
	}
	n.selected = id
	n.selIndex = -1
	return true
}

// visible reports whether no ancestor of id is collapsed. The node's own
// collapse state does not affect its visibility, only its children's.
func (n *Navigator) visible(id NodeID) bool {
	node := n.tree.Node(id)
	if node == nil {
		return false
	}
	for cur := node.Parent; cur != InvalidID; cur = n.tree.Node(cur).Parent {
		if n.collapsed.Has(cur) {
			return false
		}
	}
	return true
}

// repairSelection moves selection to its nearest visible ancestor if a
// structural change hid or removed it. Selection is never left dangling
// and never cleared while the tree is non-empty.
func (n *Navigator) repairSelection() {
	if n.Empty() {
		n.selected = InvalidID
		n.selIndex = -1
		return
	}
	if n.tree.Valid(n.selected) && n.visible(n.selected) {
		return
	}
	for cur := n.selected; n.tree.Valid(cur); cur = n.tree.Node(cur).Parent {
		if n.visible(cur) {
			n.selected = cur
			n.selIndex = -1
			return
		}
	}
	n.selected = n.tree.Roots()[0]
	n.selIndex = -1
}

// ---------------------------------------------------------------------------
// Expand / collapse / toggle
// ---------------------------------------------------------------------------

// Expand reveals a node's children. Leaf nodes ignore the call. For a node
// whose children are already loaded this only removes it from the collapse
// set; for an unloaded or previously failed node it marks the node loading
// and returns a LoadRequest the caller must run, with ok true. While a
// request is in flight further Expand calls coalesce into it.
func (n *Navigator) Expand(id NodeID) (req LoadRequest, ok bool) {
	node := n.tree.Node(id)
	if node == nil || node.leaf {
		return LoadRequest{}, false
	}
	switch node.state {
	case StateLoaded:
		n.collapsed.Remove(id)
		n.invalidate()
		return LoadRequest{}, false
	case StateLoading:
		return LoadRequest{}, false
	default: // StateNotLoaded, StateFailed
		node.state = StateLoading
		node.loadErr = nil
		n.loadSeq++
		n.pending[id] = n.loadSeq
		return LoadRequest{Node: id, Token: n.loadSeq, Path: n.tree.Path(id)}, true
	}
}

// ExpandSelected expands the selected node.
func (n *Navigator) ExpandSelected() (LoadRequest, bool) {
	if n.selected == InvalidID {
		return LoadRequest{}, false
	}
	return n.Expand(n.selected)
}

// Collapse hides a node's children. Leaf and already-collapsed nodes
// ignore the call. If the selection was inside the now-hidden subtree it
// moves up to the collapsed node itself, never to a sibling. Collapsing a
// node whose load is still in flight abandons the request; the eventual
// result is discarded on arrival.
func (n *Navigator) Collapse(id NodeID) {
	node := n.tree.Node(id)
	if node == nil || node.leaf {
		return
	}
	if node.state == StateLoading {
		delete(n.pending, id)
		node.state = StateNotLoaded
	}
	if n.collapsed.Has(id) {
		return
	}
	n.collapsed.Add(id)
	if n.selected != id && n.tree.InSubtree(n.selected, id) {
		n.selected = id
	}
	n.invalidate()
}

// CollapseSelected collapses the selected node.
func (n *Navigator) CollapseSelected() {
	if n.selected != InvalidID {
		n.Collapse(n.selected)
	}
}

// Toggle expands a collapsed (or unloaded) node and collapses an expanded
// one. Leaf nodes ignore the call.
func (n *Navigator) Toggle(id NodeID) (LoadRequest, bool) {
	node := n.tree.Node(id)
	if node == nil || node.leaf {
		return LoadRequest{}, false
	}
	if n.collapsed.Has(id) {
		return n.Expand(id)
	}
	n.Collapse(id)
	return LoadRequest{}, false
}

// ToggleSelected toggles the selected node.
func (n *Navigator) ToggleSelected() (LoadRequest, bool) {
	if n.selected == InvalidID {
		return LoadRequest{}, false
	}
	return n.Toggle(n.selected)
}

// ---------------------------------------------------------------------------
// Lazy-load completion
// ---------------------------------------------------------------------------

// ApplyChildren completes a load request by attaching the returned
// children and revealing them. It reports whether the result was applied.
// A stale token (the node was collapsed again, re-requested, or the tree
// was rebuilt while the load ran) is discarded without any mutation.
func (n *Navigator) ApplyChildren(id NodeID, token uint64, children []ChildSpec) bool {
	if n.pending[id] != token || token == 0 {
		return false
	}
	delete(n.pending, id)
	node := n.tree.Node(id)
	if node == nil {
		return false
	}
	node.state = StateLoaded
	node.loadErr = nil
	for _, cid := range n.tree.buildSpecs(id, children) {
		n.collapsed.Add(cid)
	}
	n.collapsed.Remove(id)
	n.invalidate()
	return true
}

// FailLoad completes a load request that errored. The node stays
// collapsed, keeps the error for display, and a later Expand retries.
// Stale tokens are discarded the same way as in ApplyChildren.
func (n *Navigator) FailLoad(id NodeID, token uint64, err error) bool {
	if n.pending[id] != token || token == 0 {
		return false
	}
	delete(n.pending, id)
	node := n.tree.Node(id)
	if node == nil {
		return false
	}
	node.state = StateFailed
	node.loadErr = err
	n.invalidate()
	return true
}

// ---------------------------------------------------------------------------
// Rebuild
// ---------------------------------------------------------------------------

// Rebuild replaces the tree wholesale, remapping collapse state and
// selection onto the new tree by kind+name path. Both sides of the old
// expansion state carry over: collapsed nodes stay collapsed, and nodes
// the user had open are reopened even when the new tree marks them
// collapsed by default. Collapse entries whose
// paths no longer resolve are dropped. Selection resolves to the same
// path, falling back to the longest surviving ancestor prefix and finally
// to the first root. Outstanding load requests are abandoned; their
// results will be discarded on arrival.
func (n *Navigator) Rebuild(t *Tree) {
	if t == nil {
		t = New()
	}
	var selPath Path
	if n.tree.Valid(n.selected) {
		selPath = n.tree.Path(n.selected)
	}
	var collapsedPaths []Path
	for id := range n.collapsed {
		if p := n.tree.Path(id); p != nil {
			collapsedPaths = append(collapsedPaths, p)
		}
	}
	var expandedPaths []Path
	for i := 0; i < n.tree.Len(); i++ {
		id := NodeID(i)
		node := n.tree.Node(id)
		if node.leaf || node.state != StateLoaded || n.collapsed.Has(id) {
			continue
		}
		if p := n.tree.Path(id); p != nil {
			expandedPaths = append(expandedPaths, p)
		}
	}

	n.adopt(t)

	for _, p := range collapsedPaths {
		if id, ok := t.Resolve(p); ok {
			n.collapsed.Add(id)
		}
	}
	// Nodes the user had open override the new tree's initial-collapse
	// defaults, as long as their counterparts already carry children.
	for _, p := range expandedPaths {
		if id, ok := t.Resolve(p); ok && t.Node(id).state == StateLoaded {
			n.collapsed.Remove(id)
		}
	}
	for len(selPath) > 0 {
		if id, ok := t.Resolve(selPath); ok {
			n.selected = id
			break
		}
		selPath = selPath[:len(selPath)-1]
	}
	n.repairSelection()
}
