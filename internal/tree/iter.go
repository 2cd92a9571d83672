package tree

// CollapseSet tracks which nodes are collapsed, keyed by stable id. A node
// absent from the set is expanded; keying by id rather than storing a
// boolean on each node keeps "is visible" a pure lookup and lets the
// iterator skip whole collapsed subtrees without touching them.
type CollapseSet map[NodeID]struct{}

// Has reports whether id is collapsed.
func (s CollapseSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Add marks id collapsed.
func (s CollapseSet) Add(id NodeID) { s[id] = struct{}{} }

// Remove marks id expanded.
func (s CollapseSet) Remove(id NodeID) { delete(s, id) }

// Iter walks the visible nodes of a tree in depth-first pre-order. A
// collapsed node is emitted itself but its subtree is never entered, so a
// full walk costs O(visible nodes) regardless of how much of the tree is
// hidden. The iterator is lazy and restartable: it does not mutate the
// tree or the collapse set, and a fresh Iter over the same inputs yields
// the identical sequence.
type Iter struct {
	tree      *Tree
	collapsed CollapseSet
	stack     []NodeID
	index     int
}

// NewIter returns an iterator over the visible nodes of t under the given
// collapse set. An empty tree yields an empty sequence.
func NewIter(t *Tree, collapsed CollapseSet) *Iter {
	it := &Iter{tree: t, collapsed: collapsed}
	// Roots are pushed in reverse so they pop in display order.
	for i := len(t.roots) - 1; i >= 0; i-- {
		it.stack = append(it.stack, t.roots[i])
	}
	return it
}

// Next returns the next visible node along with its flattened index and
// depth. ok is false once the sequence is exhausted.
func (it *Iter) Next() (id NodeID, index, depth int, ok bool) {
	if len(it.stack) == 0 {
		return InvalidID, 0, 0, false
	}
	id = it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]

	n := it.tree.Node(id)
	index = it.index
	it.index++

	if !it.collapsed.Has(id) {
		for i := len(n.Children) - 1; i >= 0; i-- {
			it.stack = append(it.stack, n.Children[i])
		}
	}
	return id, index, n.Depth, true
}
