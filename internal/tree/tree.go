// Package tree implements the schema tree behind the sidebar: an arena of
// nodes with stable integer ids, a lazy flattening iterator that honors
// collapse state, and a navigator that owns selection and expand/collapse
// semantics. The package is engine-agnostic; children of lazily-loaded
// nodes arrive as ChildSpec lists from an external schema loader.
package tree

// NodeID is a stable handle for one node in a Tree. Ids index into the
// tree's arena and remain valid for the tree's lifetime; unlike flattened
// display indices, they never shift with collapse state. Ids are not
// preserved across Rebuild; paths are what survives it.
type NodeID int

// InvalidID marks "no node" (empty selection, root's parent).
const InvalidID NodeID = -1

// Kind identifies the schema element a node represents.
type Kind int

const (
	KindDatabase Kind = iota
	KindSchema
	KindTable
	KindView
	KindColumn
	KindConstraintGroup
	KindConstraint
	KindForeignKeyGroup
	KindForeignKey
	KindIndexGroup
	KindIndex
)

// Leaf reports whether nodes of this kind never have children.
func (k Kind) Leaf() bool {
	switch k {
	case KindColumn, KindConstraint, KindForeignKey, KindIndex:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindSchema:
		return "schema"
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindColumn:
		return "column"
	case KindConstraintGroup:
		return "constraints"
	case KindConstraint:
		return "constraint"
	case KindForeignKeyGroup:
		return "foreign keys"
	case KindForeignKey:
		return "foreign key"
	case KindIndexGroup:
		return "indexes"
	case KindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// LoadState tracks lazy child population for a node.
type LoadState int

const (
	// StateLoaded means children are known (possibly empty).
	StateLoaded LoadState = iota
	// StateNotLoaded means children are unknown until the node is expanded.
	StateNotLoaded
	// StateLoading means a child-listing request is in flight.
	StateLoading
	// StateFailed means the last child-listing request failed; expanding
	// again retries it.
	StateFailed
)

// Node is one schema-tree element. Nodes are immutable after construction
// except for lazy child population, which only the Navigator performs.
type Node struct {
	ID     NodeID
	Parent NodeID // InvalidID for roots
	Kind   Kind
	Name   string
	Detail string // secondary text, e.g. a column's type and flags
	Depth  int    // root = 0
	// Children in display order. Sibling order is fixed when the tree is
	// built (the loader's queries sort tables alphabetically and keep
	// columns in declaration order) and never changes afterwards.
	Children []NodeID

	leaf    bool // cached from Kind
	state   LoadState
	loadErr error
}

// Leaf reports whether the node can never have children.
func (n *Node) Leaf() bool { return n.leaf }

// State returns the node's lazy-load state.
func (n *Node) State() LoadState { return n.state }

// LoadErr returns the error from the last failed child load, if any.
func (n *Node) LoadErr() error { return n.loadErr }

// Step is one level of a node's path: its kind plus its name.
type Step struct {
	Kind Kind
	Name string
}

// Path is the kind+name chain from a root down to a node. Paths identify
// nodes across Rebuild, unlike node ids.
type Path []Step

// Tree is an arena of schema nodes. It is built once from a schema
// snapshot and replaced wholesale on refresh; the Navigator remaps
// collapse state and selection across the swap by path.
type Tree struct {
	nodes []Node
	roots []NodeID

	// Ids that should start collapsed when a Navigator adopts this tree:
	// every lazily-constructed node plus nodes explicitly marked via
	// MarkCollapsed (property groups).
	initialCollapsed []NodeID
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool { return len(t.nodes) == 0 }

// Len returns the total number of nodes, visible or not.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the depth-0 nodes in display order.
func (t *Tree) Roots() []NodeID { return t.roots }

// Valid reports whether id refers to a node in this tree.
func (t *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Node returns the node for id, or nil if id is not in this tree.
func (t *Tree) Node(id NodeID) *Node {
	if !t.Valid(id) {
		return nil
	}
	return &t.nodes[id]
}

// Add appends a node with known (initially empty) children. Pass
// InvalidID as parent to create a root. Returns the new node's id.
func (t *Tree) Add(parent NodeID, kind Kind, name, detail string) NodeID {
	return t.add(parent, kind, name, detail, StateLoaded)
}

// AddLazy appends a node whose children are unknown until it is first
// expanded. Lazy nodes start collapsed. Leaf kinds are added as regular
// loaded nodes since they can never have children.
func (t *Tree) AddLazy(parent NodeID, kind Kind, name, detail string) NodeID {
	if kind.Leaf() {
		return t.add(parent, kind, name, detail, StateLoaded)
	}
	id := t.add(parent, kind, name, detail, StateNotLoaded)
	t.initialCollapsed = append(t.initialCollapsed, id)
	return id
}

// MarkCollapsed records that a node with known children should still start
// collapsed when a Navigator adopts the tree.
func (t *Tree) MarkCollapsed(id NodeID) {
	if t.Valid(id) {
		t.initialCollapsed = append(t.initialCollapsed, id)
	}
}

// InitialCollapsed returns the ids recorded by AddLazy and MarkCollapsed.
func (t *Tree) InitialCollapsed() []NodeID { return t.initialCollapsed }

func (t *Tree) add(parent NodeID, kind Kind, name, detail string, state LoadState) NodeID {
	id := NodeID(len(t.nodes))
	depth := 0
	if t.Valid(parent) {
		depth = t.nodes[parent].Depth + 1
	} else {
		parent = InvalidID
	}
	t.nodes = append(t.nodes, Node{
		ID:     id,
		Parent: parent,
		Kind:   kind,
		Name:   name,
		Detail: detail,
		Depth:  depth,
		leaf:   kind.Leaf(),
		state:  state,
	})
	if parent == InvalidID {
		t.roots = append(t.roots, id)
	} else {
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	}
	return id
}

// Path returns the kind+name chain from the root down to id, or nil if id
// is not in this tree.
func (t *Tree) Path(id NodeID) Path {
	if !t.Valid(id) {
		return nil
	}
	var steps Path
	for cur := id; cur != InvalidID; cur = t.nodes[cur].Parent {
		n := &t.nodes[cur]
		steps = append(steps, Step{Kind: n.Kind, Name: n.Name})
	}
	// Reverse into root-first order.
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

// Resolve walks a path from the roots and returns the matching node id.
// Matching compares kind and name at every level.
func (t *Tree) Resolve(p Path) (NodeID, bool) {
	if len(p) == 0 {
		return InvalidID, false
	}
	cur := InvalidID
	candidates := t.roots
	for _, step := range p {
		found := InvalidID
		for _, id := range candidates {
			n := &t.nodes[id]
			if n.Kind == step.Kind && n.Name == step.Name {
				found = id
				break
			}
		}
		if found == InvalidID {
			return InvalidID, false
		}
		cur = found
		candidates = t.nodes[found].Children
	}
	return cur, true
}

// InSubtree reports whether id lies in root's subtree. A node is in its
// own subtree.
func (t *Tree) InSubtree(id, root NodeID) bool {
	if !t.Valid(id) || !t.Valid(root) {
		return false
	}
	for cur := id; cur != InvalidID; cur = t.nodes[cur].Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// ChildSpec describes one child produced by a schema loader. Specs with
// Lazy set become nodes whose own children load on first expansion; specs
// with pre-populated Children become fully-built subtrees, optionally
// starting collapsed.
type ChildSpec struct {
	Kind      Kind
	Name      string
	Detail    string
	Lazy      bool
	Collapsed bool
	Children  []ChildSpec
}

// buildSpecs attaches specs under parent and returns the ids that must be
// added to the collapse set (lazy nodes and explicitly collapsed subtrees).
func (t *Tree) buildSpecs(parent NodeID, specs []ChildSpec) []NodeID {
	var collapsed []NodeID
	for _, spec := range specs {
		var id NodeID
		if spec.Lazy && !spec.Kind.Leaf() {
			id = t.add(parent, spec.Kind, spec.Name, spec.Detail, StateNotLoaded)
			collapsed = append(collapsed, id)
		} else {
			id = t.add(parent, spec.Kind, spec.Name, spec.Detail, StateLoaded)
		}
		if len(spec.Children) > 0 {
			collapsed = append(collapsed, t.buildSpecs(id, spec.Children)...)
		}
		if spec.Collapsed && !spec.Kind.Leaf() {
			collapsed = append(collapsed, id)
		}
	}
	return collapsed
}

// Build constructs a tree from root specs. It is the snapshot-side
// counterpart of the Navigator's lazy ApplyChildren path: refresh code
// builds the whole new tree up front, then hands it to Rebuild.
func Build(specs []ChildSpec) *Tree {
	t := New()
	collapsed := t.buildSpecs(InvalidID, specs)
	t.initialCollapsed = append(t.initialCollapsed, collapsed...)
	return t
}
