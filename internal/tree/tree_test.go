package tree

import "testing"

// sampleTree builds a small fully-loaded tree:
//
//	app (database)
//	├── users (table)
//	│   ├── id (column)
//	│   └── email (column)
//	└── orders (table)
func sampleTree() (*Tree, map[string]NodeID) {
	t := New()
	ids := map[string]NodeID{}
	ids["app"] = t.Add(InvalidID, KindDatabase, "app", "")
	ids["users"] = t.Add(ids["app"], KindTable, "users", "")
	ids["id"] = t.Add(ids["users"], KindColumn, "id", "integer")
	ids["email"] = t.Add(ids["users"], KindColumn, "email", "text")
	ids["orders"] = t.Add(ids["app"], KindTable, "orders", "")
	return t, ids
}

func TestAdd(t *testing.T) {
	tr, ids := sampleTree()

	t.Run("ids are sequential", func(t *testing.T) {
		want := map[string]NodeID{"app": 0, "users": 1, "id": 2, "email": 3, "orders": 4}
		for name, wantID := range want {
			if ids[name] != wantID {
				t.Errorf("id of %q = %d, want %d", name, ids[name], wantID)
			}
		}
	})

	t.Run("depths", func(t *testing.T) {
		cases := map[string]int{"app": 0, "users": 1, "id": 2, "email": 2, "orders": 1}
		for name, want := range cases {
			if got := tr.Node(ids[name]).Depth; got != want {
				t.Errorf("depth of %q = %d, want %d", name, got, want)
			}
		}
	})

	t.Run("parents", func(t *testing.T) {
		if got := tr.Node(ids["app"]).Parent; got != InvalidID {
			t.Errorf("parent of root = %d, want InvalidID", got)
		}
		if got := tr.Node(ids["email"]).Parent; got != ids["users"] {
			t.Errorf("parent of email = %d, want %d", got, ids["users"])
		}
	})

	t.Run("children in insertion order", func(t *testing.T) {
		kids := tr.Node(ids["app"]).Children
		if len(kids) != 2 || kids[0] != ids["users"] || kids[1] != ids["orders"] {
			t.Errorf("children of app = %v, want [%d %d]", kids, ids["users"], ids["orders"])
		}
	})

	t.Run("leaf flag cached from kind", func(t *testing.T) {
		if tr.Node(ids["users"]).Leaf() {
			t.Error("table should not be a leaf")
		}
		if !tr.Node(ids["email"]).Leaf() {
			t.Error("column should be a leaf")
		}
	})

	t.Run("roots", func(t *testing.T) {
		roots := tr.Roots()
		if len(roots) != 1 || roots[0] != ids["app"] {
			t.Errorf("roots = %v, want [%d]", roots, ids["app"])
		}
	})
}

func TestKindLeaf(t *testing.T) {
	leaves := []Kind{KindColumn, KindConstraint, KindForeignKey, KindIndex}
	branches := []Kind{
		KindDatabase, KindSchema, KindTable, KindView,
		KindConstraintGroup, KindForeignKeyGroup, KindIndexGroup,
	}
	for _, k := range leaves {
		if !k.Leaf() {
			t.Errorf("%v should be a leaf kind", k)
		}
	}
	for _, k := range branches {
		if k.Leaf() {
			t.Errorf("%v should not be a leaf kind", k)
		}
	}
}

func TestAddLazy(t *testing.T) {
	tr := New()
	db := tr.Add(InvalidID, KindDatabase, "app", "")
	tbl := tr.AddLazy(db, KindTable, "orders", "")

	if got := tr.Node(tbl).State(); got != StateNotLoaded {
		t.Errorf("lazy node state = %v, want StateNotLoaded", got)
	}
	if got := tr.InitialCollapsed(); len(got) != 1 || got[0] != tbl {
		t.Errorf("InitialCollapsed() = %v, want [%d]", got, tbl)
	}

	// Leaf kinds cannot be lazy: they are downgraded to loaded nodes.
	col := tr.AddLazy(tbl, KindColumn, "id", "integer")
	if got := tr.Node(col).State(); got != StateLoaded {
		t.Errorf("lazy leaf state = %v, want StateLoaded", got)
	}
	if got := tr.InitialCollapsed(); len(got) != 1 {
		t.Errorf("leaf recorded as initially collapsed: %v", got)
	}
}

func TestPathResolve(t *testing.T) {
	tr, ids := sampleTree()

	p := tr.Path(ids["email"])
	want := Path{
		{Kind: KindDatabase, Name: "app"},
		{Kind: KindTable, Name: "users"},
		{Kind: KindColumn, Name: "email"},
	}
	if len(p) != len(want) {
		t.Fatalf("Path length = %d, want %d", len(p), len(want))
	}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("Path[%d] = %+v, want %+v", i, p[i], want[i])
		}
	}

	id, ok := tr.Resolve(p)
	if !ok || id != ids["email"] {
		t.Errorf("Resolve round-trip = (%d, %v), want (%d, true)", id, ok, ids["email"])
	}

	// Kind mismatch must not resolve even when names line up.
	if _, ok := tr.Resolve(Path{{Kind: KindTable, Name: "app"}}); ok {
		t.Error("Resolve matched a path with the wrong kind")
	}
	if _, ok := tr.Resolve(Path{{Kind: KindDatabase, Name: "missing"}}); ok {
		t.Error("Resolve matched a nonexistent root")
	}
	if _, ok := tr.Resolve(nil); ok {
		t.Error("Resolve matched an empty path")
	}
}

func TestInSubtree(t *testing.T) {
	tr, ids := sampleTree()

	if !tr.InSubtree(ids["email"], ids["users"]) {
		t.Error("email should be in users' subtree")
	}
	if !tr.InSubtree(ids["users"], ids["users"]) {
		t.Error("a node should be in its own subtree")
	}
	if tr.InSubtree(ids["orders"], ids["users"]) {
		t.Error("orders should not be in users' subtree")
	}
	if tr.InSubtree(InvalidID, ids["users"]) {
		t.Error("InvalidID should not be in any subtree")
	}
}

func TestNodeOutOfRange(t *testing.T) {
	tr, _ := sampleTree()
	if tr.Node(InvalidID) != nil {
		t.Error("Node(InvalidID) should be nil")
	}
	if tr.Node(NodeID(tr.Len())) != nil {
		t.Error("Node past end should be nil")
	}
}

func TestBuild(t *testing.T) {
	tr := Build([]ChildSpec{
		{Kind: KindDatabase, Name: "app", Children: []ChildSpec{
			{Kind: KindTable, Name: "users", Children: []ChildSpec{
				{Kind: KindColumn, Name: "id", Detail: "integer"},
				{Kind: KindConstraintGroup, Name: "Constraints", Collapsed: true, Children: []ChildSpec{
					{Kind: KindConstraint, Name: "users_pkey", Detail: "PRIMARY KEY"},
				}},
			}},
			{Kind: KindTable, Name: "orders", Lazy: true},
		}},
	})

	if tr.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", tr.Len())
	}

	usersID, ok := tr.Resolve(Path{{KindDatabase, "app"}, {KindTable, "users"}})
	if !ok {
		t.Fatal("users not resolvable")
	}
	if got := tr.Node(usersID).State(); got != StateLoaded {
		t.Errorf("users state = %v, want StateLoaded", got)
	}

	ordersID, ok := tr.Resolve(Path{{KindDatabase, "app"}, {KindTable, "orders"}})
	if !ok {
		t.Fatal("orders not resolvable")
	}
	if got := tr.Node(ordersID).State(); got != StateNotLoaded {
		t.Errorf("lazy orders state = %v, want StateNotLoaded", got)
	}

	groupID, ok := tr.Resolve(Path{{KindDatabase, "app"}, {KindTable, "users"}, {KindConstraintGroup, "Constraints"}})
	if !ok {
		t.Fatal("constraint group not resolvable")
	}

	// Both the lazy table and the collapsed group must be recorded.
	collapsed := map[NodeID]bool{}
	for _, id := range tr.InitialCollapsed() {
		collapsed[id] = true
	}
	if !collapsed[ordersID] {
		t.Error("lazy orders not in InitialCollapsed")
	}
	if !collapsed[groupID] {
		t.Error("collapsed group not in InitialCollapsed")
	}
	if collapsed[usersID] {
		t.Error("eager users should not be in InitialCollapsed")
	}
}
