package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
)

func mustAdd(t *testing.T, s *Store, n *Node) *Node {
	t.Helper()
	out, err := s.AddNode(n)
	if err != nil {
		t.Fatalf("AddNode(%q) failed: %v", n.ID, err)
	}
	return out
}

func TestAddNodeAssignsIDAndClamps(t *testing.T) {
	s := NewStore()
	n := mustAdd(t, s, &Node{Kind: KindGeneric, Geometry: geometry.R(10, 20, 20, 5)})

	if n.ID == "" {
		t.Fatal("expected generated id")
	}
	if n.Geometry.Width != geometry.MinWidth || n.Geometry.Height != geometry.MinHeight {
		t.Errorf("expected clamped size, got %vx%v", n.Geometry.Width, n.Geometry.Height)
	}
	if n.Geometry.X != 10 || n.Geometry.Y != 20 {
		t.Errorf("origin changed: %+v", n.Geometry)
	}
}

func TestAddNodeRejects(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric})

	tests := []struct {
		name string
		node *Node
		want error
	}{
		{"duplicate id", &Node{ID: "a", Kind: KindGeneric}, ErrDuplicateNode},
		{"unknown kind", &Node{ID: "b", Kind: NodeKind(42)}, ErrUnknownKind},
		{"self parent", &Node{ID: "c", Kind: KindGroup, ParentGroupID: "c"}, ErrSelfParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddNode(tt.node)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Op != "AddNode" {
				t.Errorf("expected OpError for AddNode, got %T", err)
			}
		})
	}
}

func TestAddNodeDedupesConnections(t *testing.T) {
	s := NewStore()
	n := mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric, Connections: []NodeID{"b", "a", "b", "c"}})

	want := []NodeID{"b", "c"}
	if !slices.Equal(n.Connections, want) {
		t.Errorf("connections = %v, want %v", n.Connections, want)
	}
}

func TestNodesReturnsCopiesInInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []NodeID{"c", "a", "b"} {
		mustAdd(t, s, &Node{ID: id, Kind: KindGeneric})
	}

	nodes := s.Nodes()
	var ids []NodeID
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	if !slices.Equal(ids, []NodeID{"c", "a", "b"}) {
		t.Errorf("order = %v", ids)
	}

	nodes[0].Title = "mutated"
	got, _ := s.Get("c")
	if got.Title == "mutated" {
		t.Error("Nodes leaked internal pointer")
	}
}

func TestUpdateNode(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric, Geometry: geometry.R(0, 0, 200, 150)})

	t.Run("rename and move", func(t *testing.T) {
		p := Rename("Pricing")
		pos := geometry.Pt(40, 60)
		p.Position = &pos
		n, err := s.UpdateNode("a", p)
		if err != nil {
			t.Fatalf("UpdateNode: %v", err)
		}
		if n.Title != "Pricing" || n.Geometry.X != 40 || n.Geometry.Y != 60 {
			t.Errorf("unexpected node %+v", n)
		}
	})

	t.Run("resize clamps", func(t *testing.T) {
		n, err := s.UpdateNode("a", ResizeTo(geometry.Size{Width: -10, Height: 99}))
		if err != nil {
			t.Fatalf("UpdateNode: %v", err)
		}
		if n.Geometry.Width != 150 || n.Geometry.Height != 100 {
			t.Errorf("size = %vx%v", n.Geometry.Width, n.Geometry.Height)
		}
	})

	t.Run("missing node", func(t *testing.T) {
		_, err := s.UpdateNode("zzz", Rename("x"))
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("self parent", func(t *testing.T) {
		_, err := s.UpdateNode("a", Reparent("a"))
		if !errors.Is(err, ErrSelfParent) {
			t.Errorf("expected ErrSelfParent, got %v", err)
		}
	})
}

func TestConnect(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric})
	mustAdd(t, s, &Node{ID: "b", Kind: KindGeneric})

	tests := []struct {
		name     string
		from, to NodeID
		want     bool
		err      error
	}{
		{"new edge", "a", "b", true, nil},
		{"duplicate is no-op", "a", "b", false, nil},
		{"self is no-op", "a", "a", false, nil},
		{"reverse edge allowed", "b", "a", true, nil},
		{"unknown source", "x", "a", false, ErrNodeNotFound},
		{"unknown target", "a", "x", false, ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Connect(tt.from, tt.to)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("Connect = %v, want %v", got, tt.want)
			}
		})
	}

	a, _ := s.Get("a")
	if !slices.Equal(a.Connections, []NodeID{"b"}) {
		t.Errorf("a.Connections = %v", a.Connections)
	}
}

func TestDisconnect(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric, Connections: []NodeID{"b"}})
	mustAdd(t, s, &Node{ID: "b", Kind: KindGeneric})

	if ok, err := s.Disconnect("a", "b"); err != nil || !ok {
		t.Fatalf("Disconnect = %v, %v", ok, err)
	}
	if ok, _ := s.Disconnect("a", "b"); ok {
		t.Error("second Disconnect should report false")
	}
	if len(s.Edges()) != 0 {
		t.Errorf("edges remain: %v", s.Edges())
	}
}

func TestRemoveNodeStripsConnections(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "x", Kind: KindGeneric})
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric, Connections: []NodeID{"x", "b"}})
	mustAdd(t, s, &Node{ID: "b", Kind: KindGeneric, Connections: []NodeID{"x"}})
	mustAdd(t, s, &Node{ID: "c", Kind: KindGeneric, Connections: []NodeID{"a"}})

	affected, err := s.RemoveNode("x")
	if err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if !slices.Equal(affected, []NodeID{"a", "b"}) {
		t.Errorf("affected = %v", affected)
	}
	for _, n := range s.Nodes() {
		if n.HasConnection("x") {
			t.Errorf("node %s still connects to removed node", n.ID)
		}
	}
	if _, ok := s.Get("x"); ok {
		t.Error("removed node still present")
	}
	if _, err := s.RemoveNode("x"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("second remove: %v", err)
	}
}

func TestRemoveGroupLeavesChildrenOrphaned(t *testing.T) {
	s := NewStore()
	g := mustAdd(t, s, &Node{Kind: KindGroup, Title: "Volume I"})
	c := mustAdd(t, s, &Node{Kind: KindDocumentAgent, ParentGroupID: g.ID})

	if kids := s.Children(g.ID); len(kids) != 1 || kids[0].ID != c.ID {
		t.Fatalf("Children = %v", kids)
	}
	if _, err := s.RemoveNode(g.ID); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	got, ok := s.Get(c.ID)
	if !ok {
		t.Fatal("child was removed with its group")
	}
	if got.ParentGroupID != g.ID {
		t.Errorf("ParentGroupID = %q, want %q", got.ParentGroupID, g.ID)
	}
}

func TestEdgesSkipDangling(t *testing.T) {
	s := NewStore()
	s.Replace([]*Node{
		{ID: "a", Kind: KindGeneric, Connections: []NodeID{"ghost", "b"}},
		{ID: "b", Kind: KindGeneric},
	})

	edges := s.Edges()
	if len(edges) != 1 || edges[0] != (Edge{From: "a", To: "b"}) {
		t.Errorf("Edges = %v", edges)
	}
	a, _ := s.Get("a")
	if !a.HasConnection("ghost") {
		t.Error("dangling connection should be tolerated, not removed")
	}
}

func TestSelectAndBringToFront(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric})
	mustAdd(t, s, &Node{ID: "b", Kind: KindGeneric})

	if err := s.Select("a"); err != nil {
		t.Fatal(err)
	}
	if id, ok := s.Selected(); !ok || id != "a" {
		t.Errorf("Selected = %q, %v", id, ok)
	}
	if err := s.Select("b"); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Get("a")
	if a.Selected {
		t.Error("selection should be exclusive")
	}
	if err := s.Select(""); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Selected(); ok {
		t.Error("selection not cleared")
	}

	if err := s.BringToFront("a"); err != nil {
		t.Fatal(err)
	}
	byZ := s.ByZ()
	if byZ[len(byZ)-1].ID != "a" {
		t.Errorf("top node = %s, want a", byZ[len(byZ)-1].ID)
	}
}

func TestObserversNotified(t *testing.T) {
	s := NewStore()
	var got []EventKind
	s.Observe(func(e Event) { got = append(got, e.Kind) })

	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric})
	mustAdd(t, s, &Node{ID: "b", Kind: KindGeneric})
	s.Connect("a", "b")
	s.UpdateNode("a", Rename("t"))
	s.RemoveNode("b")

	want := []EventKind{NodeAdded, NodeAdded, EdgeAdded, NodeUpdated, NodeRemoved, EdgeRemoved}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestReplaceSkipsInvalid(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "old", Kind: KindGeneric})

	loaded := s.Replace([]*Node{
		{ID: "a", Kind: KindGeneric, Geometry: geometry.R(0, 0, 1, 1)},
		{ID: "a", Kind: KindGroup},
		{ID: "", Kind: KindGeneric},
		{ID: "z", Kind: NodeKind(-1)},
		nil,
	})
	if loaded != 1 || s.Len() != 1 {
		t.Fatalf("loaded = %d, len = %d", loaded, s.Len())
	}
	a, _ := s.Get("a")
	if a.Geometry.Width != geometry.MinWidth {
		t.Errorf("hydrated geometry not clamped: %+v", a.Geometry)
	}
}

func TestKindText(t *testing.T) {
	for _, k := range Kinds() {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", k, err)
		}
		var back NodeKind
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Errorf("round trip %s -> %v (%v)", b, back, err)
		}
	}
	if _, err := ParseKind("spreadsheet"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestPatchFields(t *testing.T) {
	p := MoveTo(geometry.Pt(1, 2))
	p.Payload = Payload{"model": "m"}
	want := []string{FieldX, FieldY, FieldPayload}
	if !slices.Equal(p.Fields(), want) {
		t.Errorf("Fields = %v, want %v", p.Fields(), want)
	}
	if !(Patch{}).Empty() {
		t.Error("zero patch should be empty")
	}
}

func TestOpErrorIs(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, &Node{ID: "a", Kind: KindGeneric})
	_, err := s.Connect("a", "missing")

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{"cause", ErrNodeNotFound, true},
		{"same op", &OpError{Op: "Connect"}, true},
		{"same op and node", &OpError{Op: "Connect", NodeID: "missing"}, true},
		{"other node", &OpError{Op: "Connect", NodeID: "a"}, false},
		{"other op", &OpError{Op: "AddNode"}, false},
		{"unrelated sentinel", ErrDuplicateNode, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", err, tt.target, got, tt.want)
			}
		})
	}
}
