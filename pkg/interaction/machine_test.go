package interaction

import (
	"errors"
	"testing"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

type recorder struct {
	commits []Commit
}

func (r *recorder) Commit(c Commit) { r.commits = append(r.commits, c) }

func setup(t *testing.T, nodes ...*graph.Node) (*Machine, *graph.Store, *viewport.Controller, *recorder) {
	t.Helper()
	store := graph.NewStore()
	for _, n := range nodes {
		if _, err := store.AddNode(n); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	view := viewport.New()
	rec := &recorder{}
	m := NewMachine(store, view, anchor.NewResolver(anchor.DefaultSnapRadius), WithCommitter(rec))
	return m, store, view, rec
}

func generic(id string, x, y float64) *graph.Node {
	return &graph.Node{ID: graph.NodeID(id), Kind: graph.KindGeneric, Geometry: geometry.R(x, y, 200, 150)}
}

func TestDragScalesDelta(t *testing.T) {
	tests := []struct {
		scale float64
		want  geometry.Point
	}{
		{1, geometry.Pt(50, 20)},
		{2, geometry.Pt(25, 10)},
		{0.5, geometry.Pt(100, 40)},
	}
	for _, tt := range tests {
		m, store, view, rec := setup(t, generic("a", 0, 0))
		view.Restore(viewport.View{Scale: tt.scale})

		start := geometry.Pt(10, 10)
		if err := m.BeginDrag("a", start); err != nil {
			t.Fatalf("BeginDrag: %v", err)
		}
		// several moves must not accumulate
		m.Move(geometry.Pt(30, 15))
		m.Move(geometry.Pt(60, 30))
		res, err := m.End(geometry.Pt(60, 30))
		if err != nil {
			t.Fatalf("End: %v", err)
		}

		n, _ := store.Get("a")
		if n.Geometry.Origin() != tt.want {
			t.Errorf("scale %v: origin = %+v, want %+v", tt.scale, n.Geometry.Origin(), tt.want)
		}
		if !res.Committed || len(rec.commits) != 1 || rec.commits[0].Kind != CommitGeometry {
			t.Errorf("scale %v: commit missing: %+v %+v", tt.scale, res, rec.commits)
		}
		if m.State().Active() {
			t.Error("machine did not return to idle")
		}
	}
}

func TestResizeClampsAndScales(t *testing.T) {
	m, store, view, rec := setup(t, generic("a", 0, 0))
	view.Restore(viewport.View{Scale: 2})

	if err := m.BeginResize("a", geometry.Pt(400, 300)); err != nil {
		t.Fatal(err)
	}
	m.Move(geometry.Pt(500, 400))
	n, _ := store.Get("a")
	if n.Geometry.Width != 250 || n.Geometry.Height != 200 {
		t.Errorf("size = %vx%v, want 250x200", n.Geometry.Width, n.Geometry.Height)
	}

	m.Move(geometry.Pt(-1000, -1000))
	if _, err := m.End(geometry.Pt(-1000, -1000)); err != nil {
		t.Fatal(err)
	}
	n, _ = store.Get("a")
	if n.Geometry.Width != geometry.MinWidth || n.Geometry.Height != geometry.MinHeight {
		t.Errorf("size = %vx%v, want clamp", n.Geometry.Width, n.Geometry.Height)
	}
	if len(rec.commits) != 1 || rec.commits[0].Fields[0] != graph.FieldWidth {
		t.Errorf("commits = %+v", rec.commits)
	}
}

func TestPanUsesRawClientDelta(t *testing.T) {
	m, _, view, rec := setup(t)
	view.Restore(viewport.View{Offset: geometry.Pt(5, 5), Scale: 2})

	if err := m.BeginPan(geometry.Pt(100, 100)); err != nil {
		t.Fatal(err)
	}
	m.Move(geometry.Pt(130, 90))
	m.End(geometry.Pt(140, 80))

	if got := view.View().Offset; got != geometry.Pt(45, -15) {
		t.Errorf("offset = %+v, want (45,-15)", got)
	}
	if len(rec.commits) != 0 {
		t.Error("pan should not commit graph changes")
	}
}

func TestGestureExclusive(t *testing.T) {
	m, _, _, _ := setup(t, generic("a", 0, 0), generic("b", 400, 0))

	if err := m.BeginDrag("a", geometry.Point{}); err != nil {
		t.Fatal(err)
	}
	attempts := map[string]error{
		"pan":     m.BeginPan(geometry.Point{}),
		"drag":    m.BeginDrag("b", geometry.Point{}),
		"resize":  m.BeginResize("b", geometry.Point{}),
		"connect": m.BeginConnection("b", anchor.Left, geometry.Point{}),
	}
	for name, err := range attempts {
		if !errors.Is(err, ErrGestureActive) {
			t.Errorf("%s: expected ErrGestureActive, got %v", name, err)
		}
	}
	if s := m.State(); s.Kind != DraggingNode || s.NodeID != "a" {
		t.Errorf("state changed: %+v", s)
	}
}

func TestBeginOnMissingNode(t *testing.T) {
	m, _, _, _ := setup(t)
	if err := m.BeginDrag("ghost", geometry.Point{}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("expected ErrNoTarget, got %v", err)
	}
	if m.State().Active() {
		t.Error("failed begin left machine active")
	}
}

func TestClickSelects(t *testing.T) {
	m, store, _, rec := setup(t, generic("a", 0, 0))

	m.BeginDrag("a", geometry.Pt(50, 50))
	res, err := m.End(geometry.Pt(50, 50))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Clicked || res.Committed {
		t.Errorf("result = %+v", res)
	}
	if id, ok := store.Selected(); !ok || id != "a" {
		t.Errorf("selected = %q", id)
	}
	if len(rec.commits) != 0 {
		t.Error("click should not commit")
	}
}

func TestConnectionSnapsAndCommits(t *testing.T) {
	m, store, _, rec := setup(t, generic("a", 100, 100), generic("b", 400, 100))

	// a.right is (300,175); b.left is (400,175)
	if err := m.BeginConnection("a", anchor.Right, geometry.Pt(300, 175)); err != nil {
		t.Fatal(err)
	}
	s, _ := m.Move(geometry.Pt(350, 175))
	if s.Snapped {
		t.Errorf("snapped too early to %+v", s.Snap)
	}
	if s.PreviewEnd() != geometry.Pt(350, 175) {
		t.Errorf("preview end = %+v", s.PreviewEnd())
	}

	s, _ = m.Move(geometry.Pt(390, 180))
	if !s.Snapped || s.Snap.NodeID != "b" || s.Snap.Side != anchor.Left {
		t.Fatalf("snap = %+v", s.Snap)
	}

	res, err := m.End(geometry.Pt(390, 180))
	if err != nil {
		t.Fatal(err)
	}
	if res.Connected != "b" || !res.Committed {
		t.Errorf("result = %+v", res)
	}
	a, _ := store.Get("a")
	if !a.HasConnection("b") {
		t.Error("edge not added")
	}
	if len(rec.commits) != 1 || rec.commits[0].Kind != CommitConnection || rec.commits[0].Target != "b" {
		t.Errorf("commits = %+v", rec.commits)
	}
}

func TestConnectionWithoutSnapDiscarded(t *testing.T) {
	m, store, _, rec := setup(t, generic("a", 100, 100), generic("b", 400, 100))

	m.BeginConnection("a", anchor.Bottom, geometry.Pt(200, 250))
	res, err := m.End(geometry.Pt(200, 600))
	if err != nil {
		t.Fatal(err)
	}
	if res.Connected != "" || res.Committed {
		t.Errorf("result = %+v", res)
	}
	if len(store.Edges()) != 0 || len(rec.commits) != 0 {
		t.Error("unsnapped connection should be discarded")
	}
	if m.State().Active() {
		t.Error("machine not idle")
	}
}

func TestConnectionNeverSnapsToOrigin(t *testing.T) {
	m, _, _, _ := setup(t, generic("a", 100, 100))

	m.BeginConnection("a", anchor.Right, geometry.Pt(300, 175))
	s, _ := m.Move(geometry.Pt(200, 100)) // a.top
	if s.Snapped {
		t.Errorf("snapped to origin node: %+v", s.Snap)
	}
}

func TestEndWhenIdle(t *testing.T) {
	m, _, _, _ := setup(t)
	res, err := m.End(geometry.Point{})
	if err != nil || res.Gesture != Idle {
		t.Errorf("End = %+v, %v", res, err)
	}
}

func TestEndAfterNodeRemovedStillIdles(t *testing.T) {
	m, store, _, _ := setup(t, generic("a", 0, 0))
	m.BeginDrag("a", geometry.Point{})
	store.RemoveNode("a")

	if _, err := m.End(geometry.Pt(10, 10)); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
	if m.State().Active() {
		t.Error("machine must idle even on error")
	}
}

func TestCancelRestores(t *testing.T) {
	m, store, view, rec := setup(t, generic("a", 10, 10))

	m.BeginDrag("a", geometry.Point{})
	m.Move(geometry.Pt(100, 100))
	m.Cancel()
	n, _ := store.Get("a")
	if n.Geometry.Origin() != geometry.Pt(10, 10) {
		t.Errorf("origin = %+v", n.Geometry.Origin())
	}

	m.BeginPan(geometry.Point{})
	m.Move(geometry.Pt(100, 100))
	m.Cancel()
	if view.View().Offset != (geometry.Point{}) {
		t.Errorf("offset = %+v", view.View().Offset)
	}
	if len(rec.commits) != 0 || m.State().Active() {
		t.Error("cancel should idle without committing")
	}
}
