// Package anchor computes the connection points on node edges and resolves
// which anchor a dangling connection should snap to.
package anchor

import (
	"fmt"
	"math"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// DefaultSnapRadius is the maximum distance, in canvas units, at which a
// pointer snaps to an anchor.
const DefaultSnapRadius = 30.0

// Side is one of the four cardinal edges of a node.
type Side int

const (
	Top Side = iota
	Right
	Bottom
	Left
)

// Sides lists the sides in scan order.
var Sides = [4]Side{Top, Right, Bottom, Left}

func (s Side) String() string {
	switch s {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	for _, side := range Sides {
		if side.String() == string(b) {
			*s = side
			return nil
		}
	}
	return fmt.Errorf("unknown side %q", b)
}

// Anchor is a connection point on a node edge.
type Anchor struct {
	NodeID graph.NodeID   `json:"nodeId"`
	Side   Side           `json:"side"`
	Point  geometry.Point `json:"point"`
}

// Pair is the chosen source and target anchor of one edge.
type Pair struct {
	From Anchor `json:"from"`
	To   Anchor `json:"to"`
}

// AnchorsOf returns the edge midpoints of n in top, right, bottom, left order.
func AnchorsOf(n *graph.Node) []Anchor {
	return anchorsFor(n.ID, n.Geometry)
}

func anchorsFor(id graph.NodeID, r geometry.Rect) []Anchor {
	c := r.Center()
	return []Anchor{
		{NodeID: id, Side: Top, Point: geometry.Pt(c.X, r.Y)},
		{NodeID: id, Side: Right, Point: geometry.Pt(r.Right(), c.Y)},
		{NodeID: id, Side: Bottom, Point: geometry.Pt(c.X, r.Bottom())},
		{NodeID: id, Side: Left, Point: geometry.Pt(r.X, c.Y)},
	}
}

// AnchorOf returns the anchor of n on side s.
func AnchorOf(n *graph.Node, s Side) (Anchor, bool) {
	return find(AnchorsOf(n), s)
}

func find(list []Anchor, s Side) (Anchor, bool) {
	for _, a := range list {
		if a.Side == s {
			return a, true
		}
	}
	return Anchor{}, false
}

// BestPair chooses the anchors an edge from -> to should use. A dominant
// horizontal offset connects right/left edges, otherwise bottom/top.
func BestPair(from, to *graph.Node) Pair {
	fa, ta := AnchorsOf(from), AnchorsOf(to)
	fc, tc := from.Geometry.Center(), to.Geometry.Center()
	dx, dy := tc.X-fc.X, tc.Y-fc.Y

	var fs, ts Side
	switch {
	case math.Abs(dx) > math.Abs(dy) && dx > 0:
		fs, ts = Right, Left
	case math.Abs(dx) > math.Abs(dy):
		fs, ts = Left, Right
	case dy > 0:
		fs, ts = Bottom, Top
	default:
		fs, ts = Top, Bottom
	}

	p := Pair{From: fa[0], To: ta[0]}
	if a, ok := find(fa, fs); ok {
		p.From = a
	}
	if a, ok := find(ta, ts); ok {
		p.To = a
	}
	return p
}

// NodeSource yields nodes in a stable scan order.
type NodeSource interface {
	Nodes() []*graph.Node
}

// Resolver finds the nearest anchor to a pointer.
type Resolver struct {
	Radius float64
}

// NewResolver returns a resolver with the given snap radius, or the default
// when radius is not positive.
func NewResolver(radius float64) *Resolver {
	if radius <= 0 {
		radius = DefaultSnapRadius
	}
	return &Resolver{Radius: radius}
}

// Nearest scans nodes in source order and anchors in side order, skipping
// exclude, and returns the closest anchor within the radius. On equal
// distance the first anchor found wins.
func (r *Resolver) Nearest(src NodeSource, p geometry.Point, exclude graph.NodeID) (Anchor, bool) {
	best := Anchor{}
	bestDist := math.Inf(1)
	found := false
	for _, n := range src.Nodes() {
		if n.ID == exclude {
			continue
		}
		for _, a := range AnchorsOf(n) {
			d := a.Point.Distance(p)
			if d < bestDist {
				best, bestDist, found = a, d, true
			}
		}
	}
	if !found || bestDist > r.Radius {
		return Anchor{}, false
	}
	return best, true
}

// At returns the anchor of n whose dot is within hit of p, scanning in side order.
func At(n *graph.Node, p geometry.Point, hit float64) (Anchor, bool) {
	for _, a := range AnchorsOf(n) {
		if a.Point.Distance(p) <= hit {
			return a, true
		}
	}
	return Anchor{}, false
}
