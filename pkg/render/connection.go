package render

import (
	"math"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// DefaultEdgeHitTolerance is the half-width of an edge's hit path in canvas units.
const DefaultEdgeHitTolerance = 8.0

// Edge is a derived connection with its resolved anchors and curve.
type Edge struct {
	From  graph.NodeID `json:"from"`
	To    graph.NodeID `json:"to"`
	Pair  anchor.Pair  `json:"anchors"`
	Curve Cubic        `json:"-"`
}

// CurveBetween builds the edge curve between two anchor points. The control
// points are offset horizontally by half the horizontal distance.
func CurveBetween(a, b geometry.Point) Cubic {
	curve := math.Abs(b.X-a.X) * 0.5
	return Cubic{
		P0: a,
		C1: geometry.Pt(a.X+curve, a.Y),
		C2: geometry.Pt(b.X-curve, b.Y),
		P3: b,
	}
}

// ResolveEdges pairs every edge with its anchors. Edges whose endpoints are
// missing from nodes are skipped.
func ResolveEdges(nodes []*graph.Node, edges []graph.Edge) []Edge {
	byID := make(map[graph.NodeID]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		from, ok1 := byID[e.From]
		to, ok2 := byID[e.To]
		if !ok1 || !ok2 {
			continue
		}
		pair := anchor.BestPair(from, to)
		out = append(out, Edge{
			From:  e.From,
			To:    e.To,
			Pair:  pair,
			Curve: CurveBetween(pair.From.Point, pair.To.Point),
		})
	}
	return out
}

// ConnectionRenderer draws edges and the in-progress connection preview.
type ConnectionRenderer struct {
	Stroke       string
	Width        float64 // screen pixels
	ArrowSize    float64 // screen pixels
	HitTolerance float64 // canvas units
}

// NewConnectionRenderer returns a renderer with the default look.
func NewConnectionRenderer() *ConnectionRenderer {
	return &ConnectionRenderer{
		Stroke:       "#64748b",
		Width:        2,
		ArrowSize:    10,
		HitTolerance: DefaultEdgeHitTolerance,
	}
}

// Draw renders e as a wide invisible hit path, the visible curve and an
// arrowhead at the target.
func (c *ConnectionRenderer) Draw(s Surface, e Edge, scale float64) {
	data := map[string]string{"from": string(e.From), "to": string(e.To), "action": "edge"}
	s.Curve(e.Curve, Style{Invisible: true, StrokeWidth: 2 * c.HitTolerance * scale, Class: "edge-hit", Data: data})
	s.Curve(e.Curve, Style{Stroke: c.Stroke, StrokeWidth: c.Width, Class: "edge"})
	s.Polygon(c.arrow(e.Curve, scale), Style{Fill: c.Stroke, Class: "edge"})
}

// DrawPreview renders the connection being drawn from origin to end.
func (c *ConnectionRenderer) DrawPreview(s Surface, origin, end geometry.Point, snapped bool, scale float64) {
	st := Style{Stroke: "#0ea5e9", StrokeWidth: c.Width, Dash: "6 4", Class: "preview"}
	cv := CurveBetween(origin, end)
	s.Curve(cv, st)
	if snapped {
		s.Circle(end, 6/max(scale, 0.01), Style{Fill: "#0ea5e9", Class: "preview"})
	}
}

// arrow returns the arrowhead triangle, tip first, aligned with the curve's
// direction at its end.
func (c *ConnectionRenderer) arrow(cv Cubic, scale float64) []geometry.Point {
	dir := cv.P3.Sub(cv.C2)
	if math.Hypot(dir.X, dir.Y) < geometry.Epsilon {
		dir = cv.P3.Sub(cv.P0)
	}
	l := math.Hypot(dir.X, dir.Y)
	if l < geometry.Epsilon {
		dir, l = geometry.Pt(1, 0), 1
	}
	u := dir.Div(l)
	size := c.ArrowSize / max(scale, 0.01)
	base := cv.P3.Sub(u.Scale(size))
	perp := geometry.Pt(-u.Y, u.X).Scale(size / 2)
	return []geometry.Point{cv.P3, base.Add(perp), base.Sub(perp)}
}

// HitEdge returns the topmost edge whose hit path contains p.
func (c *ConnectionRenderer) HitEdge(edges []Edge, p geometry.Point) (Edge, bool) {
	for i := len(edges) - 1; i >= 0; i-- {
		if edges[i].Curve.Distance(p) <= c.HitTolerance {
			return edges[i], true
		}
	}
	return Edge{}, false
}
