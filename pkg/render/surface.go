// Package render draws canvas scenes onto abstract surfaces and answers
// hit-test queries against the same geometry it draws.
package render

import (
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// Style carries presentation hints. Surfaces ignore what they cannot express.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64 // screen pixels
	Dash        string
	Opacity     float64 // 0 means opaque
	FontSize    float64 // screen pixels
	TextAnchor  string
	MaxWidth    float64 // canvas units, text only
	Class       string
	Invisible   bool // hit area only
	Data        map[string]string
}

// Surface is a drawing target. Coordinates are canvas units; the surface
// applies the view transform given to Begin.
type Surface interface {
	Begin(width, height float64, view viewport.View)
	End() error
	Group(id string, st Style)
	EndGroup()
	Rect(r geometry.Rect, radius float64, st Style)
	Circle(c geometry.Point, r float64, st Style)
	Line(a, b geometry.Point, st Style)
	Curve(c Cubic, st Style)
	Polygon(pts []geometry.Point, st Style)
	Text(p geometry.Point, s string, st Style)
}

// Cubic is a cubic Bézier segment.
type Cubic struct {
	P0, C1, C2, P3 geometry.Point
}

// At evaluates the curve at t in [0, 1].
func (c Cubic) At(t float64) geometry.Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	d := 3 * u * t * t
	e := t * t * t
	return geometry.Point{
		X: a*c.P0.X + b*c.C1.X + d*c.C2.X + e*c.P3.X,
		Y: a*c.P0.Y + b*c.C1.Y + d*c.C2.Y + e*c.P3.Y,
	}
}

// Sample returns n+1 evenly spaced points along the curve.
func (c Cubic) Sample(n int) []geometry.Point {
	if n < 1 {
		n = 1
	}
	pts := make([]geometry.Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.At(float64(i) / float64(n))
	}
	return pts
}

// Distance approximates the shortest distance from p to the curve.
func (c Cubic) Distance(p geometry.Point) float64 {
	pts := c.Sample(48)
	best := pts[0].Distance(p)
	for i := 1; i < len(pts); i++ {
		if d := segmentDistance(p, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}

func segmentDistance(p, a, b geometry.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Distance(a)
	}
	t := geometry.Clamp(((p.X-a.X)*ab.X+(p.Y-a.Y)*ab.Y)/l2, 0, 1)
	return p.Distance(a.Add(ab.Scale(t)))
}
