package viewport

import (
	"testing"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTransformRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("screen to canvas inverts canvas to screen", prop.ForAll(
		func(ox, oy, scale, px, py float64) bool {
			c := New(WithContainer(geometry.Pt(37, 91)))
			c.Restore(View{Offset: geometry.Pt(ox, oy), Scale: scale})
			p := geometry.Pt(px, py)
			s := c.CanvasToScreen(p)
			back := c.ScreenToCanvas(s.X, s.Y)
			return back.ApproxEqual(p, 1e-9)
		},
		gen.Float64Range(-1e5, 1e5),
		gen.Float64Range(-1e5, 1e5),
		gen.Float64Range(MinScale, MaxScale),
		gen.Float64Range(-1e5, 1e5),
		gen.Float64Range(-1e5, 1e5),
	))

	properties.Property("zoom stays within bounds", prop.ForAll(
		func(factors []float64) bool {
			c := New()
			for _, f := range factors {
				v := c.Zoom(f, geometry.Pt(100, 100))
				if v.Scale < MinScale || v.Scale > MaxScale {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0.01, 10)),
	))

	properties.TestingRun(t)
}
