package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"maps"
	"slices"
	"strings"

	svg "github.com/ajstarks/svgo/float"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// SVGSurface writes an SVG document. Stroke widths and font sizes are in
// screen pixels, so they are divided by the view scale inside the
// transformed group.
type SVGSurface struct {
	// Background fill; empty for transparent.
	Background string

	w      *bufio.Writer
	canvas *svg.SVG
	scale  float64
}

// NewSVGSurface returns a surface writing to w.
func NewSVGSurface(w io.Writer) *SVGSurface {
	bw := bufio.NewWriter(w)
	return &SVGSurface{w: bw, canvas: svg.New(bw), scale: 1, Background: "#f8fafc"}
}

func (s *SVGSurface) Begin(width, height float64, view viewport.View) {
	s.scale = view.Scale
	if s.scale <= 0 {
		s.scale = 1
	}
	s.canvas.Start(width, height, `class="strategy-canvas"`)
	if s.Background != "" {
		s.canvas.Rect(0, 0, width, height, "fill:"+s.Background, `data-role="background"`)
	}
	s.canvas.Gtransform(fmt.Sprintf("translate(%g,%g) scale(%g)", view.Offset.X, view.Offset.Y, s.scale))
}

func (s *SVGSurface) End() error {
	s.canvas.Gend()
	s.canvas.End()
	return s.w.Flush()
}

func (s *SVGSurface) Group(id string, st Style) {
	attrs := s.attrs(st)
	if id != "" {
		attrs = append([]string{`id="` + html.EscapeString(id) + `"`}, attrs...)
	}
	s.canvas.Group(attrs...)
}

func (s *SVGSurface) EndGroup() {
	s.canvas.Gend()
}

func (s *SVGSurface) Rect(r geometry.Rect, radius float64, st Style) {
	if radius > 0 {
		s.canvas.Roundrect(r.X, r.Y, r.Width, r.Height, radius, radius, s.attrs(st)...)
		return
	}
	s.canvas.Rect(r.X, r.Y, r.Width, r.Height, s.attrs(st)...)
}

func (s *SVGSurface) Circle(c geometry.Point, r float64, st Style) {
	s.canvas.Circle(c.X, c.Y, r, s.attrs(st)...)
}

func (s *SVGSurface) Line(a, b geometry.Point, st Style) {
	s.canvas.Line(a.X, a.Y, b.X, b.Y, s.attrs(st)...)
}

func (s *SVGSurface) Curve(c Cubic, st Style) {
	d := fmt.Sprintf("M %.2f %.2f C %.2f %.2f, %.2f %.2f, %.2f %.2f",
		c.P0.X, c.P0.Y, c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.P3.X, c.P3.Y)
	if st.Fill == "" {
		st.Fill = "none"
	}
	s.canvas.Path(d, s.attrs(st)...)
}

func (s *SVGSurface) Polygon(pts []geometry.Point, st Style) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	s.canvas.Polygon(xs, ys, s.attrs(st)...)
}

func (s *SVGSurface) Text(p geometry.Point, text string, st Style) {
	if st.MaxWidth > 0 && st.FontSize > 0 {
		// rough average glyph width of 0.6em
		maxChars := int(st.MaxWidth * s.scale / (st.FontSize * 0.6))
		text = truncate(text, maxChars)
	}
	s.canvas.Text(p.X, p.Y, text, s.attrs(st)...)
}

// attrs converts a Style into svgo arguments: one inline style string plus
// name="value" attributes.
func (s *SVGSurface) attrs(st Style) []string {
	var css []string
	add := func(k, v string) {
		if v != "" {
			css = append(css, k+":"+v)
		}
	}
	if st.Invisible {
		add("fill", "none")
		add("stroke", "transparent")
		add("pointer-events", "stroke")
	} else {
		add("fill", st.Fill)
		add("stroke", st.Stroke)
	}
	if st.StrokeWidth > 0 {
		add("stroke-width", fmt.Sprintf("%g", st.StrokeWidth/s.scale))
	}
	if st.Dash != "" {
		add("stroke-dasharray", st.Dash)
	}
	if st.Opacity > 0 && st.Opacity < 1 {
		add("opacity", fmt.Sprintf("%g", st.Opacity))
	}
	if st.FontSize > 0 {
		add("font-size", fmt.Sprintf("%gpx", st.FontSize/s.scale))
		add("font-family", "Inter, sans-serif")
	}
	add("text-anchor", st.TextAnchor)

	var out []string
	if len(css) > 0 {
		out = append(out, strings.Join(css, ";"))
	}
	if st.Class != "" {
		out = append(out, `class="`+html.EscapeString(st.Class)+`"`)
	}
	for _, k := range slices.Sorted(maps.Keys(st.Data)) {
		out = append(out, fmt.Sprintf(`data-%s="%s"`, k, html.EscapeString(st.Data[k])))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
