package render

import (
	"math"
	"strings"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// Default cell size in screen pixels used to map the canvas onto a terminal.
const (
	DefaultCellWidth  = 8.0
	DefaultCellHeight = 16.0
)

// Cell is one character of a CellSurface.
type Cell struct {
	Rune  rune
	Class string
}

// CellSurface rasterizes a scene into a character grid for terminals.
// Style.Class is carried into each written cell so callers can color it.
type CellSurface struct {
	cols, rows   int
	cellW, cellH float64
	cells        []Cell
	view         viewport.View
}

// NewCellSurface creates a cols×rows grid. Each cell covers cellW×cellH
// screen pixels.
func NewCellSurface(cols, rows int, cellW, cellH float64) *CellSurface {
	if cellW <= 0 {
		cellW = DefaultCellWidth
	}
	if cellH <= 0 {
		cellH = DefaultCellHeight
	}
	cols, rows = max(cols, 0), max(rows, 0)
	c := &CellSurface{cols: cols, rows: rows, cellW: cellW, cellH: cellH}
	c.Begin(0, 0, viewport.DefaultView())
	return c
}

// Size returns the grid dimensions in cells.
func (c *CellSurface) Size() (cols, rows int) {
	return c.cols, c.rows
}

func (c *CellSurface) Begin(_, _ float64, view viewport.View) {
	c.view = view
	if c.view.Scale <= 0 {
		c.view.Scale = 1
	}
	c.cells = make([]Cell, c.cols*c.rows)
	for i := range c.cells {
		c.cells[i] = Cell{Rune: ' '}
	}
}

func (c *CellSurface) End() error { return nil }

func (c *CellSurface) Group(string, Style) {}
func (c *CellSurface) EndGroup()           {}

func (c *CellSurface) toCell(p geometry.Point) (int, int) {
	sx := p.X*c.view.Scale + c.view.Offset.X
	sy := p.Y*c.view.Scale + c.view.Offset.Y
	return int(math.Floor(sx / c.cellW)), int(math.Floor(sy / c.cellH))
}

func (c *CellSurface) set(x, y int, r rune, class string) {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return
	}
	c.cells[y*c.cols+x] = Cell{Rune: r, Class: class}
}

// At returns the cell at column x, row y.
func (c *CellSurface) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return Cell{}
	}
	return c.cells[y*c.cols+x]
}

func (c *CellSurface) Rect(r geometry.Rect, _ float64, st Style) {
	if st.Invisible {
		return
	}
	x0, y0 := c.toCell(r.Origin())
	x1, y1 := c.toCell(geometry.Pt(r.Right(), r.Bottom()))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	h, v, tl, tr, bl, br := '─', '│', '┌', '┐', '└', '┘'
	switch {
	case st.Class == "selected":
		h, v, tl, tr, bl, br = '═', '║', '╔', '╗', '╚', '╝'
	case st.Dash != "":
		h, v = '┄', '┆'
	}

	if st.Fill != "" && st.Fill != "none" {
		for y := y0 + 1; y < y1; y++ {
			for x := x0 + 1; x < x1; x++ {
				c.set(x, y, ' ', st.Class)
			}
		}
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, h, st.Class)
		c.set(x, y1, h, st.Class)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, v, st.Class)
		c.set(x1, y, v, st.Class)
	}
	c.set(x0, y0, tl, st.Class)
	c.set(x1, y0, tr, st.Class)
	c.set(x0, y1, bl, st.Class)
	c.set(x1, y1, br, st.Class)
}

func (c *CellSurface) Circle(p geometry.Point, _ float64, st Style) {
	if st.Invisible {
		return
	}
	x, y := c.toCell(p)
	c.set(x, y, '●', st.Class)
}

func (c *CellSurface) Line(a, b geometry.Point, st Style) {
	c.plot([]geometry.Point{a, b}, st)
}

func (c *CellSurface) Curve(cv Cubic, st Style) {
	c.plot(cv.Sample(64), st)
}

// plot walks the polyline through pts marking every cell it crosses.
func (c *CellSurface) plot(pts []geometry.Point, st Style) {
	if st.Invisible || len(pts) < 2 {
		return
	}
	r := '·'
	if st.Dash != "" {
		r = '∙'
	}
	for i := 1; i < len(pts); i++ {
		x0, y0 := c.toCell(pts[i-1])
		x1, y1 := c.toCell(pts[i])
		steps := max(abs(x1-x0), abs(y1-y0))
		for s := 0; s <= steps; s++ {
			t := 0.0
			if steps > 0 {
				t = float64(s) / float64(steps)
			}
			x := x0 + int(math.Round(float64(x1-x0)*t))
			y := y0 + int(math.Round(float64(y1-y0)*t))
			c.set(x, y, r, st.Class)
		}
	}
}

// Polygon marks the first point with an arrow glyph pointing away from the
// centroid of the remaining points.
func (c *CellSurface) Polygon(pts []geometry.Point, st Style) {
	if st.Invisible || len(pts) == 0 {
		return
	}
	tip := pts[0]
	var base geometry.Point
	for _, p := range pts[1:] {
		base = base.Add(p)
	}
	if len(pts) > 1 {
		base = base.Div(float64(len(pts) - 1))
	}
	d := tip.Sub(base)
	glyph := '▶'
	switch {
	case math.Abs(d.X) >= math.Abs(d.Y) && d.X < 0:
		glyph = '◀'
	case math.Abs(d.Y) > math.Abs(d.X) && d.Y > 0:
		glyph = '▼'
	case math.Abs(d.Y) > math.Abs(d.X):
		glyph = '▲'
	}
	x, y := c.toCell(tip)
	c.set(x, y, glyph, st.Class)
}

func (c *CellSurface) Text(p geometry.Point, s string, st Style) {
	if st.Invisible {
		return
	}
	runes := []rune(s)
	if st.MaxWidth > 0 {
		n := int(st.MaxWidth * c.view.Scale / c.cellW)
		runes = []rune(truncate(s, n))
		if n <= 0 {
			return
		}
	}
	x, y := c.toCell(p)
	if st.TextAnchor == "middle" {
		x -= len(runes) / 2
	}
	for i, r := range runes {
		c.set(x+i, y, r, st.Class)
	}
}

// Rows returns the grid row by row.
func (c *CellSurface) Rows() [][]Cell {
	out := make([][]Cell, c.rows)
	for y := range out {
		out[y] = c.cells[y*c.cols : (y+1)*c.cols]
	}
	return out
}

// String renders the grid as plain text, one line per row.
func (c *CellSurface) String() string {
	var b strings.Builder
	for y := 0; y < c.rows; y++ {
		for x := 0; x < c.cols; x++ {
			b.WriteRune(c.cells[y*c.cols+x].Rune)
		}
		if y < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
