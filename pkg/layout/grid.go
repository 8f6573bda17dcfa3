package layout

import (
	"math"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// GridLayout places nodes row by row in a near-square grid.
type GridLayout struct {
	config Config
}

func (g *GridLayout) Positions(nodes []*graph.Node) map[graph.NodeID]geometry.Point {
	positions := make(map[graph.NodeID]geometry.Point, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	cell := cellSize(nodes, g.config.Gap)
	for i, n := range nodes {
		col, row := i%cols, i/cols
		positions[n.ID] = geometry.Pt(
			g.config.Origin.X+float64(col)*cell.Width,
			g.config.Origin.Y+float64(row)*cell.Height,
		)
	}
	return positions
}
