package layout

import (
	"math"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// CircularLayout arranges nodes evenly around a circle large enough that
// neighbours do not overlap.
type CircularLayout struct {
	config Config
}

func (cl *CircularLayout) Positions(nodes []*graph.Node) map[graph.NodeID]geometry.Point {
	positions := make(map[graph.NodeID]geometry.Point, len(nodes))
	if len(nodes) == 0 {
		return positions
	}
	if len(nodes) == 1 {
		positions[nodes[0].ID] = cl.config.Origin
		return positions
	}

	cell := cellSize(nodes, cl.config.Gap)
	step := math.Hypot(cell.Width, cell.Height)
	radius := math.Max(step*float64(len(nodes))/(2*math.Pi), step)
	center := cl.config.Origin.Add(geometry.Pt(radius+cell.Width/2, radius+cell.Height/2))

	angleStep := 2 * math.Pi / float64(len(nodes))
	for i, n := range nodes {
		// start at twelve o'clock
		angle := float64(i)*angleStep - math.Pi/2
		c := center.Add(geometry.Pt(radius*math.Cos(angle), radius*math.Sin(angle)))
		positions[n.ID] = geometry.Pt(c.X-n.Geometry.Width/2, c.Y-n.Geometry.Height/2)
	}
	return positions
}
