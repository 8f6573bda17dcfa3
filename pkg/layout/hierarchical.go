package layout

import (
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// HierarchicalLayout puts nodes without incoming connections on the first
// row and each breadth-first level below the previous one.
type HierarchicalLayout struct {
	config Config
}

// Levels groups node ids by breadth-first depth from the roots. Nodes not
// reachable from any root join the last level.
func Levels(nodes []*graph.Node) [][]graph.NodeID {
	if len(nodes) == 0 {
		return nil
	}
	in := make(map[graph.NodeID]bool, len(nodes))
	for _, n := range nodes {
		in[n.ID] = true
	}
	incoming := make(map[graph.NodeID]int, len(nodes))
	out := make(map[graph.NodeID][]graph.NodeID, len(nodes))
	for _, n := range nodes {
		for _, to := range n.Connections {
			if in[to] && to != n.ID {
				incoming[to]++
				out[n.ID] = append(out[n.ID], to)
			}
		}
	}

	var roots []graph.NodeID
	for _, n := range nodes {
		if incoming[n.ID] == 0 {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		// every node sits on a cycle
		roots = []graph.NodeID{nodes[0].ID}
	}

	var levels [][]graph.NodeID
	visited := make(map[graph.NodeID]bool, len(nodes))
	for _, id := range roots {
		visited[id] = true
	}
	current := roots
	for len(current) > 0 {
		levels = append(levels, current)
		var next []graph.NodeID
		for _, id := range current {
			for _, to := range out[id] {
				if !visited[to] {
					visited[to] = true
					next = append(next, to)
				}
			}
		}
		current = next
	}

	for _, n := range nodes {
		if !visited[n.ID] {
			levels[len(levels)-1] = append(levels[len(levels)-1], n.ID)
		}
	}
	return levels
}

func (hl *HierarchicalLayout) Positions(nodes []*graph.Node) map[graph.NodeID]geometry.Point {
	positions := make(map[graph.NodeID]geometry.Point, len(nodes))
	cell := cellSize(nodes, hl.config.Gap)
	levels := Levels(nodes)

	widest := 0
	for _, level := range levels {
		widest = max(widest, len(level))
	}
	for row, level := range levels {
		// center shorter rows under the widest one
		indent := float64(widest-len(level)) * cell.Width / 2
		for col, id := range level {
			positions[id] = geometry.Pt(
				hl.config.Origin.X+indent+float64(col)*cell.Width,
				hl.config.Origin.Y+float64(row)*cell.Height,
			)
		}
	}
	return positions
}
