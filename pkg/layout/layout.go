// Package layout computes node origins for automatic canvas arrangement.
// Only top-level nodes are arranged; group children follow their group.
package layout

import (
	"fmt"
	"math"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// Algorithm names a layout strategy.
type Algorithm string

const (
	Grid         Algorithm = "grid"
	Circular     Algorithm = "circular"
	Hierarchical Algorithm = "hierarchical"
	Force        Algorithm = "force"
)

// Algorithms lists every supported strategy.
func Algorithms() []Algorithm {
	return []Algorithm{Grid, Circular, Hierarchical, Force}
}

// Config configures layout parameters. Distances are canvas units.
type Config struct {
	Origin     geometry.Point // top-left of the arranged area
	Gap        float64        // minimum space between nodes
	Iterations int            // force-directed iterations
	Seed       uint64         // force-directed initial placement
}

// DefaultConfig returns the defaults used by the canvas.
func DefaultConfig() Config {
	return Config{Gap: 60, Iterations: 50, Seed: 1}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Gap <= 0 {
		c.Gap = d.Gap
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	return c
}

// Layout places a set of nodes. Positions are node origins.
type Layout interface {
	Positions(nodes []*graph.Node) map[graph.NodeID]geometry.Point
}

// New returns the layout for alg.
func New(alg Algorithm, cfg Config) (Layout, error) {
	cfg = cfg.withDefaults()
	switch alg {
	case Grid:
		return &GridLayout{config: cfg}, nil
	case Circular:
		return &CircularLayout{config: cfg}, nil
	case Hierarchical:
		return &HierarchicalLayout{config: cfg}, nil
	case Force:
		return &ForceDirectedLayout{config: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown layout algorithm %q", alg)
	}
}

// Arrange lays out the top-level nodes with l and moves every group child
// by its group's displacement. Nodes in a parent cycle stay where they are.
// Only nodes whose origin changes are returned.
func Arrange(l Layout, nodes []*graph.Node) map[graph.NodeID]geometry.Point {
	byID := make(map[graph.NodeID]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var roots []*graph.Node
	for _, n := range nodes {
		if _, ok := byID[n.ParentGroupID]; !ok {
			roots = append(roots, n)
		}
	}
	placed := l.Positions(roots)

	// displacement of each node, resolved through its parent chain
	delta := make(map[graph.NodeID]geometry.Point, len(nodes))
	const visiting = -1
	state := make(map[graph.NodeID]int, len(nodes))
	var resolve func(n *graph.Node) geometry.Point
	resolve = func(n *graph.Node) geometry.Point {
		if d, ok := delta[n.ID]; ok {
			return d
		}
		if state[n.ID] == visiting {
			return geometry.Point{}
		}
		state[n.ID] = visiting

		var d geometry.Point
		if p, ok := placed[n.ID]; ok {
			d = p.Sub(n.Geometry.Origin())
		} else if parent, ok := byID[n.ParentGroupID]; ok {
			d = resolve(parent)
		}
		delta[n.ID] = d
		return d
	}

	out := make(map[graph.NodeID]geometry.Point)
	for _, n := range nodes {
		d := resolve(n)
		if d.X == 0 && d.Y == 0 {
			continue
		}
		out[n.ID] = n.Geometry.Origin().Add(d)
	}
	return out
}

// cellSize is the largest node footprint plus the gap.
func cellSize(nodes []*graph.Node, gap float64) geometry.Size {
	var s geometry.Size
	for _, n := range nodes {
		s.Width = math.Max(s.Width, n.Geometry.Width)
		s.Height = math.Max(s.Height, n.Geometry.Height)
	}
	return geometry.Size{Width: s.Width + gap, Height: s.Height + gap}
}

// adjacency returns undirected neighbour lists restricted to nodes, in
// node order so float accumulation is reproducible.
func adjacency(nodes []*graph.Node) map[graph.NodeID][]graph.NodeID {
	in := make(map[graph.NodeID]bool, len(nodes))
	for _, n := range nodes {
		in[n.ID] = true
	}
	type pair struct{ a, b graph.NodeID }
	seen := make(map[pair]bool)
	adj := make(map[graph.NodeID][]graph.NodeID, len(nodes))
	link := func(a, b graph.NodeID) {
		if seen[pair{a, b}] {
			return
		}
		seen[pair{a, b}] = true
		adj[a] = append(adj[a], b)
	}
	for _, n := range nodes {
		for _, to := range n.Connections {
			if !in[to] || to == n.ID {
				continue
			}
			link(n.ID, to)
			link(to, n.ID)
		}
	}
	return adj
}
