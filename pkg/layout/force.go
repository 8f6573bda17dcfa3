package layout

import (
	"math"
	"math/rand/v2"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// ForceDirectedLayout is a Fruchterman-Reingold simulation over node
// centers followed by an overlap removal pass.
type ForceDirectedLayout struct {
	config Config
}

func (fdl *ForceDirectedLayout) Positions(nodes []*graph.Node) map[graph.NodeID]geometry.Point {
	positions := make(map[graph.NodeID]geometry.Point, len(nodes))
	if len(nodes) == 0 {
		return positions
	}
	if len(nodes) == 1 {
		positions[nodes[0].ID] = fdl.config.Origin
		return positions
	}

	cell := cellSize(nodes, fdl.config.Gap)
	side := math.Ceil(math.Sqrt(float64(len(nodes)))) * math.Max(cell.Width, cell.Height) * 1.5
	rng := rand.New(rand.NewPCG(fdl.config.Seed, fdl.config.Seed^0x9e3779b97f4a7c15))

	centers := make([]geometry.Point, len(nodes))
	for i := range nodes {
		centers[i] = geometry.Pt(rng.Float64()*side, rng.Float64()*side)
	}

	index := make(map[graph.NodeID]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	adj := adjacency(nodes)

	k := math.Sqrt(side * side / float64(len(nodes)))
	temperature := side / 10
	iterations := fdl.config.Iterations

	for iter := 0; iter < iterations; iter++ {
		forces := make([]geometry.Point, len(nodes))

		// repulsion between every pair
		for i := range centers {
			for j := i + 1; j < len(centers); j++ {
				d := centers[i].Sub(centers[j])
				dist := math.Max(math.Hypot(d.X, d.Y), 0.01)
				f := d.Scale(k * k / dist / dist)
				forces[i] = forces[i].Add(f)
				forces[j] = forces[j].Sub(f)
			}
		}

		// attraction along connections
		for i, n := range nodes {
			for _, to := range adj[n.ID] {
				j := index[to]
				d := centers[i].Sub(centers[j])
				dist := math.Hypot(d.X, d.Y)
				if dist < 0.01 {
					continue
				}
				forces[i] = forces[i].Sub(d.Scale(dist / k))
			}
		}

		cool := 1 - float64(iter)/float64(iterations)
		for i, f := range forces {
			mag := math.Hypot(f.X, f.Y)
			if mag == 0 {
				continue
			}
			step := math.Min(mag, temperature) * cool
			centers[i] = centers[i].Add(f.Scale(step / mag))
		}
		temperature *= 0.95
	}

	separate(nodes, centers, fdl.config.Gap)

	// shift so the bounding box starts at Origin
	minX, minY := math.Inf(1), math.Inf(1)
	for i, n := range nodes {
		minX = math.Min(minX, centers[i].X-n.Geometry.Width/2)
		minY = math.Min(minY, centers[i].Y-n.Geometry.Height/2)
	}
	for i, n := range nodes {
		positions[n.ID] = geometry.Pt(
			fdl.config.Origin.X+centers[i].X-n.Geometry.Width/2-minX,
			fdl.config.Origin.Y+centers[i].Y-n.Geometry.Height/2-minY,
		)
	}
	return positions
}

// separate pushes overlapping nodes apart along the axis of least overlap
// until no pair overlaps or the pass budget runs out.
func separate(nodes []*graph.Node, centers []geometry.Point, gap float64) {
	for pass := 0; pass < 100; pass++ {
		moved := false
		for i := range nodes {
			for j := i + 1; j < len(nodes); j++ {
				d := centers[j].Sub(centers[i])
				needX := (nodes[i].Geometry.Width+nodes[j].Geometry.Width)/2 + gap
				needY := (nodes[i].Geometry.Height+nodes[j].Geometry.Height)/2 + gap
				overX := needX - math.Abs(d.X)
				overY := needY - math.Abs(d.Y)
				if overX <= 0 || overY <= 0 {
					continue
				}
				moved = true
				if overX < overY {
					push := geometry.Pt(math.Copysign(overX/2, d.X), 0)
					if d.X == 0 {
						push.X = overX / 2
					}
					centers[i] = centers[i].Sub(push)
					centers[j] = centers[j].Add(push)
				} else {
					push := geometry.Pt(0, math.Copysign(overY/2, d.Y))
					if d.Y == 0 {
						push.Y = overY / 2
					}
					centers[i] = centers[i].Sub(push)
					centers[j] = centers[j].Add(push)
				}
			}
		}
		if !moved {
			return
		}
	}
}
