package render

import (
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// Scene is one frame's worth of canvas state.
type Scene struct {
	Width, Height float64
	View          viewport.View
	Nodes         []*graph.Node // bottom-most first
	Edges         []Edge
	Gesture       interaction.State
	Handlers      interaction.NodeHandlers
}

// Painter draws scenes with a node registry and a connection renderer.
type Painter struct {
	Nodes       *Registry
	Connections *ConnectionRenderer
}

// NewPainter returns a painter using the built-in renderers.
func NewPainter(m Metrics) *Painter {
	return &Painter{Nodes: NewRegistry(m), Connections: NewConnectionRenderer()}
}

// Paint draws edges, then nodes in z order, then the connection preview.
// Nodes of unregistered kinds are skipped.
func (p *Painter) Paint(s Surface, sc Scene) error {
	s.Begin(sc.Width, sc.Height, sc.View)

	s.Group("edges", Style{Class: "edges"})
	for _, e := range sc.Edges {
		p.Connections.Draw(s, e, sc.View.Scale)
	}
	s.EndGroup()

	s.Group("nodes", Style{Class: "nodes"})
	for _, n := range sc.Nodes {
		_ = p.Nodes.Draw(s, NodeProps{
			Node:     n,
			Selected: n.Selected,
			Scale:    sc.View.Scale,
			Handlers: sc.Handlers,
		})
	}
	s.EndGroup()

	if g := sc.Gesture; g.Kind == interaction.DrawingConnection {
		p.Connections.DrawPreview(s, g.Origin.Point, g.PreviewEnd(), g.Snapped, sc.View.Scale)
	}
	return s.End()
}

// HitTest resolves a canvas point against the scene's nodes.
func (p *Painter) HitTest(sc Scene, pt geometry.Point) interaction.Target {
	return p.Nodes.HitTest(sc.Nodes, pt, sc.View.Scale)
}
