package render

import (
	"errors"
	"fmt"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
)

var ErrNoRenderer = errors.New("no renderer registered for node kind")

// Registry maps each node kind to its renderer.
type Registry struct {
	renderers map[graph.NodeKind]NodeRenderer
	metrics   Metrics
}

// NewRegistry returns a registry holding the built-in renderer of every kind.
func NewRegistry(m Metrics) *Registry {
	r := &Registry{renderers: make(map[graph.NodeKind]NodeRenderer), metrics: m}
	r.Register(NewGenericRenderer(m))
	r.Register(NewGroupRenderer(m))
	r.Register(NewDocumentAgentRenderer(m))
	r.Register(NewConfigurableAgentRenderer(m))
	return r
}

// Register installs nr for its kind, replacing any previous renderer.
func (r *Registry) Register(nr NodeRenderer) {
	r.renderers[nr.Kind()] = nr
}

// Get returns the renderer for kind.
func (r *Registry) Get(kind graph.NodeKind) (NodeRenderer, error) {
	nr, ok := r.renderers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRenderer, kind)
	}
	return nr, nil
}

// Draw renders one node through its kind's renderer.
func (r *Registry) Draw(s Surface, p NodeProps) error {
	nr, err := r.Get(p.Node.Kind)
	if err != nil {
		return err
	}
	nr.Draw(s, p)
	return nil
}

// HitTest finds what a press at canvas point p lands on. Nodes are given
// bottom-most first and tested top-most first; within a node, interactive
// controls are tested before the drag surface so pressing a control never
// starts a drag. Anchor dots hit within their radius, not their bounding box.
func (r *Registry) HitTest(nodes []*graph.Node, p geometry.Point, scale float64) interaction.Target {
	hit := r.metrics.scaled(scale).AnchorRadius
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		nr, ok := r.renderers[n.Kind]
		if !ok {
			continue
		}
		if a, ok := anchor.At(n, p, hit); ok {
			return interaction.Target{Kind: interaction.TargetAnchor, NodeID: n.ID, Side: a.Side}
		}
		for _, c := range nr.Controls(n, scale) {
			if c.Kind == interaction.TargetAnchor {
				continue
			}
			if c.Bounds.Contains(p) {
				return c.Target(n.ID)
			}
		}
		if n.Geometry.Contains(p) {
			return interaction.Target{Kind: interaction.TargetBody, NodeID: n.ID}
		}
	}
	return interaction.Target{Kind: interaction.TargetBackground}
}
