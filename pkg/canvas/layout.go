package canvas

import (
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/layout"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
)

// AutoLayout arranges every node with alg, starting at the top-left of the
// current content. All moves are queued together and one layout.applied
// event is published. It returns the number of nodes moved.
func (c *Canvas) AutoLayout(alg layout.Algorithm) (int, error) {
	if err := c.lock(); err != nil {
		return 0, err
	}
	defer c.mu.Unlock()

	cfg := layout.DefaultConfig()
	if bounds, ok := c.store.Bounds(); ok {
		cfg.Origin = bounds.Origin()
	}
	l, err := layout.New(alg, cfg)
	if err != nil {
		return 0, err
	}

	nodes := c.store.Nodes()
	moved := layout.Arrange(l, nodes)

	updated := make([]*graph.Node, 0, len(moved))
	for _, n := range nodes {
		p, ok := moved[n.ID]
		if !ok {
			continue
		}
		u, err := c.store.UpdateNode(n.ID, graph.MoveTo(geometry.Pt(p.X, p.Y)))
		if err != nil {
			return len(updated), err
		}
		updated = append(updated, u)
	}
	for _, n := range updated {
		c.queueUpdate(n, graph.FieldX, graph.FieldY)
	}

	c.logger.Info("layout applied", logging.String("algorithm", string(alg)), logging.Count(len(updated)))
	c.publish(pubsub.GraphTopic(c.id), EventLayoutApplied, LayoutEvent{Algorithm: string(alg), Moved: len(updated)})
	return len(updated), nil
}
