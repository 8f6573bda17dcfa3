package canvas

import (
	"bytes"
	"time"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/pools"
	"github.com/dd0wney/strategy-canvas/pkg/render"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// Snapshot is a consistent read of the whole canvas.
type Snapshot struct {
	ID       string            `json:"id"`
	Nodes    []*graph.Node     `json:"nodes"`
	Edges    []render.Edge     `json:"edges"`
	View     viewport.View     `json:"view"`
	Gesture  interaction.State `json:"gesture"`
	Selected graph.NodeID      `json:"selected,omitempty"`
	Pending  int               `json:"pending"`
}

// Snapshot returns nodes in insertion order with their resolved edges.
func (c *Canvas) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	nodes := c.store.Nodes()
	selected, _ := c.store.Selected()
	return Snapshot{
		ID:       c.id,
		Nodes:    nodes,
		Edges:    c.edges(nodes),
		View:     c.view.View(),
		Gesture:  c.machine.State(),
		Selected: selected,
		Pending:  c.adapter.Pending(),
	}
}

// RenderSVG draws the current frame and returns it with its entity tag.
func (c *Canvas) RenderSVG() ([]byte, string, error) {
	c.mu.Lock()
	sc := c.scene()
	c.mu.Unlock()

	start := time.Now()
	buf := pools.GetBuffer()
	defer pools.PutBuffer(buf)
	if err := c.painter.Paint(render.NewSVGSurface(buf), sc); err != nil {
		return nil, "", err
	}
	if c.metrics != nil {
		c.metrics.RecordRender("svg", time.Since(start))
	}
	body := bytes.Clone(buf.Bytes())
	return body, render.ETag(body), nil
}

// RenderCells draws the current frame onto a terminal surface.
func (c *Canvas) RenderCells(s *render.CellSurface) error {
	c.mu.Lock()
	sc := c.scene()
	c.mu.Unlock()

	start := time.Now()
	if err := c.painter.Paint(s, sc); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordRender("cells", time.Since(start))
	}
	return nil
}
