package canvas

import (
	"fmt"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
)

// Node returns a copy of the node with the given id.
func (c *Canvas) Node(id graph.NodeID) (*graph.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(id)
}

// Nodes returns copies of every node in insertion order.
func (c *Canvas) Nodes() []*graph.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Nodes()
}

// Children returns copies of the nodes whose parent group is groupID, in
// insertion order. Children of a deleted group are still reported.
func (c *Canvas) Children(groupID graph.NodeID) []*graph.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Children(groupID)
}

// AddNode places a new node of the given kind at a randomized position
// near the top-left of the visible area.
func (c *Canvas) AddNode(kind graph.NodeKind, payload graph.Payload) (*graph.Node, error) {
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	visible := c.view.VisibleRect(c.settings.Width, c.settings.Height)
	jitter := c.settings.SpawnJitter / c.view.Scale()
	margin := 100 / c.view.Scale()
	at := geometry.Pt(
		visible.X+margin+c.rng.Float64()*jitter,
		visible.Y+margin+c.rng.Float64()*jitter,
	)
	return c.addNode(kind, payload, at)
}

// AddNodeAtPosition places a new node with its origin at (x, y) in canvas units.
func (c *Canvas) AddNodeAtPosition(kind graph.NodeKind, payload graph.Payload, x, y float64) (*graph.Node, error) {
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	return c.addNode(kind, payload, geometry.Pt(x, y))
}

// DropNode places a new node at a screen drop point.
func (c *Canvas) DropNode(kind graph.NodeKind, payload graph.Payload, clientX, clientY float64) (*graph.Node, error) {
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	return c.addNode(kind, payload, c.view.ScreenToCanvas(clientX, clientY))
}

func (c *Canvas) addNode(kind graph.NodeKind, payload graph.Payload, at geometry.Point) (*graph.Node, error) {
	n, err := c.store.AddNode(&graph.Node{
		Kind:     kind,
		Geometry: geometry.R(at.X, at.Y, c.settings.DefaultWidth, c.settings.DefaultHeight),
		Payload:  payload.Clone(),
	})
	if err != nil {
		return nil, err
	}
	c.queueCreate(n)
	c.logger.Debug("node added", logging.NodeID(string(n.ID)), logging.Kind(kind.String()))
	return n, nil
}

// RemoveNode deletes a node and strips it from every other node's
// connections. Children of a removed group keep their parent id.
func (c *Canvas) RemoveNode(id graph.NodeID) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	return c.removeNode(id)
}

func (c *Canvas) removeNode(id graph.NodeID) error {
	stripped, err := c.store.RemoveNode(id)
	if err != nil {
		return err
	}
	c.queueDelete(id)
	if orphans := c.store.Children(id); len(orphans) > 0 {
		c.logger.Debug("group removed, children kept",
			logging.NodeID(string(id)), logging.Count(len(orphans)))
	}
	for _, sid := range stripped {
		if n, ok := c.store.Get(sid); ok {
			c.queueUpdate(n, graph.FieldConnections)
		}
	}
	return nil
}

// DeleteSelected removes the selected node. It reports false when nothing
// is selected.
func (c *Canvas) DeleteSelected() (graph.NodeID, bool, error) {
	if err := c.lock(); err != nil {
		return "", false, err
	}
	defer c.mu.Unlock()
	id, ok := c.store.Selected()
	if !ok {
		return "", false, nil
	}
	return id, true, c.removeNode(id)
}

// Select marks id as the only selected node; an empty id clears the selection.
func (c *Canvas) Select(id graph.NodeID) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	return c.store.Select(id)
}

// Rename sets a node's title.
func (c *Canvas) Rename(id graph.NodeID, title string) (*graph.Node, error) {
	return c.Update(id, graph.Rename(title))
}

// UpdatePayload replaces a node's payload.
func (c *Canvas) UpdatePayload(id graph.NodeID, payload graph.Payload) (*graph.Node, error) {
	if payload == nil {
		payload = graph.Payload{}
	}
	return c.Update(id, graph.Patch{Payload: payload})
}

// Reparent moves a node into a group. An empty group id clears the parent.
func (c *Canvas) Reparent(id, group graph.NodeID) (*graph.Node, error) {
	if group != "" {
		g, ok := c.Node(group)
		if !ok {
			return nil, &graph.OpError{Op: "Reparent", NodeID: group, Cause: graph.ErrNodeNotFound}
		}
		if !g.IsGroup() {
			return nil, fmt.Errorf("%w: reparent %s into %s (%s)", ErrNotGroup, id, group, g.Kind)
		}
	}
	return c.Update(id, graph.Reparent(group))
}

// Update applies a partial update and queues the changed fields.
func (c *Canvas) Update(id graph.NodeID, p graph.Patch) (*graph.Node, error) {
	if err := c.lock(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	if p.Empty() {
		n, ok := c.store.Get(id)
		if !ok {
			return nil, &graph.OpError{Op: "Update", NodeID: id, Cause: graph.ErrNodeNotFound}
		}
		return n, nil
	}
	n, err := c.store.UpdateNode(id, p)
	if err != nil {
		return nil, err
	}
	c.queueUpdate(n, p.Fields()...)
	return n, nil
}

// Connect adds the edge from → to. Self and duplicate edges are ignored
// and reported as false.
func (c *Canvas) Connect(from, to graph.NodeID) (bool, error) {
	if err := c.lock(); err != nil {
		return false, err
	}
	defer c.mu.Unlock()
	added, err := c.store.Connect(from, to)
	if err != nil || !added {
		return false, err
	}
	if n, ok := c.store.Get(from); ok {
		c.queueUpdate(n, graph.FieldConnections)
	}
	return true, nil
}

// Disconnect removes the edge from → to.
func (c *Canvas) Disconnect(from, to graph.NodeID) (bool, error) {
	if err := c.lock(); err != nil {
		return false, err
	}
	defer c.mu.Unlock()
	return c.disconnect(from, to)
}

func (c *Canvas) disconnect(from, to graph.NodeID) (bool, error) {
	removed, err := c.store.Disconnect(from, to)
	if err != nil || !removed {
		return false, err
	}
	if n, ok := c.store.Get(from); ok {
		c.queueUpdate(n, graph.FieldConnections)
	}
	return true, nil
}

// DeleteEdgeAt removes the topmost edge under a client point.
func (c *Canvas) DeleteEdgeAt(clientX, clientY float64) (graph.Edge, bool, error) {
	if err := c.lock(); err != nil {
		return graph.Edge{}, false, err
	}
	defer c.mu.Unlock()

	pt := c.view.ScreenToCanvas(clientX, clientY)
	e, ok := c.painter.Connections.HitEdge(c.edges(c.store.Nodes()), pt)
	if !ok {
		return graph.Edge{}, false, nil
	}
	edge := graph.Edge{From: e.From, To: e.To}
	removed, err := c.disconnect(e.From, e.To)
	return edge, removed, err
}

func (c *Canvas) action(id graph.NodeID, action string) error {
	if !c.store.Has(id) {
		return &graph.OpError{Op: "Action", NodeID: id, Cause: graph.ErrNodeNotFound}
	}
	c.publish(pubsub.GraphTopic(c.id), EventNodeAction, ActionEvent{NodeID: id, Action: action})
	if c.onAction != nil {
		c.onAction(id, action)
	}
	return nil
}
