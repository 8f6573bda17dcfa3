package graph

import (
	"slices"
	"sync"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
)

// EventKind tags a store change notification.
type EventKind int

const (
	NodeAdded EventKind = iota
	NodeUpdated
	NodeRemoved
	EdgeAdded
	EdgeRemoved
	StoreReplaced
)

func (k EventKind) String() string {
	switch k {
	case NodeAdded:
		return "node.added"
	case NodeUpdated:
		return "node.updated"
	case NodeRemoved:
		return "node.removed"
	case EdgeAdded:
		return "edge.added"
	case EdgeRemoved:
		return "edge.removed"
	case StoreReplaced:
		return "store.replaced"
	default:
		return "unknown"
	}
}

// Event describes one completed mutation.
type Event struct {
	Kind   EventKind `json:"kind"`
	NodeID NodeID    `json:"nodeId,omitempty"`
	Target NodeID    `json:"target,omitempty"` // edge events only
	Fields []string  `json:"fields,omitempty"` // NodeUpdated only
}

// Observer is called synchronously after each mutation, outside the store lock.
type Observer func(Event)

// Store holds every node of one canvas. Nodes are kept in insertion order,
// which is also the scan order for anchor snapping.
type Store struct {
	mu        sync.RWMutex
	nodes     map[NodeID]*Node
	order     []NodeID
	nextZ     int
	observers []Observer
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{nodes: make(map[NodeID]*Node)}
}

// Observe registers fn for change notifications.
func (s *Store) Observe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Store) notify(events ...Event) {
	s.mu.RLock()
	obs := slices.Clone(s.observers)
	s.mu.RUnlock()
	for _, e := range events {
		for _, fn := range obs {
			fn(e)
		}
	}
}

// AddNode inserts n and returns a copy of the stored node. An empty ID is
// replaced with a fresh one. Geometry is clamped to the minimum size and
// duplicate or self connections are dropped.
func (s *Store) AddNode(n *Node) (*Node, error) {
	if !n.Kind.Valid() {
		return nil, opErr("AddNode", n.ID, ErrUnknownKind)
	}
	stored := n.Clone()
	if stored.ID == "" {
		stored.ID = NewNodeID()
	}
	if stored.ParentGroupID == stored.ID {
		return nil, opErr("AddNode", stored.ID, ErrSelfParent)
	}
	stored.Geometry = stored.Geometry.Clamped()
	stored.Connections = dedupe(stored.ID, stored.Connections)

	s.mu.Lock()
	if _, exists := s.nodes[stored.ID]; exists {
		s.mu.Unlock()
		return nil, opErr("AddNode", stored.ID, ErrDuplicateNode)
	}
	s.nextZ++
	stored.ZIndex = s.nextZ
	s.nodes[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	out := stored.Clone()
	s.mu.Unlock()

	s.notify(Event{Kind: NodeAdded, NodeID: stored.ID})
	return out, nil
}

func dedupe(self NodeID, ids []NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids))
	for _, id := range ids {
		if id == self || id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Get returns a copy of the node with the given id.
func (s *Store) Get(id NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Has reports whether id exists.
func (s *Store) Has(id NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Nodes returns copies of every node in insertion order.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// ByZ returns copies of every node sorted bottom-most first.
func (s *Store) ByZ() []*Node {
	nodes := s.Nodes()
	slices.SortStableFunc(nodes, func(a, b *Node) int { return a.ZIndex - b.ZIndex })
	return nodes
}

// UpdateNode applies p to the node and returns the updated copy.
func (s *Store) UpdateNode(id NodeID, p Patch) (*Node, error) {
	if p.ParentGroupID != nil && *p.ParentGroupID == id {
		return nil, opErr("UpdateNode", id, ErrSelfParent)
	}

	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return nil, opErr("UpdateNode", id, ErrNodeNotFound)
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Position != nil {
		n.Geometry = n.Geometry.MoveTo(*p.Position)
	}
	if p.Size != nil {
		n.Geometry = n.Geometry.Resize(*p.Size)
	}
	if p.ParentGroupID != nil {
		n.ParentGroupID = *p.ParentGroupID
	}
	if p.Payload != nil {
		n.Payload = p.Payload.Clone()
	}
	out := n.Clone()
	s.mu.Unlock()

	if !p.Empty() {
		s.notify(Event{Kind: NodeUpdated, NodeID: id, Fields: p.Fields()})
	}
	return out, nil
}

// SetGeometry overwrites the node's rect, clamping its size.
func (s *Store) SetGeometry(id NodeID, r geometry.Rect) (*Node, error) {
	pos, size := r.Origin(), r.Size()
	return s.UpdateNode(id, Patch{Position: &pos, Size: &size})
}

// RemoveNode deletes the node and strips its id from every other node's
// connections. It returns the ids of nodes whose connections changed.
// Children that reference the node through ParentGroupID are left as they are.
func (s *Store) RemoveNode(id NodeID) ([]NodeID, error) {
	s.mu.Lock()
	if _, ok := s.nodes[id]; !ok {
		s.mu.Unlock()
		return nil, opErr("RemoveNode", id, ErrNodeNotFound)
	}
	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(o NodeID) bool { return o == id })

	var affected []NodeID
	for _, oid := range s.order {
		n := s.nodes[oid]
		if !n.HasConnection(id) {
			continue
		}
		n.Connections = slices.DeleteFunc(n.Connections, func(c NodeID) bool { return c == id })
		affected = append(affected, oid)
	}
	s.mu.Unlock()

	events := []Event{{Kind: NodeRemoved, NodeID: id}}
	for _, a := range affected {
		events = append(events, Event{Kind: EdgeRemoved, NodeID: a, Target: id})
	}
	s.notify(events...)
	return affected, nil
}

// Connect appends to to from's connections. It reports false without error
// when from == to or the connection already exists. Both nodes must exist.
func (s *Store) Connect(from, to NodeID) (bool, error) {
	if from == to {
		return false, nil
	}

	s.mu.Lock()
	src, ok := s.nodes[from]
	if !ok {
		s.mu.Unlock()
		return false, opErr("Connect", from, ErrNodeNotFound)
	}
	if _, ok := s.nodes[to]; !ok {
		s.mu.Unlock()
		return false, opErr("Connect", to, ErrNodeNotFound)
	}
	if src.HasConnection(to) {
		s.mu.Unlock()
		return false, nil
	}
	src.Connections = append(src.Connections, to)
	s.mu.Unlock()

	s.notify(Event{Kind: EdgeAdded, NodeID: from, Target: to})
	return true, nil
}

// Disconnect removes to from from's connections. It reports whether an edge
// was removed.
func (s *Store) Disconnect(from, to NodeID) (bool, error) {
	s.mu.Lock()
	src, ok := s.nodes[from]
	if !ok {
		s.mu.Unlock()
		return false, opErr("Disconnect", from, ErrNodeNotFound)
	}
	if !src.HasConnection(to) {
		s.mu.Unlock()
		return false, nil
	}
	src.Connections = slices.DeleteFunc(src.Connections, func(c NodeID) bool { return c == to })
	s.mu.Unlock()

	s.notify(Event{Kind: EdgeRemoved, NodeID: from, Target: to})
	return true, nil
}

// Children returns the nodes whose ParentGroupID is groupID, in insertion order.
func (s *Store) Children(groupID NodeID) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Node
	for _, id := range s.order {
		if n := s.nodes[id]; n.ParentGroupID == groupID {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Edges derives the directed edges from every node's connections. Targets
// that no longer exist are skipped.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for _, id := range s.order {
		for _, to := range s.nodes[id].Connections {
			if _, ok := s.nodes[to]; ok {
				out = append(out, Edge{From: id, To: to})
			}
		}
	}
	return out
}

// Select marks id as the only selected node. An empty id clears the selection.
func (s *Store) Select(id NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if _, ok := s.nodes[id]; !ok {
			return opErr("Select", id, ErrNodeNotFound)
		}
	}
	for nid, n := range s.nodes {
		n.Selected = nid == id
	}
	return nil
}

// Selected returns the id of the selected node, if any.
func (s *Store) Selected() (NodeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if s.nodes[id].Selected {
			return id, true
		}
	}
	return "", false
}

// BringToFront raises the node above every other node.
func (s *Store) BringToFront(id NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return opErr("BringToFront", id, ErrNodeNotFound)
	}
	if n.ZIndex == s.nextZ {
		return nil
	}
	s.nextZ++
	n.ZIndex = s.nextZ
	return nil
}

// Replace discards the current contents and hydrates the store from nodes.
// Invalid entries are skipped; the number of nodes loaded is returned.
func (s *Store) Replace(nodes []*Node) int {
	s.mu.Lock()
	s.nodes = make(map[NodeID]*Node, len(nodes))
	s.order = s.order[:0]
	s.nextZ = 0
	for _, n := range nodes {
		if n == nil || n.ID == "" || !n.Kind.Valid() {
			continue
		}
		if _, dup := s.nodes[n.ID]; dup {
			continue
		}
		c := n.Clone()
		c.Geometry = c.Geometry.Clamped()
		c.Connections = dedupe(c.ID, c.Connections)
		c.Selected = false
		s.nextZ++
		c.ZIndex = s.nextZ
		s.nodes[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	loaded := len(s.order)
	s.mu.Unlock()

	s.notify(Event{Kind: StoreReplaced})
	return loaded
}

// Bounds returns the union of every node's rect and false when the store is empty.
func (s *Store) Bounds() (geometry.Rect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r geometry.Rect
	for i, id := range s.order {
		g := s.nodes[id].Geometry
		if i == 0 {
			r = g
			continue
		}
		r = r.Union(g)
	}
	return r, len(s.order) > 0
}
