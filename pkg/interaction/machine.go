package interaction

import (
	"sync"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// CommitKind says what a finished gesture changed.
type CommitKind int

const (
	CommitGeometry CommitKind = iota
	CommitConnection
)

// Commit is the persisted delta of one finished gesture.
type Commit struct {
	Kind   CommitKind
	Node   *graph.Node // state after the gesture
	Fields []string    // persisted fields that changed
	Target graph.NodeID
}

// Committer receives finished gestures. Calls must not block on I/O.
type Committer interface {
	Commit(c Commit)
}

// CommitterFunc adapts a function to the Committer interface.
type CommitterFunc func(Commit)

// Commit calls f(c).
func (f CommitterFunc) Commit(c Commit) { f(c) }

// Result reports how a gesture ended.
type Result struct {
	Gesture   StateKind    `json:"gesture"`
	NodeID    graph.NodeID `json:"nodeId,omitempty"`
	Clicked   bool         `json:"clicked"`
	Committed bool         `json:"committed"`
	Connected graph.NodeID `json:"connected,omitempty"`
}

// Machine drives one canvas's gesture state. The graph store and viewport
// are mutated optimistically while the pointer moves; the committer sees the
// delta once the gesture ends.
type Machine struct {
	mu        sync.Mutex
	state     State
	store     *graph.Store
	view      *viewport.Controller
	resolver  *anchor.Resolver
	committer Committer
	log       logging.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithCommitter sets where finished gestures are delivered.
func WithCommitter(c Committer) Option {
	return func(m *Machine) { m.committer = c }
}

// WithLogger sets the machine logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// NewMachine returns an idle machine.
func NewMachine(store *graph.Store, view *viewport.Controller, resolver *anchor.Resolver, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		view:      view,
		resolver:  resolver,
		committer: CommitterFunc(func(Commit) {}),
		log:       logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a copy of the current gesture state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) begin(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Active() {
		return ErrGestureActive
	}
	m.state = s
	m.log.Debug("gesture started",
		logging.Gesture(s.Kind.String()),
		logging.NodeID(string(s.NodeID)))
	return nil
}

// BeginPan starts panning the viewport from a client-space point.
func (m *Machine) BeginPan(client geometry.Point) error {
	return m.begin(State{
		Kind:         Panning,
		StartPointer: client,
		StartOffset:  m.view.View().Offset,
	})
}

// BeginDrag starts moving a node. The node is raised above the others.
func (m *Machine) BeginDrag(id graph.NodeID, client geometry.Point) error {
	n, ok := m.store.Get(id)
	if !ok {
		return ErrNoTarget
	}
	if err := m.begin(State{
		Kind:          DraggingNode,
		NodeID:        id,
		StartPointer:  client,
		StartGeometry: n.Geometry,
	}); err != nil {
		return err
	}
	return m.store.BringToFront(id)
}

// BeginResize starts resizing a node from its bottom-right handle.
func (m *Machine) BeginResize(id graph.NodeID, client geometry.Point) error {
	n, ok := m.store.Get(id)
	if !ok {
		return ErrNoTarget
	}
	return m.begin(State{
		Kind:          ResizingNode,
		NodeID:        id,
		StartPointer:  client,
		StartGeometry: n.Geometry,
	})
}

// BeginConnection starts drawing an edge from the given anchor of a node.
func (m *Machine) BeginConnection(id graph.NodeID, side anchor.Side, client geometry.Point) error {
	n, ok := m.store.Get(id)
	if !ok {
		return ErrNoTarget
	}
	origin, ok := anchor.AnchorOf(n, side)
	if !ok {
		return ErrNoTarget
	}
	return m.begin(State{
		Kind:         DrawingConnection,
		NodeID:       id,
		StartPointer: client,
		Origin:       origin,
		Pointer:      origin.Point,
	})
}

// Move updates the active gesture for a new client-space pointer position.
// Deltas are always applied to the values captured when the gesture began.
func (m *Machine) Move(client geometry.Point) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.apply(client)
	return m.state, err
}

// apply must be called with m.mu held.
func (m *Machine) apply(client geometry.Point) error {
	s := &m.state
	delta := client.Sub(s.StartPointer)
	if delta != (geometry.Point{}) {
		s.Moved = true
	}

	switch s.Kind {
	case Panning:
		m.view.SetOffset(s.StartOffset.Add(delta))
	case DraggingNode:
		d := delta.Div(m.view.Scale())
		_, err := m.store.UpdateNode(s.NodeID, graph.MoveTo(s.StartGeometry.Origin().Add(d)))
		return err
	case ResizingNode:
		d := delta.Div(m.view.Scale())
		size := geometry.Size{Width: s.StartGeometry.Width + d.X, Height: s.StartGeometry.Height + d.Y}
		_, err := m.store.UpdateNode(s.NodeID, graph.ResizeTo(size))
		return err
	case DrawingConnection:
		s.Pointer = m.view.ScreenToCanvas(client.X, client.Y)
		s.Snap, s.Snapped = m.resolver.Nearest(m.store, s.Pointer, s.NodeID)
	}
	return nil
}

// End finishes the active gesture at a client-space point, commits its
// delta and returns to Idle. The machine is Idle afterwards even when an
// error is returned.
func (m *Machine) End(client geometry.Point) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	res := Result{Gesture: s.Kind, NodeID: s.NodeID}
	if !s.Active() {
		return res, nil
	}
	defer func() { m.state = State{} }()

	if err := m.apply(client); err != nil {
		return res, err
	}
	s = m.state

	switch s.Kind {
	case DraggingNode:
		if !s.Moved {
			res.Clicked = true
			return res, m.store.Select(s.NodeID)
		}
		res.Committed = m.commitNode(s.NodeID, CommitGeometry, []string{graph.FieldX, graph.FieldY}, "")
	case ResizingNode:
		if s.Moved {
			res.Committed = m.commitNode(s.NodeID, CommitGeometry, []string{graph.FieldWidth, graph.FieldHeight}, "")
		}
	case DrawingConnection:
		if !s.Snapped {
			m.log.Debug("connection discarded", logging.NodeID(string(s.NodeID)))
			return res, nil
		}
		added, err := m.store.Connect(s.NodeID, s.Snap.NodeID)
		if err != nil {
			return res, err
		}
		if added {
			res.Connected = s.Snap.NodeID
			res.Committed = m.commitNode(s.NodeID, CommitConnection, []string{graph.FieldConnections}, s.Snap.NodeID)
		}
	}
	return res, nil
}

func (m *Machine) commitNode(id graph.NodeID, kind CommitKind, fields []string, target graph.NodeID) bool {
	n, ok := m.store.Get(id)
	if !ok {
		return false
	}
	m.committer.Commit(Commit{Kind: kind, Node: n, Fields: fields, Target: target})
	return true
}

// Cancel abandons the active gesture, restoring the node or viewport to
// where it was when the gesture began. Nothing is committed.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	m.state = State{}
	switch s.Kind {
	case Panning:
		m.view.SetOffset(s.StartOffset)
	case DraggingNode, ResizingNode:
		if _, err := m.store.SetGeometry(s.NodeID, s.StartGeometry); err != nil {
			m.log.Warn("cancel could not restore node", logging.NodeID(string(s.NodeID)), logging.Error(err))
		}
	}
}
