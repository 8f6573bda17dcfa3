package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

type memRecord struct {
	canvasID string
	node     *graph.Node
}

// MemoryStore is an in-process EntityStore and ViewStore. It can be told
// to fail upcoming calls, which the adapter tests use to exercise retries.
type MemoryStore struct {
	mu      sync.Mutex
	records map[graph.NodeID]memRecord
	order   []graph.NodeID
	views   map[string]viewport.View
	calls   map[string]int
	failN   int
	failErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[graph.NodeID]memRecord),
		views:   make(map[string]viewport.View),
		calls:   make(map[string]int),
	}
}

// FailNext makes the next n calls return err.
func (m *MemoryStore) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failN, m.failErr = n, err
}

// Calls returns how many times op ("create", "update", "delete", "list") was invoked.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Node returns a copy of the stored node.
func (m *MemoryStore) Node(id graph.NodeID) (*graph.Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, false
	}
	return rec.node.Clone(), true
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// begin counts the call and consumes an injected failure. Caller holds mu.
func (m *MemoryStore) begin(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failN > 0 {
		m.failN--
		return m.failErr
	}
	return nil
}

func (m *MemoryStore) CreateNode(ctx context.Context, canvasID string, n *graph.Node) (*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "create"); err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("create node: %w", ErrBadField)
	}
	c := n.Clone()
	if c.ID == "" {
		c.ID = graph.NewNodeID()
	}
	c.Geometry = c.Geometry.Clamped()
	if _, ok := m.records[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.records[c.ID] = memRecord{canvasID: canvasID, node: c}
	return c.Clone(), nil
}

func (m *MemoryStore) UpdateNode(ctx context.Context, id graph.NodeID, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "update"); err != nil {
		return err
	}
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("update node %s: %w", id, ErrNotFound)
	}
	n := rec.node.Clone()
	if err := fields.Apply(n); err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	rec.node = n
	m.records[id] = rec
	return nil
}

// DeleteNode is idempotent.
func (m *MemoryStore) DeleteNode(ctx context.Context, id graph.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "delete"); err != nil {
		return err
	}
	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) ListNodes(ctx context.Context, filter Filter) ([]*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "list"); err != nil {
		return nil, err
	}
	var out []*graph.Node
	for _, id := range m.order {
		rec := m.records[id]
		if filter.Match(rec.canvasID, rec.node) {
			out = append(out, rec.node.Clone())
		}
	}
	return out, nil
}

func viewKey(canvasID, userID string) string {
	return canvasID + "\x00" + userID
}

func (m *MemoryStore) SaveView(ctx context.Context, canvasID, userID string, v viewport.View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.views[viewKey(canvasID, userID)] = v
	return nil
}

func (m *MemoryStore) LoadView(ctx context.Context, canvasID, userID string) (viewport.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return viewport.View{}, err
	}
	v, ok := m.views[viewKey(canvasID, userID)]
	if !ok {
		return viewport.View{}, ErrNotFound
	}
	return v, nil
}

var (
	_ EntityStore = (*MemoryStore)(nil)
	_ ViewStore   = (*MemoryStore)(nil)
)
