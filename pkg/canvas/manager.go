package canvas

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

// Manager keeps one open Canvas per id, opening canvases on first use.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	canvases map[string]*Canvas
	closed   bool
	logger   logging.Logger
}

// NewManager returns a manager that opens canvases with opts.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:     opts,
		canvases: make(map[string]*Canvas),
		logger:   logging.OrNop(opts.Logger).With(logging.Component("canvas-manager")),
	}
}

// Open returns the canvas for id, loading it from the entity store the
// first time it is requested.
func (m *Manager) Open(ctx context.Context, id string) (*Canvas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if c, ok := m.canvases[id]; ok {
		return c, nil
	}

	c, err := New(id, m.opts)
	if err != nil {
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	m.canvases[id] = c
	m.logger.Info("canvas opened", logging.Canvas(id))
	return c, nil
}

// Get returns an already open canvas.
func (m *Manager) Get(id string) (*Canvas, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.canvases[id]
	return c, ok
}

// IDs lists the open canvases in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.canvases))
	for id := range m.canvases {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Pending sums the queued entity-store writes of every open canvas.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.canvases {
		total += c.Pending()
	}
	return total
}

// Evict closes and forgets one canvas.
func (m *Manager) Evict(id string) error {
	m.mu.Lock()
	c, ok := m.canvases[id]
	delete(m.canvases, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Close()
}

// Close flushes and closes every open canvas.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	open := m.canvases
	m.canvases = make(map[string]*Canvas)
	m.mu.Unlock()

	var errs []error
	for id, c := range open {
		if err := c.Close(); err != nil {
			m.logger.Error("canvas close failed", logging.Canvas(id), logging.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
