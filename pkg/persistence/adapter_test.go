package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

func fastBackoff() Backoff {
	return Backoff{Base: time.Millisecond, Factor: 2, Max: 4 * time.Millisecond, Attempts: 5}
}

func newNode(id string) *graph.Node {
	return &graph.Node{
		ID:       graph.NodeID(id),
		Kind:     graph.KindGeneric,
		Title:    id,
		Geometry: geometry.R(0, 0, 200, 150),
	}
}

type countingRecorder struct {
	mu        sync.Mutex
	commits   map[string]int
	failures  int
	retries   int
	coalesced int
	depth     int
}

func (r *countingRecorder) RecordCommit(op string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commits == nil {
		r.commits = make(map[string]int)
	}
	r.commits[op]++
	if err != nil {
		r.failures++
	}
}

func (r *countingRecorder) RecordRetry(string) {
	r.mu.Lock()
	r.retries++
	r.mu.Unlock()
}

func (r *countingRecorder) RecordCoalesced() {
	r.mu.Lock()
	r.coalesced++
	r.mu.Unlock()
}

func (r *countingRecorder) SetQueueDepth(n int) {
	r.mu.Lock()
	r.depth = n
	r.mu.Unlock()
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name    string
		writes  func(a *Adapter)
		pending int
		op      Op
		check   func(t *testing.T, w Write)
	}{
		{
			name: "create then update becomes create",
			writes: func(a *Adapter) {
				require.NoError(t, a.Create(newNode("n1")))
				require.NoError(t, a.Update("n1", Fields{graph.FieldX: 40.0, graph.FieldTitle: "renamed"}))
			},
			pending: 1,
			op:      OpCreate,
			check: func(t *testing.T, w Write) {
				assert.Equal(t, 40.0, w.Node.Geometry.X)
				assert.Equal(t, "renamed", w.Node.Title)
			},
		},
		{
			name: "update then update merges later wins",
			writes: func(a *Adapter) {
				require.NoError(t, a.Update("n1", Fields{graph.FieldX: 1.0, graph.FieldY: 2.0}))
				require.NoError(t, a.Update("n1", Fields{graph.FieldX: 5.0}))
			},
			pending: 1,
			op:      OpUpdate,
			check: func(t *testing.T, w Write) {
				assert.Equal(t, Fields{graph.FieldX: 5.0, graph.FieldY: 2.0}, w.Fields)
			},
		},
		{
			name: "create then delete drops both",
			writes: func(a *Adapter) {
				require.NoError(t, a.Create(newNode("n1")))
				require.NoError(t, a.Delete("n1"))
			},
			pending: 0,
		},
		{
			name: "update then delete becomes delete",
			writes: func(a *Adapter) {
				require.NoError(t, a.Update("n1", Fields{graph.FieldX: 1.0}))
				require.NoError(t, a.Delete("n1"))
			},
			pending: 1,
			op:      OpDelete,
		},
		{
			name: "malformed update leaves create queued",
			writes: func(a *Adapter) {
				require.NoError(t, a.Create(newNode("n1")))
				err := a.Update("n1", Fields{"bogus": 1})
				require.ErrorIs(t, err, ErrBadField)
			},
			pending: 1,
			op:      OpCreate,
			check: func(t *testing.T, w Write) {
				assert.Equal(t, "n1", w.Node.Title)
			},
		},
		{
			name: "delete then update keeps delete",
			writes: func(a *Adapter) {
				require.NoError(t, a.Delete("n1"))
				require.NoError(t, a.Update("n1", Fields{graph.FieldX: 1.0}))
			},
			pending: 1,
			op:      OpDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(NewMemoryStore(), "c1")
			tt.writes(a)
			require.Equal(t, tt.pending, a.Pending())
			if tt.pending == 0 {
				return
			}
			w, ok := a.PendingWrite("n1")
			require.True(t, ok)
			assert.Equal(t, tt.op, w.Op)
			if tt.check != nil {
				tt.check(t, w)
			}
		})
	}
}

func TestAdapterCommitsInOrder(t *testing.T) {
	store := NewMemoryStore()
	rec := &countingRecorder{}
	a := NewAdapter(store, "c1", WithBackoff(fastBackoff()), WithRecorder(rec))
	defer a.Close()

	require.NoError(t, a.Create(newNode("a")))
	require.NoError(t, a.Create(newNode("b")))
	require.NoError(t, a.Update("a", Fields{graph.FieldConnections: []graph.NodeID{"b"}}))
	a.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Flush(ctx))

	n, ok := store.Node("a")
	require.True(t, ok)
	assert.Equal(t, []graph.NodeID{"b"}, n.Connections)
	assert.Equal(t, 2, store.Calls("create"))
	assert.Equal(t, 0, store.Calls("update"), "update coalesced into create")
	assert.Equal(t, 0, a.Pending())
	assert.Equal(t, 1, rec.coalesced)
}

func TestCoalesceKeepsCreateOnBadFields(t *testing.T) {
	prev := &Write{Op: OpCreate, NodeID: "n1", Node: newNode("n1")}
	got := coalesce(prev, &Write{Op: OpUpdate, NodeID: "n1", Fields: Fields{graph.FieldX: "far"}})
	assert.Same(t, prev, got)
}

func TestAdapterBadUpdateStillCreates(t *testing.T) {
	store := NewMemoryStore()
	a := NewAdapter(store, "c1", WithBackoff(fastBackoff()))
	defer a.Close()

	require.NoError(t, a.Create(newNode("n1")))
	require.ErrorIs(t, a.Update("n1", Fields{"bogus": 1}), ErrBadField)
	a.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Flush(ctx))

	assert.Equal(t, 1, store.Calls("create"))
	_, ok := store.Node("n1")
	assert.True(t, ok, "created node was committed")
}

func TestAdapterRetriesTransientErrors(t *testing.T) {
	store := NewMemoryStore()
	store.FailNext(2, errors.New("connection reset"))
	rec := &countingRecorder{}
	a := NewAdapter(store, "c1", WithBackoff(fastBackoff()), WithRecorder(rec))

	var failures []Failure
	a.OnFailure(func(f Failure) { failures = append(failures, f) })

	require.NoError(t, a.Create(newNode("a")))
	require.NoError(t, a.Flush(context.Background()))

	_, ok := store.Node("a")
	assert.True(t, ok)
	assert.Equal(t, 3, store.Calls("create"))
	assert.Equal(t, 2, rec.retries)
	assert.Empty(t, failures)
}

func TestAdapterReportsExhaustedWrites(t *testing.T) {
	store := NewMemoryStore()
	boom := errors.New("database unavailable")
	store.FailNext(10, boom)
	a := NewAdapter(store, "c1", WithBackoff(fastBackoff()))

	var failures []Failure
	a.OnFailure(func(f Failure) { failures = append(failures, f) })

	require.NoError(t, a.Create(newNode("a")))
	require.NoError(t, a.Flush(context.Background()))

	require.Len(t, failures, 1)
	assert.Equal(t, 5, failures[0].Write.Attempts)
	assert.ErrorIs(t, failures[0], boom)
	assert.Equal(t, 5, store.Calls("create"))
}

func TestAdapterDoesNotRetryMissingNode(t *testing.T) {
	store := NewMemoryStore()
	a := NewAdapter(store, "c1", WithBackoff(fastBackoff()))

	var failures []Failure
	a.OnFailure(func(f Failure) { failures = append(failures, f) })

	require.NoError(t, a.Update("ghost", Fields{graph.FieldTitle: "x"}))
	require.NoError(t, a.Flush(context.Background()))

	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, ErrNotFound)
	assert.Equal(t, 1, store.Calls("update"))
}

func TestAdapterClose(t *testing.T) {
	store := NewMemoryStore()
	a := NewAdapter(store, "c1", WithBackoff(fastBackoff()))
	a.Start(context.Background())

	require.NoError(t, a.Create(newNode("a")))
	require.NoError(t, a.Close())

	_, ok := store.Node("a")
	assert.True(t, ok, "close flushes pending writes")
	assert.ErrorIs(t, a.Create(newNode("b")), ErrAdapterClosed)
	assert.NoError(t, a.Close(), "close is idempotent")
}

func TestAdapterLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.CreateNode(ctx, "c1", newNode("a"))
	require.NoError(t, err)
	_, err = store.CreateNode(ctx, "c2", newNode("b"))
	require.NoError(t, err)

	a := NewAdapter(store, "c1")
	nodes, err := a.Load(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, graph.NodeID("a"), nodes[0].ID)
}

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, 3200 * time.Millisecond},
		{7, 5 * time.Second},
		{20, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}
