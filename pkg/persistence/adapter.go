package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

// Op is the kind of a queued write.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Write is one pending commit for a node.
type Write struct {
	Op       Op
	NodeID   graph.NodeID
	Node     *graph.Node // create only
	Fields   Fields      // update only
	Attempts int
	Enqueued time.Time
}

// Failure describes a write that exhausted its retries.
type Failure struct {
	Write Write
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", f.Write.Op, f.Write.NodeID, f.Write.Attempts, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Recorder receives adapter metrics. *metrics.Registry satisfies it.
type Recorder interface {
	RecordCommit(op string, err error, duration time.Duration)
	RecordRetry(op string)
	RecordCoalesced()
	SetQueueDepth(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCommit(string, error, time.Duration) {}
func (nopRecorder) RecordRetry(string)                         {}
func (nopRecorder) RecordCoalesced()                           {}
func (nopRecorder) SetQueueDepth(int)                          {}

// Option configures an Adapter.
type Option func(*Adapter)

func WithLogger(l logging.Logger) Option {
	return func(a *Adapter) { a.logger = logging.OrNop(l) }
}

func WithRecorder(r Recorder) Option {
	return func(a *Adapter) {
		if r != nil {
			a.recorder = r
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(a *Adapter) { a.backoff = b }
}

// WithTimeout bounds every individual store call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCloseTimeout bounds the final flush in Close.
func WithCloseTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.closeTimeout = d
		}
	}
}

// Adapter is a write-behind queue in front of an EntityStore. Writes for the
// same node coalesce while pending and are committed in order by a single
// worker. Local state is never rolled back on failure.
type Adapter struct {
	store        EntityStore
	canvasID     string
	logger       logging.Logger
	recorder     Recorder
	backoff      Backoff
	timeout      time.Duration
	closeTimeout time.Duration

	mu        sync.Mutex
	pending   map[graph.NodeID]*Write
	order     []graph.NodeID
	inflight  int
	changed   chan struct{}
	wake      chan struct{}
	onFailure func(Failure)
	running   bool
	closed    bool
	stop      context.CancelFunc
	done      chan struct{}
}

// NewAdapter creates an adapter committing to store on behalf of canvasID.
// Call Start to run the background worker.
func NewAdapter(store EntityStore, canvasID string, opts ...Option) *Adapter {
	a := &Adapter{
		store:        store,
		canvasID:     canvasID,
		logger:       logging.NewNopLogger(),
		recorder:     nopRecorder{},
		backoff:      DefaultBackoff(),
		timeout:      5 * time.Second,
		closeTimeout: 10 * time.Second,
		pending:      make(map[graph.NodeID]*Write),
		changed:      make(chan struct{}),
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logging.Component("persistence"), logging.Canvas(canvasID))
	return a
}

// OnFailure registers the handler for writes that exhausted their retries.
func (a *Adapter) OnFailure(fn func(Failure)) {
	a.mu.Lock()
	a.onFailure = fn
	a.mu.Unlock()
}

// Start runs the commit worker until ctx is cancelled or Close is called.
func (a *Adapter) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running || a.closed {
		return
	}
	ctx, a.stop = context.WithCancel(ctx)
	a.done = make(chan struct{})
	a.running = true
	go a.run(ctx, a.done)
}

// Load lists the nodes of this canvas from the store.
func (a *Adapter) Load(ctx context.Context, filter Filter) ([]*graph.Node, error) {
	if filter.CanvasID == "" {
		filter.CanvasID = a.canvasID
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	timer := logging.StartTimer(a.logger, "load nodes")
	nodes, err := a.store.ListNodes(ctx, filter)
	if err != nil {
		timer.EndError(err)
		return nil, fmt.Errorf("failed to load canvas %s: %w", a.canvasID, err)
	}
	timer.End(logging.Count(len(nodes)))
	return nodes, nil
}

// Create queues the creation of n. The node is snapshotted.
func (a *Adapter) Create(n *graph.Node) error {
	if n == nil {
		return fmt.Errorf("create: %w", graph.ErrNodeNotFound)
	}
	return a.enqueue(&Write{Op: OpCreate, NodeID: n.ID, Node: n.Clone()})
}

// Update queues a partial update of id.
func (a *Adapter) Update(id graph.NodeID, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := fields.Apply(&graph.Node{ID: id}); err != nil {
		return err
	}
	return a.enqueue(&Write{Op: OpUpdate, NodeID: id, Fields: fields.Merge(nil)})
}

// Delete queues the removal of id.
func (a *Adapter) Delete(id graph.NodeID) error {
	return a.enqueue(&Write{Op: OpDelete, NodeID: id})
}

// Pending returns the number of queued writes, excluding any in flight.
func (a *Adapter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// PendingWrite returns a copy of the queued write for id.
func (a *Adapter) PendingWrite(id graph.NodeID) (Write, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.pending[id]
	if !ok {
		return Write{}, false
	}
	return *w, true
}

func (a *Adapter) enqueue(w *Write) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAdapterClosed
	}
	w.Enqueued = time.Now()

	prev, ok := a.pending[w.NodeID]
	if !ok {
		a.pending[w.NodeID] = w
		a.order = append(a.order, w.NodeID)
	} else {
		a.recorder.RecordCoalesced()
		if merged := coalesce(prev, w); merged != nil {
			a.pending[w.NodeID] = merged
		} else {
			a.drop(w.NodeID)
		}
	}
	depth := len(a.order)
	a.signal()
	a.mu.Unlock()

	a.recorder.SetQueueDepth(depth)
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// coalesce folds next into prev. A nil result drops the node's writes.
func coalesce(prev, next *Write) *Write {
	switch prev.Op {
	case OpCreate:
		switch next.Op {
		case OpUpdate:
			n := prev.Node.Clone()
			if err := next.Fields.Apply(n); err != nil {
				return prev
			}
			return &Write{Op: OpCreate, NodeID: prev.NodeID, Node: n, Enqueued: prev.Enqueued}
		case OpDelete:
			return nil
		}
	case OpUpdate:
		switch next.Op {
		case OpUpdate:
			return &Write{Op: OpUpdate, NodeID: prev.NodeID, Fields: prev.Fields.Merge(next.Fields), Enqueued: prev.Enqueued}
		case OpDelete:
			return &Write{Op: OpDelete, NodeID: prev.NodeID, Enqueued: prev.Enqueued}
		}
	case OpDelete:
		if next.Op == OpUpdate {
			return prev
		}
	}
	next.Enqueued = prev.Enqueued
	return next
}

func (a *Adapter) drop(id graph.NodeID) {
	delete(a.pending, id)
	for i, o := range a.order {
		if o == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// signal wakes Flush waiters. Caller holds mu.
func (a *Adapter) signal() {
	close(a.changed)
	a.changed = make(chan struct{})
}

func (a *Adapter) next() (*Write, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.order) == 0 {
		return nil, false
	}
	id := a.order[0]
	a.order = a.order[1:]
	w := a.pending[id]
	delete(a.pending, id)
	a.inflight++
	return w, true
}

func (a *Adapter) finish() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight--
	a.signal()
	return len(a.order)
}

func (a *Adapter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if err := a.drain(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		}
	}
}

// drain commits queued writes until the queue is empty.
func (a *Adapter) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		w, ok := a.next()
		if !ok {
			return nil
		}
		a.commit(ctx, w)
		a.recorder.SetQueueDepth(a.finish())
	}
}

func (a *Adapter) commit(ctx context.Context, w *Write) {
	op := w.Op.String()
	logger := a.logger.With(logging.Operation(op), logging.NodeID(string(w.NodeID)))

	var err error
	for w.Attempts < a.backoff.attempts() {
		w.Attempts++
		start := time.Now()
		err = a.call(ctx, w)
		a.recorder.RecordCommit(op, err, time.Since(start))
		if err == nil {
			logger.Debug("committed", logging.Attempt(w.Attempts), logging.Latency(time.Since(start)))
			return
		}
		if Permanent(err) || w.Attempts >= a.backoff.attempts() {
			break
		}
		a.recorder.RecordRetry(op)
		logger.Warn("commit failed, retrying", logging.Attempt(w.Attempts), logging.Error(err))
		if serr := sleepCtx(ctx, a.backoff.Delay(w.Attempts)); serr != nil {
			err = errors.Join(err, serr)
			break
		}
	}

	logger.Error("commit abandoned", logging.Attempt(w.Attempts), logging.Error(err))
	a.mu.Lock()
	fn := a.onFailure
	a.mu.Unlock()
	if fn != nil {
		fn(Failure{Write: *w, Err: err})
	}
}

func (a *Adapter) call(ctx context.Context, w *Write) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	switch w.Op {
	case OpCreate:
		_, err := a.store.CreateNode(ctx, a.canvasID, w.Node)
		return err
	case OpUpdate:
		return a.store.UpdateNode(ctx, w.NodeID, w.Fields)
	case OpDelete:
		return a.store.DeleteNode(ctx, w.NodeID)
	default:
		return fmt.Errorf("unknown op %d", w.Op)
	}
}

// Flush blocks until every queued write has been committed or abandoned.
// Without a running worker the writes are committed on the caller's goroutine.
func (a *Adapter) Flush(ctx context.Context) error {
	for {
		a.mu.Lock()
		if len(a.order) == 0 && a.inflight == 0 {
			a.mu.Unlock()
			return nil
		}
		running := a.running
		changed := a.changed
		a.mu.Unlock()

		if !running {
			if err := a.drain(ctx); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Close flushes outstanding writes, bounded by the close timeout, then stops
// the worker. Later writes fail with ErrAdapterClosed.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.closeTimeout)
	defer cancel()
	err := a.Flush(ctx)

	a.mu.Lock()
	stop, done := a.stop, a.done
	a.running = false
	a.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
	if err != nil {
		a.logger.Warn("closed with pending writes", logging.Count(a.Pending()), logging.Error(err))
		return fmt.Errorf("failed to flush pending writes: %w", err)
	}
	return nil
}
