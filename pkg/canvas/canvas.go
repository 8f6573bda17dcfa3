// Package canvas wires the graph store, viewport, interaction machine,
// renderers and persistence adapter of one strategy canvas together.
//
// Every exported method is serialized by the canvas mutex. Store and
// viewport observers run while it is held and only publish to the bus.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
	"time"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/metrics"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
	"github.com/dd0wney/strategy-canvas/pkg/render"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

var (
	ErrClosed    = errors.New("canvas is closed")
	ErrInvalidID = errors.New("invalid canvas id")
	ErrNoView    = errors.New("view preferences are not persisted")
	ErrNotGroup  = errors.New("target is not a group")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id can name a canvas. Ids end up in bus topics,
// so dots and wildcards are not allowed.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Settings are the tunables of a canvas. Zero fields take defaults.
type Settings struct {
	SnapRadius      float64
	AnchorHitRadius float64
	HandleSize      float64
	MinScale        float64
	MaxScale        float64
	DefaultWidth    float64
	DefaultHeight   float64
	SpawnJitter     float64
	FitPadding      float64
	// Width and Height are the container size in screen pixels.
	Width  float64
	Height float64
}

// DefaultSettings returns the stock canvas tunables.
func DefaultSettings() Settings {
	return Settings{
		SnapRadius:      anchor.DefaultSnapRadius,
		AnchorHitRadius: 8,
		HandleSize:      14,
		MinScale:        viewport.MinScale,
		MaxScale:        viewport.MaxScale,
		DefaultWidth:    250,
		DefaultHeight:   150,
		SpawnJitter:     300,
		FitPadding:      40,
		Width:           1280,
		Height:          800,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&s.SnapRadius, d.SnapRadius)
	fill(&s.AnchorHitRadius, d.AnchorHitRadius)
	fill(&s.HandleSize, d.HandleSize)
	fill(&s.MinScale, d.MinScale)
	fill(&s.MaxScale, d.MaxScale)
	fill(&s.DefaultWidth, d.DefaultWidth)
	fill(&s.DefaultHeight, d.DefaultHeight)
	fill(&s.SpawnJitter, d.SpawnJitter)
	fill(&s.FitPadding, d.FitPadding)
	fill(&s.Width, d.Width)
	fill(&s.Height, d.Height)
	return s
}

// Options configure a Canvas.
type Options struct {
	Settings Settings
	Store    persistence.EntityStore // defaults to an in-memory store
	Views    persistence.ViewStore   // optional view preferences
	Bus      *pubsub.PubSub          // optional event bus
	Metrics  *metrics.Registry       // optional
	Logger   logging.Logger
	Backoff  persistence.Backoff
	Timeout  time.Duration
	// CloseTimeout bounds the final flush when the canvas closes.
	CloseTimeout time.Duration
	// OnFailure is called after a write is abandoned, on the persistence worker.
	OnFailure func(persistence.Failure)
	// OnAction receives kind-specific button presses such as "link-documents".
	OnAction func(id graph.NodeID, action string)
	Rand     *rand.Rand
}

// Canvas is one live strategy canvas.
type Canvas struct {
	mu       sync.Mutex
	id       string
	settings Settings
	closed   bool

	store    *graph.Store
	view     *viewport.Controller
	resolver *anchor.Resolver
	machine  *interaction.Machine
	painter  *render.Painter
	adapter  *persistence.Adapter
	views    persistence.ViewStore
	handlers interaction.NodeHandlers

	bus      *pubsub.PubSub
	metrics  *metrics.Registry
	logger   logging.Logger
	rng      *rand.Rand
	onAction func(graph.NodeID, string)
}

// New creates an empty canvas. Call Open to hydrate it from the store and
// start persisting.
func New(id string, opts Options) (*Canvas, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	settings := opts.Settings.withDefaults()
	logger := logging.OrNop(opts.Logger).With(logging.Component("canvas"), logging.Canvas(id))

	store := opts.Store
	if store == nil {
		store = persistence.NewMemoryStore()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	c := &Canvas{
		id:       id,
		settings: settings,
		store:    graph.NewStore(),
		view:     viewport.New(viewport.WithScaleBounds(settings.MinScale, settings.MaxScale)),
		resolver: anchor.NewResolver(settings.SnapRadius),
		views:    opts.Views,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		logger:   logger,
		rng:      rng,
		onAction: opts.OnAction,
	}

	m := render.DefaultMetrics()
	m.HandleSize = settings.HandleSize
	m.AnchorRadius = settings.AnchorHitRadius
	c.painter = render.NewPainter(m)

	adapterOpts := []persistence.Option{persistence.WithLogger(logger)}
	if opts.Metrics != nil {
		adapterOpts = append(adapterOpts, persistence.WithRecorder(opts.Metrics))
	}
	if opts.Backoff.Attempts > 0 {
		adapterOpts = append(adapterOpts, persistence.WithBackoff(opts.Backoff))
	}
	if opts.Timeout > 0 {
		adapterOpts = append(adapterOpts, persistence.WithTimeout(opts.Timeout))
	}
	if opts.CloseTimeout > 0 {
		adapterOpts = append(adapterOpts, persistence.WithCloseTimeout(opts.CloseTimeout))
	}
	c.adapter = persistence.NewAdapter(store, id, adapterOpts...)
	c.adapter.OnFailure(func(f persistence.Failure) {
		c.commitFailed(f)
		if opts.OnFailure != nil {
			opts.OnFailure(f)
		}
	})

	c.machine = interaction.NewMachine(c.store, c.view, c.resolver,
		interaction.WithCommitter(interaction.CommitterFunc(c.commitGesture)),
		interaction.WithLogger(logger))
	c.handlers = c.nodeHandlers()

	c.store.Observe(c.graphChanged)
	c.view.OnChange(c.viewChanged)
	return c, nil
}

// ID returns the canvas id.
func (c *Canvas) ID() string { return c.id }

// Settings returns the effective tunables.
func (c *Canvas) Settings() Settings { return c.settings }

// Open loads the canvas nodes from the entity store and starts the
// persistence worker. The worker outlives ctx's deadline but not Close.
func (c *Canvas) Open(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.adapter.Start(context.WithoutCancel(ctx))
	return nil
}

// Load replaces the in-memory graph with the persisted one.
func (c *Canvas) Load(ctx context.Context) error {
	nodes, err := c.adapter.Load(ctx, persistence.Filter{CanvasID: c.id})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	loaded := c.store.Replace(nodes)
	if loaded != len(nodes) {
		c.logger.Warn("skipped invalid nodes on load", logging.Count(len(nodes)-loaded))
	}
	if c.metrics != nil {
		c.metrics.CanvasOpened(c.id, loaded)
	}
	c.logger.Info("canvas loaded", logging.Count(loaded))
	return nil
}

// Flush waits until every queued write has been committed or abandoned.
func (c *Canvas) Flush(ctx context.Context) error {
	return c.adapter.Flush(ctx)
}

// Pending returns the number of queued writes.
func (c *Canvas) Pending() int {
	return c.adapter.Pending()
}

// Close cancels any gesture, flushes pending writes and stops the worker.
func (c *Canvas) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.machine.Cancel()
	c.mu.Unlock()

	err := c.adapter.Close()
	if c.metrics != nil {
		c.metrics.CanvasClosed(c.id)
	}
	c.logger.Info("canvas closed")
	return err
}

// lock acquires the canvas mutex unless the canvas is closed.
func (c *Canvas) lock() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// SaveView stores the current view as userID's preference.
func (c *Canvas) SaveView(ctx context.Context, userID string) error {
	if c.views == nil {
		return ErrNoView
	}
	return c.views.SaveView(ctx, c.id, userID, c.view.View())
}

// RestoreView applies userID's saved view. A missing preference leaves the
// view unchanged and is not an error.
func (c *Canvas) RestoreView(ctx context.Context, userID string) (viewport.View, error) {
	if c.views == nil {
		return c.view.View(), ErrNoView
	}
	v, err := c.views.LoadView(ctx, c.id, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return c.view.View(), nil
	}
	if err != nil {
		return c.view.View(), err
	}
	if err := c.lock(); err != nil {
		return v, err
	}
	defer c.mu.Unlock()
	return c.view.Restore(v), nil
}

// SetContainer records where the canvas element sits in client coordinates
// and its size in pixels.
func (c *Canvas) SetContainer(origin geometry.Point, width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetContainer(origin)
	if width > 0 {
		c.settings.Width = width
	}
	if height > 0 {
		c.settings.Height = height
	}
}
