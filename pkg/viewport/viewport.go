// Package viewport maps between screen (client) pixels and canvas units.
package viewport

import (
	"sync"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
)

// Zoom bounds.
const (
	MinScale = 0.5
	MaxScale = 2.0
)

// View is the pan offset and zoom scale of one canvas session.
type View struct {
	Offset geometry.Point `json:"offset"`
	Scale  float64        `json:"scale"`
}

// DefaultView is the unpanned, unzoomed view.
func DefaultView() View {
	return View{Scale: 1}
}

// Listener receives the new view after every change.
type Listener func(View)

// Controller owns the transform between screen and canvas space.
type Controller struct {
	mu        sync.RWMutex
	view      View
	container geometry.Point // top-left of the canvas element in client coordinates
	minScale  float64
	maxScale  float64
	listeners []Listener
}

// Option configures a Controller.
type Option func(*Controller)

// WithScaleBounds narrows the zoom limits. Bounds outside
// [MinScale, MaxScale] are clamped to it; an inverted range is ignored.
func WithScaleBounds(lo, hi float64) Option {
	return func(c *Controller) {
		lo, hi = max(lo, MinScale), min(hi, MaxScale)
		if hi >= lo {
			c.minScale, c.maxScale = lo, hi
		}
	}
}

// WithContainer sets the client-space origin of the canvas element.
func WithContainer(origin geometry.Point) Option {
	return func(c *Controller) {
		c.container = origin
	}
}

// New creates a controller at the default view.
func New(opts ...Option) *Controller {
	c := &Controller{view: DefaultView(), minScale: MinScale, maxScale: MaxScale}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers a listener for view changes.
func (c *Controller) OnChange(fn Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Scale returns the current zoom scale.
func (c *Controller) Scale() float64 {
	return c.View().Scale
}

// Container returns the client-space origin of the canvas element.
func (c *Controller) Container() geometry.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.container
}

// SetContainer moves the client-space origin of the canvas element.
func (c *Controller) SetContainer(origin geometry.Point) {
	c.mu.Lock()
	c.container = origin
	c.mu.Unlock()
}

// ScreenToCanvas converts client coordinates to canvas units. Every hit
// test, drag delta and snap computation goes through this.
func (c *Controller) ScreenToCanvas(clientX, clientY float64) geometry.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return geometry.Point{
		X: (clientX - c.container.X - c.view.Offset.X) / c.view.Scale,
		Y: (clientY - c.container.Y - c.view.Offset.Y) / c.view.Scale,
	}
}

// CanvasToScreen is the inverse of ScreenToCanvas.
func (c *Controller) CanvasToScreen(p geometry.Point) geometry.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return geometry.Point{
		X: p.X*c.view.Scale + c.view.Offset.X + c.container.X,
		Y: p.Y*c.view.Scale + c.view.Offset.Y + c.container.Y,
	}
}

// Pan shifts the offset by a screen-space delta. Panning is unbounded.
func (c *Controller) Pan(dx, dy float64) View {
	return c.update(func(v *View) {
		v.Offset.X += dx
		v.Offset.Y += dy
	})
}

// SetOffset places the offset at an absolute screen-space position.
func (c *Controller) SetOffset(p geometry.Point) View {
	return c.update(func(v *View) {
		v.Offset = p
	})
}

// Zoom multiplies the scale by factor, clamped to the bounds, keeping the
// canvas point under the client-space anchor fixed on screen.
func (c *Controller) Zoom(factor float64, anchor geometry.Point) View {
	if factor <= 0 {
		return c.View()
	}
	return c.update(func(v *View) {
		next := geometry.Clamp(v.Scale*factor, c.minScale, c.maxScale)
		local := anchor.Sub(c.container)
		// canvas point under the anchor before the change
		cx := (local.X - v.Offset.X) / v.Scale
		cy := (local.Y - v.Offset.Y) / v.Scale
		v.Scale = next
		v.Offset = geometry.Point{X: local.X - cx*next, Y: local.Y - cy*next}
	})
}

// Restore replaces the view, clamping the scale.
func (c *Controller) Restore(v View) View {
	return c.update(func(cur *View) {
		if v.Scale == 0 {
			v.Scale = 1
		}
		v.Scale = geometry.Clamp(v.Scale, c.minScale, c.maxScale)
		*cur = v
	})
}

// Reset returns to the default view.
func (c *Controller) Reset() View {
	return c.Restore(DefaultView())
}

// Fit chooses the largest in-bounds scale and an offset that center r in a
// viewport of the given size with padding on every side.
func (c *Controller) Fit(r geometry.Rect, width, height, padding float64) View {
	availW := width - 2*padding
	availH := height - 2*padding
	if availW <= 0 || availH <= 0 || r.Width <= 0 || r.Height <= 0 {
		return c.View()
	}
	scale := geometry.Clamp(min(availW/r.Width, availH/r.Height), c.minScale, c.maxScale)
	center := r.Center()
	return c.Restore(View{
		Scale: scale,
		Offset: geometry.Point{
			X: width/2 - center.X*scale,
			Y: height/2 - center.Y*scale,
		},
	})
}

// VisibleRect returns the canvas-space rectangle shown in a viewport of the
// given client size.
func (c *Controller) VisibleRect(width, height float64) geometry.Rect {
	v := c.View()
	return geometry.Rect{
		X:      -v.Offset.X / v.Scale,
		Y:      -v.Offset.Y / v.Scale,
		Width:  width / v.Scale,
		Height: height / v.Scale,
	}
}

func (c *Controller) update(fn func(*View)) View {
	c.mu.Lock()
	before := c.view
	fn(&c.view)
	after := c.view
	listeners := c.listeners
	c.mu.Unlock()

	if after != before {
		for _, l := range listeners {
			l(after)
		}
	}
	return after
}
