package canvas

import (
	"errors"
	"fmt"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
	"github.com/dd0wney/strategy-canvas/pkg/render"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// PointerType names a pointer event.
type PointerType string

const (
	PointerDown   PointerType = "down"
	PointerMove   PointerType = "move"
	PointerUp     PointerType = "up"
	PointerLeave  PointerType = "leave"
	PointerCancel PointerType = "cancel"
)

// ParsePointerType converts the wire name of a pointer event.
func ParsePointerType(s string) (PointerType, error) {
	switch t := PointerType(s); t {
	case PointerDown, PointerMove, PointerUp, PointerLeave, PointerCancel:
		return t, nil
	}
	return "", fmt.Errorf("unknown pointer event %q", s)
}

// PointerResult describes what a pointer event did.
type PointerResult struct {
	Target interaction.Target  `json:"target"`
	State  interaction.State   `json:"state"`
	Ended  *interaction.Result `json:"ended,omitempty"`
}

// Pointer feeds one pointer event in client coordinates through hit
// testing, the node handler contract and the interaction machine.
func (c *Canvas) Pointer(typ PointerType, clientX, clientY float64) (PointerResult, error) {
	if err := c.lock(); err != nil {
		return PointerResult{}, err
	}
	defer c.mu.Unlock()

	client := geometry.Pt(clientX, clientY)
	switch typ {
	case PointerDown:
		return c.pointerDown(client)
	case PointerMove:
		if !c.machine.State().Active() {
			return PointerResult{State: c.machine.State()}, nil
		}
		st, err := c.machine.Move(client)
		return PointerResult{State: st}, err
	case PointerUp, PointerLeave:
		return c.pointerUp(client)
	case PointerCancel:
		st := c.machine.State()
		c.machine.Cancel()
		if st.Active() {
			c.recordGesture(st.Kind, "cancelled")
		}
		return PointerResult{State: c.machine.State()}, nil
	default:
		return PointerResult{}, fmt.Errorf("unknown pointer event %q", typ)
	}
}

func (c *Canvas) pointerDown(client geometry.Point) (PointerResult, error) {
	if c.machine.State().Active() {
		return PointerResult{State: c.machine.State()}, interaction.ErrGestureActive
	}
	pt := c.view.ScreenToCanvas(client.X, client.Y)
	target := c.painter.HitTest(c.scene(), pt)

	res := PointerResult{Target: target}
	if target.Kind == interaction.TargetBackground {
		// pressing empty space clears the selection and pans
		if err := c.store.Select(""); err != nil {
			return res, err
		}
		err := c.machine.BeginPan(client)
		res.State = c.machine.State()
		return res, err
	}

	handled, err := c.handlers.Dispatch(target, client)
	res.State = c.machine.State()
	if err != nil {
		return res, err
	}
	if !handled {
		c.logger.Debug("unhandled target", logging.String("target", target.Kind.String()))
	}
	return res, nil
}

func (c *Canvas) pointerUp(client geometry.Point) (PointerResult, error) {
	st := c.machine.State()
	if !st.Active() {
		return PointerResult{State: st}, nil
	}
	ended, err := c.machine.End(client)
	res := PointerResult{State: c.machine.State(), Ended: &ended}
	if err != nil {
		c.recordGesture(ended.Gesture, "error")
		return res, err
	}

	outcome := "noop"
	switch {
	case ended.Clicked:
		outcome = "clicked"
	case ended.Gesture == interaction.DrawingConnection && ended.Connected == "":
		outcome = "discarded"
	case ended.Gesture == interaction.DrawingConnection:
		outcome = "connected"
	case ended.Committed:
		outcome = "committed"
	case ended.Gesture == interaction.Panning:
		outcome = "panned"
	}
	c.recordGesture(ended.Gesture, outcome)
	c.publish(pubsub.GraphTopic(c.id), EventGestureEnded, ended)
	return res, nil
}

func (c *Canvas) recordGesture(kind interaction.StateKind, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordGesture(kind.String(), outcome)
	}
}

// nodeHandlers binds the handler contract every node kind receives.
func (c *Canvas) nodeHandlers() interaction.NodeHandlers {
	return interaction.NodeHandlers{
		OnDragStart: c.machine.BeginDrag,
		OnResizeStart: func(id graph.NodeID, client geometry.Point) error {
			if err := c.store.BringToFront(id); err != nil {
				return err
			}
			return c.machine.BeginResize(id, client)
		},
		OnConnectStart: func(id graph.NodeID, side anchor.Side, client geometry.Point) error {
			return c.machine.BeginConnection(id, side, client)
		},
		OnClick: c.store.Select,
		OnDelete: func(id graph.NodeID) error {
			return c.removeNode(id)
		},
		OnTitleChange: func(id graph.NodeID, title string) error {
			n, err := c.store.UpdateNode(id, graph.Rename(title))
			if err != nil {
				return err
			}
			c.queueUpdate(n, graph.FieldTitle)
			return nil
		},
		OnAction: c.action,
	}
}

// HitTest reports what lies under a client point.
func (c *Canvas) HitTest(clientX, clientY float64) interaction.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.painter.HitTest(c.scene(), c.view.ScreenToCanvas(clientX, clientY))
}

// Gesture returns the current interaction state.
func (c *Canvas) Gesture() interaction.State {
	return c.machine.State()
}

// View returns the current view.
func (c *Canvas) View() viewport.View {
	return c.view.View()
}

// ScreenToCanvas converts client coordinates to canvas units.
func (c *Canvas) ScreenToCanvas(clientX, clientY float64) geometry.Point {
	return c.view.ScreenToCanvas(clientX, clientY)
}

// Wheel zooms by factor keeping the canvas point under the client point fixed.
func (c *Canvas) Wheel(clientX, clientY, factor float64) (viewport.View, error) {
	if factor <= 0 {
		return c.view.View(), errors.New("wheel: zoom factor must be positive")
	}
	if err := c.lock(); err != nil {
		return viewport.View{}, err
	}
	defer c.mu.Unlock()
	return c.view.Zoom(factor, geometry.Pt(clientX, clientY)), nil
}

// ZoomBy zooms around the center of the container.
func (c *Canvas) ZoomBy(factor float64) (viewport.View, error) {
	if err := c.lock(); err != nil {
		return viewport.View{}, err
	}
	center := c.view.Container().Add(geometry.Pt(c.settings.Width/2, c.settings.Height/2))
	c.mu.Unlock()
	return c.Wheel(center.X, center.Y, factor)
}

// Pan shifts the view by a screen-space delta.
func (c *Canvas) Pan(dx, dy float64) (viewport.View, error) {
	if err := c.lock(); err != nil {
		return viewport.View{}, err
	}
	defer c.mu.Unlock()
	return c.view.Pan(dx, dy), nil
}

// ResetView returns to the unpanned, unzoomed view.
func (c *Canvas) ResetView() (viewport.View, error) {
	if err := c.lock(); err != nil {
		return viewport.View{}, err
	}
	defer c.mu.Unlock()
	return c.view.Reset(), nil
}

// FitToContent scales and pans so every node fits a width×height container.
// An empty canvas resets the view.
func (c *Canvas) FitToContent(width, height float64) (viewport.View, error) {
	if err := c.lock(); err != nil {
		return viewport.View{}, err
	}
	defer c.mu.Unlock()
	if width <= 0 {
		width = c.settings.Width
	}
	if height <= 0 {
		height = c.settings.Height
	}
	bounds, ok := c.store.Bounds()
	if !ok {
		return c.view.Reset(), nil
	}
	return c.view.Fit(bounds, width, height, c.settings.FitPadding), nil
}

// scene assembles the current frame. Callers hold the canvas mutex.
func (c *Canvas) scene() render.Scene {
	nodes := c.store.ByZ()
	return render.Scene{
		Width:    c.settings.Width,
		Height:   c.settings.Height,
		View:     c.view.View(),
		Nodes:    nodes,
		Edges:    c.edges(nodes),
		Gesture:  c.machine.State(),
		Handlers: c.handlers,
	}
}

func (c *Canvas) edges(nodes []*graph.Node) []render.Edge {
	return render.ResolveEdges(nodes, c.store.Edges())
}
