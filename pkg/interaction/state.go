// Package interaction holds the exclusive pointer-gesture state of a canvas.
//
// Exactly one gesture can be active at a time. A gesture begins from Idle,
// is updated by pointer moves and always returns to Idle when the pointer is
// released or leaves the canvas.
package interaction

import (
	"errors"
	"fmt"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

var (
	ErrGestureActive = errors.New("another gesture is already active")
	ErrNoTarget      = errors.New("gesture target not found")
)

// StateKind names the active gesture.
type StateKind int

const (
	Idle StateKind = iota
	Panning
	DraggingNode
	ResizingNode
	DrawingConnection
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	case DraggingNode:
		return "dragging"
	case ResizingNode:
		return "resizing"
	case DrawingConnection:
		return "connecting"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state kind by name.
func (k StateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StateKind) UnmarshalText(b []byte) error {
	for s := Idle; s <= DrawingConnection; s++ {
		if s.String() == string(b) {
			*k = s
			return nil
		}
	}
	return fmt.Errorf("unknown gesture %q", b)
}

// State is the value describing the current gesture. Fields not relevant to
// Kind are zero.
type State struct {
	Kind StateKind `json:"kind"`

	// Node under the gesture (drag, resize, connection origin).
	NodeID graph.NodeID `json:"nodeId,omitempty"`

	// Client-space pointer position when the gesture began.
	StartPointer geometry.Point `json:"startPointer"`
	// Node rect when a drag or resize began.
	StartGeometry geometry.Rect `json:"startGeometry"`
	// Viewport offset when a pan began.
	StartOffset geometry.Point `json:"startOffset"`

	// Connection drawing.
	Origin  anchor.Anchor  `json:"origin"`
	Pointer geometry.Point `json:"pointer"` // canvas units
	Snap    anchor.Anchor  `json:"snap"`
	Snapped bool           `json:"snapped"`

	Moved bool `json:"moved"`
}

// Active reports whether a gesture is in progress.
func (s State) Active() bool {
	return s.Kind != Idle
}

// PreviewEnd is where the in-progress connection line currently ends: the
// snap target if any, otherwise the pointer.
func (s State) PreviewEnd() geometry.Point {
	if s.Snapped {
		return s.Snap.Point
	}
	return s.Pointer
}
