package interaction

import (
	"fmt"

	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// TargetKind classifies what a pointer press landed on.
type TargetKind int

const (
	TargetBackground TargetKind = iota
	TargetBody                  // node drag surface
	TargetResizeHandle
	TargetAnchor
	TargetDelete
	TargetTitle
	TargetAction // kind-specific button
)

func (k TargetKind) String() string {
	switch k {
	case TargetBackground:
		return "background"
	case TargetBody:
		return "body"
	case TargetResizeHandle:
		return "resize"
	case TargetAnchor:
		return "anchor"
	case TargetDelete:
		return "delete"
	case TargetTitle:
		return "title"
	case TargetAction:
		return "action"
	default:
		return "unknown"
	}
}

// MarshalText encodes the target kind by name.
func (k TargetKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TargetKind) UnmarshalText(b []byte) error {
	for t := TargetBackground; t <= TargetAction; t++ {
		if t.String() == string(b) {
			*k = t
			return nil
		}
	}
	return fmt.Errorf("unknown target %q", b)
}

// Interactive reports whether pressing the target must not start a drag.
func (k TargetKind) Interactive() bool {
	return k != TargetBackground && k != TargetBody
}

// Target is the result of a hit test.
type Target struct {
	Kind   TargetKind   `json:"kind"`
	NodeID graph.NodeID `json:"nodeId,omitempty"`
	Side   anchor.Side  `json:"side"`
	Action string       `json:"action,omitempty"`
}

// NodeHandlers is the callback contract every node renderer receives. It is
// identical for every node kind.
type NodeHandlers struct {
	OnDragStart    func(id graph.NodeID, client geometry.Point) error
	OnResizeStart  func(id graph.NodeID, client geometry.Point) error
	OnConnectStart func(id graph.NodeID, side anchor.Side, client geometry.Point) error
	OnClick        func(id graph.NodeID) error
	OnDelete       func(id graph.NodeID) error
	OnTitleChange  func(id graph.NodeID, title string) error
	OnAction       func(id graph.NodeID, action string) error
}

// Dispatch routes a pointer press on t to the matching handler. Background
// presses are not node events and return false.
func (h NodeHandlers) Dispatch(t Target, client geometry.Point) (bool, error) {
	switch t.Kind {
	case TargetBody:
		return call(h.OnDragStart != nil, func() error { return h.OnDragStart(t.NodeID, client) })
	case TargetResizeHandle:
		return call(h.OnResizeStart != nil, func() error { return h.OnResizeStart(t.NodeID, client) })
	case TargetAnchor:
		return call(h.OnConnectStart != nil, func() error { return h.OnConnectStart(t.NodeID, t.Side, client) })
	case TargetDelete:
		return call(h.OnDelete != nil, func() error { return h.OnDelete(t.NodeID) })
	case TargetTitle:
		return call(h.OnClick != nil, func() error { return h.OnClick(t.NodeID) })
	case TargetAction:
		return call(h.OnAction != nil, func() error { return h.OnAction(t.NodeID, t.Action) })
	case TargetBackground:
		return false, nil
	default:
		return false, fmt.Errorf("dispatch: unsupported target %s", t.Kind)
	}
}

func call(ok bool, fn func() error) (bool, error) {
	if !ok {
		return false, nil
	}
	return true, fn()
}
