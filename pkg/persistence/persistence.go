// Package persistence keeps a canvas's graph in step with an external
// entity store. The canvas mutates its in-memory graph first; the Adapter
// queues the resulting writes and commits them in the background.
package persistence

import (
	"context"
	"errors"
	"slices"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

var (
	ErrAdapterClosed = errors.New("persistence adapter closed")
	ErrNotFound      = errors.New("entity not found")
	ErrBadField      = errors.New("invalid field value")
)

// EntityStore is the external node persistence collaborator.
type EntityStore interface {
	CreateNode(ctx context.Context, canvasID string, n *graph.Node) (*graph.Node, error)
	UpdateNode(ctx context.Context, id graph.NodeID, fields Fields) error
	DeleteNode(ctx context.Context, id graph.NodeID) error
	ListNodes(ctx context.Context, filter Filter) ([]*graph.Node, error)
}

// ViewStore saves a user's viewport as a preference. It is never part of
// the graph.
type ViewStore interface {
	SaveView(ctx context.Context, canvasID, userID string, v viewport.View) error
	LoadView(ctx context.Context, canvasID, userID string) (viewport.View, error)
}

// Filter selects nodes for ListNodes. Zero fields match everything.
type Filter struct {
	CanvasID      string
	Kinds         []graph.NodeKind
	ParentGroupID *graph.NodeID
}

// Match reports whether a node stored under canvasID passes the filter.
func (f Filter) Match(canvasID string, n *graph.Node) bool {
	if f.CanvasID != "" && f.CanvasID != canvasID {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, n.Kind) {
		return false
	}
	if f.ParentGroupID != nil && n.ParentGroupID != *f.ParentGroupID {
		return false
	}
	return true
}
