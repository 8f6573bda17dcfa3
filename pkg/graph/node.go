package graph

import (
	"maps"
	"slices"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/google/uuid"
)

// NodeID identifies a node for its whole lifetime.
type NodeID string

// NewNodeID returns a fresh random id.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// Payload is the kind-specific configuration blob. The canvas never
// interprets it.
type Payload map[string]any

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Node is one placed object on the canvas.
type Node struct {
	ID            NodeID        `json:"id"`
	Kind          NodeKind      `json:"kind"`
	Title         string        `json:"title"`
	Geometry      geometry.Rect `json:"geometry"`
	ParentGroupID NodeID        `json:"parentGroupId,omitempty"`
	Connections   []NodeID      `json:"connections"`
	Payload       Payload       `json:"payload,omitempty"`

	// UI state, never persisted.
	Selected bool `json:"-"`
	ZIndex   int  `json:"-"`
}

// Clone returns a deep copy of n safe to hand out of the store.
func (n *Node) Clone() *Node {
	c := *n
	c.Connections = slices.Clone(n.Connections)
	c.Payload = n.Payload.Clone()
	return &c
}

// HasConnection reports whether id is already a connection target.
func (n *Node) HasConnection(id NodeID) bool {
	return slices.Contains(n.Connections, id)
}

// IsGroup reports whether n is a group container.
func (n *Node) IsGroup() bool {
	return n.Kind == KindGroup
}

// Edge is a derived directed connection between two existing nodes.
type Edge struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title         *string
	Position      *geometry.Point
	Size          *geometry.Size
	ParentGroupID *NodeID // pointer to "" clears the parent
	Payload       Payload
}

// Field names reported by Patch.Fields and used by persistence.
const (
	FieldTitle         = "title"
	FieldX             = "x"
	FieldY             = "y"
	FieldWidth         = "width"
	FieldHeight        = "height"
	FieldParentGroupID = "parentGroupId"
	FieldPayload       = "payload"
	FieldConnections   = "connections"
)

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Position == nil && p.Size == nil && p.ParentGroupID == nil && p.Payload == nil
}

// Fields lists the persisted field names the patch touches.
func (p Patch) Fields() []string {
	var f []string
	if p.Title != nil {
		f = append(f, FieldTitle)
	}
	if p.Position != nil {
		f = append(f, FieldX, FieldY)
	}
	if p.Size != nil {
		f = append(f, FieldWidth, FieldHeight)
	}
	if p.ParentGroupID != nil {
		f = append(f, FieldParentGroupID)
	}
	if p.Payload != nil {
		f = append(f, FieldPayload)
	}
	return f
}

// MoveTo builds a position-only patch.
func MoveTo(p geometry.Point) Patch {
	return Patch{Position: &p}
}

// ResizeTo builds a size-only patch.
func ResizeTo(s geometry.Size) Patch {
	return Patch{Size: &s}
}

// Rename builds a title-only patch.
func Rename(title string) Patch {
	return Patch{Title: &title}
}

// Reparent builds a parent-group patch. An empty id clears the parent.
func Reparent(id NodeID) Patch {
	return Patch{ParentGroupID: &id}
}
