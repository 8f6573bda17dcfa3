package persistence

import (
	"fmt"
	"strings"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// Row is the canvas_nodes column layout shared by the SQL backends.
type Row struct {
	ID            string
	CanvasID      string
	Kind          string
	Title         string
	X, Y          float64
	Width, Height float64
	ParentGroupID *string
	Connections   []byte
	Payload       []byte
}

// RowColumns lists the canvas_nodes columns in Row order.
const RowColumns = "id, canvas_id, kind, title, x, y, width, height, parent_group_id, connections, payload"

// RowOf encodes n for storage under canvasID.
func RowOf(canvasID string, n *graph.Node) (Row, error) {
	conns, err := EncodeConnections(n.Connections)
	if err != nil {
		return Row{}, err
	}
	payload, err := EncodePayload(n.Payload)
	if err != nil {
		return Row{}, err
	}
	g := n.Geometry.Clamped()
	r := Row{
		ID:          string(n.ID),
		CanvasID:    canvasID,
		Kind:        n.Kind.String(),
		Title:       n.Title,
		X:           g.X,
		Y:           g.Y,
		Width:       g.Width,
		Height:      g.Height,
		Connections: conns,
		Payload:     payload,
	}
	if n.ParentGroupID != "" {
		p := string(n.ParentGroupID)
		r.ParentGroupID = &p
	}
	return r, nil
}

// Args returns the row values in RowColumns order.
func (r Row) Args() []any {
	return []any{r.ID, r.CanvasID, r.Kind, r.Title, r.X, r.Y, r.Width, r.Height, r.ParentGroupID, r.Connections, r.Payload}
}

// Dest returns scan destinations in RowColumns order.
func (r *Row) Dest() []any {
	return []any{&r.ID, &r.CanvasID, &r.Kind, &r.Title, &r.X, &r.Y, &r.Width, &r.Height, &r.ParentGroupID, &r.Connections, &r.Payload}
}

// Node decodes the row.
func (r Row) Node() (*graph.Node, error) {
	kind, err := graph.ParseKind(r.Kind)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", r.ID, err)
	}
	conns, err := DecodeConnections(r.Connections)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", r.ID, err)
	}
	payload, err := DecodePayload(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", r.ID, err)
	}
	n := &graph.Node{
		ID:          graph.NodeID(r.ID),
		Kind:        kind,
		Title:       r.Title,
		Geometry:    geometry.R(r.X, r.Y, r.Width, r.Height).Clamped(),
		Connections: conns,
		Payload:     payload,
	}
	if r.ParentGroupID != nil {
		n.ParentGroupID = graph.NodeID(*r.ParentGroupID)
	}
	return n, nil
}

// Where renders the filter as a SQL condition. placeholder formats the
// i-th (1-based) bind parameter for the target dialect.
func (f Filter) Where(placeholder func(i int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}
	if f.CanvasID != "" {
		conds = append(conds, "canvas_id = "+bind(f.CanvasID))
	}
	if len(f.Kinds) > 0 {
		ph := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			ph[i] = bind(k.String())
		}
		conds = append(conds, "kind IN ("+strings.Join(ph, ", ")+")")
	}
	if f.ParentGroupID != nil {
		conds = append(conds, "parent_group_id = "+bind(string(*f.ParentGroupID)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateSet renders the assignments for fields, numbering placeholders
// from 1. The caller binds the node id as the last parameter.
func (f Fields) UpdateSet(placeholder func(i int) string) (string, []any, error) {
	cols, err := f.Columns()
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: no fields", ErrBadField)
	}
	sets := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		sets[i] = c.Name + " = " + placeholder(i+1)
		args[i] = c.Value
	}
	return strings.Join(sets, ", "), args, nil
}

// DollarPlaceholder formats PostgreSQL bind parameters.
func DollarPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

// QuestionPlaceholder formats SQLite bind parameters.
func QuestionPlaceholder(int) string { return "?" }
