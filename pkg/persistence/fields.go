package persistence

import (
	"fmt"
	"maps"

	json "github.com/goccy/go-json"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// Fields is a partial node update keyed by the graph.Field* names.
type Fields map[string]any

// NodeFields captures the current values of the named fields of n. Later
// commits therefore always carry the latest state.
func NodeFields(n *graph.Node, names ...string) Fields {
	f := make(Fields, len(names))
	for _, name := range names {
		switch name {
		case graph.FieldTitle:
			f[name] = n.Title
		case graph.FieldX:
			f[name] = n.Geometry.X
		case graph.FieldY:
			f[name] = n.Geometry.Y
		case graph.FieldWidth:
			f[name] = n.Geometry.Width
		case graph.FieldHeight:
			f[name] = n.Geometry.Height
		case graph.FieldParentGroupID:
			f[name] = n.ParentGroupID
		case graph.FieldConnections:
			f[name] = append([]graph.NodeID(nil), n.Connections...)
		case graph.FieldPayload:
			f[name] = n.Payload.Clone()
		}
	}
	return f
}

// Merge returns f overlaid with later. Later values win.
func (f Fields) Merge(later Fields) Fields {
	out := make(Fields, len(f)+len(later))
	maps.Copy(out, f)
	maps.Copy(out, later)
	return out
}

// Apply writes the fields onto n. Sizes are clamped to the minimum.
func (f Fields) Apply(n *graph.Node) error {
	for name, v := range f {
		switch name {
		case graph.FieldTitle:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s=%T", ErrBadField, name, v)
			}
			n.Title = s
		case graph.FieldX, graph.FieldY, graph.FieldWidth, graph.FieldHeight:
			x, err := toFloat(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrBadField, name, err)
			}
			switch name {
			case graph.FieldX:
				n.Geometry.X = x
			case graph.FieldY:
				n.Geometry.Y = x
			case graph.FieldWidth:
				n.Geometry.Width = x
			case graph.FieldHeight:
				n.Geometry.Height = x
			}
		case graph.FieldParentGroupID:
			switch p := v.(type) {
			case graph.NodeID:
				n.ParentGroupID = p
			case string:
				n.ParentGroupID = graph.NodeID(p)
			case nil:
				n.ParentGroupID = ""
			default:
				return fmt.Errorf("%w: %s=%T", ErrBadField, name, v)
			}
		case graph.FieldConnections:
			ids, err := toIDs(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrBadField, name, err)
			}
			n.Connections = ids
		case graph.FieldPayload:
			switch p := v.(type) {
			case graph.Payload:
				n.Payload = p.Clone()
			case map[string]any:
				n.Payload = graph.Payload(p).Clone()
			case nil:
				n.Payload = nil
			default:
				return fmt.Errorf("%w: %s=%T", ErrBadField, name, v)
			}
		default:
			return fmt.Errorf("%w: unknown field %q", ErrBadField, name)
		}
	}
	n.Geometry = n.Geometry.Clamped()
	return nil
}

// Column is one SQL column assignment derived from a field.
type Column struct {
	Name  string
	Value any
}

var columnNames = map[string]string{
	graph.FieldTitle:         "title",
	graph.FieldX:             "x",
	graph.FieldY:             "y",
	graph.FieldWidth:         "width",
	graph.FieldHeight:        "height",
	graph.FieldParentGroupID: "parent_group_id",
	graph.FieldConnections:   "connections",
	graph.FieldPayload:       "payload",
}

// Columns converts the fields into SQL column assignments in a stable
// order. Connections and payload are JSON encoded; sizes are clamped.
func (f Fields) Columns() ([]Column, error) {
	// validate and normalize through a scratch node
	var scratch graph.Node
	scratch.Geometry = geometry.R(0, 0, geometry.MinWidth, geometry.MinHeight)
	if err := f.Apply(&scratch); err != nil {
		return nil, err
	}

	var cols []Column
	for _, name := range []string{
		graph.FieldTitle, graph.FieldX, graph.FieldY, graph.FieldWidth, graph.FieldHeight,
		graph.FieldParentGroupID, graph.FieldConnections, graph.FieldPayload,
	} {
		if _, ok := f[name]; !ok {
			continue
		}
		var v any
		switch name {
		case graph.FieldTitle:
			v = scratch.Title
		case graph.FieldX:
			v = scratch.Geometry.X
		case graph.FieldY:
			v = scratch.Geometry.Y
		case graph.FieldWidth:
			v = scratch.Geometry.Width
		case graph.FieldHeight:
			v = scratch.Geometry.Height
		case graph.FieldParentGroupID:
			v = NullableID(scratch.ParentGroupID)
		case graph.FieldConnections:
			b, err := EncodeConnections(scratch.Connections)
			if err != nil {
				return nil, err
			}
			v = b
		case graph.FieldPayload:
			b, err := EncodePayload(scratch.Payload)
			if err != nil {
				return nil, err
			}
			v = b
		}
		cols = append(cols, Column{Name: columnNames[name], Value: v})
	}
	return cols, nil
}

// NullableID maps an empty id to nil for nullable SQL columns.
func NullableID(id graph.NodeID) any {
	if id == "" {
		return nil
	}
	return string(id)
}

// EncodeConnections encodes a connection list as a JSON array, never null.
func EncodeConnections(ids []graph.NodeID) ([]byte, error) {
	if ids == nil {
		ids = []graph.NodeID{}
	}
	return json.Marshal(ids)
}

// DecodeConnections is the inverse of EncodeConnections.
func DecodeConnections(b []byte) ([]graph.NodeID, error) {
	var ids []graph.NodeID
	if len(b) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode connections: %w", err)
	}
	return ids, nil
}

// EncodePayload encodes a payload as a JSON object, never null.
func EncodePayload(p graph.Payload) ([]byte, error) {
	if p == nil {
		p = graph.Payload{}
	}
	return json.Marshal(p)
}

// DecodePayload is the inverse of EncodePayload. An empty object decodes to nil.
func DecodePayload(b []byte) (graph.Payload, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var p graph.Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(p) == 0 {
		return nil, nil
	}
	return p, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toIDs(v any) ([]graph.NodeID, error) {
	switch x := v.(type) {
	case []graph.NodeID:
		return append([]graph.NodeID(nil), x...), nil
	case []string:
		out := make([]graph.NodeID, len(x))
		for i, s := range x {
			out[i] = graph.NodeID(s)
		}
		return out, nil
	case []any:
		out := make([]graph.NodeID, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("connection id is %T", e)
			}
			out = append(out, graph.NodeID(s))
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("not a list: %T", v)
	}
}
