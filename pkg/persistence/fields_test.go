package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

func TestNodeFields(t *testing.T) {
	n := &graph.Node{
		ID:          "n1",
		Title:       "Plan",
		Geometry:    geometry.R(10, 20, 300, 200),
		Connections: []graph.NodeID{"n2"},
	}
	f := NodeFields(n, graph.FieldX, graph.FieldY, graph.FieldConnections)
	assert.Equal(t, Fields{
		graph.FieldX:           10.0,
		graph.FieldY:           20.0,
		graph.FieldConnections: []graph.NodeID{"n2"},
	}, f)

	n.Connections[0] = "changed"
	assert.Equal(t, []graph.NodeID{"n2"}, f[graph.FieldConnections], "snapshot is detached")
}

func TestFieldsApply(t *testing.T) {
	tests := []struct {
		name    string
		fields  Fields
		wantErr bool
		check   func(t *testing.T, n *graph.Node)
	}{
		{
			name:   "numbers of any width",
			fields: Fields{graph.FieldX: 5, graph.FieldY: int64(6), graph.FieldWidth: float32(400)},
			check: func(t *testing.T, n *graph.Node) {
				assert.Equal(t, geometry.R(5, 6, 400, 150), n.Geometry)
			},
		},
		{
			name:   "size clamped",
			fields: Fields{graph.FieldWidth: 10.0, graph.FieldHeight: 10.0},
			check: func(t *testing.T, n *graph.Node) {
				assert.Equal(t, geometry.MinWidth, n.Geometry.Width)
				assert.Equal(t, geometry.MinHeight, n.Geometry.Height)
			},
		},
		{
			name:   "decoded json connections",
			fields: Fields{graph.FieldConnections: []any{"a", "b"}},
			check: func(t *testing.T, n *graph.Node) {
				assert.Equal(t, []graph.NodeID{"a", "b"}, n.Connections)
			},
		},
		{
			name:   "payload map",
			fields: Fields{graph.FieldPayload: map[string]any{"tone": "formal"}},
			check: func(t *testing.T, n *graph.Node) {
				assert.Equal(t, graph.Payload{"tone": "formal"}, n.Payload)
			},
		},
		{name: "bad title type", fields: Fields{graph.FieldTitle: 3}, wantErr: true},
		{name: "unknown field", fields: Fields{"color": "red"}, wantErr: true},
		{name: "bad connection element", fields: Fields{graph.FieldConnections: []any{1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNode("n1")
			err := tt.fields.Apply(n)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadField)
				return
			}
			require.NoError(t, err)
			tt.check(t, n)
		})
	}
}

func TestFieldsColumns(t *testing.T) {
	cols, err := Fields{
		graph.FieldPayload:       graph.Payload{"model": "m"},
		graph.FieldTitle:         "T",
		graph.FieldParentGroupID: graph.NodeID(""),
		graph.FieldWidth:         20.0,
	}.Columns()
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, Column{Name: "title", Value: "T"}, cols[0])
	assert.Equal(t, Column{Name: "width", Value: geometry.MinWidth}, cols[1])
	assert.Equal(t, "parent_group_id", cols[2].Name)
	assert.Nil(t, cols[2].Value)
	assert.Equal(t, "payload", cols[3].Name)
	assert.JSONEq(t, `{"model":"m"}`, string(cols[3].Value.([]byte)))
}

func TestConnectionsCodec(t *testing.T) {
	b, err := EncodeConnections(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	ids, err := DecodeConnections([]byte(`["x","y"]`))
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{"x", "y"}, ids)

	p, err := DecodePayload([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFilterMatch(t *testing.T) {
	group := graph.NodeID("g")
	n := newNode("n1")
	n.ParentGroupID = group

	assert.True(t, Filter{}.Match("c1", n))
	assert.False(t, Filter{CanvasID: "c2"}.Match("c1", n))
	assert.True(t, Filter{Kinds: []graph.NodeKind{graph.KindGeneric}}.Match("c1", n))
	assert.False(t, Filter{Kinds: []graph.NodeKind{graph.KindGroup}}.Match("c1", n))
	assert.True(t, Filter{ParentGroupID: &group}.Match("c1", n))
}

func TestRowRoundTrip(t *testing.T) {
	n := &graph.Node{
		ID:            "n1",
		Kind:          graph.KindDocumentAgent,
		Title:         "Docs",
		Geometry:      geometry.R(5, 6, 300, 200),
		ParentGroupID: "g1",
		Connections:   []graph.NodeID{"n2"},
		Payload:       graph.Payload{"documentIds": []any{"d1"}},
	}
	r, err := RowOf("c1", n)
	require.NoError(t, err)
	got, err := r.Node()
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestFilterWhere(t *testing.T) {
	group := graph.NodeID("g")
	where, args := Filter{
		CanvasID:      "c1",
		Kinds:         []graph.NodeKind{graph.KindGroup, graph.KindGeneric},
		ParentGroupID: &group,
	}.Where(DollarPlaceholder)
	assert.Equal(t, " WHERE canvas_id = $1 AND kind IN ($2, $3) AND parent_group_id = $4", where)
	assert.Equal(t, []any{"c1", "group", "generic", "g"}, args)

	where, args = Filter{}.Where(QuestionPlaceholder)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestUpdateSet(t *testing.T) {
	set, args, err := Fields{graph.FieldX: 1.0, graph.FieldY: 2.0}.UpdateSet(DollarPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, "x = $1, y = $2", set)
	assert.Equal(t, []any{1.0, 2.0}, args)

	_, _, err = Fields{}.UpdateSet(DollarPlaceholder)
	assert.ErrorIs(t, err, ErrBadField)
}
