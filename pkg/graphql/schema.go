// Package graphql exposes a read-only GraphQL view of open canvases.
package graphql

import (
	"context"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/graphql-go/graphql"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/render"
)

// Source resolves canvases by id. *canvas.Manager implements it.
type Source interface {
	Open(ctx context.Context, id string) (*canvas.Canvas, error)
	IDs() []string
}

var viewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "View",
	Fields: graphql.Fields{
		"offsetX": &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(canvas.Snapshot).View.Offset.X, nil
		}},
		"offsetY": &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(canvas.Snapshot).View.Offset.Y, nil
		}},
		"scale": &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(canvas.Snapshot).View.Scale, nil
		}},
	},
})

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"id":            nodeField(graphql.NewNonNull(graphql.ID), func(n *graph.Node) any { return string(n.ID) }),
		"kind":          nodeField(graphql.NewNonNull(graphql.String), func(n *graph.Node) any { return n.Kind.String() }),
		"title":         nodeField(graphql.NewNonNull(graphql.String), func(n *graph.Node) any { return n.Title }),
		"x":             nodeField(graphql.NewNonNull(graphql.Float), func(n *graph.Node) any { return n.Geometry.X }),
		"y":             nodeField(graphql.NewNonNull(graphql.Float), func(n *graph.Node) any { return n.Geometry.Y }),
		"width":         nodeField(graphql.NewNonNull(graphql.Float), func(n *graph.Node) any { return n.Geometry.Width }),
		"height":        nodeField(graphql.NewNonNull(graphql.Float), func(n *graph.Node) any { return n.Geometry.Height }),
		"selected":      nodeField(graphql.NewNonNull(graphql.Boolean), func(n *graph.Node) any { return n.Selected }),
		"parentGroupId": nodeField(graphql.ID, func(n *graph.Node) any {
			if n.ParentGroupID == "" {
				return nil
			}
			return string(n.ParentGroupID)
		}),
		"connections": nodeField(graphql.NewList(graphql.NewNonNull(graphql.ID)), func(n *graph.Node) any {
			ids := make([]string, len(n.Connections))
			for i, id := range n.Connections {
				ids[i] = string(id)
			}
			return ids
		}),
		// Payload is opaque to the canvas, so it is returned as a JSON string.
		"payload": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				n := p.Source.(*graph.Node)
				if n.Payload == nil {
					return nil, nil
				}
				b, err := json.Marshal(n.Payload)
				if err != nil {
					return nil, fmt.Errorf("failed to encode payload: %w", err)
				}
				return string(b), nil
			},
		},
	},
})

func nodeField(t graphql.Output, get func(*graph.Node) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return get(p.Source.(*graph.Node)), nil
		},
	}
}

var edgeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Edge",
	Fields: graphql.Fields{
		"from": edgeField(graphql.NewNonNull(graphql.ID), func(e render.Edge) any { return string(e.From) }),
		"to":   edgeField(graphql.NewNonNull(graphql.ID), func(e render.Edge) any { return string(e.To) }),
		"fromSide": edgeField(graphql.NewNonNull(graphql.String), func(e render.Edge) any {
			return e.Pair.From.Side.String()
		}),
		"toSide": edgeField(graphql.NewNonNull(graphql.String), func(e render.Edge) any {
			return e.Pair.To.Side.String()
		}),
	},
})

func edgeField(t graphql.Output, get func(render.Edge) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return get(p.Source.(render.Edge)), nil
		},
	}
}

var canvasType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Canvas",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(canvas.Snapshot).ID, nil
			},
		},
		"nodes": &graphql.Field{
			Type: graphql.NewList(nodeType),
			Args: graphql.FieldConfigArgument{
				"kind": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				nodes := p.Source.(canvas.Snapshot).Nodes
				kind, ok := p.Args["kind"].(string)
				if !ok {
					return nodes, nil
				}
				k, err := graph.ParseKind(kind)
				if err != nil {
					return nil, err
				}
				return slices.DeleteFunc(slices.Clone(nodes), func(n *graph.Node) bool {
					return n.Kind != k
				}), nil
			},
		},
		"node": &graphql.Field{
			Type: nodeType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["id"].(string)
				for _, n := range p.Source.(canvas.Snapshot).Nodes {
					if n.ID == graph.NodeID(id) {
						return n, nil
					}
				}
				return nil, nil
			},
		},
		"edges": &graphql.Field{
			Type: graphql.NewList(edgeType),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(canvas.Snapshot).Edges, nil
			},
		},
		"view": &graphql.Field{
			Type: viewType,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source, nil
			},
		},
		"selected": &graphql.Field{
			Type: graphql.ID,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if s := p.Source.(canvas.Snapshot).Selected; s != "" {
					return string(s), nil
				}
				return nil, nil
			},
		},
		"pending": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(canvas.Snapshot).Pending, nil
			},
		},
	},
})

// GenerateSchema builds the query schema over src.
func GenerateSchema(src Source) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"canvases": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(graphql.ID)),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return src.IDs(), nil
				},
			},
			"canvas": &graphql.Field{
				Type: canvasType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					ctx := p.Context
					if ctx == nil {
						ctx = context.Background()
					}
					c, err := src.Open(ctx, id)
					if err != nil {
						return nil, err
					}
					return c.Snapshot(), nil
				},
			},
			"children": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Args: graphql.FieldConfigArgument{
					"canvas": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"group":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["canvas"].(string)
					group, _ := p.Args["group"].(string)
					ctx := p.Context
					if ctx == nil {
						ctx = context.Background()
					}
					c, err := src.Open(ctx, id)
					if err != nil {
						return nil, err
					}
					return c.Children(graph.NodeID(group)), nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
