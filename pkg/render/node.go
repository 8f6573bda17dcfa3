package render

import (
	"github.com/dd0wney/strategy-canvas/pkg/anchor"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
)

// NodeProps is everything a node renderer needs to draw one node.
type NodeProps struct {
	Node     *graph.Node
	Selected bool
	Scale    float64
	Handlers interaction.NodeHandlers
}

// Control is an interactive element of a node in canvas units.
type Control struct {
	Kind   interaction.TargetKind
	Bounds geometry.Rect
	Side   anchor.Side
	Action string
	Label  string
}

// Target converts the control into a hit-test result for node id.
func (c Control) Target(id graph.NodeID) interaction.Target {
	return interaction.Target{Kind: c.Kind, NodeID: id, Side: c.Side, Action: c.Action}
}

// NodeRenderer is the per-kind drawing strategy.
type NodeRenderer interface {
	Kind() graph.NodeKind
	// Controls lists the node's interactive elements, highest priority first.
	Controls(n *graph.Node, scale float64) []Control
	Draw(s Surface, p NodeProps)
}

// Metrics are control sizes in screen pixels. They are divided by the view
// scale so handles keep a constant on-screen size.
type Metrics struct {
	Padding      float64
	HandleSize   float64
	AnchorRadius float64
	DeleteSize   float64
	TitleHeight  float64
	ButtonWidth  float64
	ButtonHeight float64
	FontSize     float64
}

// DefaultMetrics returns the standard control sizes.
func DefaultMetrics() Metrics {
	return Metrics{
		Padding:      8,
		HandleSize:   14,
		AnchorRadius: 8,
		DeleteSize:   16,
		TitleHeight:  24,
		ButtonWidth:  96,
		ButtonHeight: 22,
		FontSize:     13,
	}
}

func (m Metrics) scaled(scale float64) Metrics {
	if scale <= 0 {
		scale = 1
	}
	return Metrics{
		Padding:      m.Padding / scale,
		HandleSize:   m.HandleSize / scale,
		AnchorRadius: m.AnchorRadius / scale,
		DeleteSize:   m.DeleteSize / scale,
		TitleHeight:  m.TitleHeight / scale,
		ButtonWidth:  m.ButtonWidth / scale,
		ButtonHeight: m.ButtonHeight / scale,
		FontSize:     m.FontSize,
	}
}

// palette is the per-kind color scheme.
type palette struct {
	fill   string
	stroke string
	accent string
	dash   string
}

// cardRenderer holds the layout shared by every kind. Kind renderers embed
// it and add their own body and buttons.
type cardRenderer struct {
	kind    graph.NodeKind
	label   string
	colors  palette
	metrics Metrics
	actions []string
}

func (b *cardRenderer) Kind() graph.NodeKind { return b.kind }

func (b *cardRenderer) Controls(n *graph.Node, scale float64) []Control {
	m := b.metrics.scaled(scale)
	r := n.Geometry
	controls := []Control{
		{
			Kind:   interaction.TargetResizeHandle,
			Bounds: geometry.R(r.Right()-m.HandleSize, r.Bottom()-m.HandleSize, m.HandleSize, m.HandleSize),
		},
		{
			Kind:   interaction.TargetDelete,
			Bounds: geometry.R(r.Right()-m.Padding-m.DeleteSize, r.Y+m.Padding, m.DeleteSize, m.DeleteSize),
			Label:  "×",
		},
	}
	for _, a := range anchor.AnchorsOf(n) {
		controls = append(controls, Control{
			Kind:   interaction.TargetAnchor,
			Side:   a.Side,
			Bounds: geometry.R(a.Point.X-m.AnchorRadius, a.Point.Y-m.AnchorRadius, 2*m.AnchorRadius, 2*m.AnchorRadius),
		})
	}
	for i, action := range b.actions {
		controls = append(controls, Control{
			Kind:   interaction.TargetAction,
			Action: action,
			Label:  action,
			Bounds: geometry.R(
				r.X+m.Padding+float64(i)*(m.ButtonWidth+m.Padding),
				r.Bottom()-m.Padding-m.ButtonHeight,
				m.ButtonWidth, m.ButtonHeight),
		})
	}
	controls = append(controls, Control{
		Kind:   interaction.TargetTitle,
		Bounds: geometry.R(r.X+m.Padding, r.Y+m.Padding, r.Width-3*m.Padding-m.DeleteSize, m.TitleHeight),
	})
	return controls
}

// drawFrame draws the parts common to every card: body, title, delete
// button, resize handle, anchors and action buttons.
func (b *cardRenderer) drawFrame(s Surface, p NodeProps, body func(inner geometry.Rect, m Metrics)) {
	n := p.Node
	m := b.metrics.scaled(p.Scale)
	r := n.Geometry

	s.Group(string(n.ID), Style{
		Class: "node node-" + n.Kind.String(),
		Data:  map[string]string{"node-id": string(n.ID), "kind": n.Kind.String()},
	})
	defer s.EndGroup()

	frame := Style{Fill: b.colors.fill, Stroke: b.colors.stroke, StrokeWidth: 1.5, Dash: b.colors.dash, Class: "body"}
	if p.Selected {
		frame.Stroke = "#0ea5e9"
		frame.StrokeWidth = 3
		frame.Class = "selected"
	}
	s.Rect(r, 8/max(p.Scale, 0.01), frame)

	title := n.Title
	if title == "" {
		title = b.label
	}
	s.Text(geometry.Pt(r.X+m.Padding, r.Y+m.Padding+m.TitleHeight*0.7), title, Style{
		Fill: "#0f172a", FontSize: m.FontSize + 1, MaxWidth: r.Width - 3*m.Padding - m.DeleteSize, Class: "title",
		Data: map[string]string{"action": "title"},
	})

	inner := geometry.R(r.X+m.Padding, r.Y+m.Padding+m.TitleHeight, r.Width-2*m.Padding, r.Height-2*m.Padding-m.TitleHeight)
	if body != nil {
		body(inner, m)
	}

	for _, c := range b.Controls(n, p.Scale) {
		data := map[string]string{"action": c.Kind.String(), "node-id": string(n.ID)}
		switch c.Kind {
		case interaction.TargetDelete:
			s.Text(c.Bounds.Center().Add(geometry.Pt(0, m.FontSize*0.35/max(p.Scale, 0.01))), c.Label, Style{
				Fill: "#64748b", FontSize: m.FontSize + 3, TextAnchor: "middle", Class: "control", Data: data,
			})
		case interaction.TargetResizeHandle:
			br := geometry.Pt(c.Bounds.Right(), c.Bounds.Bottom())
			s.Polygon([]geometry.Point{
				br,
				geometry.Pt(c.Bounds.X, c.Bounds.Bottom()),
				geometry.Pt(c.Bounds.Right(), c.Bounds.Y),
			}, Style{Fill: b.colors.stroke, Opacity: 0.6, Class: "control", Data: data})
		case interaction.TargetAnchor:
			data["side"] = c.Side.String()
			s.Circle(c.Bounds.Center(), m.AnchorRadius/2, Style{
				Fill: "#ffffff", Stroke: b.colors.accent, StrokeWidth: 1.5, Class: "anchor", Data: data,
			})
		case interaction.TargetAction:
			data["name"] = c.Action
			s.Rect(c.Bounds, 4/max(p.Scale, 0.01), Style{Fill: b.colors.accent, Class: "control", Data: data})
			s.Text(c.Bounds.Center().Add(geometry.Pt(0, m.FontSize*0.35/max(p.Scale, 0.01))), c.Label, Style{
				Fill: "#ffffff", FontSize: m.FontSize - 1, TextAnchor: "middle", MaxWidth: c.Bounds.Width, Class: "control",
			})
		}
	}
}
