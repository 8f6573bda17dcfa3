package render

import (
	"fmt"
	"strings"

	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

// Action names exposed by kind-specific buttons.
const (
	ActionLinkDocuments = "link-documents"
	ActionConfigure     = "configure"
)

// Payload keys read by the built-in renderers.
const (
	PayloadDocumentIDs = "documentIds"
	PayloadModel       = "model"
	PayloadTone        = "tone"
	PayloadNote        = "note"
)

// GenericRenderer draws a plain note card.
type GenericRenderer struct{ cardRenderer }

// NewGenericRenderer returns the renderer for KindGeneric.
func NewGenericRenderer(m Metrics) *GenericRenderer {
	return &GenericRenderer{cardRenderer{
		kind:    graph.KindGeneric,
		label:   "Note",
		colors:  palette{fill: "#ffffff", stroke: "#94a3b8", accent: "#475569"},
		metrics: m,
	}}
}

func (g *GenericRenderer) Draw(s Surface, p NodeProps) {
	g.drawFrame(s, p, func(inner geometry.Rect, m Metrics) {
		note, _ := p.Node.Payload[PayloadNote].(string)
		if note == "" {
			return
		}
		s.Text(geometry.Pt(inner.X, inner.Y+m.FontSize/max(p.Scale, 0.01)), note, Style{
			Fill: "#334155", FontSize: m.FontSize, MaxWidth: inner.Width, Class: "text",
		})
	})
}

// GroupRenderer draws a dashed container. Children are separate nodes
// pointing at it through ParentGroupID.
type GroupRenderer struct{ cardRenderer }

// NewGroupRenderer returns the renderer for KindGroup.
func NewGroupRenderer(m Metrics) *GroupRenderer {
	return &GroupRenderer{cardRenderer{
		kind:    graph.KindGroup,
		label:   "Group",
		colors:  palette{fill: "#f1f5f9", stroke: "#64748b", accent: "#64748b", dash: "6 4"},
		metrics: m,
	}}
}

func (g *GroupRenderer) Draw(s Surface, p NodeProps) {
	g.drawFrame(s, p, nil)
}

// DocumentAgentRenderer draws an agent bound to linked documents.
type DocumentAgentRenderer struct{ cardRenderer }

// NewDocumentAgentRenderer returns the renderer for KindDocumentAgent.
func NewDocumentAgentRenderer(m Metrics) *DocumentAgentRenderer {
	return &DocumentAgentRenderer{cardRenderer{
		kind:    graph.KindDocumentAgent,
		label:   "Document agent",
		colors:  palette{fill: "#eff6ff", stroke: "#3b82f6", accent: "#2563eb"},
		metrics: m,
		actions: []string{ActionLinkDocuments},
	}}
}

func (d *DocumentAgentRenderer) Draw(s Surface, p NodeProps) {
	d.drawFrame(s, p, func(inner geometry.Rect, m Metrics) {
		n := len(DocumentIDs(p.Node.Payload))
		label := "No documents linked"
		switch n {
		case 0:
		case 1:
			label = "1 document"
		default:
			label = fmt.Sprintf("%d documents", n)
		}
		s.Text(geometry.Pt(inner.X, inner.Y+m.FontSize/max(p.Scale, 0.01)), label, Style{
			Fill: "#1e3a8a", FontSize: m.FontSize, MaxWidth: inner.Width, Class: "text",
		})
	})
}

// ConfigurableAgentRenderer draws an agent with model and tone settings.
type ConfigurableAgentRenderer struct{ cardRenderer }

// NewConfigurableAgentRenderer returns the renderer for KindConfigurableAgent.
func NewConfigurableAgentRenderer(m Metrics) *ConfigurableAgentRenderer {
	return &ConfigurableAgentRenderer{cardRenderer{
		kind:    graph.KindConfigurableAgent,
		label:   "Agent",
		colors:  palette{fill: "#f5f3ff", stroke: "#8b5cf6", accent: "#7c3aed"},
		metrics: m,
		actions: []string{ActionConfigure},
	}}
}

func (c *ConfigurableAgentRenderer) Draw(s Surface, p NodeProps) {
	c.drawFrame(s, p, func(inner geometry.Rect, m Metrics) {
		var parts []string
		if model, _ := p.Node.Payload[PayloadModel].(string); model != "" {
			parts = append(parts, model)
		}
		if tone, _ := p.Node.Payload[PayloadTone].(string); tone != "" {
			parts = append(parts, tone)
		}
		if len(parts) == 0 {
			parts = append(parts, "Not configured")
		}
		s.Text(geometry.Pt(inner.X, inner.Y+m.FontSize/max(p.Scale, 0.01)), strings.Join(parts, " · "), Style{
			Fill: "#4c1d95", FontSize: m.FontSize, MaxWidth: inner.Width, Class: "text",
		})
	})
}

// DocumentIDs extracts the linked document ids from a payload. It accepts
// both []string and the []any produced by JSON decoding.
func DocumentIDs(p graph.Payload) []string {
	switch v := p[PayloadDocumentIDs].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
