package api

import (
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Canvases int    `json:"canvases"`
}

type CanvasListResponse struct {
	Canvases []string `json:"canvases"`
}

// ConnectionResponse reports whether a connect or disconnect changed the
// graph. Self and duplicate connections succeed with Changed false.
type ConnectionResponse struct {
	From    graph.NodeID `json:"from"`
	To      graph.NodeID `json:"to"`
	Changed bool         `json:"changed"`
}

type DeleteResponse struct {
	Deleted graph.NodeID `json:"deleted,omitempty"`
	Found   bool         `json:"found"`
}

type LayoutResponse struct {
	Algorithm string `json:"algorithm"`
	Moved     int    `json:"moved"`
}

type ViewResponse struct {
	View viewport.View `json:"view"`
}
