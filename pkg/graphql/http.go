package graphql

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/graphql-go/graphql"

	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

// Request is a GraphQL-over-HTTP POST body.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response is the JSON reply for every executed request.
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error is one GraphQL error message.
type Error struct {
	Message string `json:"message"`
}

// Handler serves POST /graphql. CORS is left to the surrounding router.
type Handler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger
}

// NewHandler creates a handler enforcing maxDepth (0 disables the limit).
func NewHandler(schema graphql.Schema, maxDepth int, logger logging.Logger) *Handler {
	return &Handler{
		schema:   schema,
		maxDepth: maxDepth,
		logger:   logging.OrNop(logger).With(logging.Component("graphql")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "Missing query", http.StatusBadRequest)
		return
	}

	result := ExecuteRequest(r.Context(), h.schema, req, h.maxDepth)

	response := Response{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]Error, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = Error{Message: err.Message}
		}
		h.logger.Debug("query returned errors", logging.Count(len(result.Errors)), logging.String("first", result.Errors[0].Message))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Warn("failed to write response", logging.Error(err))
	}
}
