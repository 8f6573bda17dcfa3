package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/dd0wney/strategy-canvas/pkg/api/middleware"
	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondErr maps domain errors onto HTTP statuses. Unknown errors become a
// 500 whose detail is logged rather than returned.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed",
			logging.Operation(op),
			logging.String("request_id", middleware.GetRequestID(r)),
			logging.Error(err),
		)
		s.respondError(w, status, op+" failed")
		return
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, interaction.ErrNoTarget):
		return http.StatusNotFound
	case errors.Is(err, interaction.ErrGestureActive), errors.Is(err, graph.ErrDuplicateNode):
		return http.StatusConflict
	case errors.Is(err, canvas.ErrInvalidID),
		errors.Is(err, canvas.ErrNotGroup),
		errors.Is(err, graph.ErrUnknownKind),
		errors.Is(err, graph.ErrSelfParent),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, canvas.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// decodeJSON reads exactly one JSON value into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

// invalid wraps a validation failure as a 400.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
