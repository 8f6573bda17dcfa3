package api

import (
	"errors"
	"net/http"

	"github.com/dd0wney/strategy-canvas/pkg/auth"
	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
)

// canvasHandler receives the canvas named by the {id} path segment.
type canvasHandler func(w http.ResponseWriter, r *http.Request, c *canvas.Canvas)

// authenticated requires a valid bearer token when auth is configured and
// stores its claims in the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	if s.auth == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.Authenticate(r, s.auth)
		if err != nil {
			s.logger.Debug("token validation failed", logging.Error(err), logging.String("validator", s.auth.Name()))
			if errors.Is(err, auth.ErrMissingToken) {
				s.respondError(w, http.StatusUnauthorized, "Missing authentication (Bearer token required)")
				return
			}
			s.respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// editor additionally requires a role allowed to change the graph.
func (s *Server) editor(next http.HandlerFunc) http.HandlerFunc {
	if s.auth == nil {
		return next
	}
	return s.authenticated(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		if !claims.CanEdit() {
			s.respondError(w, http.StatusForbidden, "Role "+claims.Role+" cannot modify canvases")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCanvas opens (or creates) the canvas named in the path.
func (s *Server) withCanvas(next canvasHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.manager.Open(r.Context(), r.PathValue("id"))
		if err != nil {
			s.respondErr(w, r, "open canvas", err)
			return
		}
		next(w, r, c)
	}
}
