package api

import (
	"errors"
	"net/http"

	"github.com/dd0wney/strategy-canvas/pkg/auth"
	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/interaction"
	"github.com/dd0wney/strategy-canvas/pkg/layout"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/validation"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	s.respondJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	body, etag, err := c.RenderSVG()
	if err != nil {
		s.respondErr(w, r, "render", err)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("failed to write frame", logging.Error(err))
	}
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.PointerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "pointer", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondErr(w, r, "pointer", invalid(err))
		return
	}
	typ, err := canvas.ParsePointerType(req.Type)
	if err != nil {
		s.respondErr(w, r, "pointer", invalid(err))
		return
	}

	res, err := c.Pointer(typ, req.X, req.Y)
	if err != nil {
		s.respondErr(w, r, "pointer", err)
		return
	}
	if res.Ended != nil && res.Ended.Gesture == interaction.Panning {
		s.saveView(r, c)
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleWheel(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.WheelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "wheel", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondErr(w, r, "wheel", invalid(err))
		return
	}
	view, err := c.Wheel(req.X, req.Y, req.Factor)
	if err != nil {
		s.respondErr(w, r, "wheel", err)
		return
	}
	s.saveView(r, c)
	s.respondJSON(w, http.StatusOK, ViewResponse{View: view})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.ViewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "view", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondErr(w, r, "view", invalid(err))
		return
	}

	var (
		view viewport.View
		err  error
	)
	switch req.Action {
	case "reset":
		view, err = c.ResetView()
	case "fit":
		view, err = c.FitToContent(req.Width, req.Height)
	case "zoom":
		view, err = c.ZoomBy(req.Factor)
	case "restore":
		user := auth.UserID(r.Context())
		if user == "" {
			s.respondError(w, http.StatusBadRequest, "restoring a saved view requires an authenticated user")
			return
		}
		view, err = c.RestoreView(r.Context(), user)
		if errors.Is(err, canvas.ErrNoView) {
			s.respondError(w, http.StatusNotImplemented, err.Error())
			return
		}
		// restoring must not overwrite what it just read
		if err == nil {
			s.respondJSON(w, http.StatusOK, ViewResponse{View: view})
			return
		}
	}
	if err != nil {
		s.respondErr(w, r, "view", err)
		return
	}
	s.saveView(r, c)
	s.respondJSON(w, http.StatusOK, ViewResponse{View: view})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.LayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "layout", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondErr(w, r, "layout", invalid(err))
		return
	}
	moved, err := c.AutoLayout(layout.Algorithm(req.Algorithm))
	if err != nil {
		s.respondErr(w, r, "layout", err)
		return
	}
	s.respondJSON(w, http.StatusOK, LayoutResponse{Algorithm: req.Algorithm, Moved: moved})
}

// saveView stores the caller's view preference. Anonymous callers and
// canvases without a view store are skipped; failures only log.
func (s *Server) saveView(r *http.Request, c *canvas.Canvas) {
	user := auth.UserID(r.Context())
	if user == "" {
		return
	}
	if err := c.SaveView(r.Context(), user); err != nil && !errors.Is(err, canvas.ErrNoView) {
		s.logger.Warn("failed to save view", logging.Canvas(c.ID()), logging.String("user", user), logging.Error(err))
	}
}
