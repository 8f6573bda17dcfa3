package api

import (
	"net/http"
	"strconv"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/validation"
)

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.NodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "add node", err)
		return
	}
	if err := validation.ValidateNodeRequest(&req); err != nil {
		s.respondErr(w, r, "add node", invalid(err))
		return
	}
	kind, _ := graph.ParseKind(req.Kind)

	var (
		n   *graph.Node
		err error
	)
	if req.X != nil && req.Y != nil {
		n, err = c.AddNodeAtPosition(kind, req.Payload, *req.X, *req.Y)
	} else {
		n, err = c.AddNode(kind, req.Payload)
	}
	if err == nil && req.Title != "" {
		n, err = c.Rename(n.ID, req.Title)
	}
	if err != nil {
		s.respondErr(w, r, "add node", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, n)
}

// handleDropNode places a palette drop given in client coordinates.
func (s *Server) handleDropNode(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.NodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "drop node", err)
		return
	}
	if err := validation.ValidateNodeRequest(&req); err != nil {
		s.respondErr(w, r, "drop node", invalid(err))
		return
	}
	if req.X == nil || req.Y == nil {
		s.respondError(w, http.StatusBadRequest, "NodeRequest.X: field is required")
		return
	}
	kind, _ := graph.ParseKind(req.Kind)

	n, err := c.DropNode(kind, req.Payload, *req.X, *req.Y)
	if err == nil && req.Title != "" {
		n, err = c.Rename(n.ID, req.Title)
	}
	if err != nil {
		s.respondErr(w, r, "drop node", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, n)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.NodePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "update node", err)
		return
	}
	if err := validation.ValidateNodePatchRequest(&req); err != nil {
		s.respondErr(w, r, "update node", invalid(err))
		return
	}
	id := graph.NodeID(r.PathValue("nodeID"))

	// Reparent first: it is the only part that can be rejected on content.
	if req.ParentGroupID != nil {
		if _, err := c.Reparent(id, graph.NodeID(*req.ParentGroupID)); err != nil {
			s.respondErr(w, r, "update node", err)
			return
		}
	}
	var patch graph.Patch
	patch.Title = req.Title
	if req.Payload != nil {
		patch.Payload = graph.Payload(req.Payload)
	}
	n, err := c.Update(id, patch)
	if err != nil {
		s.respondErr(w, r, "update node", err)
		return
	}
	s.respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	id := graph.NodeID(r.PathValue("nodeID"))
	if err := c.RemoveNode(id); err != nil {
		s.respondErr(w, r, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	id, found, err := c.DeleteSelected()
	if err != nil {
		s.respondErr(w, r, "delete selection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteResponse{Deleted: id, Found: found})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	var req validation.ConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "connect", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondErr(w, r, "connect", invalid(err))
		return
	}
	from, to := graph.NodeID(req.From), graph.NodeID(req.To)
	added, err := c.Connect(from, to)
	if err != nil {
		s.respondErr(w, r, "connect", err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, ConnectionResponse{From: from, To: to, Changed: added})
}

// handleDisconnect removes an edge named in the body, or with ?x=&y= the
// edge under that client point.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request, c *canvas.Canvas) {
	q := r.URL.Query()
	if q.Has("x") || q.Has("y") {
		x, errX := strconv.ParseFloat(q.Get("x"), 64)
		y, errY := strconv.ParseFloat(q.Get("y"), 64)
		if errX != nil || errY != nil {
			s.respondError(w, http.StatusBadRequest, "x and y must both be numbers")
			return
		}
		edge, removed, err := c.DeleteEdgeAt(x, y)
		if err != nil {
			s.respondErr(w, r, "disconnect", err)
			return
		}
		if !removed {
			s.respondError(w, http.StatusNotFound, "no connection at that point")
			return
		}
		s.respondJSON(w, http.StatusOK, ConnectionResponse{From: edge.From, To: edge.To, Changed: true})
		return
	}

	var req validation.ConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, "disconnect", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		s.respondErr(w, r, "disconnect", invalid(err))
		return
	}
	from, to := graph.NodeID(req.From), graph.NodeID(req.To)
	removed, err := c.Disconnect(from, to)
	if err != nil {
		s.respondErr(w, r, "disconnect", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ConnectionResponse{From: from, To: to, Changed: removed})
}
