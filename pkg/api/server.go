// Package api serves the canvas over HTTP: REST routes for nodes,
// connections and gestures, an SVG frame, a websocket event stream and a
// GraphQL read endpoint.
package api

import (
	"errors"
	"net/http"

	gql "github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/dd0wney/strategy-canvas/pkg/api/middleware"
	"github.com/dd0wney/strategy-canvas/pkg/auth"
	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/graphql"
	"github.com/dd0wney/strategy-canvas/pkg/health"
	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/metrics"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
)

// Version is reported by GET /health.
var Version = "dev"

// DefaultBacklogThreshold is the pending-write count at which readiness
// reports degraded.
const DefaultBacklogThreshold = 1000

// Config tunes the HTTP surface.
type Config struct {
	AllowedOrigins  []string
	MaxBodyBytes    int64
	GraphQLMaxDepth int
	TLSEnabled      bool
}

// Options wires a Server. Manager is required; Bus enables the event
// stream; a nil Auth leaves every route open. Health backs
// GET /health/ready and defaults to a backlog and memory check.
type Options struct {
	Manager *canvas.Manager
	Bus     *pubsub.PubSub
	Metrics *metrics.Registry
	Health  *health.Checker
	Logger  logging.Logger
	Auth    auth.TokenValidator
	Config  Config
}

// Server is the canvas HTTP API.
type Server struct {
	manager *canvas.Manager
	bus     *pubsub.PubSub
	metrics *metrics.Registry
	logger  logging.Logger
	auth    auth.TokenValidator
	health  *health.Checker
	config  Config

	schema  gql.Schema
	handler http.Handler
}

// NewServer builds the route table and middleware chain.
func NewServer(opts Options) (*Server, error) {
	if opts.Manager == nil {
		return nil, errors.New("api: canvas manager is required")
	}
	if opts.Config.MaxBodyBytes <= 0 {
		opts.Config.MaxBodyBytes = middleware.DefaultMaxBodyBytes
	}
	if opts.Config.GraphQLMaxDepth == 0 {
		opts.Config.GraphQLMaxDepth = graphql.DefaultMaxDepth
	}
	if len(opts.Config.AllowedOrigins) == 0 {
		opts.Config.AllowedOrigins = []string{"*"}
	}

	schema, err := graphql.GenerateSchema(opts.Manager)
	if err != nil {
		return nil, err
	}

	if opts.Health == nil {
		opts.Health = health.NewChecker()
		opts.Health.Register("persistence_backlog", health.BacklogCheck(opts.Manager.Pending, DefaultBacklogThreshold))
		opts.Health.Register("memory", health.MemoryCheck(nil))
	}

	s := &Server{
		manager: opts.Manager,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		logger:  logging.OrNop(opts.Logger).With(logging.Component("api")),
		auth:    opts.Auth,
		health:  opts.Health,
		config:  opts.Config,
		schema:  schema,
	}
	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /health/ready", s.health.Handler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	s.route(mux, "GET /canvases", s.authenticated(s.handleListCanvases))
	s.route(mux, "GET /canvases/{id}", s.authenticated(s.withCanvas(s.handleSnapshot)))
	s.route(mux, "GET /canvases/{id}/render.svg", s.authenticated(s.withCanvas(s.handleRenderSVG)))
	s.route(mux, "GET /canvases/{id}/events", s.authenticated(s.handleEvents))

	s.route(mux, "POST /canvases/{id}/nodes", s.editor(s.withCanvas(s.handleAddNode)))
	s.route(mux, "POST /canvases/{id}/drop", s.editor(s.withCanvas(s.handleDropNode)))
	s.route(mux, "PATCH /canvases/{id}/nodes/{nodeID}", s.editor(s.withCanvas(s.handleUpdateNode)))
	s.route(mux, "DELETE /canvases/{id}/nodes/{nodeID}", s.editor(s.withCanvas(s.handleDeleteNode)))
	s.route(mux, "DELETE /canvases/{id}/selection", s.editor(s.withCanvas(s.handleDeleteSelected)))
	s.route(mux, "POST /canvases/{id}/connections", s.editor(s.withCanvas(s.handleConnect)))
	s.route(mux, "DELETE /canvases/{id}/connections", s.editor(s.withCanvas(s.handleDisconnect)))
	s.route(mux, "POST /canvases/{id}/pointer", s.editor(s.withCanvas(s.handlePointer)))
	s.route(mux, "POST /canvases/{id}/layout", s.editor(s.withCanvas(s.handleLayout)))

	// View changes are per user, so viewers may make them.
	s.route(mux, "POST /canvases/{id}/wheel", s.authenticated(s.withCanvas(s.handleWheel)))
	s.route(mux, "POST /canvases/{id}/view", s.authenticated(s.withCanvas(s.handleView)))

	gqlHandler := graphql.NewHandler(s.schema, s.config.GraphQLMaxDepth, s.logger)
	s.route(mux, "POST /graphql", s.authenticated(gqlHandler.ServeHTTP))

	var handler http.Handler = mux
	handler = middleware.BodySizeLimit(s.config.MaxBodyBytes)(handler)
	handler = middleware.SecurityHeaders(&middleware.SecurityHeadersConfig{TLSEnabled: s.config.TLSEnabled})(handler)
	handler = s.cors().Handler(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.PanicRecovery(s.logger)(handler)
	handler = middleware.RequestID()(handler)
	return handler
}

// route registers h under pattern with per-route metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var recorder middleware.MetricsRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	mux.Handle(pattern, middleware.Metrics(recorder, pattern)(h))
}

func (s *Server) cors() *cors.Cors {
	origins := s.config.AllowedOrigins
	allowAll := false
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowOriginFunc: func(origin string) bool {
			if allowAll {
				return true
			}
			for _, o := range origins {
				if o == origin {
					return true
				}
			}
			return false
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"ETag", middleware.RequestIDHeader},
		MaxAge:         300,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Canvases: len(s.manager.IDs()),
	})
}

func (s *Server) handleListCanvases(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, CanvasListResponse{Canvases: s.manager.IDs()})
}
