package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/notetree/internal/config"
	"github.com/dgallion1/notetree/internal/document"
	"github.com/dgallion1/notetree/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API server for one open document.
type Server struct {
	router       chi.Router
	doc          *document.Document
	orchestrator *jobs.Orchestrator
	registry     *prometheus.Registry
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. A nil registry serves
// no /metrics endpoint.
func NewServer(doc *document.Document, orch *jobs.Orchestrator, reg *prometheus.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		doc:          doc,
		orchestrator: orch,
		registry:     reg,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/nodes", s.handleMainNodes)
		r.Get("/api/bookmarks", s.handleBookmarks)
		r.Route("/api/nodes/{id}", func(r chi.Router) {
			r.Get("/", s.handleNode)
			r.Get("/children", s.handleChildren)
			r.Get("/parent", s.handleParent)
			r.Get("/path", s.handlePath)
			r.Get("/content", s.handleContent)
			r.Get("/find", s.handleFind)
			r.Get("/payload", s.handlePayload)
			r.Get("/export.{format}", s.handleExport)
		})

		r.Post("/api/search", s.handleSearch)
		r.Get("/api/search/{jobID}", s.handleSearchStatus)
		r.Delete("/api/search/{jobID}", s.handleSearchCancel)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
