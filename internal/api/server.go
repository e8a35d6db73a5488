package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/papergest/internal/config"
	"github.com/dgallion1/papergest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for papergest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.PapergestAPIKey, s.log))

		r.Post("/api/parse", s.handleParse)
		r.Post("/api/parse/text", s.handleParseText)
		r.Post("/api/curate", s.handleCurate)
		r.Post("/api/metadata", s.handleMetadata)

		r.Route("/api/papers", func(r chi.Router) {
			r.Post("/", s.handleIngest)
			r.Post("/batch", s.handleBatchIngest)
			r.Get("/jobs/{jobID}/status", s.handleIngestStatus)
			r.Get("/", s.handleListPapers)
			r.Get("/{paperID}", s.handleGetPaper)
			r.Put("/{paperID}/questions", s.handleReplaceQuestions)
			r.Delete("/{paperID}", s.handleDeletePaper)
		})

		r.Get("/api/stats/parse", s.handleParseStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
