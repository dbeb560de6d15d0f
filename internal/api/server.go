package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/docstore"
	"github.com/dgallion1/docmark/internal/pipeline"
	"github.com/dgallion1/docmark/internal/score"
)

// Server is the HTTP API server for docmark.
type Server struct {
	router chi.Router
	docs   *docstore.Store
	runs   *pipeline.Coordinator
	stats  *score.LLMStats
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(docs *docstore.Store, runs *pipeline.Coordinator, stats *score.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		docs:  docs,
		runs:  runs,
		stats: stats,
		log:   log,
		cfg:   cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/docs", s.handleUpload)
		r.Get("/api/docs", s.handleListDocs)
		r.Get("/api/docs/{docID}", s.handleGetDoc)
		r.Delete("/api/docs/{docID}", s.handleDeleteDoc)
		r.Get("/api/docs/{docID}/file", s.handleGetSource)
		r.Put("/api/docs/{docID}/profile", s.handleSetProfile)

		r.Get("/api/docs/{docID}/highlights", s.handleListHighlights)
		r.Post("/api/docs/{docID}/highlights", s.handleAddHighlight)
		r.Delete("/api/docs/{docID}/highlights", s.handleClearHighlights)

		r.Post("/api/docs/{docID}/auto", s.handleStartRun)
		r.Get("/api/docs/{docID}/auto/{runID}", s.handlePollRun)
		r.Delete("/api/docs/{docID}/auto/{runID}", s.handleCancelRun)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
