package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/survey-admin/internal/authoring"
	"github.com/terra-clan/survey-admin/internal/config"
	"github.com/terra-clan/survey-admin/internal/dashboard"
	"github.com/terra-clan/survey-admin/internal/health"
	"github.com/terra-clan/survey-admin/internal/sessions"
	"github.com/terra-clan/survey-admin/internal/starters"
	"github.com/terra-clan/survey-admin/internal/storage"
)

// Dependencies are the services the API is built on
type Dependencies struct {
	Fetcher   dashboard.Fetcher
	Sessions  sessions.Store
	Starters  *starters.Loader
	Publisher *authoring.Publisher
	Journal   storage.Journal
	PageSize  int
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	fetcher        dashboard.Fetcher
	sessions       sessions.Store
	starters       *starters.Loader
	publisher      *authoring.Publisher
	journal        storage.Journal
	pageSize       int
	health         *health.Registry
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	pageSize := deps.PageSize
	if !dashboard.ValidPageSize(pageSize) {
		pageSize = dashboard.DefaultPageSize
	}

	s := &Server{
		config:         cfg,
		fetcher:        deps.Fetcher,
		sessions:       deps.Sessions,
		starters:       deps.Starters,
		publisher:      deps.Publisher,
		journal:        deps.Journal,
		pageSize:       pageSize,
		health:         health.NewRegistry(),
		authMiddleware: NewAuthMiddleware(cfg.AdminAPIKey),
	}
	s.health.Register("sessions", health.CheckerFunc(deps.Sessions.Ping))
	s.health.Register("journal", health.CheckerFunc(deps.Journal.Ping))
	s.setupRouter()
	return s
}

// Health returns the readiness registry so callers can add dependencies
func (s *Server) Health() *health.Registry {
	return s.health
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// The websocket outlives any request timeout
		r.Get("/dashboard/ws", s.handleDashboardWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/dashboard/{section}", s.handleDashboard)

			r.Route("/starters", func(r chi.Router) {
				r.Get("/", s.handleListStarters)
				r.Get("/{name}", s.handleGetStarter)
			})

			r.Route("/drafts", func(r chi.Router) {
				r.Post("/", s.handleCreateDraft)
				r.Post("/import", s.handleImportDraft)
				r.Post("/upload", s.handleUploadStarter)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(s.sessionContext)

					r.Get("/", s.handleGetDraft)
					r.Delete("/", s.handleDeleteDraft)
					r.Get("/export", s.handleExportDraft)
					r.Put("/name", s.handleSetName)
					r.Post("/next", s.handleNext)
					r.Post("/back", s.handleBack)

					r.Post("/questions", s.handleAddQuestion)
					r.Route("/questions/{qid}", func(r chi.Router) {
						r.Patch("/", s.handleUpdateQuestion)
						r.Delete("/", s.handleRemoveQuestion)
						r.Post("/options", s.handleAddOption)
						r.Put("/options/{index}", s.handleUpdateOption)
					})

					r.Post("/save", s.handleSaveDraft)
					r.Post("/publish", s.handlePublish)
				})
			})

			r.Route("/publications", func(r chi.Router) {
				r.Get("/", s.handleListPublications)
				r.Get("/{id}", s.handleGetPublication)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
