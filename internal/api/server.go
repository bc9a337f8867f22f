package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/appgrid/catalog-engine/internal/assets"
	"github.com/appgrid/catalog-engine/internal/auth"
	"github.com/appgrid/catalog-engine/internal/catalog"
	"github.com/appgrid/catalog-engine/internal/config"
)

// Server represents the HTTP API server
type Server struct {
	config        config.ServerConfig
	router        *chi.Mux
	catalog       *catalog.Synchronizer
	authenticator *auth.Authenticator
	assetStore    assets.Store
	sessionAuth   *SessionMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	sync *catalog.Synchronizer,
	authenticator *auth.Authenticator,
	assetStore assets.Store,
) *Server {
	s := &Server{
		config:        cfg,
		catalog:       sync,
		authenticator: authenticator,
		assetStore:    assetStore,
		sessionAuth:   NewSessionMiddleware(authenticator),
	}
	s.setupRouter()
	return s
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
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog surface
		r.Get("/apps", s.handleListApps)
		r.Get("/apps/{id}", s.handleGetApp)
		r.Post("/apps/{id}/download", s.handleDownload)
		r.Get("/categories", s.handleCategories)
		r.Get("/feed", s.handleFeed)

		// Authentication
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		// Admin dashboard (requires an admin session)
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.sessionAuth.RequireAdmin)

			r.Post("/apps", s.handleCreateApp)
			r.Put("/apps/{id}", s.handleUpdateApp)
			r.Delete("/apps/{id}", s.handleDeleteApp)
			r.Post("/assets", s.handleUploadAsset)
			r.Get("/analytics", s.handleAnalytics)
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
