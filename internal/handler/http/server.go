package http

import (
	"net/http"

	"go.uber.org/zap"

	"shorturl-backend/internal/analytics"
	"shorturl-backend/internal/auth"
	"shorturl-backend/internal/config"
	"shorturl-backend/internal/repository"
	"shorturl-backend/internal/service"
)

// Server wires the HTTP handlers and middleware into a router.
type Server struct {
	authHandlers     *auth.Handlers
	shortensHandler  *ShortensHandler
	historiesHandler *HistoriesHandler
	redirectHandler  *RedirectHandler
	healthHandler    *HealthHandler
	authMiddleware   *auth.Middleware
	log              *zap.Logger
}

// NewServer creates an HTTP server over the given services.
func NewServer(
	storage repository.Storage,
	shortener *service.ShortenService,
	histories *service.HistoryService,
	processor *analytics.Processor,
	authHandlers *auth.Handlers,
	authMiddleware *auth.Middleware,
	cfg *config.Shortener,
	log *zap.Logger,
) *Server {
	return &Server{
		authHandlers:     authHandlers,
		shortensHandler:  NewShortensHandler(shortener, cfg, log),
		historiesHandler: NewHistoriesHandler(histories, log),
		redirectHandler:  NewRedirectHandler(shortener, processor, log),
		healthHandler:    NewHealthHandler(storage, processor, log),
		authMiddleware:   authMiddleware,
		log:              log,
	}
}

// SetupRoutes builds the route table. Management endpoints sit behind
// authentication; redirects and probes stay public.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Probes (no authentication)
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	mux.HandleFunc("GET /metrics", s.healthHandler.Metrics)

	// CORS preflight for the whole API surface
	mux.HandleFunc("OPTIONS /api/", s.withCORS(func(w http.ResponseWriter, r *http.Request) {}))

	// Auth endpoints
	mux.HandleFunc("POST /api/auth/login", s.withCORS(s.authHandlers.Login))
	mux.HandleFunc("POST /api/auth/logout", s.withCORS(s.requireAuth(s.authHandlers.Logout)))

	// Short URL management
	mux.HandleFunc("POST /api/shortens", s.withCORS(s.requireAuth(s.shortensHandler.Create)))
	mux.HandleFunc("GET /api/shortens", s.withCORS(s.requireAuth(s.shortensHandler.List)))
	mux.HandleFunc("DELETE /api/shortens", s.withCORS(s.requireAuth(s.shortensHandler.DeleteBatch)))
	mux.HandleFunc("GET /api/shortens/{code}", s.withCORS(s.requireAuth(s.shortensHandler.Get)))
	mux.HandleFunc("PUT /api/shortens/{code}", s.withCORS(s.requireAuth(s.shortensHandler.Update)))
	mux.HandleFunc("DELETE /api/shortens/{code}", s.withCORS(s.requireAuth(s.shortensHandler.Delete)))

	// Access history
	mux.HandleFunc("GET /api/histories", s.withCORS(s.requireAuth(s.historiesHandler.List)))
	mux.HandleFunc("DELETE /api/histories", s.withCORS(s.requireAuth(s.historiesHandler.DeleteBatch)))

	// Public redirect, one path segment
	mux.HandleFunc("GET /{code}", s.redirectHandler.HandleRedirect)
	mux.HandleFunc("GET /{$}", http.NotFound)

	return mux
}

func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}

func (s *Server) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.RequireAuth(handler)
}
