// Package api provides the HTTP API server and handlers for the Simmer application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/simmerapp/simmer-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("Simmer API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:           st,
		services:        services,
		router:          router,
		api:             api,
		logger:          logger,
		authRateLimiter: NewRateLimiter(20, time.Minute, 10),
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerCommunityRoutes()
	s.registerRecipeRoutes()
	s.registerProposalRoutes()
	s.registerTagRoutes()
	s.registerSuggestionRoutes()
	s.registerShareRoutes()
	s.registerSearchRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
