package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *zap.Logger
}

// New creates a server with the middleware chain and every API route
// registered.
func New(cfg *config.Config, deps api.Deps) *Server {
	if cfg.Env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.ErrorHandler(deps.Log),
		middleware.RequestLogger(deps.Log),
		middleware.CORS(cfg.CORSOrigins),
	)

	if prefix := mediaPrefix(cfg); prefix != "" {
		router.Static(prefix, cfg.MediaRoot)
	}
	api.SetupAPI(router, deps)

	return &Server{
		router: router,
		log:    deps.Log,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// mediaPrefix is the path local images are served from, or empty when
// images live elsewhere.
func mediaPrefix(cfg *config.Config) string {
	if cfg.StorageBackend != "local" {
		return ""
	}
	u, err := url.Parse(cfg.MediaURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return u.Path
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	return s.http.Shutdown(ctx)
}
