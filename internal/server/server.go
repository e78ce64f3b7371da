// Package server exposes the embedding boundary as a local control
// API: environment status, check-and-install with streamed progress,
// and server launch/stop.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/infrastructure/monitoring"
	"github.com/gennaker/desktop/internal/installer"
	"github.com/gennaker/desktop/internal/launch"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/pyenv"
	"github.com/gennaker/desktop/internal/relaunch"
	"github.com/gennaker/desktop/internal/shared/paths"
	"github.com/gennaker/desktop/internal/ws"
)

// Config wires the server's collaborators.
type Config struct {
	Ctx          context.Context
	Catalog      *catalog.Catalog
	Locator      *pyenv.Locator
	Runner       *installer.Runner
	Relauncher   *relaunch.Controller
	Orchestrator *launch.Orchestrator
	Resolver     *paths.Resolver
	InstallRoot  string
	Metrics      *monitoring.Metrics
	Logger       *logging.Logger
}

// Server is the control API server.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *logging.Logger
}

// New builds the router and handlers.
func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(cfg.Metrics))

	// The embedding webview loads from an app origin; allow all for
	// local use, mirroring the notebook server's wildcard origin.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	handlers := newHandlers(cfg)
	wsHandler := ws.NewHandler(cfg.Ctx, cfg.Runner, cfg.Relauncher, cfg.Locator,
		cfg.InstallRoot, cfg.Metrics, cfg.Logger)

	router.GET("/health", handlers.Health)
	router.GET("/api/status", handlers.Status)
	router.POST("/api/launch", handlers.Launch)
	router.POST("/api/stop", handlers.Stop)
	router.GET("/ws/install", wsHandler.HandleInstall)
	router.GET("/metrics", handlers.Metrics)

	return &Server{
		router: router,
		logger: cfg.Logger.Named("server"),
	}
}

// Run serves the control API until Close.
func (s *Server) Run(host, port string) error {
	s.http = &http.Server{
		Addr:    net.JoinHostPort(host, port),
		Handler: s.router,
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the control API down gracefully.
func (s *Server) Close(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
