package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/infrastructure/monitoring"
	"github.com/gennaker/desktop/internal/launch"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/pyenv"
)

type handlers struct {
	ctx          context.Context
	catalog      *catalog.Catalog
	locator      *pyenv.Locator
	orchestrator *launch.Orchestrator
	installRoot  string
	metrics      *monitoring.Metrics
	logger       *logging.Logger
}

func newHandlers(cfg Config) *handlers {
	return &handlers{
		ctx:          cfg.Ctx,
		catalog:      cfg.Catalog,
		locator:      cfg.Locator,
		orchestrator: cfg.Orchestrator,
		installRoot:  cfg.InstallRoot,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.Named("api"),
	}
}

// Health reports liveness.
func (h *handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports the environment verdict, the resolved install root,
// and the selection catalog.
func (h *handlers) Status(c *gin.Context) {
	status := h.locator.Check(h.installRoot)

	var running gin.H
	if srv := h.orchestrator.Current(); srv != nil {
		running = gin.H{
			"area":    srv.Selection.Area,
			"project": srv.Selection.Project,
			"port":    srv.Port,
			"url":     srv.URL(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"install_root": status.InstallRoot,
		"environment":  status.State.String(),
		"areas":        h.catalog.Areas(),
		"server":       running,
	})
}

// Launch starts a notebook server for an area/project selection.
func (h *handlers) Launch(c *gin.Context) {
	var sel catalog.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must carry area and project"})
		return
	}

	// The subprocess is bound to the application context, never the
	// request context: net/http cancels the latter once this handler
	// returns, and the server must outlive the request.
	srv, err := h.orchestrator.Launch(h.ctx, sel)
	if err != nil {
		h.metrics.RecordLaunch("failure")
		h.renderLaunchError(c, err)
		return
	}

	h.metrics.RecordLaunch("success")
	h.metrics.ServersActive.Inc()
	go func() {
		<-srv.Done()
		h.metrics.ServersActive.Dec()
	}()

	// ?wait=true holds the response until the server answers HTTP.
	if c.Query("wait") == "true" {
		if err := srv.ProbeReady(c.Request.Context()); err != nil {
			h.logger.Warn("server started but is not reachable yet", zap.Error(err))
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "server started but is not reachable yet",
				"port":  srv.Port,
				"pid":   srv.PID(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"port":  srv.Port,
		"token": srv.Token,
		"url":   srv.URL(),
		"pid":   srv.PID(),
	})
}

// Stop shuts down the running notebook server, if any.
func (h *handlers) Stop(c *gin.Context) {
	srv := h.orchestrator.Current()
	if srv == nil {
		c.JSON(http.StatusOK, gin.H{"stopped": false})
		return
	}
	if err := srv.Stop(c.Request.Context()); err != nil {
		h.logger.Error("failed to stop server", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop server"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

// Metrics serves the Prometheus scrape endpoint.
func (h *handlers) Metrics(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}

// renderLaunchError maps the launch failure taxonomy onto status
// codes. Messages stay descriptive and single-line; internals never
// cross the boundary.
func (h *handlers) renderLaunchError(c *gin.Context, err error) {
	var missing *launch.EnvironmentMissingError
	switch {
	case errors.Is(err, launch.ErrInvalidSelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": "selection is not in the catalog"})
	case errors.As(err, &missing):
		c.JSON(http.StatusConflict, gin.H{
			"error":        "no usable Python environment; run the installer",
			"install_root": missing.InstallRoot,
		})
	case errors.Is(err, launch.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "a server is already running"})
	case errors.Is(err, launch.ErrNoPortAvailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no free port available"})
	default:
		h.logger.Error("launch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start the notebook server"})
	}
}
