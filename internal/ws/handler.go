// Package ws streams install progress to the embedding UI over a
// WebSocket, one JSON frame per process event.
package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/infrastructure/monitoring"
	"github.com/gennaker/desktop/internal/installer"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/pyenv"
	"github.com/gennaker/desktop/internal/relaunch"
	"github.com/gennaker/desktop/internal/stream"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local embedding only; origin is wildcard by design
	},
}

// result is the final frame of an install stream.
type result struct {
	Type       string   `json:"type"`
	OK         bool     `json:"ok"`
	Error      string   `json:"error,omitempty"`
	Transcript []string `json:"transcript,omitempty"`
}

// Handler runs check-and-install sessions over WebSocket connections.
type Handler struct {
	ctx         context.Context
	runner      *installer.Runner
	relauncher  *relaunch.Controller
	locator     *pyenv.Locator
	installRoot string
	metrics     *monitoring.Metrics
	logger      *logging.Logger
}

// NewHandler creates a WebSocket install handler. ctx is the
// application root context; closing it terminates any running
// installer so no child outlives the application.
func NewHandler(ctx context.Context, runner *installer.Runner, relauncher *relaunch.Controller,
	locator *pyenv.Locator, installRoot string, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		ctx:         ctx,
		runner:      runner,
		relauncher:  relauncher,
		locator:     locator,
		installRoot: installRoot,
		metrics:     metrics,
		logger:      logger.Named("ws"),
	}
}

// HandleInstall upgrades the connection, runs the installer if the
// environment is missing, and streams every process event as it
// occurs. On success the whole application restarts so environment
// detection re-runs from scratch.
func (h *Handler) HandleInstall(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if status := h.locator.Check(h.installRoot); status.State == pyenv.Valid {
		h.send(conn, result{Type: "result", OK: true})
		return
	}

	st := stream.New()
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- h.runner.Run(h.ctx, h.installRoot, st)
	}()

	for ev := range st.Events() {
		h.metrics.RecordStreamEvent(string(ev.Type))
		if err := h.send(conn, ev); err != nil {
			h.logger.Warn("subscriber write failed", zap.Error(err))
			// Keep draining; the install itself is not cancelled by a
			// lost subscriber.
		}
	}

	runErr := <-resultCh
	if runErr != nil {
		h.metrics.RecordInstall("failure")
		// Failure display is the accumulated stream plus the final
		// error line; ship the collapsed transcript with the result.
		h.send(conn, result{
			Type:       "result",
			OK:         false,
			Error:      runErr.Error(),
			Transcript: st.Transcript(),
		})
		return
	}

	h.metrics.RecordInstall("success")
	h.send(conn, result{Type: "result", OK: true})
	conn.Close()

	if err := h.relauncher.Relaunch(); err != nil {
		h.logger.Error("relaunch failed", zap.Error(err))
	}
}

func (h *Handler) send(conn *websocket.Conn, v interface{}) error {
	return conn.WriteJSON(v)
}
