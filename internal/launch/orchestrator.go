// Package launch builds the environment for a validated area/project
// selection and supervises the notebook-server subprocess it spawns.
package launch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/infrastructure/config"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/pyenv"
	"github.com/gennaker/desktop/internal/shared/paths"
)

var (
	// ErrInvalidSelection reports an area/project pair outside the
	// catalog. No subprocess is spawned.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNoPortAvailable reports local port exhaustion. Surfaced
	// immediately; the caller may retry later.
	ErrNoPortAvailable = errors.New("no free port available")

	// ErrBusy reports a second launch attempted while a server is
	// already running. Launches are single-flight.
	ErrBusy = errors.New("a server is already running")
)

// EnvironmentMissingError reports that no usable environment exists.
// The caller is expected to route this into the install flow.
type EnvironmentMissingError struct {
	InstallRoot string
}

func (e *EnvironmentMissingError) Error() string {
	return fmt.Sprintf("no usable Python environment at %s", e.InstallRoot)
}

// SpawnError reports that the OS could not start the server process.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start notebook server: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Orchestrator validates selections, provisions launch contexts, and
// spawns supervised notebook servers.
type Orchestrator struct {
	resolver    *paths.Resolver
	catalog     *catalog.Catalog
	locator     *pyenv.Locator
	spawner     Spawner
	python      config.PythonConfig
	installRoot string
	logger      *logging.Logger

	// pickPort and newToken are injectable for tests.
	pickPort func() (int, error)
	newToken func() string

	mu        sync.Mutex
	current   *Server
	launching bool
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(resolver *paths.Resolver, cat *catalog.Catalog, locator *pyenv.Locator,
	spawner Spawner, python config.PythonConfig, installRoot string, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		resolver:    resolver,
		catalog:     cat,
		locator:     locator,
		spawner:     spawner,
		python:      python,
		installRoot: installRoot,
		logger:      logger.Named("launch"),
		pickPort:    pickFreePort,
		newToken:    uuid.NewString,
	}
}

// Launch starts a notebook server for the selection and returns its
// supervised handle. The caller owns the handle for the life of the
// application; there is no restart on crash and no retry on failure.
func (o *Orchestrator) Launch(ctx context.Context, sel catalog.Selection) (*Server, error) {
	if err := o.catalog.Validate(sel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}

	// launching reserves the slot until the spawn resolves, so a
	// concurrent caller fails fast instead of also passing the check
	// and starting a second, untracked server.
	o.mu.Lock()
	if o.launching || (o.current != nil && o.current.Running()) {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.launching = true
	o.current = nil
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.launching = false
		o.mu.Unlock()
	}()

	// Re-check on every launch: the filesystem may have changed since
	// the last verdict (an install could have completed).
	if status := o.locator.Check(o.installRoot); status.State != pyenv.Valid {
		return nil, &EnvironmentMissingError{InstallRoot: status.InstallRoot}
	}

	pp := o.resolver.ProjectPaths(o.installRoot, sel.Area, sel.Project)

	port, err := o.pickPort()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPortAvailable, err)
	}
	token := o.newToken()

	lc := NewContext(ContextParams{
		Resolver:       o.resolver,
		Python:         o.python,
		Selection:      sel,
		Project:        pp,
		Port:           port,
		Token:          token,
		BaseEnv:        os.Environ(),
		NotebookExists: fileExists(pp.NotebookFile),
	})

	proc, err := o.spawner.Spawn(ctx, Spec{
		Path: lc.Python,
		Args: lc.Args,
		Dir:  lc.Dir,
		Env:  lc.Env,
	})
	if err != nil {
		return nil, &SpawnError{Err: err}
	}

	o.logger.Info("notebook server started",
		zap.String("selection", sel.String()),
		zap.Int("port", port),
		zap.Int("pid", proc.PID()),
		zap.String("notebook", lc.NotebookFile))

	srv := newServer(sel, lc, proc, o.logger, o.clearCurrent)
	o.mu.Lock()
	o.current = srv
	o.mu.Unlock()
	return srv, nil
}

// Current returns the running server handle, or nil.
func (o *Orchestrator) Current() *Server {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil && o.current.Running() {
		return o.current
	}
	return nil
}

// Shutdown stops the running server, if any. Called on application
// exit so no child outlives the parent.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	srv := o.Current()
	if srv == nil {
		return nil
	}
	return srv.Stop(ctx)
}

// clearCurrent drops a handle from supervision on exit. Only the
// handle's own exit clears it; a late notification from a replaced
// server must not wipe a newer one.
func (o *Orchestrator) clearCurrent(srv *Server) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == srv {
		o.current = nil
	}
}

// pickFreePort asks the kernel for an unused local port.
func pickFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	_, portStr, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
