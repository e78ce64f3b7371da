// Package installer drives the environment installer subprocess and
// streams its progress to the caller.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/infrastructure/config"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/stream"
)

// ErrBusy reports a second install attempted while one is running.
// Installs are single-flight; starting another is a caller error.
var ErrBusy = errors.New("an install is already in progress")

// SpawnError reports that the installer process could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start installer %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports an installer run that completed with a nonzero
// exit code. There is no retry policy; the failure is surfaced for a
// human decision.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("installer exited with code %d", e.Code)
}

// Runner spawns the installer executable and wires its output into an
// event stream.
type Runner struct {
	cfg      config.InstallerConfig
	logger   *logging.Logger
	inFlight atomic.Bool
}

// NewRunner creates a runner.
func NewRunner(cfg config.InstallerConfig, logger *logging.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger.Named("installer")}
}

// Running reports whether an install is in flight.
func (r *Runner) Running() bool {
	return r.inFlight.Load()
}

// Run executes the installer against installRoot, pushing every
// output line through st as it is produced. It blocks until the
// installer exits; callers drive it from their own goroutine and
// subscribe to st.Events().
//
// Returns nil only on exit code 0. The stream always ends with a
// terminal Exit or Error event.
func (r *Runner) Run(ctx context.Context, installRoot string, st *stream.Stream) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		st.Fail(ErrBusy)
		return ErrBusy
	}
	defer r.inFlight.Store(false)

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.cfg.Path, installRoot)
	// The installer creates the root itself on first run, so the
	// working directory is its parent.
	cmd.Dir = filepath.Dir(installRoot)
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		st.Fail(err)
		return &SpawnError{Path: r.cfg.Path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		st.Fail(err)
		return &SpawnError{Path: r.cfg.Path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		spawnErr := &SpawnError{Path: r.cfg.Path, Err: err}
		st.Fail(spawnErr)
		return spawnErr
	}
	r.logger.Info("installer started",
		zap.String("path", r.cfg.Path),
		zap.String("install_root", installRoot),
		zap.Int("pid", cmd.Process.Pid))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.ConsumeStdout(stdout)
	}()
	go func() {
		defer wg.Done()
		st.ConsumeStderr(stderr)
	}()

	// Drain both pipes before Wait so Exit is the final event.
	wg.Wait()
	err = cmd.Wait()

	code := cmd.ProcessState.ExitCode()
	st.Finish(code)

	if err != nil || code != 0 {
		r.logger.Warn("installer failed", zap.Int("code", code))
		return &ExitError{Code: code}
	}
	r.logger.Info("installer finished")
	return nil
}
