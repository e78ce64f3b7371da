// Package relaunch restarts the whole application after a successful
// install. A full process restart, rather than an in-place reset,
// guarantees environment detection re-runs from scratch.
package relaunch

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/logging"
)

// ExecFunc replaces the current process image with a new invocation.
// It only returns on failure.
type ExecFunc func(executable string, args []string, env []string) error

// Controller restarts the application with its original arguments.
type Controller struct {
	logger *logging.Logger
	execFn ExecFunc
	args   []string
}

// NewController creates a controller that re-runs the current binary
// with the current os.Args.
func NewController(logger *logging.Logger) *Controller {
	return &Controller{
		logger: logger.Named("relaunch"),
		execFn: replaceProcess,
		args:   os.Args,
	}
}

// NewControllerWith creates a controller with an injected exec
// function and argument vector. Used in tests.
func NewControllerWith(logger *logging.Logger, execFn ExecFunc, args []string) *Controller {
	return &Controller{logger: logger.Named("relaunch"), execFn: execFn, args: args}
}

// RelaunchIfSuccessful restarts the application when result is nil.
// On any failure it does nothing: state is left exactly as after the
// failed run, ready for a manual retry.
func (c *Controller) RelaunchIfSuccessful(result error) error {
	if result != nil {
		c.logger.Info("install failed, skipping relaunch", zap.Error(result))
		return nil
	}
	return c.Relaunch()
}

// Relaunch replaces the current process with a fresh instance using
// identical invocation arguments. It only returns on failure.
func (c *Controller) Relaunch() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve current executable: %w", err)
	}
	c.logger.Info("restarting application", zap.String("executable", executable))
	if err := c.execFn(executable, c.args, os.Environ()); err != nil {
		return fmt.Errorf("failed to relaunch: %w", err)
	}
	return nil
}
