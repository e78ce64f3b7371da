package launch

import (
	"context"
	"io"
	"os/exec"
)

// Spec describes a subprocess to start. The environment is complete
// and explicit; nothing is inherited implicitly.
type Spec struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Process is a handle to a started subprocess.
type Process interface {
	PID() int
	// Stderr exposes the process's stderr pipe. Valid until Wait.
	Stderr() io.Reader
	// Wait blocks until exit and reaps the process.
	Wait() error
	// Kill terminates the process immediately.
	Kill() error
}

// Spawner is the boundary between the orchestrator and the OS. Tests
// substitute a spy to verify what would have been spawned.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec) (Process, error)
}

// NewExecSpawner returns the os/exec-backed spawner.
func NewExecSpawner() Spawner {
	return &execSpawner{}
}

type execSpawner struct{}

func (execSpawner) Spawn(ctx context.Context, spec Spec) (Process, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = nil

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stderr io.Reader
}

func (p *execProcess) PID() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
