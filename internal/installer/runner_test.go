package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gennaker/desktop/internal/infrastructure/config"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/stream"
)

// writeScript creates a fake installer executable.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("installer tests use shell scripts")
	}
	path := filepath.Join(t.TempDir(), "fake-installer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newRunner(t *testing.T, cfg config.InstallerConfig) *Runner {
	t.Helper()
	return NewRunner(cfg, logging.NewNop())
}

func drain(t *testing.T, st *stream.Stream) []stream.Event {
	t.Helper()
	var events []stream.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-st.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream never closed")
		}
	}
}

func TestRunSuccess(t *testing.T) {
	script := writeScript(t, `
echo "preparing $1"
printf '50%%\r' >&2
printf '100%%\r' >&2
echo "done"
exit 0
`)
	runner := newRunner(t, config.InstallerConfig{Path: script})
	root := filepath.Join(t.TempDir(), "gennaker")

	st := stream.New()
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(context.Background(), root, st) }()

	events := drain(t, st)
	require.NoError(t, <-errCh)

	// Exit is the final event, after every output line.
	last := events[len(events)-1]
	assert.Equal(t, stream.EventExit, last.Type)
	assert.Equal(t, 0, last.Code)

	var stdout []string
	for _, ev := range events {
		if ev.Type == stream.EventStdout {
			stdout = append(stdout, ev.Line)
		}
	}
	assert.Equal(t, []string{"preparing " + root, "done"}, stdout)

	// Progress updates collapsed to the final value.
	assert.Contains(t, st.Transcript(), "100%\r")
	assert.NotContains(t, st.Transcript(), "50%\r")
}

func TestRunNonZeroExit(t *testing.T) {
	script := writeScript(t, `
echo "starting"
echo "disk full" >&2
exit 3
`)
	runner := newRunner(t, config.InstallerConfig{Path: script})

	st := stream.New()
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(context.Background(), t.TempDir(), st) }()

	events := drain(t, st)
	err := <-errCh

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)

	last := events[len(events)-1]
	assert.Equal(t, stream.EventExit, last.Type)
	assert.Equal(t, 3, last.Code)
}

func TestRunSpawnFailure(t *testing.T) {
	runner := newRunner(t, config.InstallerConfig{
		Path: filepath.Join(t.TempDir(), "does-not-exist"),
	})

	st := stream.New()
	err := runner.Run(context.Background(), t.TempDir(), st)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)

	events := drain(t, st)
	require.Len(t, events, 1)
	assert.Equal(t, stream.EventError, events[0].Type)
	assert.NotEmpty(t, events[0].Message)
}

func TestRunSingleFlight(t *testing.T) {
	script := writeScript(t, "sleep 1\nexit 0\n")
	runner := newRunner(t, config.InstallerConfig{Path: script})

	first := stream.New()
	firstErr := make(chan error, 1)
	go func() { firstErr <- runner.Run(context.Background(), t.TempDir(), first) }()

	require.Eventually(t, runner.Running, 2*time.Second, 10*time.Millisecond)

	second := stream.New()
	err := runner.Run(context.Background(), t.TempDir(), second)
	assert.ErrorIs(t, err, ErrBusy)

	// The rejected call's stream fails terminally.
	events := drain(t, second)
	require.Len(t, events, 1)
	assert.Equal(t, stream.EventError, events[0].Type)

	drain(t, first)
	require.NoError(t, <-firstErr)
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, "sleep 5\nexit 0\n")
	runner := newRunner(t, config.InstallerConfig{
		Path:    script,
		Timeout: 100 * time.Millisecond,
	})

	st := stream.New()
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(context.Background(), t.TempDir(), st) }()

	events := drain(t, st)
	err := <-errCh
	require.Error(t, err)

	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, stream.EventExit, events[len(events)-1].Type)
	assert.NotEqual(t, 0, events[len(events)-1].Code)
}

func TestRunCancelledByParentContext(t *testing.T) {
	script := writeScript(t, "sleep 5\nexit 0\n")
	runner := newRunner(t, config.InstallerConfig{Path: script})

	ctx, cancel := context.WithCancel(context.Background())
	st := stream.New()
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx, t.TempDir(), st) }()

	require.Eventually(t, runner.Running, 2*time.Second, 10*time.Millisecond)
	cancel()

	drain(t, st)
	assert.Error(t, <-errCh)
}
