package launch

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/shared/paths"
)

// readyMarker is the banner the notebook server prints on stderr once
// it accepts connections.
const readyMarker = "is running at"

// stopGrace is how long Stop waits for a graceful exit before killing.
const stopGrace = 5 * time.Second

// Server is the supervised notebook-server subprocess. The handle is
// owned by whoever launched it and stays alive until the application
// exits; there is no automatic restart on crash.
type Server struct {
	Selection catalog.Selection
	Port      int
	Token     string

	proc   Process
	logger *logging.Logger
	http   *resty.Client

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	waitErr error
	onExit  func(*Server)
}

func newServer(sel catalog.Selection, lc *Context, proc Process, logger *logging.Logger, onExit func(*Server)) *Server {
	s := &Server{
		Selection: sel,
		Port:      lc.Port,
		Token:     lc.Token,
		proc:      proc,
		logger:    logger,
		http: resty.New().
			SetBaseURL(paths.ServerBaseURL(lc.Port)).
			SetHeader("Authorization", "token "+lc.Token).
			SetTimeout(10 * time.Second),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.onExit = onExit
	go s.watchStderr()
	go s.reap()
	return s
}

// PID returns the subprocess PID.
func (s *Server) PID() int { return s.proc.PID() }

// URL returns the browsable lab URL including the access token.
func (s *Server) URL() string { return paths.LabURL(s.Port, s.Token) }

// Ready is closed once the server banner appears on stderr.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Done is closed once the subprocess has exited and been reaped.
func (s *Server) Done() <-chan struct{} { return s.done }

// Wait blocks until the subprocess exits and returns its wait error.
func (s *Server) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// Running reports whether the subprocess is still alive.
func (s *Server) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// ProbeReady polls the server's HTTP API until it answers or ctx
// expires. It complements the stderr banner for embedders that want a
// connectable server rather than a printed one.
func (s *Server) ProbeReady(ctx context.Context) error {
	client := retryablehttp.NewClient()
	client.RetryMax = 30
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET",
		paths.ServerBaseURL(s.Port)+"/api", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "token "+s.Token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("server did not become reachable: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

// Stop asks the server to shut down over its REST API and kills it if
// it does not oblige within the grace period. Safe to call more than
// once.
func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
	}

	_, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("_xsrf", s.Token).
		Post("/api/shutdown")
	if err != nil {
		s.logger.Debug("graceful shutdown request failed", zap.Error(err))
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(stopGrace):
	case <-ctx.Done():
	}

	s.logger.Warn("server did not exit gracefully, killing",
		zap.Int("pid", s.proc.PID()))
	if err := s.proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill server: %w", err)
	}
	<-s.done
	return nil
}

// watchStderr logs server output and flips Ready when the startup
// banner appears.
func (s *Server) watchStderr() {
	scanner := bufio.NewScanner(s.proc.Stderr())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s.logger.Debug("server output", zap.String("line", line))
		if strings.Contains(line, readyMarker) {
			s.readyOnce.Do(func() { close(s.ready) })
		}
	}
}

// reap waits for the subprocess so it never lingers as a zombie.
func (s *Server) reap() {
	err := s.proc.Wait()
	s.mu.Lock()
	s.waitErr = err
	s.mu.Unlock()
	close(s.done)
	if s.onExit != nil {
		s.onExit(s)
	}
	s.logger.Info("server exited", zap.Error(err))
}
