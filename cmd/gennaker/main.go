package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/infrastructure/config"
	"github.com/gennaker/desktop/internal/infrastructure/monitoring"
	"github.com/gennaker/desktop/internal/installer"
	"github.com/gennaker/desktop/internal/launch"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/pyenv"
	"github.com/gennaker/desktop/internal/relaunch"
	"github.com/gennaker/desktop/internal/server"
	"github.com/gennaker/desktop/internal/shared/paths"
)

func main() {
	port := flag.String("port", "", "Control API port (overrides GENNAKER_API_PORT)")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.API.Port = *port
	}
	if *dev {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	resolver := paths.NewResolver()
	installRoot := resolver.InstallRoot(cfg.Paths.InstallRoot)

	cat, err := catalog.LoadOrDefault(cfg.Paths.CatalogFile)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	locator := pyenv.NewLocator(resolver, cat, cfg.Python.Version)
	status := locator.Check(installRoot)
	logger.Info("environment checked",
		zap.String("install_root", status.InstallRoot),
		zap.String("state", status.State.String()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitoring.New()
	runner := installer.NewRunner(cfg.Installer, logger)
	relauncher := relaunch.NewController(logger)
	orchestrator := launch.NewOrchestrator(resolver, cat, locator,
		launch.NewExecSpawner(), cfg.Python, installRoot, logger)

	srv := server.New(server.Config{
		Ctx:          ctx,
		Catalog:      cat,
		Locator:      locator,
		Runner:       runner,
		Relauncher:   relauncher,
		Orchestrator: orchestrator,
		Resolver:     resolver,
		InstallRoot:  installRoot,
		Metrics:      metrics,
		Logger:       logger,
	})

	errChan := make(chan error, 1)
	go func() {
		logger.Info("control API listening",
			zap.String("host", cfg.API.Host),
			zap.String("port", cfg.API.Port))
		if err := srv.Run(cfg.API.Host, cfg.API.Port); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
	case err := <-errChan:
		logger.Error("control API failed", zap.Error(err))
	}

	// Stop the supervised notebook server first so no child outlives
	// the application, then drain the API.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to stop notebook server", zap.Error(err))
	}
	cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Warn("failed to close control API", zap.Error(err))
	}
}
