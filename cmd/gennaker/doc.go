// Package main is the entry point for the Gennaker desktop launcher.
//
// The launcher checks whether a usable per-project Python environment
// exists under the platform install root. If it does, it can start a
// supervised JupyterLab server for any catalog selection; if not, it
// drives the bundled installer to completion, streaming progress to
// the embedding UI, and restarts itself so detection re-runs from
// scratch.
//
// The embedding UI talks to the launcher over a local control API:
//   - GET  /api/status   environment verdict and selection catalog
//   - GET  /ws/install   check-and-install with streamed progress
//   - POST /api/launch   start a notebook server for a selection
//   - POST /api/stop     stop the running server
//   - GET  /metrics      Prometheus metrics
//
// Usage:
//
//	# default configuration
//	./gennaker
//
//	# development mode (colored logs, debug level)
//	./gennaker -dev
//
// Configuration is environment-driven (GENNAKER_INSTALL_ROOT,
// GENNAKER_PYTHON_HOME, GENNAKER_INSTALLER, ...); flags override the
// control API port and log mode.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown; any supervised child
//     process is stopped so nothing is orphaned.
package main
