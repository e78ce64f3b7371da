package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/infrastructure/config"
	"github.com/gennaker/desktop/internal/infrastructure/monitoring"
	"github.com/gennaker/desktop/internal/installer"
	"github.com/gennaker/desktop/internal/launch"
	"github.com/gennaker/desktop/internal/logging"
	"github.com/gennaker/desktop/internal/pyenv"
	"github.com/gennaker/desktop/internal/relaunch"
	"github.com/gennaker/desktop/internal/shared/paths"
)

// Prometheus collectors register globally, so the metrics set is built
// once for the whole test binary.
var testMetrics = monitoring.New()

type serverFixture struct {
	srv  *Server
	root string
}

func newTestServer(t *testing.T, provision bool) *serverFixture {
	return newTestServerWithPython(t, provision, "/opt/python")
}

func newTestServerWithPython(t *testing.T, provision bool, pythonHome string) *serverFixture {
	t.Helper()
	logger := logging.NewNop()
	resolver := paths.NewResolver()
	cat := catalog.Default()
	root := filepath.Join(t.TempDir(), "gennaker")

	if provision {
		for _, sel := range cat.Selections() {
			pp := resolver.ProjectPaths(root, sel.Area, sel.Project)
			require.NoError(t, os.MkdirAll(resolver.SitePackages(pp.EnvRoot, "3.11"), 0o755))
			activate := resolver.ActivateScript(pp.EnvRoot)
			require.NoError(t, os.MkdirAll(filepath.Dir(activate), 0o755))
			require.NoError(t, os.WriteFile(activate, []byte("# activate\n"), 0o755))
		}
	}

	locator := pyenv.NewLocator(resolver, cat, "3.11")
	python := config.PythonConfig{Home: pythonHome, Version: "3.11", ServerModule: "jupyterlab"}
	runner := installer.NewRunner(config.InstallerConfig{Path: "gennaker-setup"}, logger)
	relauncher := relaunch.NewControllerWith(logger,
		func(string, []string, []string) error { return nil }, nil)
	orch := launch.NewOrchestrator(resolver, cat, locator,
		launch.NewExecSpawner(), python, root, logger)

	srv := New(Config{
		Ctx:          context.Background(),
		Catalog:      cat,
		Locator:      locator,
		Runner:       runner,
		Relauncher:   relauncher,
		Orchestrator: orch,
		Resolver:     resolver,
		InstallRoot:  root,
		Metrics:      testMetrics,
		Logger:       logger,
	})
	return &serverFixture{srv: srv, root: root}
}

func (f *serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newTestServer(t, false)

	w := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeJSON(t, w)["status"])
}

func TestStatusEnvironmentMissing(t *testing.T) {
	f := newTestServer(t, false)

	w := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "missing", body["environment"])
	assert.Equal(t, f.root, body["install_root"])
	assert.Nil(t, body["server"])

	areas, ok := body["areas"].([]any)
	require.True(t, ok)
	assert.Len(t, areas, 3)
}

func TestStatusEnvironmentValid(t *testing.T) {
	f := newTestServer(t, true)

	w := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "valid", decodeJSON(t, w)["environment"])
}

func TestLaunchRejectsMalformedBody(t *testing.T) {
	f := newTestServer(t, true)

	w := f.do(t, http.MethodPost, "/api/launch", "not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLaunchRejectsUnknownSelection(t *testing.T) {
	f := newTestServer(t, true)

	w := f.do(t, http.MethodPost, "/api/launch", `{"area":"Nope","project":"Nothing"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "selection is not in the catalog", decodeJSON(t, w)["error"])
}

func TestLaunchReportsMissingEnvironment(t *testing.T) {
	f := newTestServer(t, false)

	w := f.do(t, http.MethodPost, "/api/launch", `{"area":"Authoring","project":"Scratchpad"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, f.root, body["install_root"])
	assert.Contains(t, body["error"], "installer")
}

func TestStopWithoutRunningServer(t *testing.T) {
	f := newTestServer(t, true)

	w := f.do(t, http.MethodPost, "/api/stop", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["stopped"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newTestServer(t, false)

	// Drive a request through the middleware so a counter exists.
	f.do(t, http.MethodGet, "/health", "")

	w := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gennaker_")
}
