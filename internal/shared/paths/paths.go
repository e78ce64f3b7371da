// Package paths computes the filesystem layout shared by every
// component: the platform install root, per-project environment
// directories, and interpreter path fragments.
//
// Everything in this package is pure computation over injected
// platform/environment values; nothing here touches the filesystem.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Well-known names inside the install root.
const (
	// ProjectsDir holds one subtree per area/project pair.
	ProjectsDir = "projects"

	// SharedArea and SharedProject identify the shared-libraries
	// environment every other project layers on top of.
	SharedArea    = "Setup and Signatures"
	SharedProject = "Shared Libraries"

	// venvDir is the environment directory nested under a project.
	venvDir = ".v"
	venvEnv = ".venv"
)

// appDirName is the vendor directory name under the platform base.
const appDirName = "Gennaker"

// Resolver maps platform facts to concrete paths. The zero value is
// not usable; construct with NewResolver or NewResolverFor.
type Resolver struct {
	goos string
	env  func(string) string
	home string
}

// NewResolver builds a resolver for the running platform.
func NewResolver() *Resolver {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Resolver{goos: runtime.GOOS, env: os.Getenv, home: home}
}

// NewResolverFor builds a resolver with explicit platform inputs.
// Tests use this to exercise every platform without being on it.
func NewResolverFor(goos string, env func(string) string, home string) *Resolver {
	return &Resolver{goos: goos, env: env, home: home}
}

// GOOS reports the platform this resolver computes paths for.
func (r *Resolver) GOOS() string { return r.goos }

// InstallRoot returns the canonical install root for the platform.
// A non-empty override wins unconditionally. The Linux chain is:
// $XDG_DATA_HOME, then ~/.local/share, then the home directory.
func (r *Resolver) InstallRoot(override string) string {
	if override != "" {
		return override
	}
	switch r.goos {
	case "darwin":
		return filepath.Join(r.home, "Library", appDirName)
	case "windows":
		if local := r.env("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appDirName)
		}
		return filepath.Join(r.home, "AppData", "Local", appDirName)
	default:
		if xdg := r.env("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, strings.ToLower(appDirName))
		}
		if r.home != "" {
			return filepath.Join(r.home, ".local", "share", strings.ToLower(appDirName))
		}
		// No home directory at all: degenerate to a rooted path so the
		// result never depends on the working directory.
		return filepath.Join("/", strings.ToLower(appDirName))
	}
}

// ProjectPaths is the resolved layout for one area/project pair.
type ProjectPaths struct {
	// ProjectDir is the project's working directory.
	ProjectDir string
	// EnvRoot is the project's own virtual environment.
	EnvRoot string
	// SharedLibRoot is the shared-libraries virtual environment.
	SharedLibRoot string
	// NotebookFile is the start notebook. Its absence on disk is not
	// an error; the server can start without one.
	NotebookFile string
}

// ProjectPaths resolves the layout for an area/project pair under the
// given install root.
func (r *Resolver) ProjectPaths(installRoot, area, project string) ProjectPaths {
	projectDir := filepath.Join(installRoot, ProjectsDir, area, project)
	return ProjectPaths{
		ProjectDir:    projectDir,
		EnvRoot:       filepath.Join(projectDir, venvDir, venvEnv),
		SharedLibRoot: filepath.Join(installRoot, ProjectsDir, SharedArea, SharedProject, venvDir, venvEnv),
		NotebookFile:  filepath.Join(projectDir, project+".ipynb"),
	}
}

// EnvBinDirs returns the executable directories of a virtual
// environment, highest precedence first. Windows environments carry
// the conda-style layout in addition to the plain bin directory.
func (r *Resolver) EnvBinDirs(envRoot string) []string {
	if r.goos == "windows" {
		return []string{
			envRoot,
			filepath.Join(envRoot, "Library", "mingw-w64", "bin"),
			filepath.Join(envRoot, "Library", "usr", "bin"),
			filepath.Join(envRoot, "Library", "bin"),
			filepath.Join(envRoot, "Scripts"),
			filepath.Join(envRoot, "bin"),
		}
	}
	return []string{
		filepath.Join(envRoot, "bin"),
	}
}

// SitePackages returns the site-packages directory of an environment
// for the pinned interpreter minor version, e.g. version "3.11" maps
// to lib/python3.11/site-packages on POSIX platforms.
func (r *Resolver) SitePackages(envRoot, version string) string {
	if r.goos == "windows" {
		return filepath.Join(envRoot, "Lib", "site-packages")
	}
	return filepath.Join(envRoot, "lib", "python"+version, "site-packages")
}

// ActivateScript returns the activation script marking a usable
// environment.
func (r *Resolver) ActivateScript(envRoot string) string {
	if r.goos == "windows" {
		return filepath.Join(envRoot, "Scripts", "activate.bat")
	}
	return filepath.Join(envRoot, "bin", "activate")
}

// PythonExecutable returns the base interpreter executable for a
// Python home directory, or a bare "python" for PATH lookup when no
// home is pinned.
func (r *Resolver) PythonExecutable(home string) string {
	if home == "" {
		return "python"
	}
	if r.goos == "windows" {
		return filepath.Join(home, "python.exe")
	}
	return filepath.Join(home, "bin", "python")
}

// LabURL builds the browsable server URL for a port and access token.
func LabURL(port int, token string) string {
	return fmt.Sprintf("http://localhost:%d/lab?token=%s", port, token)
}

// ServerBaseURL builds the server API base URL for a port.
func ServerBaseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}
