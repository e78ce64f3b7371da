// Package pyenv decides whether a usable Python environment tree
// exists under an install root. The verdict is binary: a partially
// written tree (an interrupted install) reads as Missing, never as an
// error.
package pyenv

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/shared/paths"
)

// State is the environment verdict.
type State int

const (
	// Missing means no usable environment exists and the installer
	// must run.
	Missing State = iota
	// Valid means every catalog project has a usable environment.
	Valid
)

func (s State) String() string {
	if s == Valid {
		return "valid"
	}
	return "missing"
}

// Status is the verdict plus the resolved root for display.
type Status struct {
	State       State
	InstallRoot string
}

// Locator checks environment trees. It only reads the filesystem.
type Locator struct {
	resolver *paths.Resolver
	catalog  *catalog.Catalog
	version  string
}

// NewLocator creates a locator for the pinned interpreter version.
func NewLocator(resolver *paths.Resolver, cat *catalog.Catalog, version string) *Locator {
	return &Locator{resolver: resolver, catalog: cat, version: version}
}

// Check reports whether every catalog project has a usable
// environment under installRoot. The verdict is recomputed on every
// call; the filesystem may have changed since the last one.
func (l *Locator) Check(installRoot string) Status {
	for _, sel := range l.catalog.Selections() {
		pp := l.resolver.ProjectPaths(installRoot, sel.Area, sel.Project)
		if !l.envUsable(pp.EnvRoot) {
			return Status{State: Missing, InstallRoot: installRoot}
		}
	}
	return Status{State: Valid, InstallRoot: installRoot}
}

// envUsable checks the markers of an installed interpreter: the
// environment directory, its activation script, and a site-packages
// directory for the pinned minor version (patch releases vary, so the
// version segment is matched as a glob).
func (l *Locator) envUsable(envRoot string) bool {
	if !dirExists(envRoot) {
		return false
	}
	if !fileExists(l.resolver.ActivateScript(envRoot)) {
		return false
	}

	pattern := l.resolver.SitePackages(envRoot, l.version+"*")
	matches, err := doublestar.FilepathGlob(filepath.ToSlash(pattern))
	if err != nil {
		return false
	}
	for _, m := range matches {
		if dirExists(m) {
			return true
		}
	}
	return false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
