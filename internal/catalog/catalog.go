// Package catalog holds the fixed area/project catalog that gates
// every launch. The catalog is given (built-in or loaded from a YAML
// file); the orchestration engine never mutates it.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/gennaker/desktop/internal/shared/paths"
)

// ErrNotInCatalog reports an area/project pair outside the catalog.
// This is a caller error, not a recoverable runtime state.
var ErrNotInCatalog = errors.New("selection not in catalog")

// Selection identifies one area/project pair.
type Selection struct {
	Area    string `json:"area"`
	Project string `json:"project"`
}

// IsSharedLibraries reports whether the selection is the
// shared-libraries environment itself.
func (s Selection) IsSharedLibraries() bool {
	return s.Area == paths.SharedArea && s.Project == paths.SharedProject
}

func (s Selection) String() string {
	return s.Area + "/" + s.Project
}

// Area is a named, ordered list of projects.
type Area struct {
	Name     string   `yaml:"name" json:"name"`
	Projects []string `yaml:"projects" json:"projects"`
}

// Catalog is an ordered set of areas.
type Catalog struct {
	areas []Area
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{areas: []Area{
		{Name: paths.SharedArea, Projects: []string{"Quick Start", "Signatures", paths.SharedProject}},
		{Name: "Authoring", Projects: []string{"Scratchpad"}},
		{Name: "Readings", Projects: []string{"Symbolic Math"}},
	}}
}

// Load reads a catalog from a YAML file of the form:
//
//	areas:
//	  - name: Authoring
//	    projects: [Scratchpad]
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var doc struct {
		Areas []Area `yaml:"areas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(doc.Areas) == 0 {
		return nil, fmt.Errorf("catalog %s defines no areas", path)
	}
	for _, a := range doc.Areas {
		if a.Name == "" {
			return nil, fmt.Errorf("catalog %s contains an unnamed area", path)
		}
		if len(a.Projects) == 0 {
			return nil, fmt.Errorf("catalog area %q defines no projects", a.Name)
		}
	}
	return &Catalog{areas: doc.Areas}, nil
}

// LoadOrDefault loads the catalog at path, or the built-in catalog
// when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks that the selection belongs to the catalog.
func (c *Catalog) Validate(sel Selection) error {
	for _, a := range c.areas {
		if a.Name != sel.Area {
			continue
		}
		for _, p := range a.Projects {
			if p == sel.Project {
				return nil
			}
		}
		return fmt.Errorf("project %q in area %q: %w", sel.Project, sel.Area, ErrNotInCatalog)
	}
	return fmt.Errorf("area %q: %w", sel.Area, ErrNotInCatalog)
}

// Areas returns the catalog contents in declaration order.
func (c *Catalog) Areas() []Area {
	out := make([]Area, len(c.areas))
	copy(out, c.areas)
	return out
}

// Selections returns every valid pair in declaration order.
func (c *Catalog) Selections() []Selection {
	var out []Selection
	for _, a := range c.areas {
		for _, p := range a.Projects {
			out = append(out, Selection{Area: a.Name, Project: p})
		}
	}
	return out
}
