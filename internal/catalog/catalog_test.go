package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	areas := c.Areas()
	require.Len(t, areas, 3)
	assert.Equal(t, "Setup and Signatures", areas[0].Name)
	assert.Equal(t, []string{"Quick Start", "Signatures", "Shared Libraries"}, areas[0].Projects)
	assert.Equal(t, "Authoring", areas[1].Name)
	assert.Equal(t, "Readings", areas[2].Name)
}

func TestValidate(t *testing.T) {
	c := Default()

	t.Run("every catalog pair validates", func(t *testing.T) {
		for _, sel := range c.Selections() {
			assert.NoError(t, c.Validate(sel))
		}
	})

	t.Run("unknown area", func(t *testing.T) {
		err := c.Validate(Selection{Area: "Nonsense", Project: "Scratchpad"})
		assert.ErrorIs(t, err, ErrNotInCatalog)
	})

	t.Run("project outside its area", func(t *testing.T) {
		err := c.Validate(Selection{Area: "Authoring", Project: "Signatures"})
		assert.ErrorIs(t, err, ErrNotInCatalog)
	})

	t.Run("empty selection", func(t *testing.T) {
		err := c.Validate(Selection{})
		assert.ErrorIs(t, err, ErrNotInCatalog)
	})
}

func TestIsSharedLibraries(t *testing.T) {
	assert.True(t, Selection{Area: "Setup and Signatures", Project: "Shared Libraries"}.IsSharedLibraries())
	assert.False(t, Selection{Area: "Authoring", Project: "Scratchpad"}.IsSharedLibraries())
	assert.False(t, Selection{Area: "Setup and Signatures", Project: "Signatures"}.IsSharedLibraries())
}

func TestLoad(t *testing.T) {
	writeCatalog := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("valid file preserves order", func(t *testing.T) {
		path := writeCatalog(t, `
areas:
  - name: Research
    projects: [Alpha, Beta]
  - name: Teaching
    projects: [Gamma]
`)
		c, err := Load(path)
		require.NoError(t, err)

		areas := c.Areas()
		require.Len(t, areas, 2)
		assert.Equal(t, "Research", areas[0].Name)
		assert.Equal(t, []string{"Alpha", "Beta"}, areas[0].Projects)
		assert.NoError(t, c.Validate(Selection{Area: "Teaching", Project: "Gamma"}))
		assert.ErrorIs(t, c.Validate(Selection{Area: "Authoring", Project: "Scratchpad"}), ErrNotInCatalog)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty areas rejected", func(t *testing.T) {
		path := writeCatalog(t, "areas: []\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("area without projects rejected", func(t *testing.T) {
		path := writeCatalog(t, "areas:\n  - name: Empty\n    projects: []\n")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestLoadOrDefault(t *testing.T) {
	c, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Len(t, c.Areas(), 3)
}
