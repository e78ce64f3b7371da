package launch

import (
	"fmt"
	"os"
	"strings"

	"github.com/gennaker/desktop/internal/catalog"
	"github.com/gennaker/desktop/internal/infrastructure/config"
	"github.com/gennaker/desktop/internal/shared/paths"
)

// Context is the fully resolved spawn recipe for one server launch:
// executable, arguments, working directory, and the complete
// environment block. It is built once per launch and never mutated;
// the ambient process environment is left untouched.
type Context struct {
	Python       string
	Args         []string
	Dir          string
	Env          []string
	Port         int
	Token        string
	NotebookFile string
}

// ContextParams are the inputs to NewContext. BaseEnv is the
// environment to derive from, typically os.Environ(); it is copied,
// never modified.
type ContextParams struct {
	Resolver       *paths.Resolver
	Python         config.PythonConfig
	Selection      catalog.Selection
	Project        paths.ProjectPaths
	Port           int
	Token          string
	BaseEnv        []string
	NotebookExists bool
}

// NewContext builds the launch context.
//
// PATH is an ordered concatenation, highest precedence first: the
// base interpreter's own executables, the shared-libraries
// environment, then the project's own environment. The project entry
// is omitted when the selection is the shared-libraries environment
// itself.
//
// PYTHONPATH follows the same order: base interpreter site-packages,
// shared-libraries site-packages, then the project's own. The
// shared-libraries selection omits its own project entry since it
// would be self-referential.
func NewContext(p ContextParams) *Context {
	shared := p.Selection.IsSharedLibraries()

	var pathEntries []string
	if p.Python.Home != "" {
		pathEntries = append(pathEntries, p.Resolver.EnvBinDirs(p.Python.Home)...)
	}
	pathEntries = append(pathEntries, p.Resolver.EnvBinDirs(p.Project.SharedLibRoot)...)
	if !shared {
		pathEntries = append(pathEntries, p.Resolver.EnvBinDirs(p.Project.EnvRoot)...)
	}

	var pyPathEntries []string
	if p.Python.Home != "" {
		pyPathEntries = append(pyPathEntries, p.Resolver.SitePackages(p.Python.Home, p.Python.Version))
	}
	pyPathEntries = append(pyPathEntries, p.Resolver.SitePackages(p.Project.SharedLibRoot, p.Python.Version))
	if !shared {
		pyPathEntries = append(pyPathEntries, p.Resolver.SitePackages(p.Project.EnvRoot, p.Python.Version))
	}

	env := make([]string, 0, len(p.BaseEnv)+3)
	var inheritedPath string
	for _, kv := range p.BaseEnv {
		switch key, _, _ := strings.Cut(kv, "="); key {
		case "PATH":
			_, inheritedPath, _ = strings.Cut(kv, "=")
		case "PYTHONPATH", "JUPYTER_TOKEN":
			// replaced below
		default:
			env = append(env, kv)
		}
	}
	if inheritedPath != "" {
		pathEntries = append(pathEntries, inheritedPath)
	}
	env = append(env,
		"PATH="+strings.Join(pathEntries, string(os.PathListSeparator)),
		"PYTHONPATH="+strings.Join(pyPathEntries, string(os.PathListSeparator)),
		"JUPYTER_TOKEN="+p.Token,
	)

	args := []string{"-m", p.Python.ServerModule}
	if p.NotebookExists {
		args = append(args, p.Project.NotebookFile)
	}
	args = append(args,
		"--no-browser",
		"--expose-app-in-browser",
		"--JupyterApp.config_file_name=",
		fmt.Sprintf("--ServerApp.port=%d", p.Port),
		"--ServerApp.allow_origin=*",
		"--ContentsManager.allow_hidden=True",
	)

	notebook := ""
	if p.NotebookExists {
		notebook = p.Project.NotebookFile
	}

	return &Context{
		Python:       p.Resolver.PythonExecutable(p.Python.Home),
		Args:         args,
		Dir:          p.Project.ProjectDir,
		Env:          env,
		Port:         p.Port,
		Token:        p.Token,
		NotebookFile: notebook,
	}
}
