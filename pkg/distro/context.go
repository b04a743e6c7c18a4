// Package distro is the build pipeline: the shared build Context and the
// system, classify, prepare and build task providers that turn an engine
// SDK and a project into packages.
package distro

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/rpdist/pkg/archive"
	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/platform"
	"github.com/odvcencio/rpdist/pkg/task"
)

// Task is a step of the build pipeline.
type Task = task.Task[*Context]

// ArchiveJob is an archive together with the files it will hold.
type ArchiveJob struct {
	Archive  *buildinfo.Archive
	Archiver archive.Archiver
	Files    *files.FileList
	// Requested is set once a package embeds the archive.
	Requested bool
}

// Output is the packager of one package format.
type Output struct {
	Package  *buildinfo.Package
	Format   string
	Packager packager.Packager
}

// Context is the state the tasks of a build share.
type Context struct {
	Options

	Log       *logrus.Entry
	Packagers *packager.Registry
	Archivers *archive.Registry

	// RenpyPython is the interpreter shipped with the SDK, empty until
	// find_renpy_python ran.
	RenpyPython string

	BuildInfo     *buildinfo.BuildInfo
	BuildPackages []*buildinfo.Package
	Platforms     platform.Set

	// Lists holds the classifier file lists by name.
	Lists    map[string]*files.FileList
	Archives []*ArchiveJob
	Outputs  []*Output
}

// NewContext returns the context of a build with the default registries.
func NewContext(opts Options, log *logrus.Logger) *Context {
	return &Context{
		Options:   opts,
		Log:       log.WithField("part", "distro"),
		Packagers: packager.Default(),
		Archivers: archive.Default(),
	}
}

// BuildPlatforms is the union of the platforms of the selected packages.
func (c *Context) BuildPlatforms() platform.Set { return c.Platforms }

// SDKPath joins parts onto the SDK directory.
func (c *Context) SDKPath(parts ...string) string {
	return filepath.Join(append([]string{c.SDKDir}, parts...)...)
}

// ProjectPath joins parts onto the project directory.
func (c *Context) ProjectPath(parts ...string) string {
	return filepath.Join(append([]string{c.ProjectDir}, parts...)...)
}

// TempPath joins parts onto the tmp directory and creates the parent of
// the result.
func (c *Context) TempPath(parts ...string) (string, error) {
	p := filepath.Join(append([]string{c.TmpDir}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(p), err)
	}
	return p, nil
}

// OutputName is the base name of the artifacts of package name.
func (c *Context) OutputName(name string) string {
	return c.BuildInfo.DirectoryName + "-" + name
}

// PythonArgs returns the command running the SDK interpreter with args.
func (c *Context) PythonArgs(args ...string) []string {
	return append([]string{c.RenpyPython}, args...)
}

// LaunchArgs returns the command starting the engine on the project.
func (c *Context) LaunchArgs(args ...string) []string {
	return c.PythonArgs(append([]string{c.SDKPath("renpy.py"), c.ProjectDir}, args...)...)
}

// List returns the classifier list called name, or nil.
func (c *Context) List(name string) *files.FileList {
	return c.Lists[name]
}

// Output returns the packager of package name in format, or nil.
func (c *Context) Output(name, format string) *Output {
	for _, o := range c.Outputs {
		if o.Package.Name == name && o.Format == format {
			return o
		}
	}
	return nil
}

// pythonDir is the SDK directory holding the interpreter of the running
// system.
func pythonDir() string {
	switch runtime.GOOS {
	case "windows":
		return "lib/py3-windows-x86_64"
	case "darwin":
		return "lib/py3-mac-universal"
	}
	if runtime.GOARCH == "arm64" {
		return "lib/py3-linux-aarch64"
	}
	if runtime.GOARCH == "arm" {
		return "lib/py3-linux-armv7l"
	}
	return "lib/py3-linux-x86_64"
}

// PythonPath is the SDK relative path of the interpreter.
func PythonPath() string {
	name := "python"
	if runtime.GOOS == "windows" {
		name = "python.exe"
	}
	return filepath.Join(filepath.FromSlash(pythonDir()), name)
}
