// Package packager turns file lists into the artifacts users download:
// zip and tar.bz2 files, plain directories and mac disk image folders.
package packager

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/progress"
)

// Packager writes one artifact from its file list.
type Packager interface {
	// Path is where the artifact is written.
	Path() string
	Files() *files.FileList
	SetFiles(*files.FileList)
	// FinishFileList drops empty directories and restores the ancestors
	// of what is left. It runs once, after the list is complete.
	FinishFileList()
	WriteFile(name, path string, executable bool) error
	WriteDirectory(name, path string) error
	// WriteLength is the number of steps Write yields.
	WriteLength() int
	Write() progress.Steps
}

// Base implements the file list handling shared by packagers.
type Base struct {
	path  string
	files *files.FileList
}

func NewBase(path string) Base {
	fl, _ := files.NewFileList()
	return Base{path: path, files: fl}
}

func (b *Base) Path() string { return b.path }

func (b *Base) Files() *files.FileList { return b.files }

func (b *Base) SetFiles(fl *files.FileList) { b.files = fl }

func (b *Base) FinishFileList() {
	b.files.FilterEmpty()
	b.files.AddMissingDirectories()
}

func (b *Base) WriteLength() int { return b.files.Len() }

// WriteEntries writes the file list of p in name order, so that every
// directory comes before its contents, calling tick after each entry.
func WriteEntries(p Packager, tick func() bool) error {
	entries := p.Files().Files()
	slices.SortFunc(entries, func(a, b *files.File) int { return strings.Compare(a.Name(), b.Name()) })
	for _, f := range entries {
		var err error
		if f.Directory {
			err = p.WriteDirectory(f.Name(), f.Path)
		} else {
			err = p.WriteFile(f.Name(), f.Path, f.Executable)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", f.Name(), err)
		}
		if !tick() {
			return nil
		}
	}
	return nil
}

func fileMode(executable bool) os.FileMode {
	if executable {
		return 0o755
	}
	return 0o644
}

func errPhantom(name string) error {
	return fmt.Errorf("path for %q must not be empty", name)
}

// Factory creates the packager for outfile. It returns a nil Packager
// when the format is not produced for this build.
type Factory func(info *buildinfo.BuildInfo, outfile string) (Packager, error)

// Build modifiers a format can carry.
const (
	// ModApp builds a mac application bundle.
	ModApp = "app"
	// ModDMG adds the files needed to build a disk image.
	ModDMG = "dmg"
	// ModPrepend places every entry under the package directory name.
	ModPrepend = "prepend"
)

// Entry describes one package format.
type Entry struct {
	Factory   Factory
	Extension string
	Modifiers []string
}

// Registry maps format names to their entries.
type Registry struct {
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Default returns a registry with the builtin formats. The android, ios
// and web formats are placeholders until an extension registers them.
func Default() *Registry {
	r := NewRegistry()
	r.Register("zip", Entry{Factory: NewZip, Extension: ".zip", Modifiers: []string{ModPrepend}})
	r.Register("app-zip", Entry{Factory: NewZip, Extension: ".zip", Modifiers: []string{ModApp}})
	r.Register("bare-zip", Entry{Factory: NewZip, Extension: ".zip"})
	r.Register("directory", Entry{Factory: NewDirectory})
	r.Register("app-directory", Entry{Factory: NewDirectory, Extension: "-app", Modifiers: []string{ModApp}})
	r.Register("tar.bz2", Entry{Factory: NewTar, Extension: ".tar.bz2", Modifiers: []string{ModPrepend}})
	r.Register("bare-tar.bz2", Entry{Factory: NewTar, Extension: ".tar.bz2"})
	r.Register("dmg", Entry{Factory: NewDMG, Extension: "-dmg", Modifiers: []string{ModDMG, ModPrepend}})
	r.Register("app-dmg", Entry{Factory: NewDMG, Extension: "-app-dmg", Modifiers: []string{ModApp, ModDMG}})
	r.Register("android-bundle", Entry{Factory: Unavailable("android")})
	r.Register("android-apk", Entry{Factory: Unavailable("android")})
	r.Register("ios", Entry{Factory: Unavailable("ios")})
	r.Register("web", Entry{Factory: Unavailable("web")})
	return r
}

// Register adds or replaces format.
func (r *Registry) Register(format string, e Entry) {
	r.entries[format] = e
}

func (r *Registry) Has(format string) bool {
	_, ok := r.entries[format]
	return ok
}

// HasModifier reports whether format carries the build modifier mod.
func (r *Registry) HasModifier(format, mod string) bool {
	return slices.Contains(r.entries[format].Modifiers, mod)
}

// Init creates the packager of format writing to outfile plus the format's
// extension. A nil Packager with a nil error means the format is skipped.
func (r *Registry) Init(format string, info *buildinfo.BuildInfo, outfile string) (Packager, error) {
	e, ok := r.entries[format]
	if !ok {
		return nil, fmt.Errorf("format %q not known", format)
	}
	return e.Factory(info, outfile+e.Extension)
}

// Unavailable returns a factory for a format whose extension is not
// loaded.
func Unavailable(extension string) Factory {
	return func(*buildinfo.BuildInfo, string) (Packager, error) {
		return nil, fmt.Errorf("this format needs the %s extension, which is not loaded", extension)
	}
}
