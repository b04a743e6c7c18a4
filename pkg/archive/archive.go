// Package archive writes the resource archives that packages embed in
// place of the files they contain.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/odvcencio/rpdist/pkg/progress"
)

// Archiver collects files and writes them into one archive file.
type Archiver interface {
	// Path is where the archive is written.
	Path() string
	// Add registers the file at path under name.
	Add(name, path string) error
	// WriteLength is the number of steps Write yields.
	WriteLength() int
	Write() progress.Steps
}

// Base implements the bookkeeping shared by archivers.
type Base struct {
	path  string
	files map[string]string
}

func NewBase(path string) Base {
	return Base{path: path, files: make(map[string]string)}
}

func (b *Base) Path() string { return b.path }

// Add registers path under name. name may not start or end with a slash,
// and path has to be absolute and exist.
func (b *Base) Add(name, path string) error {
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("archive entry %q can not start or end with /", name)
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("archive entry %q: %s is relative", name, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("archive entry %q: %w", name, err)
	}
	if _, ok := b.files[name]; ok {
		return fmt.Errorf("duplicate file %q in archive %s", name, b.path)
	}
	b.files[name] = path
	return nil
}

// Len is the number of registered entries.
func (b *Base) Len() int { return len(b.files) }

// regularFiles returns the entries backed by regular files, sorted by name.
func (b *Base) regularFiles() []string {
	names := make([]string, 0, len(b.files))
	for name, path := range b.files {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Factory creates an archiver writing to path.
type Factory func(path string, args ...string) (Archiver, error)

type kind struct {
	ext     string
	factory Factory
}

// Registry maps archive kinds to the archivers producing them.
type Registry struct {
	kinds map[string]kind
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]kind)}
}

// Default returns a registry knowing the builtin kinds.
func Default() *Registry {
	r := NewRegistry()
	r.Register("rpa", ".rpa", NewRPA)
	return r
}

// Register adds or replaces kind. Archives of that kind get ext appended
// to their file name.
func (r *Registry) Register(name, ext string, f Factory) {
	r.kinds[name] = kind{ext: ext, factory: f}
}

func (r *Registry) Has(name string) bool {
	_, ok := r.kinds[name]
	return ok
}

// New creates an archiver of the named kind writing to outfile plus the
// kind's extension.
func (r *Registry) New(name, outfile string, args ...string) (Archiver, error) {
	k, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("archiver %q not known", name)
	}
	return k.factory(outfile+k.ext, args...)
}
