// Package files models the entries that end up in distributions: single
// files, ordered file lists, the glob-like pattern language used to select
// them, and the classifier that fills file lists from a directory tree.
package files

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadName  = errors.New("invalid file name")
	ErrConflict = errors.New("conflicting file entries")
)

// File is one entry of a distribution.
//
// The name is the archive-relative, slash separated path the entry will be
// stored under and never changes once the File exists. Path is the source
// on disk; an empty Path marks a phantom entry that only carries metadata
// (for example a directory implied by its children).
type File struct {
	name       string
	Path       string
	Directory  bool
	Executable bool
}

// NewFile validates name and returns a new File.
func NewFile(name, path string, directory, executable bool) (*File, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	return &File{name: name, Path: path, Directory: directory, Executable: executable}, nil
}

// CheckName reports whether name is usable as a File name.
func CheckName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name can not be empty", ErrBadName)
	case strings.Contains(name, `\`):
		return fmt.Errorf("%w: %q contains a backslash", ErrBadName, name)
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: %q starts with /", ErrBadName, name)
	case strings.HasSuffix(name, "/"):
		return fmt.Errorf("%w: %q ends with /", ErrBadName, name)
	case strings.Contains(name, "//"):
		return fmt.Errorf("%w: %q contains //", ErrBadName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "." || part == ".." {
			return fmt.Errorf("%w: %q contains . or ..", ErrBadName, name)
		}
	}
	return nil
}

func (f *File) Name() string { return f.name }

// Phantom reports whether the entry has no backing path on disk.
func (f *File) Phantom() bool { return f.Path == "" }

// Copy returns an independent copy of f.
func (f *File) Copy() *File {
	c := *f
	return &c
}

// Rename returns a copy of f stored under a new name.
func (f *File) Rename(name string) (*File, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	c := *f
	c.name = name
	return &c, nil
}

// Equal reports whether both entries agree on every field.
func (f *File) Equal(o *File) bool {
	if f == nil || o == nil {
		return f == o
	}
	return *f == *o
}

func (f *File) String() string {
	extra := ""
	switch {
	case f.Directory:
		extra = " dir"
	case f.Executable:
		extra = " x-bit"
	}
	path := "None"
	if f.Path != "" {
		path = fmt.Sprintf("%q", f.Path)
	}
	return fmt.Sprintf("<File %q %s%s>", f.name, path, extra)
}

// mergeFiles picks the entry kept when two entries share a name. Two
// directories never conflict and the first one wins unless only the second
// is backed by a real path.
func mergeFiles(first, second *File) (*File, error) {
	if first.Directory && second.Directory {
		if first.Path != "" {
			return first, nil
		}
		return second, nil
	}
	if !first.Equal(second) {
		return nil, fmt.Errorf("%w: can not merge %s and %s", ErrConflict, first, second)
	}
	return first, nil
}
