package packager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/progress"
)

// Directory mirrors the file list into a directory, replacing whatever
// was there before.
type Directory struct {
	Base
}

func NewDirectory(_ *buildinfo.BuildInfo, outfile string) (Packager, error) {
	return &Directory{Base: NewBase(outfile)}, nil
}

// NewDMG creates the folder a disk image is built from. Disk images need
// a signing identity, so without one the format is skipped.
func NewDMG(info *buildinfo.BuildInfo, outfile string) (Packager, error) {
	if info == nil || info.MacIdentity == "" {
		return nil, nil
	}
	return NewDirectory(info, outfile)
}

func (d *Directory) WriteFile(name, path string, executable bool) error {
	if path == "" {
		return errPhantom(name)
	}
	target := filepath.Join(d.path, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return CopyFile(target, path, executable)
}

func (d *Directory) WriteDirectory(name, path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(filepath.Join(d.path, filepath.FromSlash(name)), 0o755)
}

func (d *Directory) Write() progress.Steps {
	return progress.Run(d.WriteLength(), func(tick func() bool) error {
		if err := os.RemoveAll(d.path); err != nil {
			return fmt.Errorf("clear %s: %w", d.path, err)
		}
		if err := os.MkdirAll(d.path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d.path, err)
		}
		return WriteEntries(d, tick)
	})
}

// CopyFile copies src to dst and gives dst the mode of a packaged entry.
func CopyFile(dst, src string, executable bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, fileMode(executable))
}
