package packager

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dsnet/compress/bzip2"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/progress"
)

// Tar writes a bzip2 compressed tarball owned by a fixed user.
type Tar struct {
	Base
	// NoTime forces every modification time to the epoch.
	NoTime bool

	tw *tar.Writer
}

func NewTar(_ *buildinfo.BuildInfo, outfile string) (Packager, error) {
	return &Tar{Base: NewBase(outfile)}, nil
}

// WriteFile adds an entry for path, following symlinks. A phantom entry
// becomes a directory.
func (t *Tar) WriteFile(name, path string, executable bool) error {
	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeDir,
		ModTime:  time.Now(),
		Mode:     int64(fileMode(executable)),
		Uid:      1000,
		Gid:      1000,
		Uname:    "renpy",
		Gname:    "renpy",
	}
	var info os.FileInfo
	if path != "" {
		var err error
		if info, err = os.Stat(path); err != nil {
			return err
		}
		hdr.ModTime = info.ModTime()
		if info.Mode().IsRegular() {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = info.Size()
		}
	}
	if t.NoTime {
		hdr.ModTime = time.Unix(0, 0)
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.CopyN(t.tw, src, hdr.Size)
	return err
}

func (t *Tar) WriteDirectory(name, path string) error {
	return t.WriteFile(name, path, true)
}

func (t *Tar) Write() progress.Steps {
	return progress.Run(t.WriteLength(), func(tick func() bool) error {
		f, err := os.Create(t.path)
		if err != nil {
			return fmt.Errorf("create tarball: %w", err)
		}
		defer f.Close()

		bw, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		if err != nil {
			return fmt.Errorf("create tarball: %w", err)
		}
		t.tw = tar.NewWriter(bw)
		if err := WriteEntries(t, tick); err != nil {
			return err
		}
		if err := t.tw.Close(); err != nil {
			return fmt.Errorf("finish tarball: %w", err)
		}
		if err := bw.Close(); err != nil {
			return fmt.Errorf("finish tarball: %w", err)
		}
		return f.Close()
	})
}
