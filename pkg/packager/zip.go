package packager

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/progress"
)

const creatorUnix = 3

// Zip writes a zip file with unix permissions.
type Zip struct {
	Base
	zw *zip.Writer
}

func NewZip(_ *buildinfo.BuildInfo, outfile string) (Packager, error) {
	return &Zip{Base: NewBase(outfile)}, nil
}

// zipTime is the modification time of path in UTC, or the current time
// when that is unknown or before 2000.
func zipTime(path string) time.Time {
	if info, err := os.Stat(path); err == nil {
		mtime := info.ModTime().UTC()
		if mtime.Year() >= 2000 {
			return mtime.Truncate(time.Second)
		}
	}
	return time.Now().UTC().Truncate(time.Second)
}

func (z *Zip) WriteFile(name, path string, executable bool) error {
	if path == "" {
		return errPhantom(name)
	}
	fh := &zip.FileHeader{
		Name:           name,
		Method:         zip.Deflate,
		Modified:       zipTime(path),
		CreatorVersion: creatorUnix << 8,
		ExternalAttrs:  uint32(0o100000|fileMode(executable)) << 16,
	}
	w, err := z.zw.CreateHeader(fh)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}

func (z *Zip) WriteDirectory(name, path string) error {
	if path == "" {
		return nil
	}
	fh := &zip.FileHeader{
		Name:           name + "/",
		Method:         zip.Store,
		Modified:       zipTime(path),
		CreatorVersion: creatorUnix << 8,
		ExternalAttrs:  0o040755<<16 | 0x10,
	}
	_, err := z.zw.CreateHeader(fh)
	return err
}

func (z *Zip) Write() progress.Steps {
	return progress.Run(z.WriteLength(), func(tick func() bool) error {
		f, err := os.Create(z.path)
		if err != nil {
			return fmt.Errorf("create zip: %w", err)
		}
		defer f.Close()

		z.zw = zip.NewWriter(f)
		if err := WriteEntries(z, tick); err != nil {
			z.zw.Close()
			return err
		}
		if err := z.zw.Close(); err != nil {
			return fmt.Errorf("finish zip: %w", err)
		}
		return f.Close()
	})
}
