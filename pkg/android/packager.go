package android

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/progress"
)

// Packager is the artifact of an android package. Its own file list keeps
// the android files of the project (icons, presplash and configuration);
// the game itself is split between Private and Assets.
type Packager struct {
	packager.Base
	Bundle bool

	Private *PrivatePackager
	// Assets is an *XFilePackager for apks and a *BundlePackager for app
	// bundles.
	Assets packager.Packager
}

// Factory returns the packager factory of apks, or app bundles with
// bundle set.
func Factory(bundle bool) packager.Factory {
	return func(_ *buildinfo.BuildInfo, outfile string) (packager.Packager, error) {
		return &Packager{Base: packager.NewBase(outfile), Bundle: bundle}, nil
	}
}

func (p *Packager) FinishFileList() {
	p.Base.FinishFileList()
	if p.Private != nil {
		p.Private.FinishFileList()
	}
	if p.Assets != nil {
		p.Assets.FinishFileList()
	}
}

// WriteFile does nothing: the android files are read by Gradle from the
// project.
func (p *Packager) WriteFile(string, string, bool) error { return nil }

func (p *Packager) WriteDirectory(string, string) error { return nil }

func (p *Packager) WriteLength() int {
	n := 0
	if p.Private != nil {
		n += p.Private.WriteLength()
	}
	if p.Assets != nil {
		n += p.Assets.WriteLength()
	}
	return n
}

func (p *Packager) Write() progress.Steps {
	if p.Private == nil || p.Assets == nil {
		return progress.Fail(errors.New("android packager written before its private and assets packagers were set"))
	}
	return progress.Chain(p.WriteLength(), p.Private.Write(), p.Assets.Write())
}

// PrivatePackager writes private.mp3, which is a gzipped tarball of the
// engine and the entry point.
type PrivatePackager struct {
	packager.Base
	tw *tar.Writer
}

func NewPrivatePackager(outfile string) *PrivatePackager {
	return &PrivatePackager{Base: packager.NewBase(outfile)}
}

func (p *PrivatePackager) WriteFile(name, path string, executable bool) error {
	hdr := &tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755, Format: tar.FormatGNU}
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if hdr, err = tar.FileInfoHeader(info, ""); err != nil {
			return err
		}
		hdr.Name = name
		hdr.Format = tar.FormatGNU
		if info.IsDir() {
			hdr.Name += "/"
		}
	}
	if err := p.tw.WriteHeader(hdr); err != nil {
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
	_, err = io.CopyN(p.tw, src, hdr.Size)
	return err
}

func (p *PrivatePackager) WriteDirectory(name, path string) error {
	return p.WriteFile(name, path, false)
}

func (p *PrivatePackager) Write() progress.Steps {
	return progress.Run(p.WriteLength(), func(tick func() bool) error {
		if err := os.MkdirAll(filepath.Dir(p.Path()), 0o755); err != nil {
			return err
		}
		f, err := os.Create(p.Path())
		if err != nil {
			return fmt.Errorf("create private.mp3: %w", err)
		}
		defer f.Close()

		gz := gzip.NewWriter(f)
		p.tw = tar.NewWriter(gz)
		if err := packager.WriteEntries(p, tick); err != nil {
			return err
		}
		if err := p.tw.Close(); err != nil {
			return fmt.Errorf("finish private.mp3: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("finish private.mp3: %w", err)
		}
		return f.Close()
	})
}

// XFilePackager copies the assets of an apk. Every path segment gets an
// x- prefix, since the engine uses names that do not work as assets.
type XFilePackager struct {
	packager.Base
}

func NewXFilePackager(dir string) *XFilePackager {
	return &XFilePackager{Base: packager.NewBase(dir)}
}

func xsify(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = "x-" + p
	}
	return strings.Join(parts, "/")
}

func (x *XFilePackager) WriteFile(name, path string, executable bool) error {
	if path == "" {
		return fmt.Errorf("path for %q must not be empty", name)
	}
	dst := filepath.Join(x.Path(), filepath.FromSlash(xsify(name)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := packager.CopyFile(dst, path, executable); err != nil {
		return err
	}
	if filepath.Ext(dst) != ".gz" {
		return nil
	}
	// AAPT gunzips files with a .gz extension, so they are stored gzipped
	// twice.
	return gzipInPlace(dst)
}

func gzipInPlace(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(path)
}

func (x *XFilePackager) WriteDirectory(name, path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(filepath.Join(x.Path(), filepath.FromSlash(xsify(name))), 0o755)
}

func (x *XFilePackager) Write() progress.Steps {
	return progress.Run(x.WriteLength(), func(tick func() bool) error {
		if err := os.MkdirAll(x.Path(), 0o755); err != nil {
			return err
		}
		return packager.WriteEntries(x, tick)
	})
}

// MaxPackSize is the largest an asset pack of an app bundle may get.
const MaxPackSize = 500_000_000

// BundlePackager spreads the assets of an app bundle over the ff1 to ff4
// asset packs of the project.
type BundlePackager struct {
	packager.Base
	targets []string
	sizes   []int64
}

func NewBundlePackager(project string) *BundlePackager {
	b := &BundlePackager{Base: packager.NewBase(project)}
	for i := 1; i <= 4; i++ {
		b.targets = append(b.targets, filepath.Join(project, fmt.Sprintf("ff%d", i), "src", "main", "assets"))
	}
	b.sizes = make([]int64, len(b.targets))
	return b
}

// choose returns the first asset pack with room for size more bytes.
func (b *BundlePackager) choose(size int64) (string, error) {
	for i, t := range b.targets {
		if b.sizes[i]+size <= MaxPackSize {
			b.sizes[i] += size
			return t, nil
		}
	}
	return "", errors.New("game too big for bundle, or single file > 500MB")
}

func (b *BundlePackager) WriteFile(name, path string, executable bool) error {
	if path == "" {
		return fmt.Errorf("path for %q must not be empty", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	target, err := b.choose(info.Size())
	if err != nil {
		return err
	}
	dst := filepath.Join(target, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return packager.CopyFile(dst, path, executable)
}

func (b *BundlePackager) WriteDirectory(name, path string) error {
	if path == "" {
		return nil
	}
	target, err := b.choose(0)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(target, filepath.FromSlash(name)), 0o755)
}

func (b *BundlePackager) WriteLength() int { return b.Base.WriteLength() + len(b.targets) }

func (b *BundlePackager) Write() progress.Steps {
	return progress.Run(b.WriteLength(), func(tick func() bool) error {
		// Every asset pack needs at least one file.
		for i, t := range b.targets {
			b.sizes[i] = 0
			if err := os.RemoveAll(t); err != nil {
				return err
			}
			if err := os.MkdirAll(t, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(t, "00_pack.txt"), []byte("Shiro was here.\n"), 0o644); err != nil {
				return err
			}
			if !tick() {
				return nil
			}
		}
		return packager.WriteEntries(b, tick)
	})
}
