package web

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/rpdist/pkg/distro"
)

// Files of the web runtime kept next to core_files because the build
// rewrites or replaces them.
var templateFiles = []string{"index.html", "web-icon.png", "web-presplash.jpg"}

// Static is the cache of the web runtime of one SDK.
type Static struct {
	Dir string
}

// CoreDir holds the runtime files copied verbatim into every web build.
func (s Static) CoreDir() string { return filepath.Join(s.Dir, "core_files") }

func (s Static) Path(name string) string { return filepath.Join(s.Dir, name) }

func (s Static) versionFile() string { return filepath.Join(s.Dir, "current_version.txt") }

// Version is the runtime version the cache holds, or "".
func (s Static) Version() string {
	data, err := os.ReadFile(s.versionFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Release returns the name and download url of the web runtime matching
// the SDK version v.
func Release(v distro.SDKVersion) (name, url string) {
	if v.Nightly {
		name = v.Version + "+nightly"
		return name, fmt.Sprintf("https://nightly.renpy.org/%s/renpy-%s-web.zip", name, name)
	}
	name = v.Short()
	return name, fmt.Sprintf("http://update.renpy.org/%s/renpy-%s-web.zip", name, name)
}

// Extract unpacks the web/ directory of the runtime archive into the
// cache and records version. Template files go to the cache root, all
// others are flattened into CoreDir.
func (s Static) Extract(archive, version string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open web runtime: %w", err)
	}
	defer zr.Close()

	if err := os.RemoveAll(s.CoreDir()); err != nil {
		return fmt.Errorf("clear core files: %w", err)
	}
	if err := os.MkdirAll(s.CoreDir(), 0o755); err != nil {
		return fmt.Errorf("create core files: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, "web/") {
			continue
		}
		base := path.Base(f.Name)
		if base == "." || base == ".." || base == "/" {
			continue
		}
		dst := filepath.Join(s.CoreDir(), base)
		for _, t := range templateFiles {
			if base == t {
				dst = s.Path(base)
			}
		}
		if err := extractFile(f, dst); err != nil {
			return err
		}
	}
	return os.WriteFile(s.versionFile(), []byte(version), 0o644)
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
