package packager

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/progress"
)

// sampleTree creates a small project tree and the file list describing it.
func sampleTree(t *testing.T) *files.FileList {
	t.Helper()
	dir := t.TempDir()
	mustWrite := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return path
	}
	script := mustWrite("game/script.rpy", "label start:\n    return\n")
	launcher := mustWrite("game.sh", "#!/bin/sh\n")

	fl, err := files.NewFileList()
	if err != nil {
		t.Fatalf("NewFileList: %v", err)
	}
	for _, add := range []error{
		fl.AddFile("game/script.rpy", script, false),
		fl.AddFile("game.sh", launcher, true),
		fl.AddDirectory("game", filepath.Join(dir, "game")),
		fl.AddDirectory("empty", filepath.Join(dir, "game")),
	} {
		if add != nil {
			t.Fatalf("add: %v", add)
		}
	}
	return fl
}

func initPackager(t *testing.T, r *Registry, format string, info *buildinfo.BuildInfo) Packager {
	t.Helper()
	p, err := r.Init(format, info, filepath.Join(t.TempDir(), "mygame-1.0-pc"))
	if err != nil {
		t.Fatalf("Init(%s): %v", format, err)
	}
	return p
}

func TestRegistryDefaults(t *testing.T) {
	r := Default()
	if !r.HasModifier("zip", ModPrepend) || r.HasModifier("bare-zip", ModPrepend) {
		t.Error("zip modifiers are wrong")
	}
	if !r.HasModifier("app-dmg", ModApp) || !r.HasModifier("app-dmg", ModDMG) {
		t.Error("app-dmg modifiers are wrong")
	}
	if _, err := r.Init("web", nil, "/tmp/x"); err == nil || !strings.Contains(err.Error(), "web extension") {
		t.Errorf("Init(web) = %v, want missing extension error", err)
	}
	if _, err := r.Init("rar", nil, "/tmp/x"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDMGNeedsIdentity(t *testing.T) {
	r := Default()
	p, err := r.Init("dmg", &buildinfo.BuildInfo{}, filepath.Join(t.TempDir(), "x"))
	if err != nil || p != nil {
		t.Fatalf("Init(dmg) = %v, %v, want nil packager", p, err)
	}
	p = initPackager(t, r, "dmg", &buildinfo.BuildInfo{MacIdentity: "Developer ID"})
	if !strings.HasSuffix(p.Path(), "-dmg") {
		t.Errorf("Path() = %q", p.Path())
	}
}

func TestFinishFileList(t *testing.T) {
	p := initPackager(t, Default(), "zip", nil)
	p.SetFiles(sampleTree(t))
	p.FinishFileList()
	want := []string{"game", "game.sh", "game/script.rpy"}
	if got := p.Files().Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if p.WriteLength() != 3 {
		t.Errorf("WriteLength() = %d", p.WriteLength())
	}
}

func TestZipWrite(t *testing.T) {
	p := initPackager(t, Default(), "zip", nil)
	p.SetFiles(sampleTree(t))
	p.FinishFileList()
	if n, err := progress.Count(p.Write()); err != nil || n != 3 {
		t.Fatalf("Write = %d steps, %v", n, err)
	}
	if !strings.HasSuffix(p.Path(), ".zip") {
		t.Errorf("Path() = %q", p.Path())
	}

	zr, err := zip.OpenReader(p.Path())
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		switch f.Name {
		case "game/":
			if f.Method != zip.Store || f.ExternalAttrs != 0o040755<<16|0x10 {
				t.Errorf("game/ header = method %d attrs %o", f.Method, f.ExternalAttrs)
			}
		case "game.sh":
			if f.ExternalAttrs>>16 != 0o100755 {
				t.Errorf("game.sh attrs = %o", f.ExternalAttrs>>16)
			}
		case "game/script.rpy":
			if f.Method != zip.Deflate || f.ExternalAttrs>>16 != 0o100644 {
				t.Errorf("script header = method %d attrs %o", f.Method, f.ExternalAttrs>>16)
			}
			if f.CreatorVersion>>8 != creatorUnix {
				t.Errorf("creator = %d", f.CreatorVersion>>8)
			}
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open entry: %v", err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if !strings.HasPrefix(string(data), "label start:") {
				t.Errorf("content = %q", data)
			}
		}
	}
	if want := []string{"game/", "game.sh", "game/script.rpy"}; !slices.Equal(names, want) {
		t.Errorf("entries = %v, want %v", names, want)
	}
}

func TestZipWrite_PhantomFile(t *testing.T) {
	p := initPackager(t, Default(), "bare-zip", nil)
	fl, _ := files.NewFileList()
	if err := fl.AddFile("ghost.txt", "", false); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	p.SetFiles(fl)
	if err := progress.Drain(p.Write()); err == nil {
		t.Fatal("expected error for a phantom file")
	}
}

func TestZipTimeClampsOldFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	if got := zipTime(path); got.Year() < 2000 {
		t.Errorf("zipTime = %v, want the current time", got)
	}
}

func TestTarWrite(t *testing.T) {
	p := initPackager(t, Default(), "tar.bz2", nil)
	p.(*Tar).NoTime = true
	fl := sampleTree(t)
	if err := fl.AddDirectory("phantom", ""); err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	p.SetFiles(fl)
	if err := progress.Drain(p.Write()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(p.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	br, err := bzip2.NewReader(f, nil)
	if err != nil {
		t.Fatalf("bzip2: %v", err)
	}
	tr := tar.NewReader(br)
	seen := map[string]*tar.Header{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		seen[hdr.Name] = hdr
	}
	for name, want := range map[string]int64{"game": 0o755, "game.sh": 0o755, "game/script.rpy": 0o644, "phantom": 0o755} {
		hdr, ok := seen[name]
		if !ok {
			t.Errorf("missing %s", name)
			continue
		}
		if hdr.Mode != want || hdr.Uid != 1000 || hdr.Uname != "renpy" || hdr.ModTime.Unix() != 0 {
			t.Errorf("%s header = mode %o uid %d uname %q mtime %v", name, hdr.Mode, hdr.Uid, hdr.Uname, hdr.ModTime)
		}
	}
	if seen["phantom"].Typeflag != tar.TypeDir || seen["game/script.rpy"].Size == 0 {
		t.Error("entry types are wrong")
	}
}

func TestDirectoryWrite(t *testing.T) {
	p := initPackager(t, Default(), "directory", nil)
	if err := os.MkdirAll(filepath.Join(p.Path(), "stale"), 0o755); err != nil {
		t.Fatal(err)
	}
	p.SetFiles(sampleTree(t))
	p.FinishFileList()
	if err := progress.Drain(p.Write()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(p.Path(), "stale")); !os.IsNotExist(err) {
		t.Error("stale content survived")
	}
	info, err := os.Stat(filepath.Join(p.Path(), "game.sh"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("game.sh mode = %v", info.Mode())
	}
	if _, err := os.Stat(filepath.Join(p.Path(), "game", "script.rpy")); err != nil {
		t.Errorf("script missing: %v", err)
	}
}
