package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/rpdist/pkg/progress"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRegistryAppendsExtension(t *testing.T) {
	out := filepath.Join(t.TempDir(), "archive")
	a, err := Default().New("rpa", out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Path() != out+".rpa" {
		t.Errorf("Path() = %q", a.Path())
	}
	if _, err := Default().New("zip", out); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestAddPreconditions(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.txt", "a")
	a, _ := NewRPA(filepath.Join(dir, "x.rpa"))

	if err := a.Add("a.txt", src); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.Add("a.txt", src); err == nil {
		t.Error("expected duplicate error")
	}
	if err := a.Add("/b.txt", src); err == nil {
		t.Error("expected error for leading slash")
	}
	if err := a.Add("c.txt", "relative/c.txt"); err == nil {
		t.Error("expected error for relative path")
	}
	if err := a.Add("d.txt", filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRPAWrite(t *testing.T) {
	dir := t.TempDir()
	a, err := NewRPA(filepath.Join(dir, "out.rpa"))
	if err != nil {
		t.Fatalf("NewRPA: %v", err)
	}
	contents := map[string]string{"script.rpy": "label start:\n", "images/bg.png": "PNGDATA"}
	for name, content := range contents {
		if err := a.Add(name, writeSource(t, dir, "src/"+name, content)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := a.Add("images", filepath.Join(dir, "src/images")); err != nil {
		t.Fatalf("Add directory: %v", err)
	}
	if got := a.WriteLength(); got != 4 {
		t.Fatalf("WriteLength() = %d, want 4", got)
	}

	n, err := progress.Count(a.Write())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 4 {
		t.Errorf("steps = %d, want 4", n)
	}

	data, err := os.ReadFile(a.Path())
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	header := strings.Fields(string(data[:len(rpaPlaceholder)]))
	if len(header) != 3 || header[0] != "RPA-3.0" {
		t.Fatalf("header = %q", header)
	}
	indexOffset, err := strconv.ParseInt(header[1], 16, 64)
	if err != nil {
		t.Fatalf("parse offset: %v", err)
	}
	key, err := strconv.ParseInt(header[2], 16, 64)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if key != rpaKey {
		t.Errorf("key = %x", key)
	}

	// Entries are stored sorted by name after the padding.
	first := len(rpaPlaceholder) + len(rpaPadding)
	if got := string(data[first : first+len("PNGDATA")]); got != "PNGDATA" {
		t.Errorf("first entry = %q", got)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[indexOffset:]))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	index, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	second := first + len("PNGDATA") + len(rpaPadding)
	want := encodeIndex([]rpaEntry{
		{name: "images/bg.png", offset: int64(first) ^ rpaKey, length: int64(len("PNGDATA")) ^ rpaKey},
		{name: "script.rpy", offset: int64(second) ^ rpaKey, length: int64(len("label start:\n")) ^ rpaKey},
	})
	if !bytes.Equal(index, want) {
		t.Errorf("index = %q, want %q", index, want)
	}
}

func TestEncodeIndex(t *testing.T) {
	got := encodeIndex([]rpaEntry{{name: "a", offset: 1, length: 2}})
	want := "\x80\x03}(X\x01\x00\x00\x00a]J\x01\x00\x00\x00J\x02\x00\x00\x00C\x00\x87au."
	if string(got) != want {
		t.Errorf("encodeIndex = %q, want %q", got, want)
	}
	if got := encodeIndex(nil); string(got) != "\x80\x03}." {
		t.Errorf("empty index = %q", got)
	}
}

func TestPickleIntLong(t *testing.T) {
	tests := []struct {
		v    int64
		want string
	}{
		{1 << 31, "\x8a\x05\x00\x00\x00\x80\x00"},
		{1 << 32, "\x8a\x05\x00\x00\x00\x00\x01"},
		{-1 << 31, "J\x00\x00\x00\x80"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		pickleInt(&buf, tt.v)
		if got := buf.String(); got != tt.want {
			t.Errorf("pickleInt(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
