package files

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func mustList(t *testing.T, entries ...*File) *FileList {
	t.Helper()
	fl, err := NewFileList(entries...)
	if err != nil {
		t.Fatalf("NewFileList: %v", err)
	}
	return fl
}

func mustFile(t *testing.T, name, path string, dir, exec bool) *File {
	t.Helper()
	f, err := NewFile(name, path, dir, exec)
	if err != nil {
		t.Fatalf("NewFile(%q): %v", name, err)
	}
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFileListAddMergesDirectories(t *testing.T) {
	fl := mustList(t, mustFile(t, "game", "", true, false))
	if err := fl.AddDirectory("game", "/project/game"); err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	if fl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", fl.Len())
	}
	if got := fl.Get("game").Path; got != "/project/game" {
		t.Errorf("merged path = %q, want the backed directory", got)
	}

	// A backed first directory wins over anything later.
	if err := fl.AddDirectory("game", "/elsewhere/game"); err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	if got := fl.Get("game").Path; got != "/project/game" {
		t.Errorf("path = %q, want first backed directory", got)
	}
}

func TestFileListAddConflict(t *testing.T) {
	fl := mustList(t)
	if err := fl.AddFile("a.txt", "/one/a.txt", false); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := fl.AddFile("a.txt", "/one/a.txt", false); err != nil {
		t.Fatalf("adding an equal entry twice: %v", err)
	}
	err := fl.AddFile("a.txt", "/two/a.txt", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("AddFile conflicting = %v, want ErrConflict", err)
	}
}

func TestFileListAddStoresCopy(t *testing.T) {
	f := mustFile(t, "a.sh", "/x/a.sh", false, false)
	fl := mustList(t, f)
	f.Executable = true
	if fl.Get("a.sh").Executable {
		t.Error("list entry changed through the caller's File")
	}
}

func TestFileListFilterEmpty(t *testing.T) {
	fl := mustList(t,
		mustFile(t, "d", "", true, false),
		mustFile(t, "a", "/p/a", true, false),
		mustFile(t, "a/c.txt", "/p/a/c.txt", false, false),
		mustFile(t, "a/b", "/p/a/b", true, false),
	)
	fl.FilterEmpty()
	want := []string{"a", "a/c.txt"}
	if got := fl.Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	again := fl.Copy()
	again.FilterEmpty()
	if !again.Equal(fl) {
		t.Errorf("FilterEmpty is not idempotent: %s vs %s", again, fl)
	}
}

func TestFileListAddMissingDirectories(t *testing.T) {
	fl := mustList(t, mustFile(t, "x/y/z.txt", "/p/z.txt", false, false))
	fl.AddMissingDirectories()
	want := []string{"x", "x/y", "x/y/z.txt"}
	if got := fl.Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if d := fl.Get("x/y"); !d.Directory || !d.Phantom() {
		t.Errorf("x/y = %s, want phantom directory", d)
	}

	again := fl.Copy()
	again.AddMissingDirectories()
	if !again.Equal(fl) {
		t.Error("AddMissingDirectories is not idempotent")
	}
}

func TestFileListReprefixRoundTrip(t *testing.T) {
	fl := mustList(t,
		mustFile(t, "game/a.rpy", "/p/a.rpy", false, false),
		mustFile(t, "game/img", "/p/img", true, false),
	)
	orig := fl.Copy()
	if err := fl.Reprefix("game/", ""); err != nil {
		t.Fatalf("Reprefix: %v", err)
	}
	if got, want := fl.Names(), []string{"a.rpy", "img"}; !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if err := fl.Reprefix("", "game/"); err != nil {
		t.Fatalf("Reprefix back: %v", err)
	}
	if !fl.Equal(orig) {
		t.Errorf("round trip = %s, want %s", fl, orig)
	}
}

func TestFileListReprefixDropsEmptyNames(t *testing.T) {
	fl := mustList(t,
		mustFile(t, "game", "/p/game", true, false),
		mustFile(t, "other.txt", "/p/other.txt", false, false),
	)
	if err := fl.Reprefix("game", ""); err != nil {
		t.Fatalf("Reprefix: %v", err)
	}
	if got, want := fl.Names(), []string{"other.txt"}; !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestFileListReprefixLeavesListOnError(t *testing.T) {
	fl := mustList(t,
		mustFile(t, "a/x", "/p/1", false, false),
		mustFile(t, "b/x", "/p/2", false, false),
	)
	orig := fl.Copy()
	if err := fl.Reprefix("a/", "b/"); !errors.Is(err, ErrConflict) {
		t.Fatalf("Reprefix = %v, want ErrConflict", err)
	}
	if !fl.Equal(orig) {
		t.Error("list changed by a failed Reprefix")
	}
}

func TestFileListSplitAndMerge(t *testing.T) {
	fl := mustList(t,
		mustFile(t, "game/a", "/p/a", false, false),
		mustFile(t, "lib/b", "/p/b", false, false),
		mustFile(t, "game/c", "/p/c", false, false),
	)
	yes, no := fl.SplitByPrefix("game/")
	if got, want := yes.Names(), []string{"game/a", "game/c"}; !slices.Equal(got, want) {
		t.Errorf("yes = %v, want %v", got, want)
	}
	if got, want := no.Names(), []string{"lib/b"}; !slices.Equal(got, want) {
		t.Errorf("no = %v, want %v", got, want)
	}

	merged, err := Merge(yes, no, yes)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Len() != 3 {
		t.Errorf("merged Len() = %d, want 3", merged.Len())
	}
}

func TestFileListPrependDirectory(t *testing.T) {
	fl := mustList(t, mustFile(t, "a.txt", "/p/a.txt", false, false))
	if err := fl.PrependDirectory("game-1.0-pc"); err != nil {
		t.Fatalf("PrependDirectory: %v", err)
	}
	want := []string{"game-1.0-pc", "game-1.0-pc/a.txt"}
	if got := fl.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestFileListHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "alpha")
	writeFile(t, b, "beta")

	one := mustList(t,
		mustFile(t, "a.txt", a, false, false),
		mustFile(t, "b.txt", b, false, true),
		mustFile(t, "d", "", true, false),
	)
	two := mustList(t,
		mustFile(t, "d", "", true, false),
		mustFile(t, "b.txt", b, false, true),
		mustFile(t, "a.txt", a, false, false),
	)
	h1, err := one.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := two.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash depends on order: %s vs %s", h1, h2)
	}

	writeFile(t, b, "beta, changed")
	h3, err := one.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h3 == h1 {
		t.Error("hash did not change with file content")
	}
}

func TestHashFileMethods(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	writeFile(t, path, "")
	want := map[string]string{
		"sha256":   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"sha3-256": "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a",
	}
	for method, sum := range want {
		got, err := HashFile(path, method)
		if err != nil {
			t.Fatalf("HashFile(%s): %v", method, err)
		}
		if got != sum {
			t.Errorf("HashFile(%s) = %s, want %s", method, got, sum)
		}
	}
	if _, err := HashFile(path, "md5"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func sortedNames(fl *FileList) []string {
	names := fl.Names()
	slices.Sort(names)
	return names
}

func TestMergeIsCommutativeOnNames(t *testing.T) {
	tests := []struct {
		name string
		x, y []*File
	}{
		{
			name: "disjoint files",
			x:    []*File{mustFile(t, "a.txt", "/p/a.txt", false, false)},
			y:    []*File{mustFile(t, "b.txt", "/p/b.txt", false, true)},
		},
		{
			name: "shared directory",
			x: []*File{
				mustFile(t, "game", "", true, false),
				mustFile(t, "game/a.rpy", "/p/game/a.rpy", false, false),
			},
			y: []*File{
				mustFile(t, "game", "/p/game", true, false),
				mustFile(t, "game/b.rpy", "/p/game/b.rpy", false, false),
			},
		},
		{
			name: "one side empty",
			x:    []*File{mustFile(t, "lib", "", true, false)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := mustList(t, tt.x...), mustList(t, tt.y...)
			xy, err := Merge(x, y)
			if err != nil {
				t.Fatalf("Merge(x, y): %v", err)
			}
			yx, err := Merge(y, x)
			if err != nil {
				t.Fatalf("Merge(y, x): %v", err)
			}
			if a, b := sortedNames(xy), sortedNames(yx); !slices.Equal(a, b) {
				t.Errorf("Merge(x, y) names %v, Merge(y, x) names %v", a, b)
			}
		})
	}
}

func TestMergeRejectsUnequalFiles(t *testing.T) {
	tests := []struct {
		name string
		x, y *File
	}{
		{"different paths", mustFile(t, "a.txt", "/one/a.txt", false, false), mustFile(t, "a.txt", "/two/a.txt", false, false)},
		{"different executable flag", mustFile(t, "run.sh", "/p/run.sh", false, false), mustFile(t, "run.sh", "/p/run.sh", false, true)},
		{"file over directory", mustFile(t, "lib", "/p/lib", false, false), mustFile(t, "lib", "/p/lib", true, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := mustList(t, tt.x), mustList(t, tt.y)
			if _, err := Merge(x, y); !errors.Is(err, ErrConflict) {
				t.Errorf("Merge(x, y) = %v, want ErrConflict", err)
			}
			if _, err := Merge(y, x); !errors.Is(err, ErrConflict) {
				t.Errorf("Merge(y, x) = %v, want ErrConflict", err)
			}
		})
	}
}

func TestFileListCopyKeepsHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, "alpha")

	tests := []struct {
		name    string
		entries []*File
	}{
		{"empty", nil},
		{"phantom directory", []*File{mustFile(t, "d", "", true, false)}},
		{"files", []*File{
			mustFile(t, "a.txt", a, false, false),
			mustFile(t, "bin/a", a, false, true),
			mustFile(t, "bin", dir, true, false),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := mustList(t, tt.entries...)
			want, err := fl.Hash()
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			got, err := fl.Copy().Hash()
			if err != nil {
				t.Fatalf("Copy().Hash: %v", err)
			}
			if got != want {
				t.Errorf("Copy().Hash() = %s, want %s", got, want)
			}
		})
	}
}

func TestFileListNormalizeIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		entries []*File
	}{
		{"empty", nil},
		{"deep file", []*File{mustFile(t, "x/y/z.txt", "/p/z.txt", false, false)}},
		{"empty directories", []*File{
			mustFile(t, "d", "", true, false),
			mustFile(t, "d/e", "/p/d/e", true, false),
		}},
		{"mixed", []*File{
			mustFile(t, "game/cache", "", true, false),
			mustFile(t, "game/script.rpy", "/p/script.rpy", false, false),
			mustFile(t, "lib/py3/x.so", "/p/x.so", false, true),
			mustFile(t, "renpy", "/p/renpy", true, false),
		}},
	}
	normalize := func(fl *FileList) {
		fl.FilterEmpty()
		fl.AddMissingDirectories()
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := mustList(t, tt.entries...)
			normalize(once)
			twice := once.Copy()
			normalize(twice)
			if !twice.Equal(once) {
				t.Errorf("normalizing twice gives %s, once gives %s", twice, once)
			}
		})
	}
}
