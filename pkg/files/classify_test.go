package files

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden"), "x")
	writeFile(t, filepath.Join(root, "README.txt"), "read me")
	writeFile(t, filepath.Join(root, "unmatched.bin"), "?")
	writeFile(t, filepath.Join(root, "game", "script.rpy"), "label start:")
	writeFile(t, filepath.Join(root, "game", "images", "a.png"), "png")
	writeFile(t, filepath.Join(root, "game", "saves", "s.save"), "save")

	lists := map[string]*FileList{"all": mustList(t), "doc": mustList(t)}
	rules := []Rule{
		{Pattern: "**/.*"},
		{Pattern: "game/saves/**"},
		{Pattern: "game/**", Lists: []string{"all"}},
		{Pattern: "*.txt", Lists: []string{"all", "doc"}},
	}
	var log bytes.Buffer
	if err := Classify("project", root, lists, rules, &log); err != nil {
		t.Fatalf("Classify: %v", err)
	}

	wantAll := []string{"README.txt", "game", "game/images", "game/images/a.png", "game/saves", "game/script.rpy"}
	if got := lists["all"].Names(); !slices.Equal(got, wantAll) {
		t.Errorf("all = %v, want %v", got, wantAll)
	}
	if got := lists["doc"].Names(); !slices.Equal(got, []string{"README.txt"}) {
		t.Errorf("doc = %v", got)
	}
	if f := lists["all"].Get("game/saves"); !f.Directory || f.Path != filepath.Join(root, "game", "saves") {
		t.Errorf("game/saves = %s", f)
	}

	for _, line := range []string{
		"'project/unmatched.bin' doesn't match anything.",
		"'project/README.txt' matches ('*.txt', 'all doc').",
		"'project/.hidden' matches ('**/.*', None).",
		"'project/game/saves/s.save' matches ('game/saves/**', None).",
	} {
		if !strings.Contains(log.String(), line+"\n") {
			t.Errorf("log missing %q:\n%s", line, log.String())
		}
	}
}

func TestClassify_UnknownList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	lists := map[string]*FileList{"all": mustList(t)}
	err := Classify("project", root, lists, []Rule{{Pattern: "**", Lists: []string{"missing"}}}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("Classify = %v, want unknown list error", err)
	}
}

func TestClassify_ExcludedDirectoryIsNotEntered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cache", "x.bin"), "x")
	lists := map[string]*FileList{"all": mustList(t)}
	rules := []Rule{{Pattern: "cache/"}, {Pattern: "**", Lists: []string{"all"}}}
	if err := Classify("project", root, lists, rules, nil); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if lists["all"].Len() != 0 {
		t.Errorf("all = %v, want empty", lists["all"].Names())
	}
}
