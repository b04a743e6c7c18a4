package files

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		name, pattern string
		want          bool
	}{
		{"game/script.rpy", "game/**", true},
		{"game/", "game/**", true},
		{"Game/Script.rpy", "game/**", true},
		{"game/sub/x.rpy", "game/*", false},
		{"game/sub/", "game/*", true},
		{"README.TXT", "*.txt", true},
		{"doc/readme.txt", "*.txt", false},
		{"lib/x", "/lib/**", true},
		{".git/", "**/.*", true},
		{"game/.DS_Store", "**/.*", true},
		{"renpy/common/x.rpyc", "[rR]enpy/**", true},
		{"xenpy/common/x.rpyc", "[rR]enpy/**", false},
		{"a+b.txt", "a+b.txt", true},
		{"aab.txt", "a+b.txt", false},
	}
	for _, tt := range tests {
		if got := Match(tt.name, tt.pattern); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.name, tt.pattern, got, tt.want)
		}
	}
}

func TestMatch_UnterminatedClass(t *testing.T) {
	if !Match("a", "[ab") {
		t.Error("expected unterminated class to match a")
	}
	if Match("c", "[ab") {
		t.Error("expected unterminated class not to match c")
	}
}

func TestMatchAny(t *testing.T) {
	if !MatchAny("launcher.sh", []string{"*.py", "**.sh"}) {
		t.Error("expected launcher.sh to match **.sh")
	}
	if MatchAny("launcher.exe", []string{"*.py", "**.sh"}) {
		t.Error("expected launcher.exe not to match")
	}
}
