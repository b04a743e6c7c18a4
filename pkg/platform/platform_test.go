package platform

import "testing"

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec string
		want Set
	}{
		{"all", All},
		{"linux", Of(Linux)},
		{"linux mac", Of(Linux, Mac)},
		{"-web", Of(Windows, Linux, Mac, Android, IOS)},
		{"-win linux mac", Of(Android, IOS, Web)},
	}
	for _, tt := range tests {
		got, err := ParseSpec(tt.spec)
		if err != nil {
			t.Fatalf("ParseSpec(%q): %v", tt.spec, err)
		}
		if got != tt.want {
			t.Errorf("ParseSpec(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestParseSpec_UnknownPlatform(t *testing.T) {
	if _, err := ParseSpec("linux beos"); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestSetIntersects(t *testing.T) {
	pc := Of(Windows, Linux)
	if !pc.Intersects(Of(Linux)) {
		t.Error("expected pc to intersect linux")
	}
	if pc.Intersects(Of(Mac, Web)) {
		t.Error("expected pc not to intersect mac web")
	}
	if got := pc.String(); got != "linux win" {
		t.Errorf("String() = %q, want %q", got, "linux win")
	}
}
