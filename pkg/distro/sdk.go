package distro

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// SDKVersion is the engine version an SDK reports in renpy/vc_version.py.
type SDKVersion struct {
	// Version is the full dotted version, such as 8.1.3.23091805.
	Version string
	Nightly bool
}

var (
	versionLine = regexp.MustCompile(`(?m)^version\s*=\s*['"]([^'"]+)['"]`)
	nightlyLine = regexp.MustCompile(`(?m)^nightly\s*=\s*(True|False)`)
)

// ReadSDKVersion reads the version of the SDK in dir.
func ReadSDKVersion(dir string) (SDKVersion, error) {
	path := filepath.Join(dir, "renpy", "vc_version.py")
	data, err := os.ReadFile(path)
	if err != nil {
		return SDKVersion{}, fmt.Errorf("read sdk version: %w", err)
	}
	m := versionLine.FindSubmatch(data)
	if m == nil {
		return SDKVersion{}, fmt.Errorf("no version in %s", path)
	}
	v := SDKVersion{Version: string(m[1])}
	if n := nightlyLine.FindSubmatch(data); n != nil {
		v.Nightly = string(n[1]) == "True"
	}
	return v, nil
}

// Tuple returns the first three numeric parts of the version.
func (v SDKVersion) Tuple() []int {
	var out []int
	for _, part := range strings.Split(v.Version, ".") {
		if len(out) == 3 {
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}

// Short is the version without the build number, such as 8.1.3.
func (v SDKVersion) Short() string {
	parts := v.Tuple()
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

// ScriptVersion renders the version the way game/script_version.txt
// stores it: (8, 1, 3).
func (v SDKVersion) ScriptVersion() string {
	parts := v.Tuple()
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = strconv.Itoa(p)
	}
	if len(s) == 1 {
		return "(" + s[0] + ",)"
	}
	return "(" + strings.Join(s, ", ") + ")"
}
