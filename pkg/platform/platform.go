// Package platform defines the target runtimes a build can produce
// artifacts for, and the set type used to gate packages and tasks on them.
package platform

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Platform is a single target-runtime tag.
type Platform uint8

const (
	Windows Platform = 1 << iota
	Linux
	Mac
	Android
	IOS
	Web
)

// Known lists every platform in canonical order.
var Known = []Platform{Windows, Linux, Mac, Android, IOS, Web}

var names = map[Platform]string{
	Windows: "win",
	Linux:   "linux",
	Mac:     "mac",
	Android: "android",
	IOS:     "ios",
	Web:     "web",
}

func (p Platform) String() string {
	if name, ok := names[p]; ok {
		return name
	}
	return fmt.Sprintf("platform(%d)", uint8(p))
}

// Parse resolves a platform tag such as "win" or "linux".
func Parse(name string) (Platform, error) {
	for p, n := range names {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("platform %q not known", name)
}

// Set is an unordered collection of platforms.
type Set uint8

// All contains every known platform.
const All Set = Set(Windows | Linux | Mac | Android | IOS | Web)

// Of builds a set from individual platforms.
func Of(ps ...Platform) Set {
	var s Set
	for _, p := range ps {
		s |= Set(p)
	}
	return s
}

// ParseSet parses a space separated list of platform tags. Every unknown
// tag is reported in a single error.
func ParseSet(list string) (Set, error) {
	var s Set
	var bad []string
	for _, field := range strings.Fields(list) {
		p, err := Parse(field)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%q", field))
			continue
		}
		s |= Set(p)
	}
	if len(bad) > 0 {
		return 0, fmt.Errorf("unknown platform(s) %s", strings.Join(bad, ", "))
	}
	return s, nil
}

// ParseSpec parses an applicability spec: "all" for every platform, a
// space separated list, or a list prefixed with "-" meaning every platform
// except the listed ones.
func ParseSpec(spec string) (Set, error) {
	spec = strings.TrimSpace(spec)
	if spec == "all" {
		return All, nil
	}
	negative := strings.HasPrefix(spec, "-")
	if negative {
		spec = spec[1:]
	}
	s, err := ParseSet(spec)
	if err != nil {
		return 0, err
	}
	if negative {
		s = All &^ s
	}
	return s, nil
}

func (s Set) Has(p Platform) bool { return s&Set(p) != 0 }

func (s Set) Intersects(o Set) bool { return s&o != 0 }

func (s Set) Union(o Set) Set { return s | o }

func (s Set) Empty() bool { return s == 0 }

func (s Set) Len() int { return bits.OnesCount8(uint8(s)) }

// Platforms returns the members in canonical order.
func (s Set) Platforms() []Platform {
	var out []Platform
	for _, p := range Known {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Names returns the sorted tag names of the members.
func (s Set) Names() []string {
	out := make([]string, 0, s.Len())
	for _, p := range s.Platforms() {
		out = append(out, p.String())
	}
	sort.Strings(out)
	return out
}

func (s Set) String() string {
	return strings.Join(s.Names(), " ")
}
