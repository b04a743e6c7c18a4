package files

import (
	"regexp"
	"strings"
	"sync"
)

var patternCache sync.Map // pattern -> *regexp.Regexp

// Match reports whether name matches the glob-like pattern.
//
//	**     matches any run of characters, including /
//	*      matches any run of characters except /, plus an optional
//	       trailing / so that "dir/*" also matches "dir/sub/"
//	[abc]  matches one of a, b or c
//
// Matching is case-insensitive and covers the whole name. The pattern is
// also tried against "/"+name, so a leading / anchors it to the root while
// patterns such as "**/.*" float.
func Match(name, pattern string) bool {
	re := compilePattern(pattern)
	return re.MatchString(name) || re.MatchString("/"+name)
}

// MatchAny reports whether name matches at least one of patterns.
func MatchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if Match(name, p) {
			return true
		}
	}
	return false
}

func compilePattern(pattern string) *regexp.Regexp {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(globToRegex(pattern))
	if err != nil {
		// Only a malformed character class gets here; treat the pattern
		// literally instead.
		re = regexp.MustCompile("(?i)^" + regexp.QuoteMeta(pattern) + "$")
	}
	actual, _ := patternCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("(?i)^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '*' && i+1 < len(pattern) && pattern[i+1] == '*':
			b.WriteString(".*")
			i++
		case ch == '*':
			b.WriteString("[^/]*/?")
		case ch == '[':
			b.WriteByte('[')
			i++
			for i < len(pattern) && pattern[i] != ']' {
				if pattern[i] == '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(pattern[i])
				i++
			}
			b.WriteByte(']')
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteString("$")
	return b.String()
}
