// Package web builds the browser distribution: a zip holding the web
// runtime, the files downloaded on demand and game.zip with the rest.
package web

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/odvcencio/rpdist/pkg/files"
)

// RulesFile is the name of the rules file in the project directory.
const RulesFile = "progressive_download.txt"

// DefaultRules is written to the project when it has no rules file.
const DefaultRules = `# RenPyWeb progressive download rules - first match applies
# '+' = progressive download, '-' = keep in game.zip (default)
# See https://www.renpy.org/doc/html/build.html#classifying-and-ignoring-files for matching
#
# +/- type path
- image game/gui/**
+ image game/**
+ music game/audio/**
+ voice game/voice/**
`

// Kinds of files that can be downloaded progressively.
const (
	Image = "image"
	Music = "music"
	Voice = "voice"
)

type rule struct {
	progressive bool
	pattern     string
}

// Rules decides which files are downloaded on demand.
type Rules struct {
	kinds map[string][]rule
}

// Add appends a rule for kind.
func (r *Rules) Add(kind string, progressive bool, pattern string) {
	if r.kinds == nil {
		r.kinds = make(map[string][]rule)
	}
	r.kinds[kind] = append(r.kinds[kind], rule{progressive, pattern})
}

// Progressive reports whether name of the given kind is downloaded on
// demand. The first matching rule decides; without a match the file stays
// in game.zip.
func (r *Rules) Progressive(name, kind string) bool {
	for _, rl := range r.kinds[kind] {
		if files.Match(name, rl.pattern) {
			return rl.progressive
		}
	}
	return false
}

// ParseRules reads rules in the "+|- kind pattern" line format.
func ParseRules(in io.Reader) (*Rules, error) {
	rules := &Rules{}
	sc := bufio.NewScanner(in)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("missing element at %s:%d", RulesFile, lineNo)
		}
		var progressive bool
		switch fields[0] {
		case "+":
			progressive = true
		case "-":
		default:
			return nil, fmt.Errorf("invalid rule %q at %s:%d", fields[0], RulesFile, lineNo)
		}
		switch fields[1] {
		case Image, Music, Voice:
		default:
			return nil, fmt.Errorf("invalid type %q at %s:%d", fields[1], RulesFile, lineNo)
		}
		rules.Add(fields[1], progressive, fields[2])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", RulesFile, err)
	}
	return rules, nil
}

// LoadRules reads the rules file at path, creating it with DefaultRules
// first when it does not exist.
func LoadRules(path string) (*Rules, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, []byte(DefaultRules), 0o644); err != nil {
			return nil, fmt.Errorf("create %s: %w", RulesFile, err)
		}
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", RulesFile, err)
	}
	defer f.Close()
	return ParseRules(f)
}
