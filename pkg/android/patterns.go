package android

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/odvcencio/rpdist/pkg/files"
)

// PatternList is a list of file patterns, one per line. Blank lines and
// lines starting with # are ignored.
type PatternList []string

func ReadPatternList(path string) (PatternList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern list: %w", err)
	}
	defer f.Close()

	var pl PatternList
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pl = append(pl, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pattern list %s: %w", path, err)
	}
	return pl, nil
}

func (pl PatternList) Match(name string) bool {
	return files.MatchAny(name, pl)
}

// splitter decides which files of a game become android assets.
type splitter struct {
	block, keep PatternList
}

// include reports whether name goes into the assets: dotfiles and blocked
// files do not, unless the keep list names them.
func (s splitter) include(name string) bool {
	ok := !strings.HasPrefix(name, ".")
	if s.block.Match(name) {
		ok = false
	}
	if s.keep.Match(name) {
		ok = true
	}
	return ok
}
