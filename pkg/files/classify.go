package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Rule assigns the entries matching Pattern to the named file lists. A nil
// Lists excludes the matching entries.
type Rule struct {
	Pattern string
	Lists   []string
}

// Exclude reports whether r drops what it matches.
func (r Rule) Exclude() bool { return r.Lists == nil }

func (r Rule) String() string {
	if r.Exclude() {
		return fmt.Sprintf("(%s, None)", pyQuote(r.Pattern))
	}
	return fmt.Sprintf("(%s, %s)", pyQuote(r.Pattern), pyQuote(strings.Join(r.Lists, " ")))
}

// Classify walks root and adds every entry to the lists named by the first
// rule it matches. Directories are matched with a trailing slash but stored
// without it. Each decision is written to log, prefixed by where.
func Classify(where, root string, lists map[string]*FileList, rules []Rule, log io.Writer) error {
	if log == nil {
		log = io.Discard
	}
	c := &classifier{where: where, lists: lists, rules: rules, log: log}
	entries, err := readDirSorted(root)
	if err != nil {
		return fmt.Errorf("classify %s: %w", root, err)
	}
	for _, e := range entries {
		if err := c.walk(e, filepath.Join(root, e)); err != nil {
			return err
		}
	}
	return nil
}

type classifier struct {
	where string
	lists map[string]*FileList
	rules []Rule
	log   io.Writer
}

func (c *classifier) walk(name, path string) error {
	if hasControlChar(name) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("classify %s: %w", path, err)
	}
	isDir := info.IsDir()
	matchName := name
	if isDir {
		matchName += "/"
	}

	rule, ok := c.find(matchName, isDir)
	if !ok {
		fmt.Fprintf(c.log, "'%s/%s' doesn't match anything.\n", c.where, matchName)
		return nil
	}
	fmt.Fprintf(c.log, "'%s/%s' matches %s.\n", c.where, matchName, rule)
	if rule.Exclude() {
		return nil
	}

	for _, list := range rule.Lists {
		fl, ok := c.lists[list]
		if !ok {
			return fmt.Errorf("pattern %q names unknown file list %q", rule.Pattern, list)
		}
		f, err := NewFile(name, path, isDir, false)
		if err != nil {
			return err
		}
		if err := fl.Add(f); err != nil {
			return fmt.Errorf("file list %s: %w", list, err)
		}
	}
	if !isDir {
		return nil
	}

	children, err := readDirSorted(path)
	if err != nil {
		return fmt.Errorf("classify %s: %w", path, err)
	}
	for _, child := range children {
		if err := c.walk(name+"/"+child, filepath.Join(path, child)); err != nil {
			return err
		}
	}
	return nil
}

func (c *classifier) find(matchName string, isDir bool) (Rule, bool) {
	for _, r := range c.rules {
		if !Match(matchName, r.Pattern) {
			continue
		}
		// ("test/**", None) must not exclude test/ itself.
		if r.Exclude() && isDir {
			trimmed := strings.TrimRight(r.Pattern, "*")
			if trimmed != r.Pattern && Match(matchName, trimmed) {
				continue
			}
		}
		return r, true
	}
	return Rule{}, false
}

func readDirSorted(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func hasControlChar(name string) bool {
	return strings.IndexFunc(name, func(r rune) bool { return r <= 0x19 }) >= 0
}
