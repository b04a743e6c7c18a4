// Package buildinfo holds the resolved description of a build: the names
// used for output, the packages and archives to produce, and the pattern
// rules that sort engine and project files into file lists.
package buildinfo

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/platform"
)

// ErrConfig is wrapped by every configuration error.
var ErrConfig = errors.New("invalid build configuration")

// ConfigError describes a build configuration that can not be used.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }
func (e *ConfigError) Unwrap() error { return ErrConfig }

func configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Rule assigns matching files to file lists, or excludes them.
type Rule = files.Rule

// Package is an output bundle: one artifact per format, built from the
// union of its file lists.
type Package struct {
	Name           string
	Formats        []string
	Platforms      platform.Set
	IgnoreArchives bool
	FileLists      []string
	Description    string
	Update         bool
	DLC            bool
	Hidden         bool
}

func (p *Package) check() error {
	if p.Name == "" {
		return configf("package without a name")
	}
	if len(p.FileLists) == 0 {
		return configf("package %q: file lists can not be empty", p.Name)
	}
	if p.Description == "" {
		p.Description = p.Name
	}
	return nil
}

// Archive is a sub-bundle, such as an .rpa file, that packages embed
// instead of the files it holds.
type Archive struct {
	Name      string
	Filename  string
	FileLists []string
	Kind      string
	Args      []string
}

func (a *Archive) check() error {
	if a.Name == "" {
		return configf("archive without a name")
	}
	if len(a.FileLists) == 0 {
		return configf("archive %q: file lists can not be empty", a.Name)
	}
	if a.Filename == "" {
		a.Filename = a.Name
	}
	if a.Kind == "" {
		a.Kind = "rpa"
	}
	return nil
}

// BuildInfo is the validated build configuration. Construct it with Load,
// Parse or FromDump; all of them finish with Validate.
type BuildInfo struct {
	DirectoryName  string
	Destination    string
	ExecutableName string
	IncludeUpdate  bool
	DisplayName    string
	Version        string

	// MacInfoPlist holds extra or overriding Info.plist keys.
	MacInfoPlist map[string]any
	// MacIdentity enables disk image formats when set.
	MacIdentity string

	// Files matching DocumentationPatterns are stored both inside and
	// outside of a mac app.
	DocumentationPatterns []string
	XbitPatterns          []string

	GamePatterns  []Rule
	RenpyPatterns []Rule

	// FileLists is the sorted set of list names files can be classified
	// into. Validate fills it.
	FileLists []string

	Packages []*Package
	Archives []*Archive

	// Warnings collects problems that do not stop the build.
	Warnings []string
}

// Package returns the package called name, or nil.
func (bi *BuildInfo) Package(name string) *Package {
	for _, p := range bi.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Archive returns the archive called name, or nil.
func (bi *BuildInfo) Archive(name string) *Archive {
	for _, a := range bi.Archives {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// PackageNames returns the package names in declaration order.
func (bi *BuildInfo) PackageNames() []string {
	out := make([]string, 0, len(bi.Packages))
	for _, p := range bi.Packages {
		out = append(out, p.Name)
	}
	return out
}

// Validate checks the configuration and resolves FileLists.
//
// declared is the explicit set of file list names, or nil to use the union
// of the lists named by packages. Archives may only draw from the declared
// set; a declared list that no package includes is allowed for archives
// and recorded in Warnings. Archive names then become file lists
// themselves, and every pattern target has to resolve against the result.
func (bi *BuildInfo) Validate(declared []string) error {
	if strings.ContainsAny(bi.DirectoryName, " :;") {
		return configf("directory_name %q may not include the space, colon, or semicolon characters", bi.DirectoryName)
	}

	used := make(map[string]bool)
	seen := make(map[string]bool)
	for _, p := range bi.Packages {
		if err := p.check(); err != nil {
			return err
		}
		if seen[p.Name] {
			return configf("duplicate package %q", p.Name)
		}
		seen[p.Name] = true
		for _, l := range p.FileLists {
			used[l] = true
		}
	}

	valid := used
	if declared != nil {
		valid = make(map[string]bool, len(declared))
		for _, l := range declared {
			valid[l] = true
		}
		for _, p := range bi.Packages {
			if err := checkUsed(valid, p.FileLists, fmt.Sprintf("Package %q", p.Name)); err != nil {
				return err
			}
		}
	}

	bi.Warnings = bi.Warnings[:0]
	seen = make(map[string]bool)
	for _, a := range bi.Archives {
		if err := a.check(); err != nil {
			return err
		}
		if seen[a.Name] {
			return configf("duplicate archive %q", a.Name)
		}
		seen[a.Name] = true
		if err := checkUsed(valid, a.FileLists, fmt.Sprintf("Archive %q", a.Name)); err != nil {
			return err
		}
		for _, l := range a.FileLists {
			if !used[l] {
				bi.Warnings = append(bi.Warnings,
					fmt.Sprintf("Archive %q is placed in file list %q, which no package includes.", a.Name, l))
			}
		}
	}
	for _, a := range bi.Archives {
		valid[a.Name] = true
	}

	for _, r := range bi.GamePatterns {
		if err := checkUsed(valid, r.Lists, fmt.Sprintf("Game pattern %q", r.Pattern)); err != nil {
			return err
		}
	}
	for _, r := range bi.RenpyPatterns {
		if err := checkUsed(valid, r.Lists, fmt.Sprintf("RenPy pattern %q", r.Pattern)); err != nil {
			return err
		}
	}

	bi.FileLists = slices.Sorted(maps.Keys(valid))
	return nil
}

func checkUsed(valid map[string]bool, lists []string, what string) error {
	var extra []string
	for _, l := range lists {
		if !valid[l] && !slices.Contains(extra, l) {
			extra = append(extra, l)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return configf("%s uses a file list(s) that are not one of valid package lists or archive name: %s.",
		what, strings.Join(extra, ", "))
}

// dedupeRules keeps the first rule of every pattern.
func dedupeRules(rules []Rule) []Rule {
	seen := make(map[string]bool, len(rules))
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if seen[r.Pattern] {
			continue
		}
		seen[r.Pattern] = true
		out = append(out, r)
	}
	return out
}

func (p *Package) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Package %s:\n", p.Name)
	fmt.Fprintf(&b, "    description: %s\n", p.Description)
	fmt.Fprintf(&b, "    formats: %s\n", strings.Join(p.Formats, " "))
	fmt.Fprintf(&b, "    platforms: %s\n", p.Platforms)
	fmt.Fprintf(&b, "    file_lists: %s\n", strings.Join(p.FileLists, " "))
	fmt.Fprintf(&b, "    ignore_archives: %t update: %t dlc: %t hidden: %t\n", p.IgnoreArchives, p.Update, p.DLC, p.Hidden)
	return b.String()
}

func (a *Archive) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Archive %s:\n", a.Name)
	fmt.Fprintf(&b, "    filename: %s\n", a.Filename)
	fmt.Fprintf(&b, "    file_lists: %s\n", strings.Join(a.FileLists, " "))
	fmt.Fprintf(&b, "    kind: %s", a.Kind)
	if len(a.Args) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(a.Args, " "))
	}
	b.WriteString("\n")
	return b.String()
}

// String renders the build info in the form printed by the buildinfo
// command.
func (bi *BuildInfo) String() string {
	var b strings.Builder
	b.WriteString("BuildInfo:\n")
	fmt.Fprintf(&b, "  directory_name: %s\n", bi.DirectoryName)
	fmt.Fprintf(&b, "  destination: %s\n", bi.Destination)
	fmt.Fprintf(&b, "  executable_name: %s\n", bi.ExecutableName)
	fmt.Fprintf(&b, "  display_name: %s\n", bi.DisplayName)
	fmt.Fprintf(&b, "  version: %s\n", bi.Version)
	fmt.Fprintf(&b, "  include_update: %t\n", bi.IncludeUpdate)
	fmt.Fprintf(&b, "  file_lists: %s\n", strings.Join(bi.FileLists, " "))
	if bi.MacIdentity != "" {
		fmt.Fprintf(&b, "  mac_identity: %s\n", bi.MacIdentity)
	}
	for _, k := range slices.Sorted(maps.Keys(bi.MacInfoPlist)) {
		fmt.Fprintf(&b, "  mac_info_plist.%s: %v\n", k, bi.MacInfoPlist[k])
	}
	b.WriteString("\n")
	for _, p := range bi.Packages {
		b.WriteString(indent(p.String()))
	}
	for _, a := range bi.Archives {
		b.WriteString(indent(a.String()))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  documentation_patterns: %s\n", strings.Join(bi.DocumentationPatterns, " "))
	fmt.Fprintf(&b, "  xbit_patterns: %s\n", strings.Join(bi.XbitPatterns, " "))
	b.WriteString("  game_patterns:\n")
	for _, r := range bi.GamePatterns {
		fmt.Fprintf(&b, "    %s\n", r)
	}
	b.WriteString("  renpy_patterns:\n")
	for _, r := range bi.RenpyPatterns {
		fmt.Fprintf(&b, "    %s\n", r)
	}
	return b.String()
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l != "" {
			b.WriteString("  " + l)
		}
	}
	return b.String()
}
