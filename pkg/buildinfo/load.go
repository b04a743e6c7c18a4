package buildinfo

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/rpdist/pkg/platform"
)

// ConfigFiles are the names searched for in the project directory, in
// order.
var ConfigFiles = []string{"buildinfo.toml", "buildinfo.yaml", "buildinfo.yml"}

// Lists is a list of file list names written either as a space separated
// string or as an array.
type Lists []string

func (l *Lists) set(v any) error {
	switch v := v.(type) {
	case nil:
		*l = nil
	case string:
		*l = strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("file list name %v is not a string", item)
			}
			out = append(out, s)
		}
		*l = out
	default:
		return fmt.Errorf("expected a string or a list of strings, got %T", v)
	}
	return nil
}

func (l *Lists) UnmarshalTOML(v any) error { return l.set(v) }

func (l *Lists) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return l.set(v)
}

// Config is the declarative build configuration file.
type Config struct {
	Name            string         `toml:"name" yaml:"name"`
	Version         string         `toml:"version" yaml:"version"`
	DirectoryName   string         `toml:"directory_name" yaml:"directory_name"`
	ExecutableName  string         `toml:"executable_name" yaml:"executable_name"`
	DisplayName     string         `toml:"display_name" yaml:"display_name"`
	IncludeUpdate   bool           `toml:"include_update" yaml:"include_update"`
	Destination     string         `toml:"destination" yaml:"destination"`
	MacIdentity     string         `toml:"mac_identity" yaml:"mac_identity"`
	MacInfoPlist    map[string]any `toml:"mac_info_plist" yaml:"mac_info_plist"`
	FileLists       Lists          `toml:"file_lists" yaml:"file_lists"`
	Documentation   []string       `toml:"documentation" yaml:"documentation"`
	Executable      []string       `toml:"executable" yaml:"executable"`
	DefaultPackages *bool          `toml:"default_packages" yaml:"default_packages"`

	Packages []PackageConfig `toml:"package" yaml:"package"`
	Archives []ArchiveConfig `toml:"archive" yaml:"archive"`
	Classify []RuleConfig    `toml:"classify" yaml:"classify"`
}

type PackageConfig struct {
	Name           string `toml:"name" yaml:"name"`
	Format         string `toml:"format" yaml:"format"`
	FileLists      Lists  `toml:"file_lists" yaml:"file_lists"`
	Description    string `toml:"description" yaml:"description"`
	Platform       string `toml:"platform" yaml:"platform"`
	Update         *bool  `toml:"update" yaml:"update"`
	DLC            bool   `toml:"dlc" yaml:"dlc"`
	Hidden         bool   `toml:"hidden" yaml:"hidden"`
	IgnoreArchives bool   `toml:"ignore_archives" yaml:"ignore_archives"`
}

type ArchiveConfig struct {
	Name      string   `toml:"name" yaml:"name"`
	FileLists Lists    `toml:"file_lists" yaml:"file_lists"`
	Filename  string   `toml:"filename" yaml:"filename"`
	Kind      string   `toml:"kind" yaml:"kind"`
	Args      []string `toml:"args" yaml:"args"`
}

type RuleConfig struct {
	Pattern   string `toml:"pattern" yaml:"pattern"`
	FileLists Lists  `toml:"file_lists" yaml:"file_lists"`
}

// Load finds the configuration file in projectDir and resolves it.
func Load(projectDir string) (*BuildInfo, error) {
	for _, name := range ConfigFiles {
		path := filepath.Join(projectDir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		bi, err := Parse(data, filepath.Ext(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return bi, nil
	}
	return nil, configf("no %s in %s", strings.Join(ConfigFiles, " or "), projectDir)
}

// Parse decodes a configuration written as TOML (ext ".toml") or YAML
// (".yaml", ".yml") and resolves it.
func Parse(data []byte, ext string) (*BuildInfo, error) {
	var cfg Config
	switch ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, &ConfigError{Msg: err.Error()}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, &ConfigError{Msg: err.Error()}
		}
	default:
		return nil, fmt.Errorf("unsupported configuration format %q", ext)
	}
	return cfg.Resolve()
}

// Resolve applies cfg on top of Defaults and validates the result.
func (cfg *Config) Resolve() (*BuildInfo, error) {
	if cfg.Name == "" {
		return nil, configf("name is not defined")
	}
	bi := Defaults()

	bi.Version = cfg.Version
	bi.DirectoryName = cfg.DirectoryName
	if bi.DirectoryName == "" {
		bi.DirectoryName = cfg.Name
		if cfg.Version != "" {
			bi.DirectoryName += "-" + cfg.Version
		}
	}
	bi.ExecutableName = cmp.Or(cfg.ExecutableName, cfg.Name)
	bi.DisplayName = cmp.Or(cfg.DisplayName, cfg.Name)
	bi.IncludeUpdate = cfg.IncludeUpdate
	bi.MacIdentity = cfg.MacIdentity
	for k, v := range cfg.MacInfoPlist {
		bi.MacInfoPlist[k] = v
	}
	bi.Destination = strings.NewReplacer(
		"{directory_name}", bi.DirectoryName,
		"{executable_name}", bi.ExecutableName,
		"{display_name}", bi.DisplayName,
		"{version}", cmp.Or(cfg.Version, bi.DirectoryName),
	).Replace(cmp.Or(cfg.Destination, DefaultDestination))

	bi.DocumentationPatterns = append(bi.DocumentationPatterns, cfg.Documentation...)
	bi.XbitPatterns = append(bi.XbitPatterns, cfg.Executable...)

	if cfg.DefaultPackages != nil && !*cfg.DefaultPackages {
		bi.Packages = nil
	}
	for _, pc := range cfg.Packages {
		p, err := pc.toPackage()
		if err != nil {
			return nil, err
		}
		bi.Packages = replaceOrAppend(bi.Packages, p, func(o *Package) bool { return o.Name == p.Name })
	}
	for _, ac := range cfg.Archives {
		a := ac.toArchive()
		bi.Archives = replaceOrAppend(bi.Archives, a, func(o *Archive) bool { return o.Name == a.Name })
	}

	game := EarlyGamePatterns()
	for _, rc := range cfg.Classify {
		if rc.Pattern == "" {
			return nil, configf("classify rule without a pattern")
		}
		r := Rule{Pattern: rc.Pattern}
		if len(rc.FileLists) > 0 {
			r.Lists = []string(rc.FileLists)
		}
		game = append(game, r)
	}
	bi.GamePatterns = dedupeRules(append(game, LateGamePatterns()...))

	if err := bi.Validate(cfg.FileLists); err != nil {
		return nil, err
	}
	return bi, nil
}

func (pc PackageConfig) toPackage() (*Package, error) {
	platforms := platform.All
	if pc.Platform != "" {
		var err error
		platforms, err = platform.ParseSet(pc.Platform)
		if err != nil {
			return nil, configf("package %q: %v", pc.Name, err)
		}
	}
	update := true
	if pc.Update != nil {
		update = *pc.Update
	}
	return &Package{
		Name:           pc.Name,
		Formats:        strings.Fields(pc.Format),
		Platforms:      platforms,
		IgnoreArchives: pc.IgnoreArchives,
		FileLists:      pc.FileLists,
		Description:    pc.Description,
		Update:         update,
		DLC:            pc.DLC,
		Hidden:         pc.Hidden,
	}, nil
}

func (ac ArchiveConfig) toArchive() *Archive {
	lists := []string(ac.FileLists)
	if lists == nil {
		lists = []string{"all"}
	}
	return &Archive{
		Name:      ac.Name,
		Filename:  ac.Filename,
		FileLists: lists,
		Kind:      ac.Kind,
		Args:      ac.Args,
	}
}

func replaceOrAppend[T any](list []T, v T, same func(T) bool) []T {
	for i, o := range list {
		if same(o) {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}
