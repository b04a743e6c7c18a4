package buildinfo

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/odvcencio/rpdist/pkg/platform"
)

// Packages a legacy build may declare, with the platforms they target.
var legacyPackages = map[string]platform.Set{
	"pc":     platform.Of(platform.Windows, platform.Linux),
	"linux":  platform.Of(platform.Linux),
	"mac":    platform.Of(platform.Mac),
	"win":    platform.Of(platform.Windows),
	"market": platform.Of(platform.Windows, platform.Linux, platform.Mac),
	"steam":  platform.Of(platform.Windows, platform.Linux, platform.Mac),
}

// Keys of the dump that have no counterpart here.
var droppedDumpKeys = []string{
	"google_play_key", "google_play_salt", "android_permissions",
	"mac_codesign_command", "mac_create_dmg_command", "mac_codesign_dmg_command",
	"itch_project", "itch_channels",
	"_sdk_fonts", "script_version", "exclude_empty_directories",
	"allow_integrated_gpu", "renpy", "merge", "include_i686", "change_icon_i686",
}

type dumpPackage struct {
	Name        string   `json:"name"`
	Formats     []string `json:"formats"`
	FileLists   []string `json:"file_lists"`
	Description *string  `json:"description"`
	Update      bool     `json:"update"`
	DLC         bool     `json:"dlc"`
	Hidden      bool     `json:"hidden"`
}

// ParseDump reads the "build" object of the engine's JSON dump.
func ParseDump(data []byte) (*BuildInfo, error) {
	var dump struct {
		Build map[string]json.RawMessage `json:"build"`
	}
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	if dump.Build == nil {
		return nil, configf("dump has no build information")
	}
	return FromDump(dump.Build)
}

// FromDump converts the build object of a legacy dump. Only the builtin
// packages may appear in it; the android, ios and web packages are always
// added.
func FromDump(data map[string]json.RawMessage) (*BuildInfo, error) {
	data = maps.Clone(data)
	d := &dumpDecoder{data: data}

	bi := &BuildInfo{}
	d.field("directory_name", &bi.DirectoryName)
	d.field("destination", &bi.Destination)
	d.field("executable_name", &bi.ExecutableName)
	d.field("include_update", &bi.IncludeUpdate)
	d.field("display_name", &bi.DisplayName)
	d.field("version", &bi.Version)
	d.field("mac_info_plist", &bi.MacInfoPlist)
	d.field("documentation_patterns", &bi.DocumentationPatterns)
	d.field("xbit_patterns", &bi.XbitPatterns)

	var packages []dumpPackage
	var archives [][2]json.RawMessage
	var basePatterns, renpyPatterns [][2]json.RawMessage
	d.field("packages", &packages)
	d.field("archives", &archives)
	d.field("base_patterns", &basePatterns)
	d.field("renpy_patterns", &renpyPatterns)

	var identity *string
	d.optional("mac_identity", &identity)
	if identity != nil {
		bi.MacIdentity = *identity
	}
	if d.err != nil {
		return nil, d.err
	}

	for _, key := range droppedDumpKeys {
		delete(data, key)
	}
	if len(data) > 0 {
		return nil, configf("dump.json has unexpected fields: %s", strings.Join(slices.Sorted(maps.Keys(data)), ", "))
	}

	bi.Packages = specialPackages()
	for _, dp := range packages {
		switch dp.Name {
		case "android", "ios", "web":
			continue
		}
		if bi.Package(dp.Name) != nil {
			return nil, configf("duplicate package %q", dp.Name)
		}
		platforms, ok := legacyPackages[dp.Name]
		if !ok {
			return nil, configf("package %q: only the default packages are supported in legacy mode, migrate to buildinfo.toml", dp.Name)
		}
		p := &Package{
			Name:      dp.Name,
			Formats:   dp.Formats,
			Platforms: platforms,
			FileLists: dp.FileLists,
			Update:    dp.Update,
			DLC:       dp.DLC,
			Hidden:    dp.Hidden,
		}
		if dp.Description != nil {
			p.Description = *dp.Description
		}
		bi.Packages = append(bi.Packages, p)
	}

	for _, pair := range archives {
		var a Archive
		if err := json.Unmarshal(pair[0], &a.Name); err != nil {
			return nil, configf("archive name: %v", err)
		}
		if err := json.Unmarshal(pair[1], &a.FileLists); err != nil {
			return nil, configf("archive %q: %v", a.Name, err)
		}
		if bi.Archive(a.Name) != nil {
			return nil, configf("duplicate archive %q", a.Name)
		}
		a.Filename, a.Kind = a.Name, "rpa"
		bi.Archives = append(bi.Archives, &a)
	}

	var err error
	if bi.GamePatterns, err = decodeRules(basePatterns); err != nil {
		return nil, err
	}
	if bi.RenpyPatterns, err = decodeRules(renpyPatterns); err != nil {
		return nil, err
	}

	if err := bi.Validate(nil); err != nil {
		return nil, err
	}
	return bi, nil
}

func decodeRules(pairs [][2]json.RawMessage) ([]Rule, error) {
	rules := make([]Rule, 0, len(pairs))
	for _, pair := range pairs {
		var r Rule
		if err := json.Unmarshal(pair[0], &r.Pattern); err != nil {
			return nil, configf("pattern: %v", err)
		}
		if err := json.Unmarshal(pair[1], &r.Lists); err != nil {
			return nil, configf("pattern %q: %v", r.Pattern, err)
		}
		rules = append(rules, r)
	}
	return dedupeRules(rules), nil
}

// dumpDecoder pops keys out of a dump object and keeps the first error.
type dumpDecoder struct {
	data map[string]json.RawMessage
	err  error
}

func (d *dumpDecoder) field(key string, v any) {
	if d.err != nil {
		return
	}
	raw, ok := d.data[key]
	if !ok {
		d.err = configf("dump.json is missing %q", key)
		return
	}
	d.decode(key, raw, v)
}

func (d *dumpDecoder) optional(key string, v any) {
	if raw, ok := d.data[key]; ok && d.err == nil {
		d.decode(key, raw, v)
	}
}

func (d *dumpDecoder) decode(key string, raw json.RawMessage, v any) {
	delete(d.data, key)
	if err := json.Unmarshal(raw, v); err != nil {
		d.err = configf("dump.json %q: %v", key, err)
	}
}
