package buildinfo

import (
	"strings"

	"github.com/odvcencio/rpdist/pkg/platform"
)

const (
	// PycTag is the cache tag of the Python the engine ships with.
	PycTag = "cpython-39"
	// BytecodeFile is the engine's compiled script cache.
	BytecodeFile = "cache/bytecode-39.rpyb"

	// DefaultDestination is the output directory template.
	DefaultDestination = "{directory_name}-dists"
)

func rule(pattern, lists string) Rule {
	if lists == "" {
		return Rule{Pattern: pattern}
	}
	return Rule{Pattern: pattern, Lists: strings.Fields(lists)}
}

// DefaultPackages returns the packages every build starts with.
func DefaultPackages() []*Package {
	pkg := func(name, formats, lists, description, platforms string) *Package {
		return &Package{
			Name:        name,
			Formats:     strings.Fields(formats),
			Platforms:   mustSet(platforms),
			FileLists:   strings.Fields(lists),
			Description: description,
			Update:      true,
		}
	}
	special := func(name, lists, platforms string) *Package {
		return &Package{
			Name:           name,
			Formats:        []string{name},
			Platforms:      mustSet(platforms),
			IgnoreArchives: true,
			FileLists:      strings.Fields(lists),
			Description:    name,
			DLC:            true,
			Hidden:         true,
		}
	}

	steam := pkg("steam", "zip", "windows linux mac renpy all", "steam", "win linux mac")
	steam.Hidden = true

	return []*Package{
		pkg("pc", "zip", "windows linux renpy all", "PC: Windows and Linux", "win linux"),
		pkg("linux", "tar.bz2", "linux linux_arm renpy all", "Linux", "linux"),
		pkg("win", "zip", "windows renpy all", "Windows", "win"),
		pkg("mac", "app-zip app-dmg", "mac renpy all", "Macintosh", "mac"),
		pkg("market", "bare-zip", "windows linux mac renpy all", "Windows, Mac, Linux for Markets", "win linux mac"),
		steam,
		special("android-bundle", "android all", "android"),
		special("android-apk", "android all", "android"),
		special("ios", "ios all", "ios"),
		special("web", "web renpy all", "web"),
	}
}

// specialPackages are present in every legacy build.
func specialPackages() []*Package {
	var out []*Package
	for _, p := range DefaultPackages() {
		if p.IgnoreArchives {
			out = append(out, p)
		}
	}
	return out
}

// DefaultArchives returns the archives every build starts with.
func DefaultArchives() []*Archive {
	return []*Archive{{Name: "archive", Filename: "archive", FileLists: []string{"all"}, Kind: "rpa"}}
}

// DefaultDocumentationPatterns match files kept next to a mac app.
func DefaultDocumentationPatterns() []string {
	return []string{"*.html", "*.txt"}
}

// DefaultXbitPatterns match files marked executable on linux and mac.
func DefaultXbitPatterns() []string {
	return []string{
		"**.sh",
		"lib/py*-linux-*/*",
		"lib/py*-mac-*/*",
		"**.app/Contents/MacOS/*",
	}
}

// DefaultRenpyPatterns classify the engine SDK.
func DefaultRenpyPatterns() []Rule {
	return []Rule{
		rule("renpy/**__pycache__/**."+PycTag+".pyc", "all"),
		rule("renpy/**__pycache__", "all"),

		rule("**~", ""),
		rule("**/#*", ""),
		rule("**/.*", ""),
		rule("**.old", ""),
		rule("**.new", ""),
		rule("**.rpa", ""),

		rule("**/steam_appid.txt", ""),

		rule("renpy.py", "all"),

		rule("renpy/", "all"),
		rule("renpy/**.py", "renpy"),

		// Cython sources.
		rule("renpy/**.pxd", ""),
		rule("renpy/**.pxi", ""),
		rule("renpy/**.pyx", ""),

		// Legacy bytecode, unless allowed above.
		rule("renpy/**.pyc", ""),
		rule("renpy/**.pyo", ""),

		rule("renpy/common/", "all"),
		rule("renpy/common/_compat/**", ""),
		rule("renpy/common/_roundrect/**", ""),
		rule("renpy/common/_outline/**", ""),
		rule("renpy/common/_theme**", ""),
		rule("renpy/common/**.rpy", "renpy"),
		rule("renpy/common/**.rpym", "renpy"),
		rule("renpy/common/**", "all"),
		rule("renpy/**", "all"),

		// The launchers are added per platform.
		rule("lib/*/renpy", ""),
		rule("lib/*/renpy.exe", ""),
		rule("lib/*/pythonw.exe", ""),

		rule("lib/py2-*/", ""),

		rule("lib/py*-windows-i686/**", ""),
		rule("lib/py*-windows-x86_64/**", "windows"),

		rule("lib/py*-linux-i686/**", ""),
		rule("lib/py*-linux-aarch64/**", "linux_arm"),
		rule("lib/py*-linux-armv7l/**", "linux_arm"),
		rule("lib/py*-linux-*/**", "linux"),

		rule("lib/py*-mac-*/**", "mac"),

		rule("lib/python2.*/**", ""),

		rule("lib/**", "windows linux mac android ios"),
		rule("renpy.sh", "linux mac"),
	}
}

// EarlyGamePatterns classify the project before user rules.
func EarlyGamePatterns() []Rule {
	return []Rule{
		rule("*.py", ""),
		rule("*.sh", ""),
		rule("*.app/", ""),
		rule("*.dll", ""),
		rule("*.manifest", ""),

		rule("lib/", ""),
		rule("renpy/", ""),
		rule("update/", ""),
		rule("common/", ""),

		rule("old-game/", ""),

		rule("icon.ico", ""),
		rule("icon.icns", ""),
		rule("project.json", ""),
		rule("buildinfo.toml", ""),
		rule("buildinfo.yaml", ""),
		rule("buildinfo.yml", ""),
		rule("rpdist.toml", ""),

		rule("log.txt", ""),
		rule("errors.txt", ""),
		rule("traceback.txt", ""),
		rule("image_cache.txt", ""),
		rule("text_overflow.txt", ""),
		rule("dialogue.txt", ""),
		rule("dialogue.tab", ""),
		rule("profile_screen.txt", ""),

		rule("files.txt", ""),
		rule("memory.txt", ""),

		rule("tmp/", ""),
		rule("game/saves/", ""),
		rule("game/bytecode.rpyb", ""),

		rule("archived/", ""),
		rule("launcherinfo.py", ""),
		rule("android.txt", ""),

		rule("game/presplash*.*", "all"),

		rule(".android.json", "android"),
		rule("android-*.png", "android"),
		rule("android-*.jpg", "android"),
		rule("ouya_icon.png", ""),

		rule("ios-presplash.*", "ios"),
		rule("ios-launchimage.png", ""),
		rule("ios-icon.png", ""),

		rule("web-presplash.png", "web"),
		rule("web-presplash.jpg", "web"),
		rule("web-presplash.webp", "web"),
		rule("progressive_download.txt", "web"),

		rule("steam_appid.txt", ""),

		rule("game/"+BytecodeFile, "all"),
		rule("game/cache/bytecode-311.rpyb", "web"),
		rule("game/cache/bytecode-*.rpyb", ""),
	}
}

// LateGamePatterns classify whatever the other project rules left.
func LateGamePatterns() []Rule {
	return []Rule{
		rule(".*", ""),
		rule("**", "all"),
	}
}

// Defaults returns an unvalidated BuildInfo holding the default tables.
// Names are left empty.
func Defaults() *BuildInfo {
	return &BuildInfo{
		Destination:           DefaultDestination,
		MacInfoPlist:          map[string]any{},
		DocumentationPatterns: DefaultDocumentationPatterns(),
		XbitPatterns:          DefaultXbitPatterns(),
		GamePatterns:          dedupeRules(append(EarlyGamePatterns(), LateGamePatterns()...)),
		RenpyPatterns:         dedupeRules(DefaultRenpyPatterns()),
		Packages:              DefaultPackages(),
		Archives:              DefaultArchives(),
	}
}

func mustSet(spec string) platform.Set {
	s, err := platform.ParseSet(spec)
	if err != nil {
		panic(err)
	}
	return s
}
