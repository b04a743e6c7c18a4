package distro

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"howett.net/plist"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
)

const macLib = "lib/py3-mac-universal"

// macApp names the paths of the application bundle.
type macApp struct {
	App       string
	Contents  string
	MacOS     string
	Resources string
	Autorun   string
}

func newMacApp(executable string) macApp {
	app := executable + ".app"
	return macApp{
		App:       app,
		Contents:  app + "/Contents",
		MacOS:     app + "/Contents/MacOS",
		Resources: app + "/Contents/Resources",
		Autorun:   app + "/Contents/Resources/autorun",
	}
}

// infoPlist returns the Info.plist of the application with the keys of
// bi.MacInfoPlist merged over the defaults.
func infoPlist(bi *buildinfo.BuildInfo, now time.Time) map[string]any {
	p := map[string]any{
		"CFBundleDevelopmentRegion":     "English",
		"CFBundleDisplayName":           bi.DisplayName,
		"CFBundleExecutable":            bi.ExecutableName,
		"CFBundleIconFile":              "icon",
		"CFBundleIdentifier":            "com.domain.game",
		"CFBundleInfoDictionaryVersion": "6.0",
		"CFBundleName":                  bi.DisplayName,
		"CFBundlePackageType":           "APPL",
		"CFBundleShortVersionString":    bi.Version,
		"CFBundleVersion":               now.Format("2006.0102.150405"),
		"LSApplicationCategoryType":     "public.app-category.simulation-games",
		"CFBundleDocumentTypes": []any{
			map[string]any{
				"CFBundleTypeOSTypes": []string{"****", "fold", "disk"},
				"CFBundleTypeRole":    "Viewer",
			},
		},
		"UTExportedTypeDeclarations": []any{
			map[string]any{
				"UTTypeConformsTo":  []string{"public.python-script"},
				"UTTypeDescription": "Ren'Py Script",
				"UTTypeIdentifier":  "org.renpy.rpy",
				"UTTypeTagSpecification": map[string]any{
					"public.filename-extension": []string{"rpy"},
				},
			},
		},
		"NSHighResolutionCapable":              true,
		"NSSupportsAutomaticGraphicsSwitching": true,
	}
	maps.Copy(p, bi.MacInfoPlist)
	return p
}

// writeInfoPlist writes the XML property list of bi to path.
func writeInfoPlist(path string, bi *buildinfo.BuildInfo, now time.Time) error {
	data, err := plist.MarshalIndent(infoPlist(bi, now), plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("encode Info.plist: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write Info.plist: %w", err)
	}
	return nil
}

// moveIntoApp moves the python library into the bundle resources and the
// mac runtime into Contents/MacOS.
func moveIntoApp(fl *files.FileList, app macApp) error {
	for _, f := range fl.Files() {
		var name string
		switch {
		case strings.HasPrefix(f.Name(), "lib/python3"):
			name = app.Resources + "/" + f.Name()
		case strings.HasPrefix(f.Name(), macLib):
			rest := strings.TrimPrefix(strings.TrimPrefix(f.Name(), macLib), "/")
			if rest == "" {
				continue
			}
			name = app.MacOS + "/" + rest
		default:
			continue
		}
		moved, err := f.Rename(name)
		if err != nil {
			return err
		}
		if err := fl.Add(moved); err != nil {
			return err
		}
		fl.Remove(f.Name())
	}
	return nil
}

// macTransform places every file outside of the app under its autorun
// directory. Documentation stays outside as well.
func macTransform(fl *files.FileList, app macApp, documentation []string) (*files.FileList, error) {
	out, err := files.NewFileList()
	if err != nil {
		return nil, err
	}
	for f := range fl.All() {
		if f.Name() == app.App || strings.HasPrefix(f.Name(), app.App+"/") {
			if err := out.Add(f); err != nil {
				return nil, err
			}
			continue
		}
		if files.MatchAny(f.Name(), documentation) {
			if err := out.Add(f); err != nil {
				return nil, err
			}
		}
		c, err := f.Rename(app.Autorun + "/" + f.Name())
		if err != nil {
			return nil, err
		}
		if err := out.Add(c); err != nil {
			return nil, err
		}
	}
	if err := out.AddDirectory(app.Autorun, ""); err != nil {
		return nil, err
	}
	out.Sort()
	return out, nil
}

// wrapMachO rewrites the mac runtime binaries of fl as RENPY prefixed
// copies under tmp, so that disk images do not carry unsigned binaries.
func wrapMachO(c *Context, fl *files.FileList) (*files.FileList, error) {
	out, err := files.NewFileList()
	if err != nil {
		return nil, err
	}
	for f := range fl.All() {
		if !strings.Contains(f.Name(), "/"+macLib+"/") || f.Phantom() || f.Directory {
			if err := out.Add(f); err != nil {
				return nil, err
			}
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("wrap %s: %w", f.Name(), err)
		}
		tmp, err := c.TempPath(strings.Split(f.Name()+".macho", "/")...)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(tmp, append([]byte("RENPY"), data...), 0o644); err != nil {
			return nil, fmt.Errorf("wrap %s: %w", f.Name(), err)
		}
		if err := out.AddFile(f.Name()+".macho", tmp, f.Executable); err != nil {
			return nil, err
		}
	}
	return out, nil
}
