// Package android builds Android packages from a distributed game: the
// private.mp3 engine archive, the asset packs and the Gradle project that
// turns them into an apk or an app bundle.
package android

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/odvcencio/rpdist/pkg/report"
)

// ConfigFile is the name of the configuration in the project directory.
const ConfigFile = ".android.json"

// Config is the android configuration of a project.
type Config struct {
	Package        string   `json:"package,omitempty"`
	Name           string   `json:"name,omitempty"`
	IconName       string   `json:"icon_name,omitempty"`
	Version        string   `json:"version,omitempty"`
	NumericVersion int64    `json:"numeric_version"`
	Orientation    string   `json:"orientation"`
	Permissions    []string `json:"permissions"`
	Store          string   `json:"store"`
	UpdateIcons    bool     `json:"update_icons"`
	UpdateAlways   bool     `json:"update_always"`
	HeapSize       string   `json:"heap_size"`
	IncludePIL     bool     `json:"include_pil"`
	IncludeSqlite  bool     `json:"include_sqlite"`
	Layout         string   `json:"layout,omitempty"`
	Source         bool     `json:"source"`
	Expansion      bool     `json:"expansion"`
	GooglePlayKey  string   `json:"google_play_key,omitempty"`
	GooglePlaySalt string   `json:"google_play_salt,omitempty"`
}

// DefaultConfig returns the configuration of a project that was never
// configured.
func DefaultConfig() *Config {
	return &Config{
		NumericVersion: 1,
		Orientation:    "sensor-landscape",
		Permissions:    []string{"VIBRATE", "INTERNET"},
		Store:          "none",
		UpdateIcons:    true,
		UpdateAlways:   true,
		HeapSize:       "3",
	}
}

// ReadConfig reads the configuration of the project in dir. A missing file
// returns DefaultConfig.
func ReadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", ConfigFile, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("read %s: unmarshal: %w", ConfigFile, err)
	}
	return cfg, nil
}

// Save atomically writes the configuration into the project in dir.
func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("write %s: marshal: %w", ConfigFile, err)
	}

	tmp, err := os.CreateTemp(dir, ".android-tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: tmpfile: %w", ConfigFile, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: write: %w", ConfigFile, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: close: %w", ConfigFile, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ConfigFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: rename: %w", ConfigFile, err)
	}
	return nil
}

// TemplateValues exposes the configuration to templates under its json
// names.
func (c *Config) TemplateValues() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	packagePart = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	versionRe   = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

	javaKeywords = map[string]bool{
		"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true, "case": true,
		"catch": true, "char": true, "class": true, "const": true, "continue": true, "default": true,
		"do": true, "double": true, "else": true, "enum": true, "extends": true, "final": true,
		"finally": true, "float": true, "for": true, "goto": true, "if": true, "implements": true,
		"import": true, "instanceof": true, "int": true, "interface": true, "long": true, "native": true,
		"new": true, "package": true, "private": true, "protected": true, "public": true, "return": true,
		"short": true, "static": true, "strictfp": true, "super": true, "switch": true,
		"synchronized": true, "this": true, "throw": true, "throws": true, "transient": true,
		"try": true, "void": true, "volatile": true, "while": true, "true": true, "false": true,
		"null": true,
	}
)

// CheckPackage validates an application id such as com.example.game.
func CheckPackage(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return fmt.Errorf("the package name %q must contain at least one dot", name)
	}
	for _, p := range parts {
		if !packagePart.MatchString(p) {
			return fmt.Errorf("the package name %q may only contain ASCII letters, digits and underscores separated by dots, and no part may start with a digit", name)
		}
		if javaKeywords[p] {
			return fmt.Errorf("the package name %q may not contain the java keyword %q", name, p)
		}
	}
	return nil
}

// CheckVersion validates a human readable version such as 1.0.2.
func CheckVersion(v string) error {
	if !versionRe.MatchString(v) {
		return fmt.Errorf("the version %q must contain only numbers and dots", v)
	}
	return nil
}

// Check reports why the configuration can not be built, if it can not.
func (c *Config) Check() error {
	if c.Package == "" {
		return errors.New("the package name is not set")
	}
	if err := CheckPackage(c.Package); err != nil {
		return err
	}
	if c.Name == "" || c.IconName == "" {
		return errors.New("the application name is not set")
	}
	return CheckVersion(c.Version)
}

// Configure asks for the configuration of an application, starting from
// the answers already stored in c.
func Configure(c *Config, r report.Reporter, displayName, version string) error {
	var err error
	ask := func(prompt, def string, check func(string) error) (string, error) {
		for {
			answer, err := r.Input(prompt, report.InputOptions{Default: def, AllowEmpty: def != ""})
			if err != nil {
				return "", err
			}
			answer = strings.TrimSpace(answer)
			if check == nil {
				return answer, nil
			}
			if cerr := check(answer); cerr != nil {
				r.Info(cerr.Error() + ".")
				continue
			}
			return answer, nil
		}
	}

	c.Name, err = ask("What is the full name of your application? This name will appear in the list of installed applications.",
		cmp.Or(c.Name, displayName), nil)
	if err != nil {
		return err
	}
	c.IconName, err = ask("What is the short name of your application? This name will be used in the launcher, and for application shortcuts.",
		cmp.Or(c.IconName, c.Name), nil)
	if err != nil {
		return err
	}
	c.Package, err = ask("What is the name of the package?\n\nThis is usually of the form com.domain.program or com.domain.email.program. "+
		"It may only contain ASCII letters and dots. It must contain at least one dot.", c.Package, CheckPackage)
	if err != nil {
		return err
	}
	c.Version, err = ask("What is the application's version?\n\nThis should be the human-readable version that you would present to a person. "+
		"It must contain only numbers and dots.", cmp.Or(c.Version, version), CheckVersion)
	if err != nil {
		return err
	}

	c.Orientation, err = r.Choice("How would you like your application to be displayed?", []report.Option{
		{Value: "sensor-landscape", Label: "In landscape orientation."},
		{Value: "sensor-portrait", Label: "In portrait orientation."},
		{Value: "fullSensor", Label: "In the user's preferred orientation."},
	}, c.Orientation)
	if err != nil {
		return err
	}
	c.Store, err = r.Choice("Which app store would you like to support in-app purchasing through?", []report.Option{
		{Value: "none", Label: "Do not include in-app purchasing."},
		{Value: "play", Label: "Google Play."},
		{Value: "amazon", Label: "Amazon App Store."},
		{Value: "all", Label: "Both, in one app."},
	}, c.Store)
	if err != nil {
		return err
	}

	def := true
	internet, err := r.YesNoChoice("Do you want to allow the app to access the Internet?", &def)
	if err != nil {
		return err
	}
	c.Permissions = []string{"VIBRATE"}
	if internet {
		c.Permissions = append(c.Permissions, "INTERNET")
	}
	return nil
}
