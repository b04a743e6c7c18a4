package android

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flosch/pongo2/v6"
)

// generated lists the templates rendered into the android project, as
// template and destination relative to the rapt and project directories.
var generated = [][2]string{
	{"templates/app-build.gradle", "app/build.gradle"},
	{"templates/app-AndroidManifest.xml", "app/src/main/AndroidManifest.xml"},
	{"templates/app-strings.xml", "app/src/main/res/values/strings.xml"},
	{"templates/renpyandroid-AndroidManifest.xml", "renpyandroid/src/main/AndroidManifest.xml"},
	{"templates/renpyandroid-strings.xml", "renpyandroid/src/main/res/values/strings.xml"},
	{"templates/Constants.java", "renpyandroid/src/main/java/org/renpy/android/Constants.java"},
	{"templates/settings.gradle", "settings.gradle"},
}

// Renderer renders the Jinja templates of the rapt directory.
type Renderer struct {
	set *pongo2.TemplateSet
	dir string
}

func NewRenderer(rapt string) (*Renderer, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(rapt)
	if err != nil {
		return nil, fmt.Errorf("template loader: %w", err)
	}
	return &Renderer{set: pongo2.NewSet("rapt", loader), dir: rapt}, nil
}

// Render writes the template name to dest. An existing dest is kept unless
// always is set. Only xml templates are autoescaped.
func (r *Renderer) Render(always bool, name, dest string, values pongo2.Context) error {
	if _, err := os.Stat(dest); err == nil && !always {
		return nil
	}

	src, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("read template %s: %w", name, err)
	}
	text := string(src)
	if filepath.Ext(name) != ".xml" {
		text = "{% autoescape off %}" + text + "{% endautoescape %}"
	}
	tpl, err := r.set.FromString(text)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}
	out, err := tpl.Execute(values)
	if err != nil {
		return fmt.Errorf("render template %s: %w", name, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(out), 0o644)
}
