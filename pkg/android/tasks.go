package android

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/distro"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
)

// copiedLibs are copied from the prototype on every build, since users
// add and remove native libraries.
var copiedLibs = []string{"renpyandroid/src/main/jniLibs"}

// build holds the android state of one run.
type build struct {
	config *Config
	tools  Tools
}

// Provider registers the android package formats and the android tasks.
func Provider() distro.Provider {
	return distro.Provider{Name: "android", Install: func(c *distro.Context) ([]*distro.Task, error) {
		c.Packagers.Register("android-bundle", packager.Entry{Factory: Factory(true), Extension: ".aab"})
		c.Packagers.Register("android-apk", packager.Entry{Factory: Factory(false), Extension: ".apk"})
		b := &build{tools: NewTools(c.SDKPath("rapt"))}
		return b.tasks(), nil
	}}
}

func (b *build) tasks() []*distro.Task {
	kind := task.MustKind("android")
	return []*distro.Task{
		{
			Name: "init_android_config", Description: "Reading .android.json configuration...", Kind: kind,
			Func:     b.initConfig,
			Requires: []string{"init_build_platforms"}, Dependencies: []string{"init_classifier_file_lists"},
		},
		{
			Name: "copy_project", Description: "Creating android project directory...", Kind: kind,
			Func:     b.copyProject,
			Requires: []string{"init_build_platforms"}, Dependencies: []string{"init_allow_and_block_lists"},
		},
		{
			Name: "check_sdk", Description: "Checking SDK tools...", Kind: kind,
			Func:     b.checkSDK,
			Requires: []string{"copy_project"}, Dependencies: []string{"init_classifier_file_lists"},
		},
		{
			Name: "init_allow_and_block_lists", Description: "Initialising android assets and private packagers...", Kind: kind,
			Func:     b.initPackagers,
			Requires: []string{"create_packagers_and_file_lists"}, Dependencies: []string{"prepend_directory"},
		},
		{
			Name: "eliminate_pycache", Description: "Eliminating __pycache__...", Kind: kind,
			Func:     b.eliminatePycache,
			Requires: []string{"create_packagers_and_file_lists"}, Dependencies: []string{"prepend_directory"},
		},
		{
			Name: "split_renpy", Description: "Splitting private and assets...", Kind: kind,
			Func:     b.splitRenpy,
			Requires: []string{"eliminate_pycache"}, Dependencies: []string{"sort_and_clear_empty"},
		},
		{
			Name: "copy_libs", Description: "Copying libs...", Kind: kind,
			Func:     b.copyLibs,
			Requires: []string{"split_renpy"}, Dependencies: []string{"sort_and_clear_empty"},
		},
		{
			Name: "create_icons", Description: "Creating android icons...", Kind: kind,
			Func:     b.createIcons,
			Requires: []string{"split_renpy"}, Dependencies: []string{"sort_and_clear_empty"},
		},
		{
			Name: "render_generated", Description: "Building Android files with Gradle...", Kind: kind,
			Func:     b.renderGenerated,
			Requires: []string{"write_packages"}, Dependencies: []string{"open_output_dir"},
		},
	}
}

// outputs returns the android packagers of the build.
func outputs(c *distro.Context) []*Packager {
	var out []*Packager
	for _, o := range c.Outputs {
		if p, ok := o.Packager.(*Packager); ok {
			out = append(out, p)
		}
	}
	return out
}

func (b *build) initConfig(_ context.Context, c *distro.Context, r report.Reporter) (task.Result, error) {
	cfg, err := ReadConfig(c.ProjectDir)
	reconfigure := false
	switch {
	case err != nil:
		r.Info(fmt.Sprintf("Error while reading %s - %v", ConfigFile, err))
		reconfigure = true
	case cfg.Check() != nil:
		reconfigure = true
	}

	if reconfigure {
		ok, err := r.YesNo("Do you want to configure android now?")
		if err != nil {
			return task.Failure, err
		}
		if !ok {
			return task.Failure, r.Fail("Run configure before attempting to build the app.")
		}
		if err := Configure(cfg, r, c.BuildInfo.DisplayName, c.BuildInfo.Version); err != nil {
			return task.Failure, err
		}
		if err := cfg.Save(c.ProjectDir); err != nil {
			return task.Failure, err
		}
	}

	cfg.NumericVersion = max(time.Now().Unix(), cfg.NumericVersion)
	cfg.Name = strings.ReplaceAll(cfg.Name, "'", `\'`)
	cfg.IconName = strings.ReplaceAll(cfg.IconName, "'", `\'`)
	b.config = cfg
	return task.Success, nil
}

// snarf returns the trimmed content of path, and whether it exists.
func snarf(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func (b *build) copyProject(_ context.Context, c *distro.Context, r report.Reporter) (task.Result, error) {
	prototype := filepath.Join(b.tools.Rapt, "prototype")
	project, err := c.TempPath("project")
	if err != nil {
		return task.Failure, err
	}

	update := b.config.UpdateAlways
	if !update {
		_, statErr := os.Stat(project)
		have, _ := snarf(filepath.Join(project, "build.txt"))
		want, _ := snarf(filepath.Join(prototype, "build.txt"))
		update = statErr != nil || have != want
	}
	if !update {
		r.Info("Android project directory is up-to-date.")
		return task.Skipped, nil
	}

	// Signing and SDK settings survive the copy.
	kept := make(map[string]string)
	for _, name := range []string{"local.properties", "bundle.properties"} {
		if data, ok := snarf(filepath.Join(project, name)); ok {
			kept[name] = data
		}
	}

	if err := os.RemoveAll(project); err != nil {
		return task.Failure, fmt.Errorf("clear android project: %w", err)
	}
	if err := os.CopyFS(project, os.DirFS(prototype)); err != nil {
		return task.Failure, fmt.Errorf("copy android prototype: %w", err)
	}
	for name, data := range kept {
		if err := os.WriteFile(filepath.Join(project, name), []byte(data+"\n"), 0o644); err != nil {
			return task.Failure, fmt.Errorf("restore %s: %w", name, err)
		}
	}
	return task.Success, nil
}

func (b *build) checkSDK(ctx context.Context, c *distro.Context, r report.Reporter) (task.Result, error) {
	if err := b.tools.CheckJava(ctx, r); err != nil {
		return task.Failure, err
	}
	if err := b.tools.CheckSDK(ctx, r); err != nil {
		return task.Failure, err
	}

	k := &keys{tools: b.tools, c: c, r: r}
	generated := false
	for _, key := range []struct{ name, properties string }{
		{"android", "local.properties"},
		{"bundle", "bundle.properties"},
	} {
		props := filepath.Join(c.TmpDir, "project", key.properties)
		ok, err := k.generate(ctx, key.name, props)
		if err != nil {
			return task.Failure, err
		}
		generated = generated || ok
		if err := SetProperty(props, "sdk.dir", filepath.ToSlash(b.tools.SDK), true); err != nil {
			return task.Failure, err
		}
	}

	if generated {
		err := r.OpenDirectory("I've opened the directory containing android.keystore and bundle.keystore. "+
			"Please back them up, and keep them in a safe place.", b.tools.Rapt)
		if err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

func (b *build) initPackagers(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	project, err := c.TempPath("project")
	if err != nil {
		return task.Failure, err
	}
	assets := filepath.Join(project, "app", "src", "main", "assets")
	for _, p := range outputs(c) {
		if p.Bundle {
			p.Assets = NewBundlePackager(project)
		} else {
			p.Assets = NewXFilePackager(assets)
		}
		p.Private = NewPrivatePackager(filepath.Join(assets, "private.mp3"))
	}
	return task.Success, nil
}

// pycachePattern matches the bytecode the engine interpreter loads.
var pycachePattern = "**__pycache__/**." + buildinfo.PycTag + ".pyc"

// unpycache moves a __pycache__ bytecode file next to its source, as the
// android interpreter does not read __pycache__.
func unpycache(name string) string {
	dir := path.Dir(path.Dir(name))
	stem, _, _ := strings.Cut(path.Base(name), ".")
	if dir == "." {
		return stem + ".pyc"
	}
	return dir + "/" + stem + ".pyc"
}

func (b *build) eliminatePycache(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	for _, p := range outputs(c) {
		fl, err := files.NewFileList()
		if err != nil {
			return task.Failure, err
		}
		for f := range p.Files().All() {
			if files.Match(f.Name(), pycachePattern) {
				if f, err = f.Rename(unpycache(f.Name())); err != nil {
					return task.Failure, err
				}
			}
			if err := fl.Add(f); err != nil {
				return task.Failure, err
			}
		}
		p.SetFiles(fl)
	}
	return task.Success, nil
}

func (b *build) splitRenpy(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	var s splitter
	var err error
	if s.block, err = ReadPatternList(filepath.Join(b.tools.Rapt, "blocklist.txt")); err != nil {
		return task.Failure, err
	}
	if s.keep, err = ReadPatternList(filepath.Join(b.tools.Rapt, "keeplist.txt")); err != nil {
		return task.Failure, err
	}
	mainPy := c.BuildInfo.ExecutableName + ".py"

	for _, p := range outputs(c) {
		if err := split(p, s, mainPy); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

// split moves the files of p into its private and assets packagers. The
// android files of the project stay with p.
func split(p *Packager, s splitter, mainPy string) error {
	kept, err := files.NewFileList()
	if err != nil {
		return err
	}
	private, assets := p.Private.Files(), p.Assets.Files()
	for f := range p.Files().All() {
		name := f.Name()
		switch {
		case strings.HasPrefix(name, "android-"), name == ConfigFile:
			err = kept.Add(f)
		case name == mainPy:
			var main *files.File
			if main, err = f.Rename("main.py"); err == nil {
				err = private.Add(main)
			}
		case strings.HasPrefix(name, "renpy/common"):
			if s.include(name) {
				err = assets.Add(f)
			}
		case strings.HasPrefix(name, "renpy"), strings.HasPrefix(name, "lib"):
			err = private.Add(f)
		case s.include(name):
			err = assets.Add(f)
		}
		if err != nil {
			return err
		}
	}
	p.SetFiles(kept)
	return nil
}

func (b *build) copyLibs(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	for _, d := range copiedLibs {
		dst, err := c.TempPath("project", d)
		if err != nil {
			return task.Failure, err
		}
		if err := os.RemoveAll(dst); err != nil {
			return task.Failure, fmt.Errorf("clear %s: %w", d, err)
		}
		if err := os.CopyFS(dst, os.DirFS(filepath.Join(b.tools.Rapt, "prototype", filepath.FromSlash(d)))); err != nil {
			return task.Failure, fmt.Errorf("copy %s: %w", d, err)
		}
	}
	return task.Success, nil
}

// presplash returns the project image called name, or def.
func presplash(project, name, def string) string {
	for _, ext := range []string{".png", ".jpg"} {
		p := filepath.Join(project, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return def
}

func (b *build) createIcons(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	templates := filepath.Join(b.tools.Rapt, "templates")
	project, err := c.TempPath("project")
	if err != nil {
		return task.Failure, err
	}
	if b.config.UpdateIcons {
		if err := MakeIcons(c.ProjectDir, templates, project, b.config.UpdateAlways); err != nil {
			return task.Failure, fmt.Errorf("android icons: %w", err)
		}
	}

	for _, name := range []string{"presplash", "downloading"} {
		src := presplash(c.ProjectDir, "android-"+name, filepath.Join(templates, "renpy-"+name+".jpg"))
		dst, err := c.TempPath("project", "app", "src", "main", "assets", "android-"+name+filepath.Ext(src))
		if err != nil {
			return task.Failure, err
		}
		if err := packager.CopyFile(dst, src, false); err != nil {
			return task.Failure, fmt.Errorf("copy %s: %w", name, err)
		}
	}
	return task.Success, nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (b *build) renderGenerated(ctx context.Context, c *distro.Context, r report.Reporter) (task.Result, error) {
	renderer, err := NewRenderer(b.tools.Rapt)
	if err != nil {
		return task.Failure, err
	}
	config, err := b.config.TemplateValues()
	if err != nil {
		return task.Failure, err
	}
	project, err := c.TempPath("project")
	if err != nil {
		return task.Failure, err
	}

	for _, p := range outputs(c) {
		version, err := md5File(p.Private.Path())
		if err != nil {
			return task.Failure, fmt.Errorf("hash private.mp3: %w", err)
		}
		values := pongo2.Context{"private_version": version, "config": config, "bundle": p.Bundle}
		for _, g := range generated {
			dest := filepath.Join(project, filepath.FromSlash(g[1]))
			if err := renderer.Render(b.config.UpdateAlways, g[0], dest, values); err != nil {
				return task.Failure, err
			}
		}

		name, outRel, command, ext := "APK", "app/build/outputs/apk/release", "assembleRelease", ".apk"
		if p.Bundle {
			name, outRel, command, ext = "bundle", "app/build/outputs/bundle/release", "bundleRelease", ".aab"
		}
		outDir := filepath.Join(project, filepath.FromSlash(outRel))
		if err := clearDir(outDir); err != nil {
			return task.Failure, err
		}

		r.Info(fmt.Sprintf("I'm using Gradle to build the %s package.", name))
		code, err := r.RunSubprocess(ctx, report.Command{
			Args: []string{filepath.Join(project, b.tools.Gradlew), "-p", project, command},
		})
		if err != nil {
			return task.Failure, err
		}
		if code != 0 {
			return task.Failure, r.Fail("The build seems to have failed.")
		}

		built, err := filepath.Glob(filepath.Join(outDir, "*"+ext))
		if err != nil {
			return task.Failure, err
		}
		if len(built) == 0 {
			return task.Failure, fmt.Errorf("gradle did not write a %s package into %s", name, outDir)
		}
		for _, src := range built {
			if err := packager.CopyFile(p.Path(), src, false); err != nil {
				return task.Failure, fmt.Errorf("copy %s: %w", filepath.Base(src), err)
			}
		}
	}
	return task.Success, nil
}

// clearDir removes the entries of dir, which may not exist.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
