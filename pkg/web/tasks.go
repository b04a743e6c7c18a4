package web

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/odvcencio/rpdist/pkg/distro"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
)

var (
	imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}
	audioExts = []string{".wav", ".mp2", ".mp3", ".ogg", ".opus"}
	videoExts = []string{".ogv", ".webm", ".mp4", ".mkv", ".avi"}

	presplashNames = []string{"web-presplash.png", "web-presplash.jpg", "web-presplash.webp"}
)

// build holds the web state of one run.
type build struct {
	static Static
	rules  *Rules
}

// Provider registers the web package format and the web tasks.
func Provider() distro.Provider {
	return distro.Provider{Name: "web", Install: func(c *distro.Context) ([]*distro.Task, error) {
		c.Packagers.Register("web", packager.Entry{Factory: NewPackager, Extension: ".zip"})
		b := &build{}
		return b.tasks(), nil
	}}
}

func (b *build) tasks() []*distro.Task {
	kind := task.MustKind("web")
	return []*distro.Task{
		{
			Name: "update_web_static_files", Description: "Updating WEB static files...", Kind: kind,
			Func:     b.updateStatic,
			Requires: []string{"init_build_platforms"}, Dependencies: []string{"init_classifier_file_lists"},
		},
		{
			Name: "init_web_rules", Description: "Initialising web rules...", Kind: kind,
			Func:     b.initRules,
			Requires: []string{"init_build_platforms"}, Dependencies: []string{"init_classifier_file_lists"},
		},
		{
			Name: "classify_progressive_download", Description: "Classifying progressive download files...", Kind: kind,
			Func:     b.classify,
			Requires: []string{"create_packagers_and_file_lists"}, Dependencies: []string{"prepend_directory"},
		},
		{
			Name: "write_progressive_download", Description: "Writing progressive download placeholder images...", Kind: kind,
			Func:     b.writePlaceholders,
			Requires: []string{"sort_and_clear_empty"}, Dependencies: []string{"write_packages"},
		},
		{
			Name: "zip_game", Description: "Finishing web packagers...", Kind: kind,
			Func:     b.zipGame,
			Requires: []string{"write_progressive_download"}, Dependencies: []string{"write_packages"},
		},
	}
}

func (b *build) updateStatic(ctx context.Context, c *distro.Context, r report.Reporter) (task.Result, error) {
	b.static = Static{Dir: c.SDKPath("web-static")}
	v, err := distro.ReadSDKVersion(c.SDKDir)
	if err != nil {
		r.Exception("While reading the Ren'Py version", err)
		return task.Failure, r.Fail("Could not find out which WEB files the SDK needs.")
	}
	name, url := Release(v)
	if b.static.Version() == name {
		r.Info("WEB static files are up-to-date.")
		return task.Skipped, nil
	}

	if err := os.MkdirAll(b.static.Dir, 0o755); err != nil {
		return task.Failure, fmt.Errorf("create web cache: %w", err)
	}
	archive := b.static.Path("web_" + name + ".zip")
	if _, err := os.Stat(archive); err != nil {
		if err := r.Download(ctx, "I'm downloading the WEB", url, archive); err != nil {
			return task.Failure, err
		}
	}

	r.Info("I'm extracting the WEB.")
	if err := b.static.Extract(archive, name); err != nil {
		return task.Failure, err
	}
	r.Success("I've finished unpacking the WEB.")
	return task.Success, nil
}

func (b *build) initRules(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	rules, err := LoadRules(c.ProjectPath(RulesFile))
	if err != nil {
		return task.Failure, err
	}
	b.rules = rules
	return task.Success, nil
}

// webOutputs returns the web packagers of the build.
func webOutputs(c *distro.Context) []*distro.Output {
	var out []*distro.Output
	for _, o := range c.Outputs {
		if _, ok := o.Packager.(*Packager); ok {
			out = append(out, o)
		}
	}
	return out
}

func (b *build) classify(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	html, err := os.ReadFile(b.static.Path("index.html"))
	if err != nil {
		return task.Failure, fmt.Errorf("read web index.html: %w", err)
	}
	for _, o := range webOutputs(c) {
		if err := b.classifyOne(c, o, string(html)); err != nil {
			return task.Failure, fmt.Errorf("%s %s: %w", o.Package.Name, o.Format, err)
		}
	}
	return task.Success, nil
}

func (b *build) classifyOne(c *distro.Context, o *distro.Output, html string) error {
	p := o.Packager.(*Packager)
	main := []string{"renpy.py", c.BuildInfo.ExecutableName + ".py"}

	fl, err := files.NewFileList()
	if err != nil {
		return err
	}
	var presplash *files.File
	for f := range p.Files().All() {
		name := f.Name()
		ext := strings.ToLower(filepath.Ext(f.Path))
		switch {
		case slices.Contains(main, name):
			// The web runtime starts main.py.
			if f, err = f.Rename("main.py"); err != nil {
				return err
			}
		case slices.Contains(presplashNames, name):
			presplash = f
		case f.Phantom() || f.Directory || ext == "":
		case slices.Contains(imageExts, ext) && b.rules.Progressive(name, Image):
			if err := fl.Add(f); err != nil {
				return err
			}
			rest, ok := strings.CutPrefix(name, "game/")
			if !ok {
				return fmt.Errorf("progressive image %s is outside of the game directory", name)
			}
			tmp, err := c.TempPath(append([]string{"web_placeholders"}, strings.Split(name, "/")...)...)
			if err != nil {
				return err
			}
			if err := p.GameZip.AddFile("_placeholders/"+rest, tmp, false); err != nil {
				return err
			}
			p.placeholders = append(p.placeholders, placeholder{source: f, path: tmp})
			continue
		case slices.Contains(audioExts, ext) && b.rules.Progressive(name, Music):
			p.remote[name] = "music -"
			if err := fl.Add(f); err != nil {
				return err
			}
			continue
		case slices.Contains(audioExts, ext) && b.rules.Progressive(name, Voice):
			p.remote[name] = "voice -"
			if err := fl.Add(f); err != nil {
				return err
			}
			continue
		case slices.Contains(videoExts, ext):
			// Videos are never part of game.zip.
			if err := fl.Add(f); err != nil {
				return err
			}
			continue
		}
		if err := p.GameZip.Add(f); err != nil {
			return err
		}
	}

	core, err := os.ReadDir(b.static.CoreDir())
	if err != nil {
		return fmt.Errorf("read web core files: %w", err)
	}
	for _, e := range core {
		if e.IsDir() {
			continue
		}
		if err := fl.AddFile(e.Name(), filepath.Join(b.static.CoreDir(), e.Name()), false); err != nil {
			return err
		}
	}

	if presplash != nil {
		html = strings.ReplaceAll(html, "web-presplash.jpg", presplash.Name())
	} else if err := fl.AddFile("web-presplash.jpg", b.static.Path("web-presplash.jpg"), false); err != nil {
		return err
	}

	index, err := c.TempPath(fmt.Sprintf("%s-%s_index.html", o.Package.Name, o.Format))
	if err != nil {
		return err
	}
	html = strings.ReplaceAll(html, "Ren'Py Web Game", c.BuildInfo.DisplayName)
	if err := os.WriteFile(index, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}
	if err := fl.AddFile("index.html", index, false); err != nil {
		return err
	}
	p.SetFiles(fl)
	return nil
}

func (b *build) writePlaceholders(_ context.Context, c *distro.Context, r report.Reporter) (task.Result, error) {
	for _, o := range webOutputs(c) {
		p := o.Packager.(*Packager)

		bar, err := r.StartProgressBar("Converting progressive download placeholder for " + o.Format)
		if err != nil {
			return task.Failure, err
		}
		for i, ph := range p.placeholders {
			r.UpdateProgressBar(fmt.Sprintf("%d/%d", i+1, len(p.placeholders)))
			w, h, err := GeneratePlaceholder(ph.source.Path, ph.path)
			if err != nil {
				bar.Error(0, false)
				r.EndProgressBar()
				return task.Failure, err
			}
			p.remote[ph.source.Name()] = fmt.Sprintf("image %d,%d", w, h)
		}
		bar.Done(0)
		r.EndProgressBar()

		list, err := c.TempPath(fmt.Sprintf("%s-%s_remote_files.txt", o.Package.Name, o.Format))
		if err != nil {
			return task.Failure, err
		}
		if err := os.WriteFile(list, []byte(remoteFiles(p.remote)), 0o644); err != nil {
			return task.Failure, fmt.Errorf("write remote files: %w", err)
		}
		if err := p.GameZip.AddFile("game/renpyweb_remote_files.txt", list, false); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

// remoteFiles renders the renpy.loader list of remote files: the game
// relative name on one line and its description on the next, sorted by
// name.
func remoteFiles(remote map[string]string) string {
	names := make([]string, 0, len(remote))
	for name := range remote {
		names = append(names, name)
	}
	slices.Sort(names)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(strings.TrimPrefix(name, "game/") + "\n")
		sb.WriteString(remote[name] + "\n")
	}
	return sb.String()
}

func (b *build) zipGame(_ context.Context, c *distro.Context, _ report.Reporter) (task.Result, error) {
	for _, o := range webOutputs(c) {
		p := o.Packager.(*Packager)
		path, err := c.TempPath(fmt.Sprintf("%s-%s_game.zip", o.Package.Name, o.Format))
		if err != nil {
			return task.Failure, err
		}
		p.GameZipPath = path
		p.GameZip.FilterEmpty()
		p.GameZip.AddMissingDirectories()

		fl := p.Files()
		if err := fl.AddFile("game.zip", path, false); err != nil {
			return task.Failure, err
		}
		fl.FilterEmpty()
		fl.AddMissingDirectories()
	}
	return task.Success, nil
}
