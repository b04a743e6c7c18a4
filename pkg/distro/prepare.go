package distro

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/flytam/filenamify"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
)

// PrepareTasks turn the classifier lists into archivers and packagers.
func PrepareTasks() []*Task {
	return []*Task{
		{Name: "create_archivers", Description: "Initialising archivers...", Func: createArchivers},
		{Name: "create_packagers_and_file_lists", Description: "Initialising packagers and its file lists...", Func: createPackagers},
		{Name: "prepend_directory", Description: "Prepending directory...", Func: prependDirectory},
		{Name: "transform_app", Description: "Transforming the mac app...", Kind: task.MustKind("mac"), Func: transformApp},
		{Name: "workaround_mac_notarization", Description: "Workaround mac notarization...", Kind: task.MustKind("mac"), Func: workaroundMacNotarization},
	}
}

func createArchivers(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	c.Archives = c.Archives[:0]
	for _, a := range c.BuildInfo.Archives {
		src := c.List(a.Name)
		if src == nil {
			continue
		}
		fl := src.Copy()
		// Archives only hold the game directory.
		if err := fl.Reprefix("game/", ""); err != nil {
			return task.Failure, err
		}
		fl.FilterEmpty()
		fl.AddMissingDirectories()
		fl.FilterNone()
		if fl.Len() == 0 {
			continue
		}

		name, err := filenamify.FilenamifyV2(a.Filename)
		if err != nil {
			return task.Failure, fmt.Errorf("archive %q: %w", a.Name, err)
		}
		outfile, err := c.TempPath("archives", name)
		if err != nil {
			return task.Failure, err
		}
		arch, err := c.Archivers.New(a.Kind, outfile, a.Args...)
		if err != nil {
			return task.Failure, fmt.Errorf("archive %q: %w", a.Name, err)
		}
		c.Archives = append(c.Archives, &ArchiveJob{Archive: a, Archiver: arch, Files: fl})
	}
	return task.Success, nil
}

func (c *Context) archiveJob(name string) *ArchiveJob {
	for _, j := range c.Archives {
		if j.Archive.Name == name {
			return j
		}
	}
	return nil
}

func createPackagers(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	for _, w := range c.BuildInfo.Warnings {
		r.Info(w)
	}

	c.Outputs = c.Outputs[:0]
	for _, p := range c.BuildPackages {
		for _, format := range p.Formats {
			lists, err := c.packageLists(p, format, r)
			if err != nil {
				return task.Failure, err
			}

			pk, err := c.Packagers.Init(format, c.BuildInfo, filepath.Join(c.OutputDir, c.OutputName(p.Name)))
			if err != nil {
				return task.Failure, fmt.Errorf("package %s %s: %w", p.Name, format, err)
			}
			if pk == nil {
				c.Log.WithField("package", p.Name).WithField("format", format).Debug("format not produced")
				continue
			}
			merged, err := files.Merge(lists...)
			if err != nil {
				return task.Failure, fmt.Errorf("package %s %s: %w", p.Name, format, err)
			}
			pk.SetFiles(merged)
			c.Outputs = append(c.Outputs, &Output{Package: p, Format: format, Packager: pk})
		}
	}
	return task.Success, nil
}

// packageLists copies the file lists of p and places the archives in
// them, in the order the package names its lists.
func (c *Context) packageLists(p *buildinfo.Package, format string, r report.Reporter) ([]*files.FileList, error) {
	byName := make(map[string]*files.FileList, len(p.FileLists))
	for _, name := range p.FileLists {
		fl := c.List(name)
		if fl == nil {
			continue
		}
		fl.FilterEmpty()
		fl.AddMissingDirectories()
		if fl.Len() == 0 {
			continue
		}
		byName[name] = fl.Copy()
	}

	for _, a := range c.BuildInfo.Archives {
		job := c.archiveJob(a.Name)
		if job == nil {
			r.Verbose(fmt.Sprintf("Ignore %s archive in %s %s, empty file list.", a.Name, p.Name, format))
			continue
		}
		target := ""
		for _, l := range a.FileLists {
			if slices.Contains(p.FileLists, l) {
				target = l
				break
			}
		}
		if target == "" {
			r.Verbose(fmt.Sprintf("Ignore %s archive in %s %s, no matching file list.", a.Name, p.Name, format))
			continue
		}
		dst := byName[target]
		if dst == nil {
			dst, _ = files.NewFileList()
			byName[target] = dst
		}

		if p.IgnoreArchives {
			for f := range job.Files.All() {
				nf, err := f.Rename("game/" + f.Name())
				if err != nil {
					return nil, err
				}
				if err := dst.Add(nf); err != nil {
					return nil, err
				}
			}
			r.Verbose(fmt.Sprintf("Ignore %s archive in %s %s, package ignores archives.", a.Name, p.Name, format))
			continue
		}
		path := job.Archiver.Path()
		if err := dst.AddFile("game/"+filepath.Base(path), path, false); err != nil {
			return nil, err
		}
		job.Requested = true
		r.Verbose(fmt.Sprintf("Add %s archive in %s %s.", a.Name, p.Name, format))
	}

	out := make([]*files.FileList, 0, len(byName))
	for _, name := range p.FileLists {
		if fl, ok := byName[name]; ok {
			out = append(out, fl)
			delete(byName, name)
		}
	}
	return out, nil
}

func prependDirectory(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	for _, o := range c.Outputs {
		if !c.Packagers.HasModifier(o.Format, packager.ModPrepend) {
			continue
		}
		if err := o.Packager.Files().PrependDirectory(c.OutputName(o.Package.Name)); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

func transformApp(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	app := newMacApp(c.BuildInfo.ExecutableName)
	for _, o := range c.Outputs {
		fl := o.Packager.Files()
		if c.Packagers.HasModifier(o.Format, packager.ModApp) {
			var err error
			if fl, err = macTransform(fl, app, c.BuildInfo.DocumentationPatterns); err != nil {
				return task.Failure, err
			}
		}

		appFiles, rest := fl.SplitByPrefix(app.App)
		if appFiles.Len() == 0 {
			continue
		}
		merged, err := files.Merge(appFiles, rest)
		if err != nil {
			return task.Failure, err
		}
		merged.FilterEmpty()
		merged.AddMissingDirectories()
		o.Packager.SetFiles(merged)
	}
	return task.Success, nil
}

func workaroundMacNotarization(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	for _, o := range c.Outputs {
		if !c.Packagers.HasModifier(o.Format, packager.ModDMG) {
			continue
		}
		fl, err := wrapMachO(c, o.Packager.Files())
		if err != nil {
			return task.Failure, err
		}
		o.Packager.SetFiles(fl)
	}
	return task.Success, nil
}
