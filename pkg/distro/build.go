package distro

import (
	"context"
	"fmt"

	"github.com/odvcencio/rpdist/pkg/progress"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
)

// BuildTasks write the archives and packages.
func BuildTasks() []*Task {
	return []*Task{
		{Name: "sort_and_clear_empty", Description: "Sorting and eliminating empty directories...", Func: sortAndClearEmpty},
		{Name: "write_archives", Description: "Writing archives...", Func: writeArchives},
		{Name: "write_packages", Description: "Writing packages...", Func: writePackages},
		{Name: "open_output_dir", Description: "Open distribute directory.", Func: openOutputDir},
	}
}

func sortAndClearEmpty(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	for _, o := range c.Outputs {
		o.Packager.FinishFileList()
	}
	return task.Success, nil
}

func writeArchives(ctx context.Context, c *Context, r report.Reporter) (task.Result, error) {
	if len(c.Archives) == 0 {
		r.Info("No archives to write.")
		return task.Success, nil
	}

	var prompts []string
	var jobs []report.Job
	for _, j := range c.Archives {
		if !j.Requested {
			continue
		}
		prompts = append(prompts, fmt.Sprintf("Writing the %s archive", j.Archive.Name))
		jobs = append(jobs, func(context.Context) progress.Steps {
			for f := range j.Files.All() {
				if f.Phantom() {
					return progress.Fail(fmt.Errorf(
						"archive files have to be backed before write_archives runs, %q has no path", f.Name()))
				}
				if err := j.Archiver.Add(f.Name(), f.Path); err != nil {
					return progress.Fail(err)
				}
			}
			return j.Archiver.Write()
		})
	}
	if len(jobs) == 0 {
		return task.Success, nil
	}
	if err := r.Pool(ctx, prompts, jobs); err != nil {
		return task.Failure, err
	}
	return task.Success, nil
}

func writePackages(ctx context.Context, c *Context, r report.Reporter) (task.Result, error) {
	prompts := make([]string, 0, len(c.Outputs))
	jobs := make([]report.Job, 0, len(c.Outputs))
	for _, o := range c.Outputs {
		prompts = append(prompts, fmt.Sprintf("Writing the %s %s package", o.Package.Name, o.Format))
		jobs = append(jobs, func(context.Context) progress.Steps { return o.Packager.Write() })
	}
	if len(jobs) == 0 {
		return task.Success, nil
	}
	if err := r.Pool(ctx, prompts, jobs); err != nil {
		return task.Failure, err
	}
	return task.Success, nil
}

func openOutputDir(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	err := r.OpenDirectory("All packages have been built.\n\nDue to the presence of permission information, "+
		"unpacking and repacking the Linux and Macintosh distributions on Windows is not supported.", c.OutputDir)
	if err != nil {
		return task.Failure, err
	}
	return task.SuccessExit, nil
}
