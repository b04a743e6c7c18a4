package distro

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/odvcencio/rpdist/pkg/buildinfo"
	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/platform"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
)

// SystemTasks resolve the build properties before anything is classified.
func SystemTasks() []*Task {
	return []*Task{
		{Name: "check_properties", Description: "Checking build properties...", Kind: task.System(), Func: checkProperties},
		{Name: "find_renpy_python", Description: "Adding Ren'Py paths...", Kind: task.System(), Func: findRenpyPython},
		{Name: "update_dump", Description: "Retrieving build info...", Kind: task.System(), Func: updateDump},
		{Name: "check_package", Description: "Checking chosen packages...", Kind: task.System(), Func: checkPackage},
		{Name: "init_build_platforms", Description: "Initialising build platforms...", Kind: task.System(), Func: initBuildPlatforms},
		{Name: "init_classifier_file_lists", Description: "Initialising clasifier file lists...", Kind: task.System(), Func: initClassifierFileLists},
	}
}

func checkProperties(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	if err := checkDirectory(c.ProjectDir, "project-dir"); err != nil {
		return task.Failure, r.Fail(err.Error())
	}
	if err := checkDirectory(c.SDKDir, "sdk-dir"); err != nil {
		return task.Failure, r.Fail(err.Error())
	}
	if err := checkWritable(c.TmpDir, "tmp-dir"); err != nil {
		return task.Failure, r.Fail(err.Error())
	}

	if c.Fresh {
		// The log file may live in the tmp directory.
		entries, err := os.ReadDir(c.TmpDir)
		if err != nil {
			return task.Failure, fmt.Errorf("clear tmp-dir: %w", err)
		}
		for _, e := range entries {
			p := filepath.Join(c.TmpDir, e.Name())
			if p == c.LogFile {
				continue
			}
			if err := os.RemoveAll(p); err != nil {
				return task.Failure, fmt.Errorf("clear tmp-dir: %w", err)
			}
		}
		c.Log.WithField("tmp", c.TmpDir).Debug("cleared tmp directory")
	}
	return task.Success, nil
}

func findRenpyPython(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	p := c.SDKPath(PythonPath())
	if _, err := os.Stat(p); err != nil {
		return task.Failure, r.Fail("Ren'Py interpreter does not exists: " + filepath.ToSlash(p))
	}
	c.RenpyPython = p
	return task.Success, nil
}

func updateDump(ctx context.Context, c *Context, r report.Reporter) (task.Result, error) {
	if !c.LegacyBuild {
		bi, err := buildinfo.Load(c.ProjectDir)
		if err != nil {
			r.Exception("While reading the build configuration", err)
			return task.Failure, r.Fail("Could not load the build configuration. " +
				"Check buildinfo.toml or run with --legacy-build option.")
		}
		c.BuildInfo = bi
	} else if err := loadDump(ctx, c, r); err != nil {
		return task.Failure, err
	}
	if c.NoUpdate {
		c.BuildInfo.IncludeUpdate = false
	}

	if c.OutputDir == "" {
		if c.BuildInfo.Destination == "" {
			return task.Failure, r.Fail("Neither OUTPUT-DIR nor destination is set - there is nowhere to write.")
		}
		c.OutputDir = c.BuildInfo.Destination
		if !filepath.IsAbs(c.OutputDir) {
			c.OutputDir = filepath.Join(filepath.Dir(c.ProjectDir), c.OutputDir)
		}
	}
	if err := checkWritable(c.OutputDir, "output-dir"); err != nil {
		return task.Failure, r.Fail(err.Error())
	}

	if c.Command == CommandBuildInfo {
		return task.SuccessExit, r.FinalSuccess(c.BuildInfo.String())
	}
	return task.Success, nil
}

// loadDump launches the project to dump its build information.
func loadDump(ctx context.Context, c *Context, r report.Reporter) error {
	dump, err := c.TempPath("dump.json")
	if err != nil {
		return err
	}
	args := []string{"--json-dump", dump}
	if c.ForceRecompile {
		args = append([]string{"compile", "--keep-orphan-rpyc"}, args...)
	} else {
		args = append([]string{"quit"}, args...)
	}

	var code int
	err = r.Background(ctx, "Launching the game", func(ctx context.Context) error {
		var err error
		code, err = r.RunSubprocess(ctx, report.Command{
			Args: c.LaunchArgs(args...),
			Env:  []string{"RENPY_LOG_BASE=" + c.TmpDir},
		})
		return err
	})
	if err != nil {
		return err
	}

	const failed = "Could not get build data from the project. Please ensure the project runs."
	if code != 0 {
		return r.Fail(failed)
	}
	data, err := os.ReadFile(dump)
	if errors.Is(err, fs.ErrNotExist) {
		return r.Fail(failed)
	}
	if err == nil {
		c.BuildInfo, err = buildinfo.ParseDump(data)
	}
	if err != nil {
		r.Exception("While reading dump.json...", err)
		return r.Fail(failed)
	}
	return nil
}

func checkPackage(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	all := c.BuildInfo.PackageNames()
	check := func(chosen []string) bool {
		var extra []string
		for _, name := range chosen {
			if !slices.Contains(all, name) && !slices.Contains(extra, name) {
				extra = append(extra, name)
			}
		}
		if len(extra) > 0 {
			r.Info(fmt.Sprintf("Selected packages does not exist: %s. Choose from: %s.",
				strings.Join(extra, ", "), strings.Join(all, ", ")))
			return false
		}
		return true
	}

	chosen := c.Packages
	if len(chosen) > 0 && !check(chosen) {
		chosen = nil
	}
	if len(chosen) == 0 {
		for {
			answer, err := r.Input(fmt.Sprintf("Input space-separated packges from %s:", strings.Join(all, ", ")),
				report.InputOptions{AllowEmpty: true})
			if err != nil {
				return task.Failure, err
			}
			chosen = strings.Fields(answer)
			if check(chosen) {
				break
			}
		}
	}
	if len(chosen) == 0 {
		return task.Failure, r.Fail("No packages are selected, so there's nothing to do.")
	}

	c.Packages = chosen
	c.BuildPackages = c.BuildPackages[:0]
	for _, p := range c.BuildInfo.Packages {
		if slices.Contains(chosen, p.Name) {
			c.BuildPackages = append(c.BuildPackages, p)
		}
	}
	return task.Success, nil
}

func initBuildPlatforms(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	var s platform.Set
	for _, p := range c.BuildPackages {
		s = s.Union(p.Platforms)
	}
	c.Platforms = s
	c.Log.WithField("platforms", s.String()).Debug("build platforms")
	return task.Success, nil
}

func initClassifierFileLists(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	c.Lists = make(map[string]*files.FileList, len(c.BuildInfo.FileLists))
	for _, name := range c.BuildInfo.FileLists {
		fl, err := files.NewFileList()
		if err != nil {
			return task.Failure, err
		}
		c.Lists[name] = fl
	}
	return task.Success, nil
}
