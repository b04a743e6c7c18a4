package distro

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/rpdist/pkg/files"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
)

// ClassifyTasks fill the classifier file lists from the SDK and the
// project, then add the launchers and files each platform needs.
func ClassifyTasks() []*Task {
	return []*Task{
		{Name: "compile_renpy", Description: "Compiling renpy folder...", Kind: task.MustKind("all"), Func: compileRenpy},
		{Name: "scan_renpy", Description: "Scanning renpy files...", Func: scanRenpy},
		{Name: "scan_project", Description: "Scanning project files...", Func: scanProject},
		{Name: "add_linux_files", Description: "Adding linux files...", Kind: task.MustKind("linux"), Func: addLinuxFiles},
		{Name: "add_mac_files", Description: "Adding mac files...", Kind: task.MustKind("mac"), Func: addMacFiles},
		{Name: "add_windows_files", Description: "Adding windows files...", Kind: task.MustKind("win"), Func: addWindowsFiles},
		{Name: "add_renpy_game_files", Description: "Adding RenPy files...", Func: addRenpyGameFiles},
		{Name: "mark_executable", Description: "Marking executables...", Kind: task.MustKind("linux mac"), Func: markExecutable},
		{Name: "rename", Description: "Renaming files...", Func: renameLaunchers},
		{Name: "move_sdk_fonts", Func: moveSDKFonts},
	}
}

// compileRenpy compiles the engine sources so that scan_renpy classifies
// the bytecode too.
func compileRenpy(ctx context.Context, c *Context, r report.Reporter) (task.Result, error) {
	args := []string{"-m", "compileall", "-f", "-j", "0", "-d", "renpy/"}
	if !c.Verbose {
		args = append(args, "-q")
	}
	var code int
	err := r.Background(ctx, "Compiling", func(ctx context.Context) error {
		var err error
		code, err = r.RunSubprocess(ctx, report.Command{
			Args: c.PythonArgs(append(args, c.SDKPath("renpy"))...),
		})
		return err
	})
	if err != nil {
		return task.Failure, err
	}
	if code != 0 {
		return task.Failure, r.Fail(fmt.Sprintf("Could not compile the renpy folder, compileall exited with %d.", code))
	}
	return task.Success, nil
}

func classifyInto(c *Context, where, root, logName string, rules []files.Rule) (task.Result, error) {
	p, err := c.TempPath(logName)
	if err != nil {
		return task.Failure, err
	}
	f, err := os.Create(p)
	if err != nil {
		return task.Failure, fmt.Errorf("create match log: %w", err)
	}
	defer f.Close()
	if err := files.Classify(where, root, c.Lists, rules, f); err != nil {
		return task.Failure, fmt.Errorf("classify %s: %w", where, err)
	}
	return task.Success, f.Close()
}

func scanRenpy(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	return classifyInto(c, "SDK-DIR", c.SDKDir, "renpy_patterns_match.txt", c.BuildInfo.RenpyPatterns)
}

func scanProject(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	return classifyInto(c, "PROJECT-DIR", c.ProjectDir, "project_patterns_match.txt", c.BuildInfo.GamePatterns)
}

// Linux launcher architectures and the lists they go to.
var linuxArches = []struct{ arch, list string }{
	{"x86_64", "linux"},
	{"armv7l", "linux_arm"},
	{"aarch64", "linux_arm"},
}

func addLinuxFiles(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	for _, a := range linuxArches {
		fl := c.List(a.list)
		src := c.SDKPath("lib", "py3-linux-"+a.arch, "renpy")
		if fl == nil || !exists(src) {
			continue
		}
		name := fmt.Sprintf("lib/py3-linux-%s/%s", a.arch, c.BuildInfo.ExecutableName)
		if err := fl.AddFile(name, src, true); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

func addMacFiles(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	fl := c.List("mac")
	if fl == nil {
		return task.Failure, r.Fail("The mac file list is not declared.")
	}
	exe := c.BuildInfo.ExecutableName
	app := newMacApp(exe)

	launcher := c.SDKPath(macLib, "renpy")
	if !exists(launcher) {
		return task.Failure, r.Fail("Mac launcher does not exists: " + launcher)
	}
	if err := fl.AddFile(macLib+"/"+exe, launcher, true); err != nil {
		return task.Failure, err
	}
	if err := fl.AddFile(app.MacOS+"/"+exe, launcher, true); err != nil {
		return task.Failure, err
	}

	plistPath, err := c.TempPath("Info.plist")
	if err != nil {
		return task.Failure, err
	}
	if err := writeInfoPlist(plistPath, c.BuildInfo, time.Now()); err != nil {
		return task.Failure, err
	}
	if err := fl.AddFile(app.Contents+"/Info.plist", plistPath, false); err != nil {
		return task.Failure, err
	}

	icon := c.ProjectPath("icon.icns")
	if !exists(icon) {
		icon = c.SDKPath("launcher", "icon.icns")
	}
	if exists(icon) {
		if err := fl.AddFile(app.Resources+"/icon.icns", icon, false); err != nil {
			return task.Failure, err
		}
	}

	if err := moveIntoApp(fl, app); err != nil {
		return task.Failure, err
	}
	return task.Success, nil
}

func addWindowsFiles(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	fl := c.List("windows")
	if fl == nil {
		return task.Skipped, nil
	}
	exes := []struct{ src, dst string }{
		{"lib/py3-windows-x86_64/renpy.exe", c.BuildInfo.ExecutableName + ".exe"},
		{"lib/py3-windows-x86_64/pythonw.exe", "lib/py3-windows-x86_64/pythonw.exe"},
	}
	for _, e := range exes {
		src := c.SDKPath(e.src)
		if !exists(src) {
			continue
		}
		if err := fl.AddFile(e.dst, src, false); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

func addRenpyGameFiles(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	if license := c.SDKPath("LICENSE.txt"); exists(license) {
		if fl := c.List("renpy"); fl != nil {
			if err := fl.AddFile("renpy/LICENSE.txt", license, false); err != nil {
				return task.Failure, err
			}
		}
	}

	if exists(c.ProjectPath("game", "script_version.rpy")) || exists(c.ProjectPath("game", "script_version.rpyc")) {
		return task.Success, nil
	}
	v, err := ReadSDKVersion(c.SDKDir)
	if err != nil {
		r.Exception("While reading the Ren'Py version", err)
		return task.Failure, r.Fail("Could not read the Ren'Py version of the SDK.")
	}
	p, err := c.TempPath("script_version.txt")
	if err != nil {
		return task.Failure, err
	}
	if err := os.WriteFile(p, []byte(v.ScriptVersion()), 0o644); err != nil {
		return task.Failure, fmt.Errorf("write script version: %w", err)
	}
	if fl := c.List("all"); fl != nil {
		if err := fl.AddFile("game/script_version.txt", p, false); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

func markExecutable(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	for _, fl := range c.Lists {
		for f := range fl.All() {
			if files.MatchAny(f.Name(), c.BuildInfo.XbitPatterns) {
				f.Executable = true
			}
		}
	}
	return task.Success, nil
}

// renameLaunchers names the engine launch scripts after the executable.
func renameLaunchers(_ context.Context, c *Context, _ report.Reporter) (task.Result, error) {
	exe := c.BuildInfo.ExecutableName
	rename := func(name string) string {
		first, rest, found := strings.Cut(name, "/")
		switch first {
		case "renpy.sh":
			first = exe + ".sh"
		case "renpy.py":
			first = exe + ".py"
		default:
			return name
		}
		if found {
			return first + "/" + rest
		}
		return first
	}

	for key, fl := range c.Lists {
		renamed, err := files.NewFileList()
		if err != nil {
			return task.Failure, err
		}
		for f := range fl.All() {
			nf, err := f.Rename(rename(f.Name()))
			if err != nil {
				return task.Failure, err
			}
			if err := renamed.Add(nf); err != nil {
				return task.Failure, err
			}
		}
		c.Lists[key] = renamed
	}
	return task.Success, nil
}

func moveSDKFonts(_ context.Context, c *Context, r report.Reporter) (task.Result, error) {
	if c.ProjectDir != c.SDKPath("the_question") && c.ProjectDir != c.SDKPath("tutorial") {
		return task.Success, nil
	}
	r.Info("Moving SDK fonts...")
	for _, fl := range c.Lists {
		if err := fl.Reprefix("sdk-fonts/", "game/"); err != nil {
			return task.Failure, err
		}
	}
	return task.Success, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
