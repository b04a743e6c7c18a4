package distro

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Commands the pipeline can run.
const (
	CommandBuild     = "build"
	CommandBuildInfo = "buildinfo"
)

// Options is the validated command line of a run.
type Options struct {
	Command string `mapstructure:"-"`

	ProjectDir  string `mapstructure:"project-dir"`
	SDKDir      string `mapstructure:"sdk-dir"`
	TmpDir      string `mapstructure:"tmp-dir"`
	LogFile     string `mapstructure:"log-file"`
	LegacyBuild bool   `mapstructure:"legacy-build"`
	Silent      bool   `mapstructure:"silent"`
	Verbose     bool   `mapstructure:"verbose"`

	Packages       []string `mapstructure:"-"`
	OutputDir      string   `mapstructure:"output-dir"`
	Fresh          bool     `mapstructure:"fresh"`
	ForceRecompile bool     `mapstructure:"force-recompile"`
	NoUpdate       bool     `mapstructure:"no-update"`
}

// Validate checks the options that do not need the file system and
// fills the defaults. Directories are checked by the check_properties
// task.
func (o *Options) Validate() error {
	if o.Command == "" {
		o.Command = CommandBuild
	}
	if o.Command != CommandBuild && o.Command != CommandBuildInfo {
		return fmt.Errorf("unknown command %q", o.Command)
	}
	if o.ProjectDir == "" {
		return errors.New("project directory is not set")
	}
	if o.SDKDir == "" {
		return errors.New("sdk directory is not set")
	}
	if o.Silent && o.Verbose {
		return errors.New("silent and verbose can not be used at the same time")
	}

	var err error
	if o.ProjectDir, err = filepath.Abs(o.ProjectDir); err != nil {
		return fmt.Errorf("project directory: %w", err)
	}
	if o.SDKDir, err = filepath.Abs(o.SDKDir); err != nil {
		return fmt.Errorf("sdk directory: %w", err)
	}
	if o.TmpDir == "" {
		o.TmpDir = filepath.Join(o.SDKDir, "tmp", filepath.Base(o.ProjectDir))
	}
	if o.TmpDir, err = filepath.Abs(o.TmpDir); err != nil {
		return fmt.Errorf("tmp directory: %w", err)
	}
	if o.LogFile == "" {
		o.LogFile = filepath.Join(o.TmpDir, "build.log")
	}
	if o.OutputDir != "" {
		if o.OutputDir, err = filepath.Abs(o.OutputDir); err != nil {
			return fmt.Errorf("output directory: %w", err)
		}
	}
	return nil
}

// checkDirectory fails unless path exists and is a directory.
func checkDirectory(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s %s does not exist", what, path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s %s can not refer to a file", what, path)
	}
	return nil
}

// checkWritable creates path when needed and fails unless a file can be
// created in it.
func checkWritable(path, what string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("%s %s can not be created: %w", what, path, err)
	}
	if err := checkDirectory(path, what); err != nil {
		return err
	}
	marker := filepath.Join(path, "test.txt")
	if err := os.WriteFile(marker, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("%s %s is not writable: %w", what, path, err)
	}
	return os.Remove(marker)
}
