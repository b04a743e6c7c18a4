package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/odvcencio/rpdist/pkg/android"
	"github.com/odvcencio/rpdist/pkg/distro"
	"github.com/odvcencio/rpdist/pkg/report"
	"github.com/odvcencio/rpdist/pkg/task"
	"github.com/odvcencio/rpdist/pkg/web"
)

// providers are the task sets of every build.
func providers() []distro.Provider {
	return append(distro.Core(), web.Provider(), android.Provider())
}

// runPipeline runs the build tasks for opts with a console reporter on the
// stdio of cmd. A non-zero exit code is returned as a *report.ExitError.
func runPipeline(cmd *cobra.Command, v *viper.Viper, opts distro.Options) error {
	log, closer, err := report.NewLogger(opts.LogFile, v.GetBool("debug"))
	if err != nil {
		return err
	}
	defer closer.Close()

	rep := report.NewConsole(report.ConsoleOptions{
		Verbose: opts.Verbose,
		Silent:  opts.Silent,
		Out:     cmd.OutOrStdout(),
		In:      cmd.InOrStdin(),
		Logger:  log,
	})

	c := distro.NewContext(opts, log)
	reg, err := distro.Install(c, providers()...)
	if err != nil {
		return err
	}
	if code := task.NewRunner(reg, c, rep, log).Run(cmd.Context()); code != 0 {
		return &report.ExitError{Code: code}
	}
	return nil
}
