package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/rpdist/pkg/distro"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [packages...]",
		Short: "Build the distributions of a project",
		Long: `Build the named packages of the project, or the packages it builds by
default when none are named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, opts, err := loadOptions(cmd, distro.CommandBuild, args)
			if err != nil {
				return err
			}
			return runPipeline(cmd, v, opts)
		},
	}
	cmd.Flags().String("output-dir", "", "directory the distributions are written to (default the project destination)")
	cmd.Flags().Bool("fresh", false, "clear the temporary directory before building")
	cmd.Flags().Bool("force-recompile", false, "recompile every script of the game")
	cmd.Flags().Bool("no-update", false, "do not include update information")
	return cmd
}
