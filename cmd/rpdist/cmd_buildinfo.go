package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/rpdist/pkg/distro"
)

func newBuildInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buildinfo",
		Short: "Print the resolved build configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, opts, err := loadOptions(cmd, distro.CommandBuildInfo, nil)
			if err != nil {
				return err
			}
			return runPipeline(cmd, v, opts)
		},
	}
}
