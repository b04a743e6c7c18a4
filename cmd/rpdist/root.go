package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/odvcencio/rpdist/pkg/distro"
)

// configName is the optional per-project configuration file. It takes the
// same keys as the long flags.
const configName = "rpdist.toml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rpdist",
		Short: "Build distributions of visual novel projects",
		Long: `rpdist classifies the files of a game project and its engine SDK and
packages them for every platform the project targets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("project-dir", "", "path to the game project")
	pf.String("sdk-dir", "", "path to the engine SDK")
	pf.String("tmp-dir", "", "directory for temporary files (default sdk/tmp/<project>)")
	pf.String("log-file", "", "path of the build log (default tmp/build.log)")
	pf.Bool("legacy-build", false, "read the build configuration by launching the game")
	pf.Bool("silent", false, "only print prompts and errors")
	pf.Bool("verbose", false, "print every step of the build")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newBuildInfoCmd())
	return root
}

// loadOptions merges the flags of cmd with RPDIST_ environment variables
// and the configuration file of the project. Flags set on the command
// line win over the environment, which wins over the file.
func loadOptions(cmd *cobra.Command, command string, packages []string) (*viper.Viper, distro.Options, error) {
	v := viper.New()
	v.SetEnvPrefix("RPDIST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var opts distro.Options
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return nil, opts, bindErr
	}

	if dir := v.GetString("project-dir"); dir != "" {
		path := filepath.Join(dir, configName)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return nil, opts, fmt.Errorf("read %s: %w", configName, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, opts, fmt.Errorf("read %s: %w", configName, err)
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return nil, opts, fmt.Errorf("unmarshal options: %w", err)
	}
	opts.Command = command
	opts.Packages = packages
	if err := opts.Validate(); err != nil {
		return nil, opts, err
	}
	return v, opts, nil
}
