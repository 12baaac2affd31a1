// Command loopmetrics reports tenants, users and events to Loopmetrics
// from the shell, for scripts and CI jobs.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
)

const defaultTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the settings shared by all subcommands. Flags, LOOPMETRICS_*
// environment variables and the config file are merged by viper, in that
// order of precedence.
type app struct {
	v    *viper.Viper
	file *config.File
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "loopmetrics",
		Short:         "Report tenants, users and events to Loopmetrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a .loopmetrics.yaml file (default: search upwards from the working directory)")
	flags.String("api-key", "", "Loopmetrics API key")
	flags.String("base-url", "", "Loopmetrics API base URL")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("identity-backend", "", "where the anonymous user ID is kept: file, badger or memory")
	flags.String("identity-dir", "", "directory for the file and badger identity backends")
	flags.String("geolocation-url", "", "IP geolocation endpoint")
	flags.Bool("disable-geolocation", false, "skip the geolocation lookup")
	flags.Duration("timeout", defaultTimeout, "overall timeout for the command")
	flags.Bool("metrics", false, "print SDK metrics before exiting")

	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix(config.EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newTrackCmd(a),
		newIdentityCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the config file and installs its values as viper defaults,
// so flags and environment variables override it.
func (a *app) load() error {
	file, err := config.LoadFile(a.v.GetString("config"))
	if err != nil {
		return err
	}
	a.file = file

	a.v.SetDefault("api-key", file.APIKey)
	a.v.SetDefault("base-url", file.BaseURL)
	a.v.SetDefault("debug", file.Debug)
	a.v.SetDefault("identity-backend", string(file.Identity.Backend))
	a.v.SetDefault("identity-dir", file.Identity.Path)
	a.v.SetDefault("geolocation-url", file.Geolocation.URL)
	a.v.SetDefault("disable-geolocation", file.Geolocation.Disabled)
	return nil
}
