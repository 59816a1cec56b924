package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/pollgate/pkg/cli"
	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/telemetry/tracing"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pollgate",
	Short: "Pollgate - gateway timeout protection for slow HTTP requests",
	Long: `Pollgate keeps slow HTTP requests alive behind gateways that cut idle
connections. Requests tagged with a correlation id that run past the
protection threshold are answered with an interim 204, and the real response
is delivered to a later poll carrying the same id.

Two strategies are available:
  - replay: record the response and replay it into the poll
  - handoff: stream the response straight into the poll's connection`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		tracing.Version = Version
	},
}

// Execute runs the root command and exits with a code describing the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("POLLGATE_CONFIG"), "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file named by --config, or the defaults
// with environment overrides when no file was given, and installs it as the
// global configuration.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, err
		}
		config.SetConfig(cfg)
		return cfg, nil
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	config.SetConfig(cfg)
	return cfg, nil
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func stderr(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stderr
	}
	return cmd.ErrOrStderr()
}
