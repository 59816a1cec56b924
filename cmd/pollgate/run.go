package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/pollgate/pkg/cli"
	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/server"
	"mercator-hq/pollgate/pkg/telemetry"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	strategy      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"serve"},
	Short:   "Start the pollgate server",
	Long: `Start the pollgate server with the specified configuration.

The server protects every request that carries the initial request header and
answers polls that carry the poll header. Without a configuration file all
defaults apply and the demo endpoint is mounted at /slow.

Examples:
  # Start with defaults
  pollgate run

  # Start with custom config
  pollgate run --config /etc/pollgate/pollgate.yaml

  # Override listen address and strategy
  pollgate run --listen 0.0.0.0:8080 --strategy handoff

  # Validate config without starting server
  pollgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.strategy, "strategy", "", "override protection strategy (replay, handoff)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.strategy != "" {
		cfg.Protection.Strategy = runFlags.strategy
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	out := stdout(cmd)

	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	tel, err := telemetry.New(&cfg.Telemetry)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	srv, err := server.NewServer(cfg, tel,
		server.WithConfigPath(cfgFile),
		server.WithBuildInfo(Version, GitCommit, BuildDate),
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	printBanner(out, cfg)

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Pollgate v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(w, "Configuration: %s\n", cfgFile)
	} else {
		fmt.Fprintln(w, "Configuration: defaults")
	}

	p := cfg.Protection
	if p.Enabled {
		fmt.Fprintf(w, "✓ Protection: %s (threshold %s, long poll %s, fail timeout %s)\n",
			p.Strategy, p.Threshold, p.LongPollTime, p.FailTimeout)
	} else {
		fmt.Fprintln(w, "✗ Protection disabled")
	}
	if l := cfg.Limits; l.Enabled {
		fmt.Fprintf(w, "✓ Limits: %g polls/s per client (burst %d), max originals %d\n",
			l.PollsPerSecond, l.PollBurst, l.MaxConcurrentOriginals)
	}
	if cfg.Demo.Enabled {
		fmt.Fprintf(w, "✓ Demo endpoint: http://%s%s?delay=30s\n", cfg.Server.ListenAddress, cfg.Demo.Path)
	}
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(w, "✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintf(w, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")
}
