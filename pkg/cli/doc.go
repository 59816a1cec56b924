/*
Package cli provides command-line interface utilities for the pollgate command.

Output Formatting:

Commands print results as text, JSON or YAML:

	if err := cli.Render(os.Stdout, cli.FormatJSON, report); err != nil {
		return err
	}

Text output uses the result's WriteText method when it implements TextWriter.

Progress Reporting:

pollgate fetch reports how long it has been waiting for a protected response:

	finish := cli.NewWaitProgress(os.Stderr, "Waiting", maxWait).Run(ctx, time.Second)
	resp, err := c.Do(req)
	finish(err)

Errors and Exit Codes:

ConfigErrors splits a configuration validation failure into one ConfigError
per field. ExitCode maps command errors to exit codes: 2 for configuration
errors and 3 when a protected request was given up on.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
