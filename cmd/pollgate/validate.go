package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/pollgate/pkg/cli"
	"mercator-hq/pollgate/pkg/config"
)

var validateFlags struct {
	format string
	print  bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and environment overrides, and
report every invalid field.

Examples:
  # Validate the file given by --config
  pollgate validate --config pollgate.yaml

  # Validate a file and print the effective configuration
  pollgate validate pollgate.yaml --print

  # Machine readable report
  pollgate validate pollgate.yaml --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, yaml")
	validateCmd.Flags().BoolVar(&validateFlags.print, "print", false, "print the effective configuration")
}

// ValidationReport is the structured output of pollgate validate.
type ValidationReport struct {
	File   string            `json:"file" yaml:"file"`
	Valid  bool              `json:"valid" yaml:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty" yaml:"errors,omitempty"`
	Config *config.Config    `json:"config,omitempty" yaml:"config,omitempty"`
}

// ValidationIssue is one invalid field.
type ValidationIssue struct {
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return cli.NewConfigError("", "no configuration file given (use --config or an argument)")
	}

	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, loadErr := config.LoadConfigWithEnvOverrides(path)
	issues := cli.ConfigErrors(path, loadErr)

	report := ValidationReport{File: path, Valid: loadErr == nil}
	for _, issue := range issues {
		report.Errors = append(report.Errors, ValidationIssue{Field: issue.Field, Message: issue.Message})
	}
	if validateFlags.print && cfg != nil {
		report.Config = cfg
	}

	if err := cli.Render(stdout(cmd), format, report); err != nil {
		return err
	}

	if len(issues) > 0 {
		return issues[0]
	}
	return nil
}

// WriteText prints the report for people: a check mark line, then either
// the effective configuration or one line per invalid field.
func (r ValidationReport) WriteText(w io.Writer) error {
	if r.Valid {
		fmt.Fprintf(w, "✓ %s is valid\n", r.File)
		if r.Config == nil {
			return nil
		}
		fmt.Fprintln(w)
		return cli.Render(w, cli.FormatYAML, r.Config)
	}

	fmt.Fprintf(w, "✗ %s is invalid:\n", r.File)
	for _, issue := range r.Errors {
		if issue.Field != "" {
			fmt.Fprintf(w, "  - %s: %s\n", issue.Field, issue.Message)
		} else {
			fmt.Fprintf(w, "  - %s\n", issue.Message)
		}
	}
	return nil
}
