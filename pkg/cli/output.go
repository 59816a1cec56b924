package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how a command prints its result.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	// FormatYAML matches the layout of configuration files.
	FormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: must be text, json or yaml", s)
	}
}

// TextWriter is implemented by command results that have a human readable
// rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// Render writes v to w in format. JSON is indented by two spaces. Text uses
// v's WriteText method when it has one and fmt's default formatting
// otherwise.
func Render(w io.Writer, format OutputFormat, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	if tw, ok := v.(TextWriter); ok {
		return tw.WriteText(w)
	}
	_, err := fmt.Fprintln(w, v)
	return err
}
