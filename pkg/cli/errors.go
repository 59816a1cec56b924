package cli

import (
	"errors"
	"fmt"

	"mercator-hq/pollgate/pkg/client"
	"mercator-hq/pollgate/pkg/config"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitGaveUp  = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Path    string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Path != "" && e.Field != "":
		return fmt.Sprintf("config error in %s (%s): %s", e.Field, e.Path, e.Message)
	case e.Field != "":
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	case e.Path != "":
		return fmt.Sprintf("config error in %s: %s", e.Path, e.Message)
	default:
		return "config error: " + e.Message
	}
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// ConfigErrors turns a configuration loading error into one ConfigError per
// invalid field. Errors that are not validation errors become a single
// ConfigError for the file.
func ConfigErrors(path string, err error) []*ConfigError {
	if err == nil {
		return nil
	}

	var verr config.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) == 0 {
		return []*ConfigError{{Path: path, Message: err.Error()}}
	}

	out := make([]*ConfigError, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		out = append(out, &ConfigError{Path: path, Field: fe.Field, Message: fe.Message})
	}
	return out
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cerr *ConfigError
	var verr config.ValidationError
	switch {
	case errors.As(err, &cerr), errors.As(err, &verr):
		return ExitConfig
	case errors.Is(err, client.ErrGaveUp):
		return ExitGaveUp
	default:
		return ExitFailure
	}
}
