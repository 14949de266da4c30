package cli

import "fmt"

// ConfigError represents an error in configuration. Field names the
// offending config field; it may be empty when the whole file failed to
// load.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
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

// FlagError reports a flag value the command could not use. Cobra
// validates flag syntax; values with domain meaning, such as instants
// and partition states, are validated by the handlers and reported
// through this type.
type FlagError struct {
	Flag    string
	Value   string
	Message string
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("invalid --%s value %q: %s", e.Flag, e.Value, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewFlagError creates a new FlagError.
func NewFlagError(flag, value, message string) *FlagError {
	return &FlagError{
		Flag:    flag,
		Value:   value,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}
