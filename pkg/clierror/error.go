package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes
const (
	ExitSuccess     = 0 // Operation completed successfully
	ExitGeneral     = 1 // Unknown/unhandled error
	ExitUsage       = 2 // Bad flags or arguments
	ExitConfig      = 3 // Configuration could not be loaded or is invalid
	ExitNotFound    = 4 // Status log or database doesn't exist
	ExitUnavailable = 5 // Listener or sink could not be opened
)

// Error codes (strings) for programmatic error handling
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeLogNotFound     = "LOG_NOT_FOUND"
	CodeLogUnreadable   = "LOG_UNREADABLE"
	CodeSinkUnavailable = "SINK_UNAVAILABLE"
	CodeListenFailed    = "LISTEN_FAILED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// InvalidArgument creates an error for a bad flag or argument value.
func InvalidArgument(format string, args ...interface{}) *CLIError {
	return &CLIError{
		Code:     CodeInvalidArgument,
		Message:  fmt.Sprintf(format, args...),
		Hint:     "Run with --help to see accepted values",
		ExitCode: ExitUsage,
	}
}

// ConfigInvalid creates an error for a configuration that failed to load or validate.
func ConfigInvalid(err error) *CLIError {
	return &CLIError{
		Code:     CodeConfigInvalid,
		Message:  fmt.Sprintf("invalid configuration: %s", err),
		Hint:     "Check the --config file and KEYISSUER_* environment variables",
		ExitCode: ExitConfig,
	}
}

// LogNotFound creates an error when the status log or database is missing.
func LogNotFound(path string) *CLIError {
	return &CLIError{
		Code:     CodeLogNotFound,
		Message:  fmt.Sprintf("status log '%s' not found", path),
		Hint:     "Pass --file or --db pointing at the log written by 'keyissuer serve'",
		ExitCode: ExitNotFound,
	}
}

// LogUnreadable creates an error for a status log that exists but cannot be parsed.
func LogUnreadable(path string, err error) *CLIError {
	return &CLIError{
		Code:     CodeLogUnreadable,
		Message:  fmt.Sprintf("cannot read status log '%s': %s", path, err),
		ExitCode: ExitGeneral,
	}
}

// SinkUnavailable creates an error when a status sink cannot be opened at startup.
func SinkUnavailable(name string, err error) *CLIError {
	return &CLIError{
		Code:      CodeSinkUnavailable,
		Message:   fmt.Sprintf("cannot open %s: %s", name, err),
		Hint:      "Check that the path exists and is writable by the service user",
		Retryable: true,
		ExitCode:  ExitUnavailable,
	}
}

// ListenFailed creates an error when the HTTP listener stops with an error.
func ListenFailed(addr string, err error) *CLIError {
	return &CLIError{
		Code:      CodeListenFailed,
		Message:   fmt.Sprintf("failed to serve on '%s': %s", addr, err),
		Hint:      "Check that the address is free and the certificate files are readable",
		Retryable: true,
		ExitCode:  ExitUnavailable,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:     CodeInternalError,
		Message:  msg,
		ExitCode: ExitGeneral,
	}
}

// From converts any error into a CLIError, wrapping unstructured errors
// as internal errors.
func From(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return InternalError(err)
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable table format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError writes the error to w in the appropriate format.
func PrintError(w io.Writer, err *CLIError, outputFormat string) {
	fmt.Fprintln(w, FormatError(err, outputFormat))
}
