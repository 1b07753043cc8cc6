package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // seed rejected by the engine, server error, lost connection
	ExitCommandError = 2 // bad flags, unreadable config or catalog, database won't open
)

// ExitError carries the exit code a command failed with. Execute turns it
// into the process exit status and, with --format json, an error response.
type ExitError struct {
	Code    int
	Reason  string // ErrCode* value for JSON output; empty reports E000
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError fails with code and no underlying error.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError fails with code, keeping err for errors.Is/As.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

func failWith(code int, reason, message string, err error) *ExitError {
	return &ExitError{Code: code, Reason: reason, Message: message, Err: err}
}

// Error codes reported in CLI error responses.
const (
	ErrCodeConfig   = "E001" // config file or environment rejected
	ErrCodeCatalog  = "E002" // catalog file unreadable or fails the schema
	ErrCodeDatabase = "E003" // database could not be opened
	ErrCodeSeed     = "E004" // engine rejected a catalog entry
	ErrCodeServer   = "E005" // server or client stopped with an error
)

// OutputFormatter writes command results as text or as a CLIResponse.
// Results go to Writer; --verbose diagnostics go to ErrWriter.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the envelope every --format json command prints.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success prints data. Text output uses data's String method when it has
// one.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error prints a failure. Text output shows details only with --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.diagnostics(), format+"\n", args...)
}

// diagnostics is ErrWriter, or Writer for text output. JSON output without
// an ErrWriter drops diagnostics so stdout stays one document.
func (f *OutputFormatter) diagnostics() io.Writer {
	switch {
	case f.ErrWriter != nil:
		return f.ErrWriter
	case f.Format == "json":
		return io.Discard
	default:
		return f.Writer
	}
}
