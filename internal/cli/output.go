package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/typeexpr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Check failure (a case did not match its expectation)
	ExitCommandError = 2 // Command error (bad source, unknown type, missing cache, etc.)
)

// CLI-level error codes. Compile errors keep their diag codes (E2xx).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeReadFailed  = "E006" // File read error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCacheFailed = "E008" // Artifact cache error
	ErrCodeBadCases    = "E009" // Case file could not be decoded
	ErrCodeInternal    = "E299" // Compiler invariant violated
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool

	styles *styles
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E201", "E005", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// styles are the text-mode markers. The renderer is bound to the
// formatter's writer, so non-terminal writers get plain text.
type styles struct {
	ok   lipgloss.Style
	fail lipgloss.Style
	dim  lipgloss.Style
	name lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		ok:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:  r.NewStyle().Foreground(lipgloss.Color("244")),
		name: r.NewStyle().Bold(true).Foreground(lipgloss.Color("36")),
	}
}

func (f *OutputFormatter) style() *styles {
	if f.styles == nil {
		f.styles = newStyles(f.Writer)
	}
	return f.styles
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
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

	// Human-readable error
	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", f.style().fail.Render("Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Mark returns the pass/fail marker for text output.
func (f *OutputFormatter) Mark(ok bool) string {
	if ok {
		return f.style().ok.Render("✓")
	}
	return f.style().fail.Render("✗")
}

// Name styles a type or case name for text output.
func (f *OutputFormatter) Name(s string) string {
	return f.style().name.Render(s)
}

// Dim styles secondary text (paths, keys) for text output.
func (f *OutputFormatter) Dim(s string) string {
	return f.style().dim.Render(s)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err and returns the ExitError the command should return.
// Compile errors keep their diag code; parse errors map to E208 and carry
// their position as details.
func (f *OutputFormatter) Fail(err error) error {
	code, message, details := classify(err)
	_ = f.Error(code, message, details)
	return WrapExitError(ExitCommandError, code, err)
}

// classify extracts a CLI error code, message and details from err.
func classify(err error) (string, string, any) {
	var compileErr *diag.CompileError
	if errors.As(err, &compileErr) {
		return string(compileErr.Code), compileErr.Error(), nil
	}
	if diag.IsInternal(err) {
		return ErrCodeInternal, err.Error(), nil
	}
	var parseErr *typeexpr.ParseError
	if errors.As(err, &parseErr) {
		return string(diag.ErrSourceSyntax), err.Error(), parseErr
	}
	var cliErr *cliError
	if errors.As(err, &cliErr) {
		return cliErr.code, cliErr.Error(), nil
	}
	return ErrCodeGeneric, err.Error(), nil
}

// cliError tags a command-level failure with its CLI error code.
type cliError struct {
	code string
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func withCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}
