package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Test/validation failure (scenarios failed, invalid shapes, etc.)
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
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
	Color     bool // colorize text output
}

// newFormatter builds the formatter for a command.
func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut, // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		Color:     !color.NoColor && out == colorOutput,
	}
}

// colorOutput is the writer color is enabled for.
var colorOutput io.Writer = color.Output

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
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
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
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
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Table renders rows under headers as a markdown table followed by a row
// count.
func (f *OutputFormatter) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(f.Writer, f.colorize("no rows", color.Faint))
		return
	}

	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	buf := &strings.Builder{}
	table := tablewriter.NewTable(buf,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	fmt.Fprint(f.Writer, buf.String())
	fmt.Fprintln(f.Writer, f.colorize(fmt.Sprintf("%d row(s)", len(rows)), color.FgCyan))
}

// Pass prints a success line.
func (f *OutputFormatter) Pass(format string, args ...any) {
	fmt.Fprintf(f.Writer, "%s %s\n", f.colorize("✓", color.FgGreen), fmt.Sprintf(format, args...))
}

// Fail prints a failure line.
func (f *OutputFormatter) Fail(format string, args ...any) {
	fmt.Fprintf(f.Writer, "%s %s\n", f.colorize("✗", color.FgRed), fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (f *OutputFormatter) Warn(format string, args ...any) {
	fmt.Fprintf(f.Writer, "%s %s\n", f.colorize("⚠", color.FgYellow), fmt.Sprintf(format, args...))
}

// Heading prints a section heading.
func (f *OutputFormatter) Heading(text string) {
	fmt.Fprintln(f.Writer, f.colorize(text, color.Bold))
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.Color {
		return text
	}
	return color.New(attrs...).Sprint(text)
}
