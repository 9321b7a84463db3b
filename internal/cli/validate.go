package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ShapeCycle      `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <shapes-dir>",
		Short: "Validate shapes without writing descriptors",
		Long: `Validate CUE shape declarations.

Checks every shape for unknown supertypes, unknown association targets,
duplicate accessors and inheritance cycles, and warns about recursive
value objects. Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, shapesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadShapes(shapesDir)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, shapesDir)
	for _, d := range loadResult.Descriptors {
		formatter.VerboseLog("Validating shape: %s", d.Name)
	}

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var ve compiler.ValidationError
		if errors.As(err, &ve) {
			validationErrors = append(validationErrors, ve)
			continue
		}
		code, message := parseCompileError(err)
		validationErrors = append(validationErrors, compiler.ValidationError{Field: "load", Message: message, Code: code})
	}

	var warnings []compiler.ShapeCycle
	for _, c := range loadResult.Cycles {
		if c.Level == compiler.LevelWarning {
			warnings = append(warnings, c)
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors, warnings)
	}
	return outputValidateSuccess(formatter, warnings)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, warnings []compiler.ShapeCycle) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Warnings: warnings})
	}

	for _, w := range warnings {
		formatter.Warn("%s", w.Message)
	}
	formatter.Pass("All shapes valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, warnings []compiler.ShapeCycle) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs, Warnings: warnings},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Validation failed")
	fmt.Fprintln(formatter.Writer)

	rows := make([][]string, len(errs))
	for i, err := range errs {
		rows[i] = []string{err.Code, err.Field, err.Message}
	}
	formatter.Table([]string{"code", "field", "message"}, rows)
	for _, w := range warnings {
		formatter.Warn("%s", w.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
