package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/compiler"
	"github.com/roach88/shapeq/internal/shape"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled shape descriptors.
type CompilationResult struct {
	Shapes []*shape.Descriptor `json:"shapes"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ShapeCount       int
	PropertyCount    int
	AssociationCount int
	HiddenCount      int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <shapes-dir>",
		Short: "Compile CUE shapes to descriptors",
		Long: `Compile CUE shape declarations to shape descriptors.

The compiler parses CUE files, validates the declarations as a whole
and outputs the descriptors as JSON for use by other tools.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, shapesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadShapes(shapesDir)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, shapesDir)
	for _, d := range loadResult.Descriptors {
		formatter.VerboseLog("Compiling shape: %s", d.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Shapes: loadResult.Descriptors}
	stats := calculateStats(result)

	if opts.Output != "" {
		if err := writeDescriptorsToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{ShapeCount: len(result.Shapes)}
	for _, d := range result.Shapes {
		for _, a := range d.Accessors {
			if a.Kind.IsAssociation() {
				stats.AssociationCount++
			} else {
				stats.PropertyCount++
			}
			if !a.Queryable {
				stats.HiddenCount++
			}
		}
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.Pass("Compiled %d shape(s): %d property(ies), %d association(s), %d hidden",
		stats.ShapeCount, stats.PropertyCount, stats.AssociationCount, stats.HiddenCount)
	fmt.Fprintln(formatter.Writer)

	formatter.Table([]string{"shape", "extends", "accessor", "kind", "type", "queryable"}, accessorRows(result.Shapes))

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote descriptors to %s\n", outputFile)
	}

	return nil
}

// accessorRows lists one row per declared accessor.
func accessorRows(descriptors []*shape.Descriptor) [][]string {
	var rows [][]string
	for _, d := range descriptors {
		extends := strings.Join(d.Extends, ", ")
		if len(d.Accessors) == 0 {
			rows = append(rows, []string{d.Name, extends, "", "", "", ""})
			continue
		}
		for _, a := range d.Accessors {
			typ := a.Value.String()
			if a.Kind.IsAssociation() {
				typ = a.Target
			}
			rows = append(rows, []string{d.Name, extends, a.Name, a.Kind.String(), typ, fmt.Sprint(a.Queryable)})
		}
	}
	return rows
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeDescriptorsToFile writes the compilation result to a file as indented JSON.
func writeDescriptorsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling descriptors: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
