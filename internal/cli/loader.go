package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shapeq/internal/compiler"
	"github.com/roach88/shapeq/internal/shape"
)

// LoadResult contains the shapes loaded from a directory.
type LoadResult struct {
	Descriptors []*shape.Descriptor
	Registry    *shape.Registry // nil when validation failed
	Cycles      []compiler.ShapeCycle
	FileCount   int // Number of CUE files found
}

// LoadError represents an error that occurred during shape loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadShapes loads, compiles and validates the CUE shapes in dir.
//
// A nil result means the directory could not be loaded or compiled at all.
// Otherwise every validation error is returned alongside the result, and
// Registry is set only when there are none.
func LoadShapes(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("shapes directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing shapes directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	descriptors, err := compiler.CompileShapes(value)
	if err != nil {
		return nil, []error{convertCompileError(err)}
	}

	result := &LoadResult{
		Descriptors: descriptors,
		Cycles:      compiler.AnalyzeCycles(descriptors),
		FileCount:   len(cueFiles),
	}

	var errs []error
	for _, ve := range compiler.Validate(descriptors) {
		errs = append(errs, ve)
	}
	if len(errs) > 0 {
		return result, errs
	}

	if result.Registry, err = shape.NewRegistry(descriptors...); err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	return result, nil
}

// loadRegistry loads the shapes in dir and fails on the first problem.
func loadRegistry(dir string) (*shape.Registry, error) {
	if dir == "" {
		return nil, NewExitError(ExitCommandError, "no shapes directory: set --shapes or shapes in the config file")
	}
	result, errs := LoadShapes(dir)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load shapes", errors.Join(errs...))
	}
	return result.Registry, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeCompileFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
// Shape validation codes (E101-E109) come from the compiler package.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeCompileFailed = "E008" // Shape declaration does not compile
)
