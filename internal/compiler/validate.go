package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// Validation error codes (E100-E199)
const (
	ErrShapeNameInvalid    = "E101" // shape name must be an identifier
	ErrDuplicateShape      = "E102" // shape declared twice
	ErrDuplicateAccessor   = "E103" // accessor declared twice on one shape
	ErrAccessorNameInvalid = "E104" // accessor name must be an identifier
	ErrInvalidValueType    = "E105" // unsupported value kind
	ErrUnknownTarget       = "E106" // association targets an undeclared shape
	ErrUnknownSupertype    = "E107" // extends names an undeclared shape
	ErrUnknownValueShape   = "E108" // value object names an undeclared shape
	ErrExtendsCycle        = "E109" // shape inherits from itself
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of descriptors as a whole.
// Returns all errors found (does not fail-fast).
func Validate(descriptors []*shape.Descriptor) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(descriptors))
	for i, d := range descriptors {
		field := fmt.Sprintf("shape[%d]", i)
		if !identPattern.MatchString(d.Name) {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("invalid shape name %q", d.Name),
				Code:    ErrShapeNameInvalid,
			})
		}
		if declared[d.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate shape name: %q", d.Name),
				Code:    ErrDuplicateShape,
			})
		}
		declared[d.Name] = true
	}

	for _, d := range descriptors {
		errs = append(errs, validateDescriptor(d, declared)...)
	}

	for _, c := range AnalyzeCycles(descriptors) {
		if c.Level == LevelError {
			errs = append(errs, ValidationError{
				Field:   c.Path[0] + ".extends",
				Message: c.Message,
				Code:    ErrExtendsCycle,
			})
		}
	}

	return errs
}

func validateDescriptor(d *shape.Descriptor, declared map[string]bool) []ValidationError {
	var errs []ValidationError

	for _, super := range d.Extends {
		if !declared[super] {
			errs = append(errs, ValidationError{
				Field:   d.Name + ".extends",
				Message: fmt.Sprintf("unknown supertype %q", super),
				Code:    ErrUnknownSupertype,
			})
		}
	}

	names := make(map[string]bool, len(d.Accessors))
	for _, a := range d.Accessors {
		field := d.Name + "." + a.Name
		if !identPattern.MatchString(a.Name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid accessor name %q", a.Name),
				Code:    ErrAccessorNameInvalid,
			})
		}
		if names[a.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate accessor name: %q", a.Name),
				Code:    ErrDuplicateAccessor,
			})
		}
		names[a.Name] = true

		if a.Kind.IsAssociation() {
			if !declared[a.Target] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("%s targets unknown shape %q", a.Kind, a.Target),
					Code:    ErrUnknownTarget,
				})
			}
			continue
		}

		switch {
		case a.Value.IsValueObject():
			if !declared[a.Value.Shape] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unknown value shape %q", a.Value.Shape),
					Code:    ErrUnknownValueShape,
				})
			}
		case a.Value.IsCollection():
			if !isScalarKind(a.Value.Elem) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unsupported collection element kind %s", a.Value.Elem),
					Code:    ErrInvalidValueType,
				})
			}
		case !isScalarKind(a.Value.Kind):
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unsupported value kind %s", a.Value.Kind),
				Code:    ErrInvalidValueType,
			})
		}
	}

	return errs
}

func isScalarKind(k ir.Kind) bool {
	switch k {
	case ir.KindString, ir.KindInt, ir.KindFloat, ir.KindBool, ir.KindTime, ir.KindEntity:
		return true
	}
	return false
}

// identPattern matches shape and accessor names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
