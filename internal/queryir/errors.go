package queryir

import (
	"errors"
	"fmt"
)

// QueryError represents an error raised while building or executing a query.
//
// Build-time errors (unqueryable accessor, unknown accessor, type mismatch,
// unsupported predicate) are raised by path capture, the predicate
// factories and the translators, before any backend is consulted. Unbound
// variables are raised at translate time. Backend failures wrap the driver
// or transport error in Cause.
type QueryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Shape is the shape the failing accessor was looked up on.
	Shape string

	// Accessor names the offending accessor.
	Accessor string

	// Kind is the predicate node kind (for unsupported predicates).
	Kind string

	// Backend names the translator or data source.
	Backend string

	// Variable names the missing variable (for unbound variables).
	Variable string

	// Cause is the underlying error, if any.
	Cause error
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// ErrCodeUnqueryableAccessor indicates an accessor flagged non-queryable.
	ErrCodeUnqueryableAccessor ErrorCode = "UNQUERYABLE_ACCESSOR"

	// ErrCodeUnknownAccessor indicates a path that does not resolve on its shape.
	ErrCodeUnknownAccessor ErrorCode = "UNKNOWN_ACCESSOR"

	// ErrCodeTypeMismatch indicates an operator applied to an incompatible kind.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnsupportedPredicate indicates a backend cannot render a node kind.
	ErrCodeUnsupportedPredicate ErrorCode = "UNSUPPORTED_PREDICATE"

	// ErrCodeUnboundVariable indicates a variable missing at translate time.
	ErrCodeUnboundVariable ErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeBackendExecution indicates an I/O or driver failure.
	ErrCodeBackendExecution ErrorCode = "BACKEND_EXECUTION"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewUnqueryableAccessorError reports an accessor flagged non-queryable.
func NewUnqueryableAccessorError(shapeName, accessor string) *QueryError {
	return &QueryError{
		Code:     ErrCodeUnqueryableAccessor,
		Message:  fmt.Sprintf("%s.%s is not queryable", shapeName, accessor),
		Shape:    shapeName,
		Accessor: accessor,
	}
}

// NewUnknownAccessorError reports an accessor that does not exist on a shape.
func NewUnknownAccessorError(shapeName, accessor string) *QueryError {
	return &QueryError{
		Code:     ErrCodeUnknownAccessor,
		Message:  fmt.Sprintf("%s has no accessor %q", shapeName, accessor),
		Shape:    shapeName,
		Accessor: accessor,
	}
}

// NewUnknownShapeError reports a shape missing from the registry.
func NewUnknownShapeError(shapeName string) *QueryError {
	return &QueryError{
		Code:    ErrCodeUnknownAccessor,
		Message: fmt.Sprintf("unknown shape %q", shapeName),
		Shape:   shapeName,
	}
}

// NewTypeMismatchError reports an operator or value incompatible with the
// declared type of the accessor.
func NewTypeMismatchError(shapeName, accessor, format string, args ...any) *QueryError {
	return &QueryError{
		Code:     ErrCodeTypeMismatch,
		Message:  fmt.Sprintf("%s.%s: %s", shapeName, accessor, fmt.Sprintf(format, args...)),
		Shape:    shapeName,
		Accessor: accessor,
	}
}

// NewUnsupportedPredicateError reports a node kind a backend cannot render.
func NewUnsupportedPredicateError(kind, backend, reason string) *QueryError {
	msg := fmt.Sprintf("%s is not supported by the %s backend", kind, backend)
	if reason != "" {
		msg += " (" + reason + ")"
	}
	return &QueryError{
		Code:    ErrCodeUnsupportedPredicate,
		Message: msg,
		Kind:    kind,
		Backend: backend,
	}
}

// NewUnboundVariableError reports a variable with no binding.
func NewUnboundVariableError(name string) *QueryError {
	return &QueryError{
		Code:     ErrCodeUnboundVariable,
		Message:  fmt.Sprintf("variable %q is not bound", name),
		Variable: name,
	}
}

// NewBackendExecutionError wraps a failure from a data source.
func NewBackendExecutionError(backend string, cause error) *QueryError {
	return &QueryError{
		Code:    ErrCodeBackendExecution,
		Message: fmt.Sprintf("%s backend failed", backend),
		Backend: backend,
		Cause:   cause,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsUnqueryableAccessor reports whether err is an unqueryable accessor error.
// Uses errors.As to handle wrapped errors.
func IsUnqueryableAccessor(err error) bool { return hasCode(err, ErrCodeUnqueryableAccessor) }

// IsUnknownAccessor reports whether err is an unknown accessor error.
func IsUnknownAccessor(err error) bool { return hasCode(err, ErrCodeUnknownAccessor) }

// IsTypeMismatch reports whether err is a type mismatch error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsUnsupportedPredicate reports whether err is an unsupported predicate error.
func IsUnsupportedPredicate(err error) bool { return hasCode(err, ErrCodeUnsupportedPredicate) }

// IsUnboundVariable reports whether err is an unbound variable error.
func IsUnboundVariable(err error) bool { return hasCode(err, ErrCodeUnboundVariable) }

// IsBackendExecution reports whether err is a backend execution error.
func IsBackendExecution(err error) bool { return hasCode(err, ErrCodeBackendExecution) }

// Code returns the ErrorCode of the first QueryError in err's chain, or ""
// when there is none.
func Code(err error) ErrorCode {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}
