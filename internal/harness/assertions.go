package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/queryir"
)

// Assertion types reported in AssertionError.Type.
const (
	AssertIdentities = "identities"
	AssertCount      = "count"
	AssertError      = "error"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Query    string
	Backend  string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s (query %s on %s)\n", e.Type, e.Query, e.Backend)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpectation compares one backend's outcome with the query's
// expectation. err is the error the query failed with, if any.
func checkExpectation(qc QueryCase, o Outcome, err error) []error {
	fail := func(typ, expected, actual string) *AssertionError {
		return &AssertionError{Type: typ, Query: qc.Name, Backend: o.Backend, Expected: expected, Actual: actual}
	}

	want := qc.Expect
	if want.Error != "" {
		switch {
		case err == nil:
			return []error{fail(AssertError, want.Error, fmt.Sprintf("success with %v", o.Identities))}
		case string(queryir.Code(err)) != want.Error:
			return []error{fail(AssertError, want.Error, err.Error())}
		}
		return nil
	}
	if err != nil {
		return []error{fail(AssertError, "success", err.Error())}
	}

	var errs []error
	if want.Identities != nil {
		got, exp := o.Identities, want.Identities
		what := "identities in order"
		if len(qc.OrderBy) == 0 {
			got, exp = sorted(got), sorted(exp)
			what = "identities in any order"
		}
		if !slices.Equal(got, exp) {
			errs = append(errs, fail(AssertIdentities, fmt.Sprintf("%s %v", what, want.Identities), fmt.Sprintf("%v", o.Identities)))
		}
	}
	if want.Count != nil && *want.Count != o.Count {
		errs = append(errs, fail(AssertCount, fmt.Sprintf("%d", *want.Count), fmt.Sprintf("%d", o.Count)))
	}
	return errs
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}
