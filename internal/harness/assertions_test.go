package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/queryir"
)

func count(n int64) *int64 { return &n }

func TestCheckExpectationIdentities(t *testing.T) {
	unordered := QueryCase{Name: "q", Expect: Expectation{Identities: []string{"b", "a"}}}
	ordered := QueryCase{Name: "q", OrderBy: []OrderSpec{{Path: "name"}}, Expect: Expectation{Identities: []string{"b", "a"}}}
	o := Outcome{Query: "q", Backend: "memory", Identities: []string{"a", "b"}}

	assert.Empty(t, checkExpectation(unordered, o, nil), "unordered queries compare as sets")

	errs := checkExpectation(ordered, o, nil)
	require.Len(t, errs, 1)
	var ae *AssertionError
	require.ErrorAs(t, errs[0], &ae)
	assert.Equal(t, AssertIdentities, ae.Type)
	assert.Equal(t, "memory", ae.Backend)
	assert.Contains(t, ae.Error(), "identities in order [b a]")
	assert.Contains(t, ae.Error(), "Actual: [a b]")
}

func TestCheckExpectationCount(t *testing.T) {
	qc := QueryCase{Name: "q", Expect: Expectation{Count: count(2)}}
	assert.Empty(t, checkExpectation(qc, Outcome{Count: 2}, nil))

	errs := checkExpectation(qc, Outcome{Count: 3}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Assertion failed: count")
}

func TestCheckExpectationErrors(t *testing.T) {
	unbound := queryir.NewUnboundVariableError("who")
	wantUnbound := QueryCase{Name: "q", Expect: Expectation{Error: "UNBOUND_VARIABLE"}}

	assert.Empty(t, checkExpectation(wantUnbound, Outcome{}, unbound))
	assert.Len(t, checkExpectation(wantUnbound, Outcome{}, nil), 1)
	assert.Len(t, checkExpectation(wantUnbound, Outcome{}, errors.New("disk on fire")), 1)

	noError := QueryCase{Name: "q", Expect: Expectation{Count: count(1)}}
	errs := checkExpectation(noError, Outcome{}, unbound)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Expected: success")
}
