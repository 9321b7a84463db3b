package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPeople(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/people_cities.yaml")
	require.NoError(t, err)
	return s
}

func TestRunPeopleCities(t *testing.T) {
	result, err := Run(context.Background(), loadPeople(t))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Outcomes, 5*len(LocalBackends))
	assert.Len(t, result.Renders, 4, "queries that fail to build have no render")

	for _, o := range result.OutcomesFor("password_is_hidden") {
		assert.Equal(t, "UNQUERYABLE_ACCESSOR", o.Error, o.Backend)
		assert.Empty(t, o.Identities)
	}
	byName := result.OutcomesFor("by_name")
	require.Len(t, byName, 3)
	for _, o := range byName {
		assert.Equal(t, []string{"person-ann", "person-jack", "person-joe", "person-vivian"}, o.Identities, o.Backend)
	}
}

func TestRunWithGolden(t *testing.T) {
	result, err := RunWithGolden(t, loadPeople(t))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRunReportsMismatches(t *testing.T) {
	s := loadPeople(t)
	s.Backends = []string{BackendMemory, BackendSQLite}
	wrongCount := int64(7)
	s.Queries = []QueryCase{
		{
			Name:   "wrong",
			Shape:  "Person",
			Where:  &Node{Op: "ge", Path: "yearOfBirth", Value: 1973},
			Expect: Expectation{Identities: []string{"person-jack"}, Count: &wrongCount},
		},
		{
			Name:   "unbound",
			Shape:  "Person",
			Where:  &Node{Op: "eq", Path: "name", Var: "who"},
			Expect: Expectation{Identities: []string{}},
		},
		{
			Name:   "expected_error_missing",
			Shape:  "Person",
			Expect: Expectation{Error: "UNBOUND_VARIABLE"},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	// wrong: identities and count on two backends; unbound and
	// expected_error_missing: one each per backend.
	assert.Len(t, result.Errors, 8)

	for _, o := range result.OutcomesFor("unbound") {
		assert.Equal(t, "UNBOUND_VARIABLE", o.Error)
	}
}

func TestRunUnboundVariableExpected(t *testing.T) {
	s := loadPeople(t)
	s.Queries = []QueryCase{{
		Name:   "unbound",
		Shape:  "Person",
		Where:  &Node{Op: "eq", Path: "name", Var: "who"},
		Expect: Expectation{Error: "UNBOUND_VARIABLE"},
	}}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunSetupErrors(t *testing.T) {
	s := loadPeople(t)
	s.Shapes = t.TempDir()
	_, err := Run(context.Background(), s)
	assert.ErrorContains(t, err, "failed to load shapes")

	s = loadPeople(t)
	s.Entities[0].Shape = "Planet"
	_, err = Run(context.Background(), s)
	assert.ErrorContains(t, err, "city-kl")

	s = loadPeople(t)
	s.Backends = []string{BackendSPARQL}
	_, err = Run(context.Background(), s)
	assert.ErrorContains(t, err, "needs a SPARQL endpoint")
}
