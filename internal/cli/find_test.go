package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/queryir"
)

func TestFindAcrossBackends(t *testing.T) {
	db, index := loadedStores(t)

	for _, backend := range []string{BackendSQLite, BackendIndex} {
		t.Run(backend, func(t *testing.T) {
			out, err := execute(t, "--db", db, "--index", index, "--format", "json",
				"find", "--backend", backend, scenarioFile, "born_after_1973")
			require.NoError(t, err)

			var result FindResult
			decode(t, out, &result)
			assert.Equal(t, "born_after_1973", result.Query)
			assert.Equal(t, []string{"person-ann", "person-vivian"}, identities(result.Matches))

			ann := result.Matches[0]
			assert.Equal(t, "Person", ann.Shape)
			assert.Equal(t, "Ann Doe", ann.State["name"])
			assert.NotContains(t, ann.State, "password")
		})
	}
}

func TestFindText(t *testing.T) {
	db, _ := loadedStores(t)

	out, err := execute(t, "--db", db, "find", scenarioFile, "born_in_city")
	require.NoError(t, err)
	assert.Contains(t, out, "| person-vivian")
	assert.Contains(t, out, "2 row(s)")
	assert.NotContains(t, out, "secret")
}

func TestFindVarOverridesScenario(t *testing.T) {
	db, index := loadedStores(t)

	out, err := execute(t, "--index", index, "--db", db, "--format", "json",
		"find", "--backend", BackendIndex, "--var", "city=Penang", scenarioFile, "born_in_city")
	require.NoError(t, err)

	var result FindResult
	decode(t, out, &result)
	assert.Equal(t, []string{"person-jack"}, identities(result.Matches))
}

func TestFindCount(t *testing.T) {
	_, index := loadedStores(t)

	out, err := execute(t, "--index", index, "find", "--backend", BackendIndex, "--count", scenarioFile, "born_in_city")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestFindSPARQL(t *testing.T) {
	srv := newSPARQLServer(t, "person-vivian", "person-ann")

	out, err := execute(t, "--endpoint", srv.URL, "--format", "json",
		"find", "--backend", BackendSPARQL, scenarioFile, "born_in_city")
	require.NoError(t, err)

	var result FindResult
	decode(t, out, &result)
	assert.Equal(t, []string{"person-vivian", "person-ann"}, identities(result.Matches))
	assert.Empty(t, result.Matches[0].State)

	reqs := srv.requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0], "Kuala Lumpur")
}

func TestFindUnqueryableAccessor(t *testing.T) {
	db, _ := loadedStores(t)

	out, err := execute(t, "--db", db, "--format", "json", "find", scenarioFile, "password_is_hidden")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(queryir.ErrCodeUnqueryableAccessor), resp.Error.Code)
}

func TestFindUnknownQuery(t *testing.T) {
	db, _ := loadedStores(t)

	_, err := execute(t, "--db", db, "find", scenarioFile, "nobody")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `no query "nobody"`)
}

func TestFindInvalidVar(t *testing.T) {
	_, err := execute(t, "--db", "unused.db", "find", "--var", "city", scenarioFile, "born_in_city")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
