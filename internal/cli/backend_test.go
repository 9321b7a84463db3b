package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/namedquery"
	"github.com/roach88/shapeq/internal/query"
)

const scenarioFile = "testdata/scenarios/people.yaml"

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decode unmarshals a successful JSON response's data into v.
func decode(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// loadedStores loads the people scenario into a fresh SQLite store and
// badger index and returns their paths.
func loadedStores(t *testing.T) (db, index string) {
	t.Helper()
	dir := t.TempDir()
	db, index = filepath.Join(dir, "people.db"), filepath.Join(dir, "people.idx")
	_, err := execute(t, "--db", db, "--index", index, "load",
		"--backend", BackendSQLite, "--backend", BackendIndex, scenarioFile)
	require.NoError(t, err)
	return db, index
}

func identities(rows []MatchRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Identity
	}
	return ids
}

// sparqlServer answers every SELECT with ids bound to ?identity, every
// count with len(ids), and records each request body.
type sparqlServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newSPARQLServer(t *testing.T, ids ...string) *sparqlServer {
	t.Helper()
	s := &sparqlServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies = append(s.bodies, string(body))
		s.mu.Unlock()

		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/sparql-update") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		if strings.Contains(string(body), "COUNT(") {
			io.WriteString(w, `{"head":{"vars":["count"]},"results":{"bindings":[{"count":{"type":"literal","value":"`+
				strconv.Itoa(len(ids))+`"}}]}}`)
			return
		}
		rows := make([]string, len(ids))
		for i, id := range ids {
			rows[i] = `{"identity":{"type":"literal","value":"` + id + `"}}`
		}
		io.WriteString(w, `{"head":{"vars":["identity"]},"results":{"bindings":[`+strings.Join(rows, ",")+`]}}`)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *sparqlServer) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"year=1973", "city=Kuala Lumpur", "quoted=\"1973\"", "flag=true", "empty="})
	require.NoError(t, err)
	assert.Equal(t, query.Bindings{
		"year":   1973,
		"city":   "Kuala Lumpur",
		"quoted": "1973",
		"flag":   true,
		"empty":  "",
	}, vars)

	_, err = parseVars([]string{"novalue"})
	assert.ErrorContains(t, err, "want name=value")
	_, err = parseVars([]string{"=1"})
	assert.Error(t, err)
}

func TestParseOrder(t *testing.T) {
	got := parseOrder([]string{`p."year_of_birth":desc`, "?name", "c.name:asc", "a:b"})
	assert.Equal(t, []namedquery.Order{
		{Expr: `p."year_of_birth"`, Descending: true},
		{Expr: "?name"},
		{Expr: "c.name"},
		{Expr: "a:b"},
	}, got)
}

func TestOpenBackendsNeedsLocations(t *testing.T) {
	opts := &RootOptions{}
	for _, name := range []string{BackendSQLite, BackendIndex, BackendSPARQL} {
		_, err := openBackends(opts, nil, name)
		require.Error(t, err, name)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	}

	_, err := openBackends(opts, nil, "oracle")
	assert.ErrorContains(t, err, `unknown backend "oracle"`)
}

func TestOpenBackendsClosesOnError(t *testing.T) {
	reg, err := loadRegistry(shapesDir)
	require.NoError(t, err)
	db := filepath.Join(t.TempDir(), "people.db")

	// The store opens, then the index fails; the store must be released.
	_, err = openBackends(&RootOptions{Database: db}, reg, BackendSQLite, BackendIndex)
	require.Error(t, err)

	b, err := openBackends(&RootOptions{Database: db}, reg, BackendSQLite)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestLoadRegistryWithoutShapes(t *testing.T) {
	_, err := loadRegistry("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--shapes")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
