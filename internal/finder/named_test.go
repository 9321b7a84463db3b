package finder

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/namedquery"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/sparqlclient"
	"github.com/roach88/shapeq/internal/testutil"
)

const catalogYAML = `
queries:
  - name: bornIn
    backend: sql
    text: |
      SELECT p."identity" FROM "person" p
      JOIN "city" c ON c."identity" = p."place_of_birth"
      WHERE c."name" = ${city}
    variables: [city]
  - name: bornAfter
    backend: sparql
    text: |
      SELECT DISTINCT ?identity
      WHERE {
        ?entity api:identity ?identity .
        ?entity ns:yearOfBirth ?year .
        FILTER (?year > ${year})
      }
    variables: [year]
`

func TestExecuteNamedSQL(t *testing.T) {
	cat, err := namedquery.Parse([]byte(catalogYAML))
	require.NoError(t, err)
	q, err := cat.Compose("bornIn", query.Bindings{"city": "Kuala Lumpur"},
		[]namedquery.Order{{Expr: `p."year_of_birth"`, Descending: true}}, -1, 2)
	require.NoError(t, err)

	res, err := newFinder().ExecuteNamed(context.Background(), q, sqlSource(t))
	require.NoError(t, err)
	assert.Equal(t, []string{`"Vivian Smith"`, `"Joe Doe"`}, names(t, res))
}

func TestExecuteNamedSPARQL(t *testing.T) {
	var calls atomic.Int32
	srv := sparqlEndpoint(t, []string{testutil.Joe}, &calls)

	cat, err := namedquery.Parse([]byte(catalogYAML))
	require.NoError(t, err)
	q, err := cat.Compose("bornAfter", query.Bindings{"year": 1980}, nil, -1, -1)
	require.NoError(t, err)

	res, err := newFinder().ExecuteNamed(context.Background(), q, Graph{Client: sparqlclient.New(srv.URL)})
	require.NoError(t, err)
	ids, err := res.Identities()
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.Joe}, ids)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecuteNamedBackendMismatch(t *testing.T) {
	cat, err := namedquery.Parse([]byte(catalogYAML))
	require.NoError(t, err)
	q, err := cat.Compose("bornAfter", query.Bindings{"year": 1980}, nil, -1, -1)
	require.NoError(t, err)

	_, err = newFinder().ExecuteNamed(context.Background(), q, sqlSource(t))
	assert.ErrorContains(t, err, "cannot run on sql/sqlite")

	_, err = newFinder().ExecuteNamed(context.Background(), q, collection())
	assert.Error(t, err)
}
