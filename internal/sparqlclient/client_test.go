package sparqlclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identities = `{
  "head": {"vars": ["identity"]},
  "results": {"bindings": [
    {"identity": {"type": "literal", "value": "person-ann"}},
    {},
    {"identity": {"type": "literal", "value": "person-joe"}}
  ]}
}`

// endpoint records the last request and answers with status and body.
type endpoint struct {
	status      int
	body        string
	contentType string
	accept      string
	request     string
	user        string
}

func (e *endpoint) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		data, _ := io.ReadAll(r.Body)
		e.request = string(data)
		e.contentType = r.Header.Get("Content-Type")
		e.accept = r.Header.Get("Accept")
		e.user, _, _ = r.BasicAuth()
		w.Header().Set("Content-Type", acceptResults)
		w.WriteHeader(e.status)
		io.WriteString(w, e.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSelect(t *testing.T) {
	ep := &endpoint{status: http.StatusOK, body: identities}
	c := New(ep.server(t).URL, WithBasicAuth("reader", "secret"))

	res, err := c.Select(context.Background(), "SELECT ?identity WHERE {}")
	require.NoError(t, err)
	assert.Equal(t, []string{"identity"}, res.Vars())
	assert.Len(t, res.Rows(), 3)

	assert.Equal(t, "SELECT ?identity WHERE {}", ep.request)
	assert.Equal(t, contentQuery, ep.contentType)
	assert.Equal(t, acceptResults, ep.accept)
	assert.Equal(t, "reader", ep.user)
}

func TestColumn(t *testing.T) {
	ep := &endpoint{status: http.StatusOK, body: identities}
	c := New(ep.server(t).URL)

	got, err := c.Column(context.Background(), "q", "identity")
	require.NoError(t, err)
	assert.Equal(t, []string{"person-ann", "person-joe"}, got)
}

func TestCount(t *testing.T) {
	ep := &endpoint{status: http.StatusOK, body: `{"head":{"vars":["count"]},"results":{"bindings":[
		{"count":{"type":"literal","datatype":"http://www.w3.org/2001/XMLSchema#integer","value":"4"}}]}}`}
	c := New(ep.server(t).URL)

	n, err := c.Count(context.Background(), "q", "count")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = c.Count(context.Background(), "q", "total")
	assert.ErrorContains(t, err, "?total is unbound")
}

func TestCount_Malformed(t *testing.T) {
	ep := &endpoint{status: http.StatusOK, body: identities}
	c := New(ep.server(t).URL)

	_, err := c.Count(context.Background(), "q", "identity")
	assert.ErrorContains(t, err, "expected 1 row, got 3")
}

func TestUpdate(t *testing.T) {
	ep := &endpoint{status: http.StatusNoContent}
	srv := ep.server(t)
	c := New("http://unused.invalid/query", WithUpdateEndpoint(srv.URL))

	require.NoError(t, c.Update(context.Background(), "INSERT DATA {}"))
	assert.Equal(t, "INSERT DATA {}", ep.request)
	assert.Equal(t, contentUpdate, ep.contentType)
}

func TestStatusError(t *testing.T) {
	ep := &endpoint{status: http.StatusBadRequest, body: "parse error"}
	c := New(ep.server(t).URL)

	_, err := c.Select(context.Background(), "SELEKT")
	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "parse error", se.Body)
	assert.Contains(t, se.Error(), "400 Bad Request")
}

func TestDecodeError(t *testing.T) {
	ep := &endpoint{status: http.StatusOK, body: "<sparql/>"}
	c := New(ep.server(t).URL)

	_, err := c.Select(context.Background(), "q")
	assert.ErrorContains(t, err, "decode results")
}

func TestContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithTimeout(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Select(ctx, "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
