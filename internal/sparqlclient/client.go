// Package sparqlclient talks to a SPARQL 1.1 endpoint over the SPARQL
// Protocol: queries and updates are POSTed directly as
// application/sparql-query and application/sparql-update bodies, and
// SELECT results are read as application/sparql-results+json.
package sparqlclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	contentQuery  = "application/sparql-query"
	contentUpdate = "application/sparql-update"
	acceptResults = "application/sparql-results+json"
)

// Term is one RDF term of a result binding.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Results is a decoded SELECT response.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results"`
}

// Vars returns the projected variable names.
func (r *Results) Vars() []string { return r.Head.Vars }

// Rows returns the solution bindings, one map per row. Unbound variables
// are missing from the map.
func (r *Results) Rows() []map[string]Term { return r.Results.Bindings }

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sparql endpoint: %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithUpdateEndpoint sets a separate URL for updates. By default updates go
// to the query endpoint.
func WithUpdateEndpoint(url string) Option {
	return func(c *Client) { c.updateURL = url }
}

// WithBasicAuth sets HTTP basic credentials.
func WithBasicAuth(user, password string) Option {
	return func(c *Client) { c.http.SetBasicAuth(user, password) }
}

// WithTimeout bounds each request. A context deadline still applies.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.http.SetHeader(key, value) }
}

// Client is a SPARQL Protocol client. It is safe for concurrent use.
type Client struct {
	http      *resty.Client
	queryURL  string
	updateURL string
}

// New returns a Client for the query endpoint at url.
func New(url string, opts ...Option) *Client {
	c := &Client{http: resty.New(), queryURL: url, updateURL: url}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the query endpoint URL.
func (c *Client) Endpoint() string { return c.queryURL }

// Select runs a SELECT query.
func (c *Client) Select(ctx context.Context, query string) (*Results, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentQuery).
		SetHeader("Accept", acceptResults).
		SetBody(query).
		Post(c.queryURL)
	if err != nil {
		return nil, fmt.Errorf("sparql select: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}

	var res Results
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return nil, fmt.Errorf("sparql select: decode results: %w", err)
	}
	return &res, nil
}

// Column runs a SELECT query and returns the values bound to one variable,
// in solution order. Rows where it is unbound are skipped.
func (c *Client) Column(ctx context.Context, query, variable string) ([]string, error) {
	res, err := c.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Rows()))
	for _, row := range res.Rows() {
		if t, ok := row[variable]; ok {
			out = append(out, t.Value)
		}
	}
	return out, nil
}

// Count runs a SELECT query that binds a single integer to variable.
func (c *Client) Count(ctx context.Context, query, variable string) (int64, error) {
	res, err := c.Select(ctx, query)
	if err != nil {
		return 0, err
	}
	rows := res.Rows()
	if len(rows) != 1 {
		return 0, fmt.Errorf("sparql count: expected 1 row, got %d", len(rows))
	}
	t, ok := rows[0][variable]
	if !ok {
		return 0, fmt.Errorf("sparql count: ?%s is unbound", variable)
	}
	n, err := strconv.ParseInt(t.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sparql count: %w", err)
	}
	return n, nil
}

// Update runs a SPARQL Update request.
func (c *Client) Update(ctx context.Context, update string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentUpdate).
		SetBody(update).
		Post(c.updateURL)
	if err != nil {
		return fmt.Errorf("sparql update: %w", err)
	}
	if resp.IsError() {
		return &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
