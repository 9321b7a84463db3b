// Package namedquery holds catalogs of backend-native queries with
// ${variable} placeholders. Compose binds the variables and appends
// ordering and row limiting in the target backend's syntax.
package namedquery

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/querysparql"
	"github.com/roach88/shapeq/internal/querysql"
)

// Backend is the language a named query is written in.
type Backend string

// Supported backends.
const (
	SQL    Backend = "sql"
	SPARQL Backend = "sparql"
)

// ErrUnknownQuery is returned by Compose for a name not in the catalog.
var ErrUnknownQuery = errors.New("unknown named query")

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Query is one catalog entry. Text selects entity identities: as the only
// column for SQL, as ?identity for SPARQL.
type Query struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Backend     Backend  `yaml:"backend"`
	Text        string   `yaml:"text"`
	Variables   []string `yaml:"variables,omitempty"`
}

// Order is one ordering term in backend syntax: a column expression for
// SQL, a variable such as ?name for SPARQL.
type Order struct {
	Expr       string
	Descending bool
}

// Composed is a named query ready to run.
type Composed struct {
	Name    string
	Backend Backend
	Text    string
	// Params holds SQL parameters in placeholder order. Always empty for
	// SPARQL, where values are rendered inline.
	Params []any
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithDialect sets the SQL dialect used for placeholders and row
// limiting. Default: SQLite.
func WithDialect(d querysql.Dialect) Option {
	return func(c *Catalog) { c.dialect = d }
}

// Catalog is a validated set of named queries.
type Catalog struct {
	queries []Query
	byName  map[string]int
	dialect querysql.Dialect
}

type catalogFile struct {
	Queries []Query `yaml:"queries"`
}

// Load reads a catalog file.
func Load(path string, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes and validates a YAML catalog. Unknown fields are
// rejected.
func Parse(data []byte, opts ...Option) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(f.Queries, opts...)
}

// New validates queries and builds a Catalog from them.
func New(queries []Query, opts ...Option) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(queries)), dialect: querysql.SQLite{}}
	for _, opt := range opts {
		opt(c)
	}
	for i, q := range queries {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		if _, dup := c.byName[q.Name]; dup {
			return nil, fmt.Errorf("query %d: duplicate name %q", i, q.Name)
		}
		c.byName[q.Name] = i
	}
	c.queries = queries
	return c, nil
}

func validate(q Query) error {
	if q.Name == "" {
		return errors.New("name is required")
	}
	if q.Backend != SQL && q.Backend != SPARQL {
		return fmt.Errorf("%s: backend must be %q or %q, got %q", q.Name, SQL, SPARQL, q.Backend)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%s: text is required", q.Name)
	}
	declared := make(map[string]bool, len(q.Variables))
	for _, v := range q.Variables {
		declared[v] = true
	}
	for _, m := range placeholder.FindAllStringSubmatch(q.Text, -1) {
		if !declared[m[1]] {
			return fmt.Errorf("%s: placeholder ${%s} is not declared in variables", q.Name, m[1])
		}
	}
	return nil
}

// Names lists the catalog's queries in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.queries))
	for i, q := range c.queries {
		names[i] = q.Name
	}
	return names
}

// Lookup returns the query called name.
func (c *Catalog) Lookup(name string) (Query, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Query{}, false
	}
	return c.queries[i], true
}

// Compose binds vars into the named query and appends orderBy and row
// limiting. A negative first or limit means "not set". Every declared
// variable must be bound.
func (c *Catalog) Compose(name string, vars query.Bindings, orderBy []Order, first, limit int) (Composed, error) {
	q, ok := c.Lookup(name)
	if !ok {
		return Composed{}, fmt.Errorf("%w: %s", ErrUnknownQuery, name)
	}
	values := make(map[string]ir.IRValue, len(q.Variables))
	for _, v := range q.Variables {
		raw, ok := vars[v]
		if !ok {
			return Composed{}, queryir.NewUnboundVariableError(v)
		}
		val, err := ir.FromGo(raw)
		if err != nil {
			return Composed{}, fmt.Errorf("%s: variable %s: %w", name, v, err)
		}
		values[v] = val
	}

	out := Composed{Name: name, Backend: q.Backend}
	var err error
	switch q.Backend {
	case SQL:
		out.Text, out.Params, err = c.sql(q.Text, values, orderBy, first, limit)
	case SPARQL:
		out.Text, err = sparql(q.Text, values, orderBy, first, limit)
	}
	if err != nil {
		return Composed{}, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (c *Catalog) sql(text string, values map[string]ir.IRValue, orderBy []Order, first, limit int) (string, []any, error) {
	var params []any
	var bindErr error
	text = placeholder.ReplaceAllStringFunc(strings.TrimSpace(text), func(m string) string {
		p, err := querysql.Param(values[placeholder.FindStringSubmatch(m)[1]])
		if err != nil && bindErr == nil {
			bindErr = err
		}
		params = append(params, p)
		return c.dialect.Placeholder(len(params))
	})
	if bindErr != nil {
		return "", nil, bindErr
	}
	if len(orderBy) > 0 {
		terms := make([]string, len(orderBy))
		for i, o := range orderBy {
			terms[i] = c.dialect.OrderTerm(o.Expr, false, o.Descending)
		}
		text += " ORDER BY " + strings.Join(terms, ", ")
	}
	return c.dialect.Paginate(text, first, limit, first >= 0, limit >= 0), params, nil
}

func sparql(text string, values map[string]ir.IRValue, orderBy []Order, first, limit int) (string, error) {
	var bindErr error
	text = placeholder.ReplaceAllStringFunc(strings.TrimSpace(text), func(m string) string {
		lit, err := querysparql.Literal(values[placeholder.FindStringSubmatch(m)[1]])
		if err != nil && bindErr == nil {
			bindErr = err
		}
		return lit
	})
	if bindErr != nil {
		return "", bindErr
	}
	if !strings.Contains(strings.ToUpper(text), "PREFIX ") {
		text = querysparql.Prefixes() + text
	}

	var b strings.Builder
	b.WriteString(text)
	if len(orderBy) > 0 {
		b.WriteString("\nORDER BY")
		for _, o := range orderBy {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			fmt.Fprintf(&b, " %s(%s)", dir, o.Expr)
		}
	}
	if first >= 0 {
		b.WriteString("\nOFFSET " + strconv.Itoa(first))
	}
	if limit >= 0 {
		b.WriteString("\nLIMIT " + strconv.Itoa(limit))
	}
	return b.String(), nil
}
