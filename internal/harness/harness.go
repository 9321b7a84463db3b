package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"go.uber.org/multierr"

	"github.com/roach88/shapeq/internal/compiler"
	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/finder"
	"github.com/roach88/shapeq/internal/indexstore"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/querysparql"
	"github.com/roach88/shapeq/internal/querysql"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/sparqlclient"
	"github.com/roach88/shapeq/internal/store"
	"github.com/roach88/shapeq/internal/template"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	endpoint string
	update   string
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSPARQLEndpoint sets the endpoints the sparql backend queries and
// loads the fixture into. The graph should start out empty. An empty
// updateURL sends updates to queryURL.
func WithSPARQLEndpoint(queryURL, updateURL string) Option {
	return func(c *config) {
		if updateURL == "" {
			updateURL = queryURL
		}
		c.endpoint, c.update = queryURL, updateURL
	}
}

// Harness holds the backends of one scenario run.
type Harness struct {
	reg      *shape.Registry
	finder   *finder.Finder
	sources  map[string]finder.DataSource
	backends []string
	closers  []io.Closer
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets fresh backends: an in-memory collection, an in-memory
// badger index and an in-memory SQLite store, plus the SPARQL endpoint when
// one is configured and the scenario asks for it. Every query runs on
// every backend and its results are checked against the expectation.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg, err := compiler.LoadDir(scenario.Shapes)
	if err != nil {
		return nil, fmt.Errorf("failed to load shapes: %w", err)
	}
	records, err := scenario.Records(reg)
	if err != nil {
		return nil, err
	}

	h, err := newHarness(ctx, reg, records, scenario.backends(), cfg)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	result := NewResult(scenario.Name)
	for _, qc := range scenario.Queries {
		h.runQuery(ctx, qc, result)
	}
	return result, nil
}

// Records normalizes the fixture entities against reg.
func (s *Scenario) Records(reg *shape.Registry) ([]entity.Record, error) {
	out := make([]entity.Record, len(s.Entities))
	for i, e := range s.Entities {
		state, err := ir.FromGo(map[string]any(e.State))
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Identity, err)
		}
		obj, ok := state.(ir.IRObject)
		if !ok {
			obj = ir.IRObject{}
		}
		r, err := entity.Normalize(reg, entity.Record{ID: e.Identity, Type: e.Shape, State: obj})
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Identity, err)
		}
		out[i] = r
	}
	return out, nil
}

func newHarness(ctx context.Context, reg *shape.Registry, records []entity.Record, backends []string, cfg config) (h *Harness, err error) {
	h = &Harness{
		reg:      reg,
		finder:   finder.New(finder.WithLogger(cfg.logger), finder.WithRegistry(reg)),
		sources:  make(map[string]finder.DataSource, len(backends)),
		backends: backends,
		logger:   cfg.logger,
	}
	defer func() {
		if err != nil {
			h.Close()
		}
	}()

	set := entity.NewSet(records...)
	for _, b := range backends {
		switch b {
		case BackendMemory:
			all := make([]entity.Entity, len(records))
			for i, r := range records {
				all[i] = r
			}
			h.sources[b] = finder.Collection{Entities: all, Resolver: set}

		case BackendIndex:
			x, err := indexstore.Open("", reg, indexstore.InMemory())
			if err != nil {
				return nil, fmt.Errorf("failed to open index: %w", err)
			}
			h.closers = append(h.closers, x)
			if _, err := x.Put(records...); err != nil {
				return nil, fmt.Errorf("failed to load index: %w", err)
			}
			h.sources[b] = finder.Index{Index: x}

		case BackendSQLite:
			st, err := store.Open(":memory:", reg)
			if err != nil {
				return nil, fmt.Errorf("failed to create in-memory store: %w", err)
			}
			h.closers = append(h.closers, st)
			if _, err := st.Put(ctx, records...); err != nil {
				return nil, fmt.Errorf("failed to load store: %w", err)
			}
			h.sources[b] = finder.StoreSource(st)

		case BackendSPARQL:
			if cfg.endpoint == "" {
				return nil, fmt.Errorf("backend %s needs a SPARQL endpoint", b)
			}
			client := sparqlclient.New(cfg.endpoint, sparqlclient.WithUpdateEndpoint(cfg.update))
			insert, err := querysparql.InsertData(reg, records...)
			if err != nil {
				return nil, err
			}
			if err := client.Update(ctx, insert); err != nil {
				return nil, fmt.Errorf("failed to load graph: %w", err)
			}
			h.sources[b] = finder.Graph{Client: client, Loader: finder.LoaderFunc(
				func(_ context.Context, id string) (entity.Entity, error) {
					e, ok := set.Resolve(id)
					if !ok {
						return nil, fmt.Errorf("unknown identity %s", id)
					}
					return e, nil
				})}
		}
		h.logger.Info("backend ready", "backend", b, "entities", len(records))
	}
	return h, nil
}

// Close releases every backend.
func (h *Harness) Close() error {
	var err error
	for _, c := range slices.Backward(h.closers) {
		err = multierr.Append(err, c.Close())
	}
	h.closers = nil
	return err
}

// Spec builds the Specification of a query case.
func Spec(reg *shape.Registry, qc QueryCase) (query.Specification, error) {
	t, err := template.For(reg, qc.Shape)
	if err != nil {
		return query.Specification{}, err
	}
	b := query.NewBuilder(reg, qc.Shape)
	if qc.Where != nil {
		p, err := qc.Where.Predicate(t)
		if err != nil {
			return query.Specification{}, err
		}
		b = b.Where(p)
	}
	for _, o := range qc.OrderBy {
		ref, err := resolvePath(t, o.Path)
		if err != nil {
			return query.Specification{}, err
		}
		dir := queryir.Ascending
		if o.Desc {
			dir = queryir.Descending
		}
		ob, err := query.OrderBy(ref, dir)
		if err != nil {
			return query.Specification{}, err
		}
		b = b.OrderBy(ob)
	}
	if qc.First != nil {
		b = b.FirstResult(*qc.First)
	}
	if qc.Max != nil {
		b = b.MaxResults(*qc.Max)
	}
	return b.Build()
}

func (h *Harness) runQuery(ctx context.Context, qc QueryCase, result *Result) {
	spec, err := Spec(h.reg, qc)
	if err != nil {
		// Build errors happen before any backend is consulted.
		for _, b := range h.backends {
			h.record(qc, Outcome{Query: qc.Name, Backend: b}, err, result)
		}
		return
	}
	result.Renders = append(result.Renders, render(qc.Name, spec, qc.Variables))

	for _, b := range h.backends {
		src := h.sources[b]
		o := Outcome{Query: qc.Name, Backend: b}

		res, err := h.finder.Execute(ctx, spec, src, qc.Variables)
		if err == nil {
			o.Identities, err = res.Identities()
		}
		if err == nil {
			o.Count, err = h.finder.Count(ctx, spec, src, qc.Variables)
		}
		h.record(qc, o, err, result)
	}
}

func (h *Harness) record(qc QueryCase, o Outcome, err error, result *Result) {
	if err != nil {
		o.Error = string(queryir.Code(err))
		if o.Error == "" {
			o.Error = err.Error()
		}
	}
	if o.Identities == nil {
		o.Identities = []string{}
	}
	result.Outcomes = append(result.Outcomes, o)
	for _, ae := range checkExpectation(qc, o, err) {
		h.logger.Warn("assertion failed", "query", qc.Name, "backend", o.Backend, "error", ae)
		result.AddError(ae.Error())
	}
}

func render(name string, spec query.Specification, vars query.Bindings) Render {
	r := Render{Query: name, Params: []any{}}
	st, err := querysql.NewCompiler(querysql.SQLite{}).Compile(spec, vars)
	if err != nil {
		r.SQL, r.CountSQL = err.Error(), err.Error()
	} else {
		r.SQL, r.CountSQL = st.SQL, st.CountSQL
		if st.Params != nil {
			r.Params = st.Params
		}
	}
	if r.SPARQL, err = querysparql.Translate(spec, vars); err != nil {
		r.SPARQL = err.Error()
	}
	return r
}
