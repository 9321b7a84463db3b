package finder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/multierr"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/querymem"
	"github.com/roach88/shapeq/internal/querysparql"
	"github.com/roach88/shapeq/internal/querysql"
	"github.com/roach88/shapeq/internal/shape"
)

// ErrNotFound is returned by FindEntity when nothing matches.
var ErrNotFound = errors.New("no matching entity")

// DefaultPlanCacheSize is the number of rendered queries a Finder keeps.
const DefaultPlanCacheSize = 256

// DefaultChunkSize is the number of identities a SQL source with a Loader
// reads before its cursor is closed and the entities are loaded.
const DefaultChunkSize = 256

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Finder) { f.log = l }
}

// WithPlanCacheSize sets how many rendered SQL and SPARQL queries are
// cached. Zero disables the cache.
func WithPlanCacheSize(n int) Option {
	return func(f *Finder) { f.cacheSize = n }
}

// WithChunkSize sets how many identities a SQL source with a Loader reads
// per query. Default: DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(f *Finder) { f.chunkSize = n }
}

// WithRegistry sets the shapes used to match subtypes in memory and to
// check queries built by the EntityFinder methods.
func WithRegistry(reg *shape.Registry) Option {
	return func(f *Finder) { f.reg = reg }
}

// Finder executes Specifications. It is safe for concurrent use; the plan
// cache is its only shared state.
type Finder struct {
	log       *slog.Logger
	reg       *shape.Registry
	cacheSize int
	chunkSize int
	plans     *lru.Cache
}

// New creates a Finder.
func New(opts ...Option) *Finder {
	f := &Finder{log: slog.Default(), cacheSize: DefaultPlanCacheSize}
	for _, opt := range opts {
		opt(f)
	}
	if f.chunkSize <= 0 {
		f.chunkSize = DefaultChunkSize
	}
	if f.cacheSize > 0 {
		f.plans, _ = lru.New(f.cacheSize)
	}
	return f
}

// Execute runs spec against src. Query errors are returned immediately;
// source I/O happens while the Results are iterated.
func (f *Finder) Execute(ctx context.Context, spec query.Specification, src DataSource, vars query.Bindings) (*Results, error) {
	var seq iter.Seq2[Match, error]

	switch s := src.(type) {
	case Collection:
		plan, err := f.memoryPlan(spec, vars, s.Resolver, f.reg)
		if err != nil {
			return nil, err
		}
		seq = func(yield func(Match, error) bool) {
			var scanErr error
			for e := range plan.Apply(f.entities(ctx, s.Entities, &scanErr)) {
				if scanErr != nil {
					break
				}
				if !yield(Match{Identity: e.Identity(), Entity: e}, nil) {
					return
				}
			}
			if scanErr != nil {
				yield(Match{}, f.backendError(src, scanErr))
			}
		}

	case Index:
		plan, err := f.memoryPlan(spec, vars, s.Index.Resolver(), s.Index.Registry())
		if err != nil {
			return nil, err
		}
		seq = func(yield func(Match, error) bool) {
			var scanErr error
			scan := func(yield func(entity.Entity) bool) {
				for e, err := range s.Index.Scan(ctx, spec.ResultShape()) {
					if err != nil {
						scanErr = err
						return
					}
					if !yield(e) {
						return
					}
				}
			}
			for e := range plan.Apply(scan) {
				if !yield(Match{Identity: e.Identity(), Entity: e}, nil) {
					return
				}
			}
			if scanErr != nil {
				yield(Match{}, f.backendError(src, scanErr))
			}
		}

	case SQL:
		if s.Loader == nil {
			st, err := f.statement(spec, vars, s)
			if err != nil {
				return nil, err
			}
			seq = f.streamSQL(ctx, s, st)
			break
		}
		first, n := f.window(spec, 0)
		st, err := f.statement(spec.Window(first, n), vars, s)
		if err != nil {
			return nil, err
		}
		seq = f.chunkSQL(ctx, s, spec, vars, st)

	case Graph:
		q, err := f.sparql(spec, vars, false)
		if err != nil {
			return nil, err
		}
		seq = f.identities(ctx, src, s.Loader, func() ([]string, error) {
			f.log.Debug("executing query", "backend", src.Backend(), "sparql", q)
			return s.Client.Column(ctx, q, "identity")
		})

	default:
		return nil, fmt.Errorf("finder: unsupported data source %T", src)
	}

	return &Results{backend: src.Backend(), seq: seq}, nil
}

// Count returns how many entities match spec, ignoring pagination.
func (f *Finder) Count(ctx context.Context, spec query.Specification, src DataSource, vars query.Bindings) (int64, error) {
	spec = spec.Unpaginated()

	switch s := src.(type) {
	case Collection:
		plan, err := f.memoryPlan(spec, vars, s.Resolver, f.reg)
		if err != nil {
			return 0, err
		}
		var scanErr error
		n := plan.Count(f.entities(ctx, s.Entities, &scanErr))
		if scanErr != nil {
			return 0, f.backendError(src, scanErr)
		}
		return n, nil

	case Index:
		plan, err := f.memoryPlan(spec, vars, s.Index.Resolver(), s.Index.Registry())
		if err != nil {
			return 0, err
		}
		var n int64
		for e, err := range s.Index.Scan(ctx, spec.ResultShape()) {
			if err != nil {
				return 0, f.backendError(src, err)
			}
			if plan.Match(e) {
				n++
			}
		}
		return n, nil

	case SQL:
		st, err := f.statement(spec, vars, s)
		if err != nil {
			return 0, err
		}
		f.log.Debug("executing count", "backend", src.Backend(), "sql", st.CountSQL)
		var n int64
		if err := s.DB.QueryRowContext(ctx, st.CountSQL, st.CountParams...).Scan(&n); err != nil {
			return 0, f.backendError(src, err)
		}
		return n, nil

	case Graph:
		q, err := f.sparql(spec, vars, true)
		if err != nil {
			return 0, err
		}
		f.log.Debug("executing count", "backend", src.Backend(), "sparql", q)
		n, err := s.Client.Count(ctx, q, "count")
		if err != nil {
			return 0, f.backendError(src, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("finder: unsupported data source %T", src)
}

// FindEntity returns the first match of spec, or ErrNotFound.
func (f *Finder) FindEntity(ctx context.Context, spec query.Specification, src DataSource, vars query.Bindings) (Match, error) {
	res, err := f.Execute(ctx, spec.Limit(1), src, vars)
	if err != nil {
		return Match{}, err
	}
	for m, err := range res.All() {
		return m, err
	}
	return Match{}, ErrNotFound
}

func (f *Finder) memoryPlan(spec query.Specification, vars query.Bindings, r entity.Resolver, reg *shape.Registry) (*querymem.Plan, error) {
	opts := []querymem.Option{querymem.WithResolver(r)}
	if reg != nil {
		opts = append(opts, querymem.WithRegistry(reg))
	}
	return querymem.Translate(spec, vars, opts...)
}

// entities yields es until ctx is done, recording the context error in
// *err.
func (f *Finder) entities(ctx context.Context, es []entity.Entity, err *error) iter.Seq[entity.Entity] {
	return func(yield func(entity.Entity) bool) {
		for _, e := range es {
			if *err = ctx.Err(); *err != nil {
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}

// identities yields the identities read by fetch, loading each entity when
// a loader is set.
func (f *Finder) identities(ctx context.Context, src DataSource, loader Loader, fetch func() ([]string, error)) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		ids, err := fetch()
		if err != nil {
			yield(Match{}, f.backendError(src, err))
			return
		}
		for _, id := range ids {
			m := Match{Identity: id}
			if loader != nil {
				if m.Entity, err = loader.Load(ctx, id); err != nil {
					yield(Match{}, f.backendError(src, fmt.Errorf("load %s: %w", id, err)))
					return
				}
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// streamSQL yields identities as the cursor reads them. The cursor and its
// connection are released when the rows run out or the consumer stops.
func (f *Finder) streamSQL(ctx context.Context, s SQL, st querysql.Statement) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		f.log.Debug("executing query", "backend", s.Backend(), "sql", st.SQL, "params", len(st.Params))
		stopped := false
		err := scanIdentities(ctx, s.DB, st, func(id string) bool {
			stopped = !yield(Match{Identity: id}, nil)
			return !stopped
		})
		if err != nil && !stopped {
			yield(Match{}, f.backendError(s, err))
		}
	}
}

// chunkSQL reads at most chunkSize identities per query, closes the cursor,
// then loads and yields those entities before asking for the next window.
// A store behind a single connection can serve both the query and the
// loads this way. first is the statement for the opening window.
func (f *Finder) chunkSQL(ctx context.Context, s SQL, spec query.Specification, vars query.Bindings, first querysql.Statement) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		ids := make([]string, 0, f.chunkSize)
		st := first
		for read := 0; ; {
			offset, n := f.window(spec, read)
			if n == 0 {
				return
			}
			if read > 0 {
				var err error
				if st, err = f.statement(spec.Window(offset, n), vars, s); err != nil {
					yield(Match{}, err)
					return
				}
			}

			f.log.Debug("executing query", "backend", s.Backend(), "sql", st.SQL, "params", len(st.Params))
			ids = ids[:0]
			err := scanIdentities(ctx, s.DB, st, func(id string) bool {
				ids = append(ids, id)
				return true
			})
			if err != nil {
				yield(Match{}, f.backendError(s, err))
				return
			}

			for _, id := range ids {
				e, err := s.Loader.Load(ctx, id)
				if err != nil {
					yield(Match{}, f.backendError(s, fmt.Errorf("load %s: %w", id, err)))
					return
				}
				if !yield(Match{Identity: id, Entity: e}, nil) {
					return
				}
			}
			if len(ids) < n {
				return
			}
			read += n
		}
	}
}

// window returns the offset and size of the chunk that starts read results
// into spec's own window. A zero size means the window is exhausted.
func (f *Finder) window(spec query.Specification, read int) (offset, n int) {
	first, _ := spec.FirstResult()
	n = f.chunkSize
	if limit, ok := spec.MaxResults(); ok {
		n = min(n, limit-read)
	}
	return first + read, max(n, 0)
}

// scanIdentities runs st and passes each identity to fn until fn returns
// false.
func scanIdentities(ctx context.Context, db *sql.DB, st querysql.Statement, fn func(string) bool) (err error) {
	rows, err := db.QueryContext(ctx, st.SQL, st.Params...)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if !fn(id) {
			return nil
		}
	}
	return rows.Err()
}

// querySQL runs text on s and returns every identity it reads.
func querySQL(ctx context.Context, s SQL, text string, params []any) ([]string, error) {
	var ids []string
	err := scanIdentities(ctx, s.DB, querysql.Statement{SQL: text, Params: params}, func(id string) bool {
		ids = append(ids, id)
		return true
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (f *Finder) backendError(src DataSource, err error) error {
	f.log.Error("query execution failed", "backend", src.Backend(), "error", err)
	return queryir.NewBackendExecutionError(src.Backend(), err)
}

// cacheKey identifies a rendered query: the target, the specification and
// the bindings it was resolved with.
func cacheKey(target string, spec query.Specification, vars query.Bindings) (string, error) {
	sf, err := spec.Fingerprint()
	if err != nil {
		return "", err
	}
	bf, err := query.BindingsFingerprint(spec, vars)
	if err != nil {
		return "", err
	}
	return target + "|" + sf + "|" + bf, nil
}

func (f *Finder) cached(key string, render func() (any, error)) (any, error) {
	if f.plans != nil {
		if v, ok := f.plans.Get(key); ok {
			return v, nil
		}
	}
	v, err := render()
	if err != nil {
		return nil, err
	}
	if f.plans != nil {
		f.plans.Add(key, v)
	}
	return v, nil
}

func (f *Finder) statement(spec query.Specification, vars query.Bindings, s SQL) (querysql.Statement, error) {
	key, err := cacheKey(fmt.Sprintf("%s|%#v", s.Backend(), s.Compiler.Mapping), spec, vars)
	if err != nil {
		return querysql.Statement{}, err
	}
	v, err := f.cached(key, func() (any, error) {
		return s.Compiler.Compile(spec, vars)
	})
	if err != nil {
		return querysql.Statement{}, err
	}
	return v.(querysql.Statement), nil
}

func (f *Finder) sparql(spec query.Specification, vars query.Bindings, count bool) (string, error) {
	target := querysparql.Backend
	if count {
		target += "/count"
	}
	key, err := cacheKey(target, spec, vars)
	if err != nil {
		return "", err
	}
	v, err := f.cached(key, func() (any, error) {
		if count {
			return querysparql.TranslateCount(spec, vars)
		}
		return querysparql.Translate(spec, vars)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CachedPlans reports how many rendered queries are cached.
func (f *Finder) CachedPlans() int {
	if f.plans == nil {
		return 0
	}
	return f.plans.Len()
}
