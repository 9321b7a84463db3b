package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/finder"
	"github.com/roach88/shapeq/internal/indexstore"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/sparqlclient"
	"github.com/roach88/shapeq/internal/store"
)

// Backend names accepted by --backend.
const (
	BackendSQLite = "sqlite"
	BackendIndex  = "index"
	BackendSPARQL = "sparql"
)

// backends holds the sources a command opened. Close releases them all.
type backends struct {
	sources map[string]finder.DataSource
	stores  map[string]any
	closers []io.Closer
}

func (b *backends) Close() error {
	var err error
	for _, c := range slices.Backward(b.closers) {
		err = multierr.Append(err, c.Close())
	}
	b.closers = nil
	return err
}

// openBackends opens every backend named in names using the locations in
// opts. Graph sources get no loader, so their matches carry identities
// only.
func openBackends(opts *RootOptions, reg *shape.Registry, names ...string) (b *backends, err error) {
	b = &backends{sources: map[string]finder.DataSource{}, stores: map[string]any{}}
	defer func() {
		if err != nil {
			err = multierr.Append(err, b.Close())
			b = nil
		}
	}()

	for _, name := range names {
		switch name {
		case BackendSQLite:
			if opts.Database == "" {
				return nil, NewExitError(ExitCommandError, "backend sqlite needs --db")
			}
			st, err := store.Open(opts.Database, reg)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to open store", err)
			}
			b.closers = append(b.closers, st)
			b.stores[name] = st
			b.sources[name] = finder.StoreSource(st)

		case BackendIndex:
			if opts.Index == "" {
				return nil, NewExitError(ExitCommandError, "backend index needs --index")
			}
			x, err := indexstore.Open(opts.Index, reg)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to open index", err)
			}
			b.closers = append(b.closers, x)
			b.stores[name] = x
			b.sources[name] = finder.Index{Index: x}

		case BackendSPARQL:
			if opts.Endpoint == "" {
				return nil, NewExitError(ExitCommandError, "backend sparql needs --endpoint")
			}
			var clientOpts []sparqlclient.Option
			if opts.Update != "" {
				clientOpts = append(clientOpts, sparqlclient.WithUpdateEndpoint(opts.Update))
			}
			client := sparqlclient.New(opts.Endpoint, clientOpts...)
			b.stores[name] = client
			b.sources[name] = finder.Graph{Client: client}

		default:
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("unknown backend %q: must be one of %s, %s, %s", name, BackendSQLite, BackendIndex, BackendSPARQL))
		}
	}
	return b, nil
}

// newLogger returns the slog logger for a command: warnings only, or
// everything down to debug with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseVars parses name=value pairs. Values are read as YAML scalars, so
// 1973 binds an integer and "1973" a string.
func parseVars(pairs []string) (query.Bindings, error) {
	vars := query.Bindings{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: want name=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		if raw == "" {
			v = ""
		}
		vars[name] = v
	}
	return vars, nil
}

// MatchRow is one result as printed by find and run.
type MatchRow struct {
	Identity string         `json:"identity"`
	Shape    string         `json:"shape,omitempty"`
	State    map[string]any `json:"state,omitempty"`
}

// collectRows drains results into rows. Only queryable accessors are
// shown.
func collectRows(reg *shape.Registry, res *finder.Results) ([]MatchRow, error) {
	rows := []MatchRow{}
	for m, err := range res.All() {
		if err != nil {
			return rows, err
		}
		rows = append(rows, matchRow(reg, m))
	}
	return rows, nil
}

func matchRow(reg *shape.Registry, m finder.Match) MatchRow {
	row := MatchRow{Identity: m.Identity}
	if m.Entity == nil {
		return row
	}
	row.Shape = m.Entity.Shape()
	row.State = map[string]any{}
	for _, a := range reg.Accessors(m.Entity.Shape()) {
		if !a.Queryable {
			continue
		}
		if v, ok := m.Entity.Get(a.Name); ok {
			row.State[a.Name] = ir.ToGo(v)
		}
	}
	return row
}

// printRows renders rows as a table in text mode.
func printRows(formatter *OutputFormatter, rows []MatchRow) error {
	table := make([][]string, len(rows))
	for i, r := range rows {
		state := ""
		if r.State != nil {
			obj, err := ir.FromGo(r.State)
			if err != nil {
				return err
			}
			data, err := ir.MarshalCanonical(obj)
			if err != nil {
				return err
			}
			state = string(data)
		}
		table[i] = []string{r.Identity, r.Shape, state}
	}
	formatter.Table([]string{"identity", "shape", "state"}, table)
	return nil
}

// putRecords writes records into an opened store or index.
func putRecords(ctx context.Context, target any, records []entity.Record) (int, error) {
	switch t := target.(type) {
	case *store.Store:
		ids, err := t.Put(ctx, records...)
		return len(ids), err
	case *indexstore.Index:
		ids, err := t.Put(records...)
		return len(ids), err
	}
	return 0, fmt.Errorf("cannot write to %T", target)
}
