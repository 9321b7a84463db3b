package finder

import (
	"context"
	"fmt"

	"github.com/roach88/shapeq/internal/namedquery"
)

// ExecuteNamed runs a composed named query. SQL queries run on SQL
// sources and SPARQL queries on Graph sources.
func (f *Finder) ExecuteNamed(ctx context.Context, q namedquery.Composed, src DataSource) (*Results, error) {
	var results *Results
	switch s := src.(type) {
	case SQL:
		if q.Backend == namedquery.SQL {
			results = &Results{backend: src.Backend(), seq: f.identities(ctx, src, s.Loader, func() ([]string, error) {
				f.log.Debug("executing named query", "backend", src.Backend(), "name", q.Name, "params", len(q.Params))
				return querySQL(ctx, s, q.Text, q.Params)
			})}
		}
	case Graph:
		if q.Backend == namedquery.SPARQL {
			results = &Results{backend: src.Backend(), seq: f.identities(ctx, src, s.Loader, func() ([]string, error) {
				f.log.Debug("executing named query", "backend", src.Backend(), "name", q.Name)
				return s.Client.Column(ctx, q.Text, "identity")
			})}
		}
	}
	if results == nil {
		return nil, fmt.Errorf("finder: %s query %q cannot run on %s", q.Backend, q.Name, src.Backend())
	}
	return results, nil
}
