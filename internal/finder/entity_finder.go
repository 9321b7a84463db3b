package finder

import (
	"context"

	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
)

// EntityFinder is the query surface an entity store offers. A negative
// firstResult or maxResults means "not set".
type EntityFinder interface {
	FindEntities(ctx context.Context, resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int, vars query.Bindings) (*Results, error)
	FindEntity(ctx context.Context, resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int, vars query.Bindings) (Match, error)
	CountEntities(ctx context.Context, resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int, vars query.Bindings) (int64, error)
}

// Bind returns an EntityFinder that runs against src.
func (f *Finder) Bind(src DataSource) EntityFinder {
	return &bound{f: f, src: src}
}

type bound struct {
	f   *Finder
	src DataSource
}

func (b *bound) spec(resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int) (query.Specification, error) {
	qb := query.NewBuilder(b.f.reg, resultShape).Where(where).OrderBy(orderBy...)
	if firstResult >= 0 {
		qb = qb.FirstResult(firstResult)
	}
	if maxResults >= 0 {
		qb = qb.MaxResults(maxResults)
	}
	return qb.Build()
}

func (b *bound) FindEntities(ctx context.Context, resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int, vars query.Bindings) (*Results, error) {
	spec, err := b.spec(resultShape, where, orderBy, firstResult, maxResults)
	if err != nil {
		return nil, err
	}
	return b.f.Execute(ctx, spec, b.src, vars)
}

func (b *bound) FindEntity(ctx context.Context, resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int, vars query.Bindings) (Match, error) {
	spec, err := b.spec(resultShape, where, orderBy, firstResult, maxResults)
	if err != nil {
		return Match{}, err
	}
	return b.f.FindEntity(ctx, spec, b.src, vars)
}

func (b *bound) CountEntities(ctx context.Context, resultShape string, where queryir.Predicate, orderBy []queryir.OrderBy, firstResult, maxResults int, vars query.Bindings) (int64, error) {
	spec, err := b.spec(resultShape, where, orderBy, firstResult, maxResults)
	if err != nil {
		return 0, err
	}
	return b.f.Count(ctx, spec, b.src, vars)
}
