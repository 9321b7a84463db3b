package finder

import (
	"context"
	"database/sql"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/indexstore"
	"github.com/roach88/shapeq/internal/querymem"
	"github.com/roach88/shapeq/internal/querysparql"
	"github.com/roach88/shapeq/internal/querysql"
	"github.com/roach88/shapeq/internal/sparqlclient"
	"github.com/roach88/shapeq/internal/store"
)

// DataSource is one of Collection, Index, SQL or Graph.
type DataSource interface {
	// Backend names the source in logs and errors.
	Backend() string
}

// Loader fetches an entity by identity. Sources that only return
// identities use it to fill Match.Entity.
type Loader interface {
	Load(ctx context.Context, identity string) (entity.Entity, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, identity string) (entity.Entity, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, identity string) (entity.Entity, error) {
	return f(ctx, identity)
}

// Collection is an in-memory source. Resolver follows associations; it may
// be nil when no query crosses one.
type Collection struct {
	Entities []entity.Entity
	Resolver entity.Resolver
}

// Backend implements DataSource.
func (Collection) Backend() string { return querymem.Backend }

// Index is a badger indexstore source.
type Index struct {
	Index *indexstore.Index
}

// Backend implements DataSource.
func (Index) Backend() string { return "index" }

// SQL is a relational source. Loader is optional.
type SQL struct {
	DB       *sql.DB
	Compiler *querysql.Compiler
	Loader   Loader
}

// Backend implements DataSource.
func (s SQL) Backend() string { return querysql.Backend + "/" + s.Compiler.Dialect.Name() }

// Graph is a SPARQL endpoint source. Loader is optional.
type Graph struct {
	Client *sparqlclient.Client
	Loader Loader
}

// Backend implements DataSource.
func (Graph) Backend() string { return querysparql.Backend }

// StoreSource returns a SQL source over a SQLite store that loads matched
// entities from the same store.
func StoreSource(s *store.Store) SQL {
	return SQL{
		DB:       s.DB(),
		Compiler: &querysql.Compiler{Dialect: querysql.SQLite{}, Mapping: s.Mapping()},
		Loader: LoaderFunc(func(ctx context.Context, identity string) (entity.Entity, error) {
			r, err := s.Load(ctx, identity)
			if err != nil {
				return nil, err
			}
			return r, nil
		}),
	}
}
