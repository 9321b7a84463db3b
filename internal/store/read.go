package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/shapeq/internal/entity"
)

// ErrNotFound is returned by Load when no entity has the identity.
var ErrNotFound = errors.New("entity not found")

// Load returns one entity by identity.
func (s *Store) Load(ctx context.Context, identity string) (entity.Record, error) {
	var shapeName, state string
	err := s.db.QueryRowContext(ctx,
		"SELECT shape, state FROM shapeq_entities WHERE identity = ?", identity,
	).Scan(&shapeName, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Record{}, fmt.Errorf("load %s: %w", identity, ErrNotFound)
	}
	if err != nil {
		return entity.Record{}, fmt.Errorf("load %s: %w", identity, err)
	}
	return unmarshalState(s.reg, identity, shapeName, state)
}

// Records returns every stored entity, optionally limited to the given
// shapes (exact match, not subtypes).
// Results are ordered deterministically: ORDER BY seq ASC, identity COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) Records(ctx context.Context, shapes ...string) ([]entity.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, shape, state
		FROM shapeq_entities
		ORDER BY seq ASC, identity COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	want := make(map[string]bool, len(shapes))
	for _, n := range shapes {
		want[n] = true
	}

	records := []entity.Record{}
	for rows.Next() {
		var id, shapeName, state string
		if err := rows.Scan(&id, &shapeName, &state); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if len(want) > 0 && !want[shapeName] {
			continue
		}
		r, err := unmarshalState(s.reg, id, shapeName, state)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return records, nil
}

// Identities runs a query whose single column is an identity and yields
// each row. It is meant for querysql.Statement.SQL. Iteration stops at the
// first error, which is yielded with an empty identity.
func (s *Store) Identities(ctx context.Context, query string, params ...any) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		rows, err := s.db.QueryContext(ctx, query, params...)
		if err != nil {
			yield("", fmt.Errorf("query identities: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				yield("", fmt.Errorf("scan identity: %w", err))
				return
			}
			if !yield(id, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield("", fmt.Errorf("iterate identities: %w", err))
		}
	}
}

// Count runs a single-value COUNT query such as querysql.Statement.CountSQL.
func (s *Store) Count(ctx context.Context, query string, params ...any) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
