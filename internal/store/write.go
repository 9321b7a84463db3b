package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/querysql"
	"github.com/roach88/shapeq/internal/shape"
)

// Put writes records in one transaction and returns their identities in
// input order.
//
// Each record is normalized against the registry first. Records without an
// identity get one from the store's IdentityGenerator. Writing an identity
// that already exists replaces its state and projections but keeps its seq,
// so Records order is insertion order of first write.
func (s *Store) Put(ctx context.Context, records ...entity.Record) (ids []string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	for _, r := range records {
		if r.ID == "" {
			r.ID = s.ids.Generate()
		}
		r, err = entity.Normalize(s.reg, r)
		if err != nil {
			return nil, fmt.Errorf("put: %w", err)
		}
		if err = s.put(ctx, tx, r); err != nil {
			return nil, fmt.Errorf("put %s: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("put: commit: %w", err)
	}
	return ids, nil
}

func (s *Store) put(ctx context.Context, tx *sql.Tx, r entity.Record) error {
	state, err := marshalState(r.State)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shapeq_entities (identity, shape, state, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM shapeq_entities))
		ON CONFLICT(identity) DO UPDATE SET shape = excluded.shape, state = excluded.state
	`, r.ID, r.Type, state)
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	if err := s.clearProjections(ctx, tx, r.ID); err != nil {
		return err
	}
	for _, table := range s.projectedShapes(r.Type) {
		if err := s.project(ctx, tx, table, r); err != nil {
			return err
		}
	}
	return s.writeLinks(ctx, tx, r)
}

// projectedShapes returns the entity's shape and all of its supertypes.
func (s *Store) projectedShapes(shapeName string) []string {
	var out []string
	for _, n := range s.reg.Names() {
		if s.reg.AssignableTo(shapeName, n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) clearProjections(ctx context.Context, tx *sql.Tx, identity string) error {
	q := querysql.SQLite{}.QuoteIdent
	for _, n := range s.reg.Names() {
		stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", q(s.mapping.Table(n)), q(querysql.IdentityColumn))
		if _, err := tx.ExecContext(ctx, stmt, identity); err != nil {
			return fmt.Errorf("clear %s: %w", n, err)
		}
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", q(s.mapping.LinkTable()), q(querysql.OwnerColumn))
	if _, err := tx.ExecContext(ctx, stmt, identity); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}
	return nil
}

func (s *Store) project(ctx context.Context, tx *sql.Tx, shapeName string, r entity.Record) error {
	q := querysql.SQLite{}.QuoteIdent
	cols := []string{q(querysql.IdentityColumn)}
	args := []any{r.ID}

	for _, a := range s.reg.Accessors(shapeName) {
		if a.Kind.IsMulti() {
			continue
		}
		v, err := columnValue(r.State[a.Name])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", shapeName, a.Name, err)
		}
		cols = append(cols, q(s.mapping.Column(shapeName, a.Name)))
		args = append(args, v)
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q(s.mapping.Table(shapeName)), strings.Join(cols, ", "), marks)
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("project %s: %w", shapeName, err)
	}
	return nil
}

// writeLinks explodes many associations (by position) and named
// associations (by name) into the link table.
func (s *Store) writeLinks(ctx context.Context, tx *sql.Tx, r entity.Record) error {
	q := querysql.SQLite{}.QuoteIdent
	stmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?)",
		q(s.mapping.LinkTable()), q(querysql.OwnerColumn), q(querysql.AccessorColumn),
		q(querysql.NameColumn), q(querysql.PositionColumn), q(querysql.TargetColumn))

	for _, a := range s.reg.Accessors(r.Type) {
		v, ok := r.Get(a.Name)
		if !ok {
			continue
		}
		switch a.Kind {
		case shape.ManyAssociation:
			arr, _ := v.(ir.IRArray)
			for i, target := range arr {
				if _, err := tx.ExecContext(ctx, stmt, r.ID, a.Name, nil, i, ir.ToGo(target)); err != nil {
					return fmt.Errorf("link %s: %w", a.Name, err)
				}
			}
		case shape.NamedAssociation:
			obj, _ := v.(ir.IRObject)
			for _, name := range obj.SortedKeys() {
				if _, err := tx.ExecContext(ctx, stmt, r.ID, a.Name, name, nil, ir.ToGo(obj[name])); err != nil {
					return fmt.Errorf("link %s: %w", a.Name, err)
				}
			}
		}
	}
	return nil
}

// Delete removes entities and their projections. Unknown identities are
// ignored.
func (s *Store) Delete(ctx context.Context, ids ...string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, "DELETE FROM shapeq_entities WHERE identity = ?", id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		if err = s.clearProjections(ctx, tx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("delete: commit: %w", err)
	}
	return nil
}
