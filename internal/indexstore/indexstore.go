// Package indexstore keeps entity state in a badger key-value store and
// streams it back by shape for in-memory evaluation.
//
// Keys:
//
//	e\x00<identity>           -> record JSON (entity.Record)
//	s\x00<shape>\x00<identity> -> empty, one per entity in its exact shape
//
// Scans walk the shape index for the requested shape and each of its
// subtypes, so entities stream in (shape, identity) key order.
package indexstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/shape"
)

// ErrNotFound is returned by Get when no entity has the identity.
var ErrNotFound = errors.New("entity not found")

const sep = 0x00

// Option configures an Index.
type Option func(*config)

type config struct {
	inMemory bool
	ids      entity.IdentityGenerator
}

// InMemory keeps the index in memory only. The path passed to Open is
// ignored.
func InMemory() Option {
	return func(c *config) { c.inMemory = true }
}

// WithIdentityGenerator sets the generator for records written without an
// identity. Default: entity.UUIDv7Generator.
func WithIdentityGenerator(g entity.IdentityGenerator) Option {
	return func(c *config) { c.ids = g }
}

// Index is a badger-backed entity index for one shape registry.
type Index struct {
	db  *badger.DB
	reg *shape.Registry
	ids entity.IdentityGenerator
}

// Open opens or creates an index in the directory at path.
func Open(path string, reg *shape.Registry, opts ...Option) (*Index, error) {
	cfg := config{ids: entity.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	bopts := badger.DefaultOptions(path)
	if cfg.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Index{db: db, reg: reg, ids: cfg.ids}, nil
}

// Close closes the underlying badger database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Registry returns the shapes the index was opened with.
func (x *Index) Registry() *shape.Registry { return x.reg }

func entityKey(identity string) []byte {
	return append([]byte{'e', sep}, identity...)
}

func shapePrefix(shapeName string) []byte {
	k := append([]byte{'s', sep}, shapeName...)
	return append(k, sep)
}

func shapeKey(shapeName, identity string) []byte {
	return append(shapePrefix(shapeName), identity...)
}

// Put normalizes and writes records in one transaction, returning their
// identities in input order. An existing identity is replaced, including
// its shape.
func (x *Index) Put(records ...entity.Record) ([]string, error) {
	ids := make([]string, 0, len(records))
	err := x.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if r.ID == "" {
				r.ID = x.ids.Generate()
			}
			nr, err := entity.Normalize(x.reg, r)
			if err != nil {
				return err
			}
			if err := x.put(txn, nr); err != nil {
				return fmt.Errorf("put %s: %w", nr.ID, err)
			}
			ids = append(ids, nr.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("put: %w", err)
	}
	return ids, nil
}

func (x *Index) put(txn *badger.Txn, r entity.Record) error {
	if old, err := get(txn, r.ID); err == nil && old.Type != r.Type {
		if err := txn.Delete(shapeKey(old.Type, r.ID)); err != nil {
			return fmt.Errorf("failed to delete from shape index: %w", err)
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := txn.Set(entityKey(r.ID), data); err != nil {
		return fmt.Errorf("failed to write entity: %w", err)
	}
	if err := txn.Set(shapeKey(r.Type, r.ID), nil); err != nil {
		return fmt.Errorf("failed to write shape index: %w", err)
	}
	return nil
}

// Delete removes entities. Unknown identities are ignored.
func (x *Index) Delete(ids ...string) error {
	return x.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			old, err := get(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := txn.Delete(entityKey(id)); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			if err := txn.Delete(shapeKey(old.Type, id)); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}
		return nil
	})
}

// Get returns one entity by identity.
func (x *Index) Get(identity string) (entity.Record, error) {
	var r entity.Record
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = get(txn, identity)
		return err
	})
	if err != nil {
		return entity.Record{}, fmt.Errorf("get %s: %w", identity, err)
	}
	return x.normalize(r)
}

func get(txn *badger.Txn, identity string) (entity.Record, error) {
	item, err := txn.Get(entityKey(identity))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return entity.Record{}, ErrNotFound
	}
	if err != nil {
		return entity.Record{}, err
	}

	var r entity.Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	return r, err
}

// normalize restores declared kinds (times, entity references) that JSON
// flattens to strings.
func (x *Index) normalize(r entity.Record) (entity.Record, error) {
	return entity.Normalize(x.reg, r)
}

// Scan streams every entity assignable to shapeName. One read transaction
// is held for the whole iteration and released when it ends or the
// consumer stops. A cancelled ctx ends the scan with ctx.Err().
func (x *Index) Scan(ctx context.Context, shapeName string) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		txn := x.db.NewTransaction(false)
		defer txn.Discard()

		for _, n := range x.reg.Subtypes(shapeName) {
			if !x.scanShape(ctx, txn, n, yield) {
				return
			}
		}
	}
}

func (x *Index) scanShape(ctx context.Context, txn *badger.Txn, shapeName string, yield func(entity.Entity, error) bool) bool {
	prefix := shapePrefix(shapeName)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return false
		}

		identity := string(it.Item().Key()[len(prefix):])
		r, err := get(txn, identity)
		if err == nil {
			r, err = x.normalize(r)
		}
		if err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", identity, err))
			return false
		}
		if !yield(r, nil) {
			return false
		}
	}
	return true
}

// Resolver returns an entity.Resolver backed by Get.
func (x *Index) Resolver() entity.Resolver {
	return resolver{x}
}

type resolver struct{ x *Index }

func (r resolver) Resolve(identity string) (entity.Entity, bool) {
	rec, err := r.x.Get(identity)
	if err != nil {
		return nil, false
	}
	return rec, true
}
