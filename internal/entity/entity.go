// Package entity defines the entity state the query backends read.
//
// An Entity is an identity, a shape name and a bag of accessor values.
// Association values are ir.IREntity (single), ir.IRArray of ir.IREntity
// (many) or ir.IRObject of ir.IREntity keyed by name (named). Value objects
// are ir.IRObject and collections ir.IRArray.
package entity

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/shapeq/internal/ir"
)

// Entity is read-only access to one entity's state.
type Entity interface {
	Identity() string
	Shape() string
	// Get returns the value of an accessor. The second result is false when
	// the accessor is absent or null.
	Get(accessor string) (ir.IRValue, bool)
}

// Resolver looks up entities by identity. Path traversal through
// associations uses it to follow entity references.
type Resolver interface {
	Resolve(identity string) (Entity, bool)
}

// Record is the concrete Entity used by fixtures and stores.
type Record struct {
	ID    string
	Type  string
	State ir.IRObject
}

// Identity implements Entity.
func (r Record) Identity() string { return r.ID }

// Shape implements Entity.
func (r Record) Shape() string { return r.Type }

// Get implements Entity.
func (r Record) Get(accessor string) (ir.IRValue, bool) {
	v, ok := r.State[accessor]
	if !ok || ir.IsNull(v) {
		return nil, false
	}
	return v, true
}

type recordJSON struct {
	Identity string          `json:"identity"`
	Shape    string          `json:"shape"`
	State    json.RawMessage `json:"state"`
}

// MarshalJSON encodes the record with plain JSON state (see ir.ToGo).
func (r Record) MarshalJSON() ([]byte, error) {
	state := r.State
	if state == nil {
		state = ir.IRObject{}
	}
	raw, err := ir.MarshalValue(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{Identity: r.ID, Shape: r.Type, State: raw})
}

// UnmarshalJSON decodes a record. Times and entity references arrive as
// strings; pass the result through Normalize to restore declared kinds.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state := ir.IRObject{}
	if len(raw.State) > 0 && string(raw.State) != "null" {
		obj, err := ir.UnmarshalObject(raw.State)
		if err != nil {
			return fmt.Errorf("record %s state: %w", raw.Identity, err)
		}
		state = obj
	}
	*r = Record{ID: raw.Identity, Type: raw.Shape, State: state}
	return nil
}

// Set is an in-memory collection of records that also resolves identities.
// It keeps insertion order. Safe for concurrent reads after construction;
// Add must not race with readers.
type Set struct {
	byID  map[string]Record
	order []string
}

// NewSet builds a Set. Later records replace earlier ones with the same
// identity.
func NewSet(records ...Record) *Set {
	s := &Set{byID: make(map[string]Record, len(records))}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add inserts or replaces a record.
func (s *Set) Add(r Record) {
	if _, exists := s.byID[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.byID[r.ID] = r
}

// Resolve implements Resolver.
func (s *Set) Resolve(identity string) (Entity, bool) {
	r, ok := s.byID[identity]
	if !ok {
		return nil, false
	}
	return r, true
}

// Record returns the record with the given identity.
func (s *Set) Record(identity string) (Record, bool) {
	r, ok := s.byID[identity]
	return r, ok
}

// Records returns all records in insertion order.
func (s *Set) Records() []Record {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// OfShape returns the records whose shape is one of shapes, in insertion
// order.
func (s *Set) OfShape(shapes ...string) []Entity {
	var out []Entity
	for _, id := range s.order {
		r := s.byID[id]
		if slices.Contains(shapes, r.Type) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.order) }

// IdentityGenerator mints identities for records created without one.
type IdentityGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identities.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns prefix-1, prefix-2, ... for deterministic tests
// and golden files.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceGenerator creates a generator. An empty prefix means "entity".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "entity"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next identity.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}
