// Package ir provides the value model shared by every layer of shapeq.
//
// Query literals, variable bindings, entity state read from a store, and
// values rendered into backend queries are all IRValue. The set is sealed:
// null, string, int, float, bool, time, entity reference, array and object.
//
// This package imports nothing internal. All other internal packages import
// ir, which keeps it the foundational layer with no circular dependencies.
//
// Key constraints:
//   - Times are always normalized to UTC and rendered with a fixed-width layout
//     so that their text form sorts the same way as the instants do
//   - Entity references carry only an identity, never entity state
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for fingerprints
package ir
