// Package queryir provides the query intermediate representation (IR) that
// every shapeq backend consumes.
//
// ARCHITECTURE:
//
// The IR sits between path capture / the query factories and the backend
// translators:
//
//	[template + query factories] → [Query IR] → [in-memory evaluator]
//	                                          → [SQL compiler]
//	                                          → [SPARQL renderer]
//
// A Reference names an access path rooted at a shape ("Person.placeOfBirth.name").
// Predicates combine References with value expressions (literals or named
// Variables). OrderBy pairs a Reference with a direction.
//
// SEALED INTERFACES:
//
// Predicate and ValueExpr are sealed interfaces using the marker method
// pattern. Only types in this package can implement them.
//
// Backends do not type-switch over predicates themselves. They implement
// Visitor and call Walk, which holds the single type switch. Adding a node
// kind adds a method to Visitor, so every backend stops compiling until it
// handles (or explicitly rejects) the new kind.
//
// IMMUTABILITY:
//
// References have unexported fields and copy on access. Predicate nodes are
// plain values; constructors in internal/query copy operand slices, and no
// function in this package mutates a node it is given. Trees are therefore
// safe to share between goroutines and to cache.
//
// FORMATTING:
//
// Format renders a predicate as ge(Person.yearOfBirth, 1973) style text for
// logs, CLI output and golden files. Encode renders it as an ir.IRValue for
// canonical fingerprints.
package queryir
