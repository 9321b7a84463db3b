// Package querysql translates query specifications into parameterized SQL.
//
// Each shape maps to a table holding one row per entity of that shape or of
// any of its subtypes, keyed by an identity column. Properties and single
// associations are columns; collections and value objects are JSON text
// columns; many and named associations live in one link table:
//
//	shapeq_links(owner, accessor, name, position, target)
//
// Paths through associations render as correlated EXISTS subselects, so a
// leaf over a many association holds when any linked entity satisfies it.
// Values are always bound as parameters, never interpolated.
//
// Dialect differences (placeholders, row limiting, regular expressions,
// JSON access, null ordering) are isolated behind the Dialect interface.
package querysql
