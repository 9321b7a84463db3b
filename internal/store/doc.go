// Package store keeps entities in SQLite so SQL queries can run against
// them.
//
// Every entity is written twice:
//   - shapeq_entities holds the canonical JSON state, keyed by identity,
//     and is what Load and Records read back.
//   - one projection row per table of the entity's shape and each of its
//     supertypes (see querysql.Mapping) holds the queryable columns, and
//     many and named associations are exploded into the link table.
//
// The projection layout is exactly what querysql.Compiler renders against,
// so a querysql.Statement can be handed to Identities and Count unchanged.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - a REGEXP function (Go RE2 syntax) registered on every connection
//
// Deterministic ordering: reads that are not driven by a compiled statement
// order by seq ASC, identity COLLATE BINARY ASC.
package store
