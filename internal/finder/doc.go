// Package finder executes query Specifications against a data source.
//
// A DataSource names where entities live:
//
//   - Collection: entities already in memory, filtered and sorted by querymem
//   - Index: a badger indexstore, streamed through querymem
//   - SQL: a database/sql handle and a querysql.Compiler
//   - Graph: a SPARQL endpoint, queried with querysparql
//
// The Finder picks the translator for the source, caches rendered SQL and
// SPARQL by query fingerprint, and returns lazy Results. Failures from the
// source itself are wrapped in a queryir BACKEND_EXECUTION error; errors in
// the query (unbound variables, unsupported predicates) are returned as is.
package finder
