// Package querymem evaluates query specifications against entities held in
// memory.
//
// Translate compiles a Specification into a Plan: a predicate function, a
// comparator built from the ordering segments, and skip/take pagination.
// Paths through associations are followed with an entity.Resolver; a path
// through a many or named association yields one value per element, and a
// leaf predicate holds when any of those values satisfies it.
//
// Null handling mirrors the declarative backends: a comparison with an
// absent value is false, except ne, which holds because absent differs from
// every literal.
package querymem
