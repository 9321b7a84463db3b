// Package shape describes the domain shapes queries are written against.
//
// A Descriptor lists the accessors of one shape: properties (scalar,
// collection or nested value object), single associations, many-associations
// and named associations. Descriptors are static data. They are compiled
// from CUE (see internal/compiler) or declared in Go, then collected in a
// Registry that resolves association targets and shape inheritance.
//
// Each accessor carries a Queryable flag. Path capture refuses to build a
// reference through an accessor whose flag is false.
package shape
