package query

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/queryir"
)

// Specification is a complete, validated query: result shape, filter,
// ordering, pagination and variable defaults. It is immutable and safe to
// share between goroutines.
type Specification struct {
	shape    string
	where    queryir.Predicate
	order    []queryir.OrderBy
	first    int
	max      int
	hasFirst bool
	hasMax   bool
	defaults map[string]ir.IRValue
}

// ResultShape returns the shape of the entities the query returns.
func (s Specification) ResultShape() string { return s.shape }

// Where returns the filter. nil selects every entity of the result shape.
func (s Specification) Where() queryir.Predicate { return s.where }

// OrderBy returns a copy of the ordering segments in priority order.
func (s Specification) OrderBy() []queryir.OrderBy { return slices.Clone(s.order) }

// FirstResult returns the number of leading results to skip.
func (s Specification) FirstResult() (int, bool) { return s.first, s.hasFirst }

// MaxResults returns the maximum number of results.
func (s Specification) MaxResults() (int, bool) { return s.max, s.hasMax }

// Defaults returns a copy of the variable values declared on the builder.
func (s Specification) Defaults() map[string]ir.IRValue { return maps.Clone(s.defaults) }

// Variables returns the names of the variables the filter uses, sorted.
func (s Specification) Variables() []string { return queryir.Variables(s.where) }

// Paginated reports whether the query limits or offsets its results.
func (s Specification) Paginated() bool { return s.hasFirst || s.hasMax }

// Unpaginated returns a copy of s without FirstResult and MaxResults.
// Count queries use it.
func (s Specification) Unpaginated() Specification {
	s.first, s.hasFirst = 0, false
	s.max, s.hasMax = 0, false
	return s
}

// Limit returns a copy of s that yields at most n results. An existing
// smaller limit is kept.
func (s Specification) Limit(n int) Specification {
	if !s.hasMax || s.max > n {
		s.max, s.hasMax = n, true
	}
	return s
}

// Window returns a copy of s that skips first results and yields at most n.
// Both values are absolute; any pagination s already carries is replaced.
func (s Specification) Window(first, n int) Specification {
	s.first, s.hasFirst = first, true
	s.max, s.hasMax = n, true
	return s
}

// Fingerprint returns a stable content hash of the query. Two
// specifications with the same fingerprint render to the same backend
// query.
func (s Specification) Fingerprint() (string, error) {
	obj := ir.IRObject{
		"shape": ir.IRString(s.shape),
		"where": queryir.Encode(s.where),
		"order": queryir.EncodeOrder(s.order),
	}
	if s.hasFirst {
		obj["first"] = ir.IRInt(s.first)
	}
	if s.hasMax {
		obj["max"] = ir.IRInt(s.max)
	}
	if len(s.defaults) > 0 {
		obj["defaults"] = ir.IRObject(maps.Clone(s.defaults))
	}
	return ir.Fingerprint(ir.DomainSpecification, obj)
}

// String renders the query for logs and CLI output:
//
//	Person where ge(Person.yearOfBirth, 1973) order by Person.name asc offset 1 limit 2
func (s Specification) String() string {
	var b strings.Builder
	b.WriteString(s.shape)
	if s.where != nil {
		b.WriteString(" where ")
		b.WriteString(queryir.Format(s.where))
	}
	if len(s.order) > 0 {
		b.WriteString(" order by ")
		b.WriteString(queryir.FormatOrder(s.order))
	}
	if s.hasFirst {
		fmt.Fprintf(&b, " offset %d", s.first)
	}
	if s.hasMax {
		fmt.Fprintf(&b, " limit %d", s.max)
	}
	return b.String()
}
