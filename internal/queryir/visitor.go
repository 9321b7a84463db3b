package queryir

import "fmt"

// Visitor is implemented by every backend translator. R is whatever the
// backend builds per node: a SQL fragment, a FILTER expression, a closure.
//
// A translator that cannot render a node kind returns an error from the
// corresponding method rather than omitting it.
type Visitor[R any] interface {
	VisitComparison(Comparison) (R, error)
	VisitMatches(Matches) (R, error)
	VisitContains(Contains) (R, error)
	VisitContainsAll(ContainsAll) (R, error)
	VisitContainsAssociation(ContainsAssociation) (R, error)
	VisitContainsName(ContainsName) (R, error)
	VisitIsNull(IsNull) (R, error)
	VisitIsNotNull(IsNotNull) (R, error)
	VisitAnd(And) (R, error)
	VisitOr(Or) (R, error)
	VisitNot(Not) (R, error)
}

// Walk dispatches p to the matching Visitor method.
//
// Combinator methods receive the node itself; they call Walk on operands so
// each backend controls how child results are combined.
func Walk[R any](p Predicate, v Visitor[R]) (R, error) {
	switch n := p.(type) {
	case Comparison:
		return v.VisitComparison(n)
	case Matches:
		return v.VisitMatches(n)
	case Contains:
		return v.VisitContains(n)
	case ContainsAll:
		return v.VisitContainsAll(n)
	case ContainsAssociation:
		return v.VisitContainsAssociation(n)
	case ContainsName:
		return v.VisitContainsName(n)
	case IsNull:
		return v.VisitIsNull(n)
	case IsNotNull:
		return v.VisitIsNotNull(n)
	case And:
		return v.VisitAnd(n)
	case Or:
		return v.VisitOr(n)
	case Not:
		return v.VisitNot(n)
	}
	var zero R
	return zero, fmt.Errorf("queryir: unknown predicate type %T", p)
}

// WalkAll walks each operand and collects the results in order.
func WalkAll[R any](ps []Predicate, v Visitor[R]) ([]R, error) {
	out := make([]R, 0, len(ps))
	for _, p := range ps {
		r, err := Walk(p, v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// LeafRef returns the Reference held by a leaf predicate. The second result
// is false for And, Or and Not.
func LeafRef(p Predicate) (Reference, bool) {
	switch n := p.(type) {
	case Comparison:
		return n.Ref, true
	case Matches:
		return n.Ref, true
	case Contains:
		return n.Ref, true
	case ContainsAll:
		return n.Ref, true
	case ContainsAssociation:
		return n.Ref, true
	case ContainsName:
		return n.Ref, true
	case IsNull:
		return n.Ref, true
	case IsNotNull:
		return n.Ref, true
	}
	return Reference{}, false
}

// Children returns the operands of a combinator, or nil for a leaf.
func Children(p Predicate) []Predicate {
	switch n := p.(type) {
	case And:
		return n.Operands
	case Or:
		return n.Operands
	case Not:
		return []Predicate{n.Operand}
	}
	return nil
}

// References returns every Reference in p in depth-first order.
func References(p Predicate) []Reference {
	var out []Reference
	var walk func(Predicate)
	walk = func(p Predicate) {
		if p == nil {
			return
		}
		if ref, ok := LeafRef(p); ok {
			out = append(out, ref)
			return
		}
		for _, c := range Children(p) {
			walk(c)
		}
	}
	walk(p)
	return out
}
