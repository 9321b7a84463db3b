package queryir

import (
	"slices"
)

// LeafValue returns the value expression held by a leaf predicate. Null
// checks and combinators hold none.
func LeafValue(p Predicate) (ValueExpr, bool) {
	switch n := p.(type) {
	case Comparison:
		return n.Value, true
	case Matches:
		return n.Pattern, true
	case Contains:
		return n.Value, true
	case ContainsAll:
		return n.Values, true
	case ContainsAssociation:
		return n.Value, true
	case ContainsName:
		return n.Name, true
	}
	return nil, false
}

// Variables returns the distinct variable names used in p, sorted.
func Variables(p Predicate) []string {
	seen := map[string]bool{}
	var walk func(Predicate)
	walk = func(p Predicate) {
		if p == nil {
			return
		}
		if v, ok := LeafValue(p); ok {
			if vr, ok := v.(Variable); ok {
				seen[vr.Name] = true
			}
		}
		for _, c := range Children(p) {
			walk(c)
		}
	}
	walk(p)

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ValueMapper rewrites the value expression of a leaf predicate.
type ValueMapper func(leaf Predicate, v ValueExpr) (ValueExpr, error)

// MapValues returns a copy of p with every leaf value replaced by f.
// p itself is not modified.
func MapValues(p Predicate, f ValueMapper) (Predicate, error) {
	if p == nil {
		return nil, nil
	}
	return Walk[Predicate](p, valueRewriter{f: f})
}

type valueRewriter struct {
	f ValueMapper
}

func (w valueRewriter) VisitComparison(n Comparison) (Predicate, error) {
	v, err := w.f(n, n.Value)
	if err != nil {
		return nil, err
	}
	n.Value = v
	return n, nil
}

func (w valueRewriter) VisitMatches(n Matches) (Predicate, error) {
	v, err := w.f(n, n.Pattern)
	if err != nil {
		return nil, err
	}
	n.Pattern = v
	return n, nil
}

func (w valueRewriter) VisitContains(n Contains) (Predicate, error) {
	v, err := w.f(n, n.Value)
	if err != nil {
		return nil, err
	}
	n.Value = v
	return n, nil
}

func (w valueRewriter) VisitContainsAll(n ContainsAll) (Predicate, error) {
	v, err := w.f(n, n.Values)
	if err != nil {
		return nil, err
	}
	n.Values = v
	return n, nil
}

func (w valueRewriter) VisitContainsAssociation(n ContainsAssociation) (Predicate, error) {
	v, err := w.f(n, n.Value)
	if err != nil {
		return nil, err
	}
	n.Value = v
	return n, nil
}

func (w valueRewriter) VisitContainsName(n ContainsName) (Predicate, error) {
	v, err := w.f(n, n.Name)
	if err != nil {
		return nil, err
	}
	n.Name = v
	return n, nil
}

func (w valueRewriter) VisitIsNull(n IsNull) (Predicate, error)       { return n, nil }
func (w valueRewriter) VisitIsNotNull(n IsNotNull) (Predicate, error) { return n, nil }

func (w valueRewriter) VisitAnd(n And) (Predicate, error) {
	ops, err := WalkAll[Predicate](n.Operands, w)
	if err != nil {
		return nil, err
	}
	return And{Operands: ops}, nil
}

func (w valueRewriter) VisitOr(n Or) (Predicate, error) {
	ops, err := WalkAll[Predicate](n.Operands, w)
	if err != nil {
		return nil, err
	}
	return Or{Operands: ops}, nil
}

func (w valueRewriter) VisitNot(n Not) (Predicate, error) {
	op, err := Walk[Predicate](n.Operand, w)
	if err != nil {
		return nil, err
	}
	return Not{Operand: op}, nil
}
