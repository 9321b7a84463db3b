package queryir

import (
	"github.com/roach88/shapeq/internal/ir"
)

// Encode renders p as an ir.IRValue suitable for ir.MarshalCanonical.
// Structurally equal predicates encode to equal values.
func Encode(p Predicate) ir.IRValue {
	if p == nil {
		return ir.IRNull{}
	}
	v, err := Walk[ir.IRValue](p, encoder{})
	if err != nil {
		return ir.IRNull{}
	}
	return v
}

// EncodeReference renders a Reference as an object with its root and
// step names.
func EncodeReference(r Reference) ir.IRValue {
	steps := make(ir.IRArray, r.Len())
	for i, s := range r.steps {
		steps[i] = ir.IRString(s.Name)
	}
	return ir.IRObject{"root": ir.IRString(r.root), "path": steps}
}

// EncodeOrder renders ordering segments.
func EncodeOrder(order []OrderBy) ir.IRValue {
	arr := make(ir.IRArray, len(order))
	for i, o := range order {
		arr[i] = ir.IRObject{"ref": EncodeReference(o.Ref), "dir": ir.IRString(o.Direction.String())}
	}
	return arr
}

// EncodeValue renders a value expression. Variables become {"var": name}.
func EncodeValue(v ValueExpr) ir.IRValue {
	switch x := v.(type) {
	case Variable:
		return ir.IRObject{"var": ir.IRString(x.Name)}
	case Literal:
		if x.Value == nil {
			return ir.IRObject{"lit": ir.IRNull{}}
		}
		return ir.IRObject{"lit": x.Value}
	}
	return ir.IRNull{}
}

type encoder struct{}

func (encoder) leaf(kind string, ref Reference, v ValueExpr) (ir.IRValue, error) {
	obj := ir.IRObject{"node": ir.IRString(kind), "ref": EncodeReference(ref)}
	if v != nil {
		obj["value"] = EncodeValue(v)
	}
	return obj, nil
}

func (e encoder) combine(kind string, ops []Predicate) (ir.IRValue, error) {
	vals, err := WalkAll[ir.IRValue](ops, e)
	if err != nil {
		return nil, err
	}
	return ir.IRObject{"node": ir.IRString(kind), "operands": ir.IRArray(vals)}, nil
}

func (e encoder) VisitComparison(n Comparison) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, n.Value)
}
func (e encoder) VisitMatches(n Matches) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, n.Pattern)
}
func (e encoder) VisitContains(n Contains) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, n.Value)
}
func (e encoder) VisitContainsAll(n ContainsAll) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, n.Values)
}
func (e encoder) VisitContainsAssociation(n ContainsAssociation) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, n.Value)
}
func (e encoder) VisitContainsName(n ContainsName) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, n.Name)
}
func (e encoder) VisitIsNull(n IsNull) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, nil)
}
func (e encoder) VisitIsNotNull(n IsNotNull) (ir.IRValue, error) {
	return e.leaf(n.NodeKind(), n.Ref, nil)
}
func (e encoder) VisitAnd(n And) (ir.IRValue, error) { return e.combine(n.NodeKind(), n.Operands) }
func (e encoder) VisitOr(n Or) (ir.IRValue, error)   { return e.combine(n.NodeKind(), n.Operands) }
func (e encoder) VisitNot(n Not) (ir.IRValue, error) {
	return e.combine(n.NodeKind(), []Predicate{n.Operand})
}
