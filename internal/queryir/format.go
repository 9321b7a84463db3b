package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shapeq/internal/ir"
)

// Format renders p as text, e.g.
//
//	and(ge(Person.yearOfBirth, 1900), eq(Person.placeOfBirth.name, "Penang"))
//
// A nil predicate renders as "all".
func Format(p Predicate) string {
	if p == nil {
		return "all"
	}
	s, err := Walk[string](p, formatter{})
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return s
}

// FormatValue renders a value expression. Variables render as ${name}.
func FormatValue(v ValueExpr) string {
	switch x := v.(type) {
	case Variable:
		return "${" + x.Name + "}"
	case Literal:
		return formatIR(x.Value)
	}
	return "?"
}

func formatIR(v ir.IRValue) string {
	switch x := v.(type) {
	case nil, ir.IRNull:
		return "null"
	case ir.IRString:
		return strconv.Quote(string(x))
	case ir.IRInt:
		return strconv.FormatInt(int64(x), 10)
	case ir.IRFloat:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case ir.IRBool:
		return strconv.FormatBool(bool(x))
	case ir.IRTime:
		return x.String()
	case ir.IREntity:
		return "<" + string(x) + ">"
	case ir.IRArray:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatIR(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.IRObject:
		keys := x.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatIR(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%v", v)
}

type formatter struct{}

func (formatter) leaf(kind string, ref Reference, v ValueExpr) (string, error) {
	if v == nil {
		return fmt.Sprintf("%s(%s)", kind, ref), nil
	}
	return fmt.Sprintf("%s(%s, %s)", kind, ref, FormatValue(v)), nil
}

func (f formatter) combine(kind string, ops []Predicate) (string, error) {
	parts, err := WalkAll[string](ops, f)
	if err != nil {
		return "", err
	}
	return kind + "(" + strings.Join(parts, ", ") + ")", nil
}

func (f formatter) VisitComparison(n Comparison) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, n.Value)
}
func (f formatter) VisitMatches(n Matches) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, n.Pattern)
}
func (f formatter) VisitContains(n Contains) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, n.Value)
}
func (f formatter) VisitContainsAll(n ContainsAll) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, n.Values)
}
func (f formatter) VisitContainsAssociation(n ContainsAssociation) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, n.Value)
}
func (f formatter) VisitContainsName(n ContainsName) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, n.Name)
}
func (f formatter) VisitIsNull(n IsNull) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, nil)
}
func (f formatter) VisitIsNotNull(n IsNotNull) (string, error) {
	return f.leaf(n.NodeKind(), n.Ref, nil)
}
func (f formatter) VisitAnd(n And) (string, error) { return f.combine(n.NodeKind(), n.Operands) }
func (f formatter) VisitOr(n Or) (string, error)   { return f.combine(n.NodeKind(), n.Operands) }
func (f formatter) VisitNot(n Not) (string, error) {
	s, err := Walk[string](n.Operand, f)
	if err != nil {
		return "", err
	}
	return "not(" + s + ")", nil
}

// FormatOrder renders ordering segments separated by commas.
func FormatOrder(order []OrderBy) string {
	parts := make([]string, len(order))
	for i, o := range order {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}
