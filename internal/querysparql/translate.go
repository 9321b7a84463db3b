package querysparql

import (
	"fmt"
	"strings"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// Backend is the backend name reported in errors.
const Backend = "sparql"

const (
	entityVar   = "?entity"
	identityVar = "?identity"
)

// Translate resolves spec's variables with vars and renders a SELECT of the
// matching identities, in order, with OFFSET and LIMIT applied.
func Translate(spec query.Specification, vars query.Bindings) (string, error) {
	return translate(spec, vars, false)
}

// TranslateCount renders a query binding ?count to the number of matching
// entities, ignoring pagination.
func TranslateCount(spec query.Specification, vars query.Bindings) (string, error) {
	return translate(spec, vars, true)
}

func translate(spec query.Specification, vars query.Bindings, count bool) (string, error) {
	resolved, err := query.Resolve(spec, vars)
	if err != nil {
		return "", err
	}

	st := &translation{optionals: map[string]string{}}

	var filter string
	if p := resolved.Where(); p != nil {
		if filter, err = queryir.Walk[string](p, st); err != nil {
			return "", err
		}
	}

	var order []string
	if !count {
		for _, o := range resolved.OrderBy() {
			v := st.optional(o.Ref)
			if o.Direction == queryir.Descending {
				order = append(order, "DESC("+v+")")
			} else {
				order = append(order, "ASC("+v+")")
			}
		}
		order = append(order, "ASC("+identityVar+")")
	}

	var b strings.Builder
	b.WriteString(prefixes)
	if count {
		b.WriteString("SELECT (COUNT(DISTINCT " + identityVar + ") AS ?count)\n")
	} else {
		b.WriteString("SELECT DISTINCT " + identityVar + "\n")
	}
	b.WriteString("WHERE {\n")
	fmt.Fprintf(&b, "  %s rdf:type %s .\n", entityVar, TypeIRI(resolved.ResultShape()))
	fmt.Fprintf(&b, "  %s api:identity %s .\n", entityVar, identityVar)
	for _, o := range st.optionalOrder {
		fmt.Fprintf(&b, "  OPTIONAL { %s }\n", o)
	}
	if filter != "" {
		fmt.Fprintf(&b, "  FILTER %s\n", parens(filter))
	}
	b.WriteString("}")

	if count {
		return b.String(), nil
	}
	b.WriteString("\nORDER BY " + strings.Join(order, " "))
	if first, ok := resolved.FirstResult(); ok {
		fmt.Fprintf(&b, "\nOFFSET %d", first)
	}
	if limit, ok := resolved.MaxResults(); ok {
		fmt.Fprintf(&b, "\nLIMIT %d", limit)
	}
	return b.String(), nil
}

// translation holds the state of one render: the variable counter and the
// OPTIONAL groups, one per distinct single-valued reference.
type translation struct {
	vars          int
	optionals     map[string]string
	optionalOrder []string
	negated       int
}

func (st *translation) fresh() string {
	v := fmt.Sprintf("?v%d", st.vars)
	st.vars++
	return v
}

// pattern renders the triples from ?entity along ref. With target set, a
// trailing named association hop continues to its target entity; without
// it, the pattern ends at the entry node that carries api:name.
func (st *translation) pattern(ref queryir.Reference, target bool) (string, string) {
	var triples []string
	subj := entityVar
	steps := ref.Steps()
	for i, s := range steps {
		obj := st.fresh()
		triples = append(triples, fmt.Sprintf("%s ns:%s %s .", subj, s.Name, obj))
		if s.Kind == shape.NamedAssociation && (i < len(steps)-1 || target) {
			t := st.fresh()
			triples = append(triples, fmt.Sprintf("%s api:target %s .", obj, t))
			obj = t
		}
		subj = obj
	}
	return strings.Join(triples, " "), subj
}

// optional returns the variable bound to the single value at ref,
// registering its OPTIONAL group on first use.
func (st *translation) optional(ref queryir.Reference) string {
	key := ref.String()
	if v, ok := st.optionals[key]; ok {
		return v
	}
	triples, v := st.pattern(ref, true)
	st.optionals[key] = v
	st.optionalOrder = append(st.optionalOrder, triples)
	return v
}

// multi reports whether ref can reach several values.
func multi(ref queryir.Reference) bool {
	for _, s := range ref.Steps() {
		if s.Kind.IsMulti() {
			return true
		}
	}
	return ref.ValueType().IsCollection()
}

// exists renders EXISTS { pattern FILTER (cond(v)) } for the values at ref.
func (st *translation) exists(ref queryir.Reference, target bool, cond func(v string) string) string {
	triples, v := st.pattern(ref, target)
	if cond == nil {
		return fmt.Sprintf("EXISTS { %s }", triples)
	}
	return fmt.Sprintf("EXISTS { %s FILTER %s }", triples, parens(cond(v)))
}

// strict makes a leaf over an OPTIONAL variable two-valued under negation:
// an unbound variable must read as false, not as an error.
func (st *translation) strict(v, cond string) string {
	if st.negated == 0 {
		return cond
	}
	return fmt.Sprintf("(bound(%s) && %s)", v, cond)
}

func (st *translation) unsupported(kind, reason string) error {
	return queryir.NewUnsupportedPredicateError(kind, Backend, reason)
}

func (st *translation) literal(kind string, v queryir.ValueExpr) (string, error) {
	lit, ok := v.(queryir.Literal)
	if !ok {
		return "", st.unsupported(kind, "unresolved variable")
	}
	s, err := Literal(lit.Value)
	if err != nil {
		return "", st.unsupported(kind, err.Error())
	}
	return s, nil
}

var comparisonOps = map[queryir.Op]string{
	queryir.OpEq: "=",
	queryir.OpLt: "<",
	queryir.OpLe: "<=",
	queryir.OpGt: ">",
	queryir.OpGe: ">=",
}

func (st *translation) VisitComparison(n queryir.Comparison) (string, error) {
	lit, err := st.literal(n.NodeKind(), n.Value)
	if err != nil {
		return "", err
	}

	if n.Op == queryir.OpNe {
		if multi(n.Ref) {
			return "!" + st.exists(n.Ref, true, func(v string) string {
				return fmt.Sprintf("%s = %s", v, lit)
			}), nil
		}
		v := st.optional(n.Ref)
		return fmt.Sprintf("(!bound(%s) || %s != %s)", v, v, lit), nil
	}

	sym := comparisonOps[n.Op]
	if multi(n.Ref) {
		return st.exists(n.Ref, true, func(v string) string {
			return fmt.Sprintf("%s %s %s", v, sym, lit)
		}), nil
	}
	v := st.optional(n.Ref)
	return st.strict(v, fmt.Sprintf("%s %s %s", v, sym, lit)), nil
}

func (st *translation) VisitMatches(n queryir.Matches) (string, error) {
	pattern, err := st.literal(n.NodeKind(), n.Pattern)
	if err != nil {
		return "", err
	}
	if multi(n.Ref) {
		return st.exists(n.Ref, true, func(v string) string {
			return fmt.Sprintf("regex(%s, %s)", v, pattern)
		}), nil
	}
	v := st.optional(n.Ref)
	return st.strict(v, fmt.Sprintf("regex(%s, %s)", v, pattern)), nil
}

func (st *translation) contains(kind string, ref queryir.Reference, elems ir.IRArray) (string, error) {
	if len(elems) == 0 {
		return st.exists(ref, true, nil), nil
	}
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		lit, err := Literal(e)
		if err != nil {
			return "", st.unsupported(kind, err.Error())
		}
		parts = append(parts, st.exists(ref, true, func(v string) string {
			return fmt.Sprintf("%s = %s", v, lit)
		}))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " && ") + ")", nil
}

func (st *translation) VisitContains(n queryir.Contains) (string, error) {
	lit, ok := n.Value.(queryir.Literal)
	if !ok {
		return "", st.unsupported(n.NodeKind(), "unresolved variable")
	}
	return st.contains(n.NodeKind(), n.Ref, ir.IRArray{lit.Value})
}

func (st *translation) VisitContainsAll(n queryir.ContainsAll) (string, error) {
	lit, ok := n.Values.(queryir.Literal)
	if !ok {
		return "", st.unsupported(n.NodeKind(), "unresolved variable")
	}
	elems, _ := lit.Value.(ir.IRArray)
	return st.contains(n.NodeKind(), n.Ref, elems)
}

func (st *translation) VisitContainsAssociation(n queryir.ContainsAssociation) (string, error) {
	lit, err := st.literal(n.NodeKind(), n.Value)
	if err != nil {
		return "", err
	}
	return st.exists(n.Ref, true, func(v string) string {
		return fmt.Sprintf("%s = %s", v, lit)
	}), nil
}

func (st *translation) VisitContainsName(n queryir.ContainsName) (string, error) {
	lit, err := st.literal(n.NodeKind(), n.Name)
	if err != nil {
		return "", err
	}
	triples, entry := st.pattern(n.Ref, false)
	name := st.fresh()
	return fmt.Sprintf("EXISTS { %s %s api:name %s . FILTER (%s = %s) }", triples, entry, name, name, lit), nil
}

func (st *translation) VisitIsNull(n queryir.IsNull) (string, error) {
	if multi(n.Ref) {
		return "!" + st.exists(n.Ref, true, nil), nil
	}
	return fmt.Sprintf("!bound(%s)", st.optional(n.Ref)), nil
}

func (st *translation) VisitIsNotNull(n queryir.IsNotNull) (string, error) {
	if multi(n.Ref) {
		return st.exists(n.Ref, true, nil), nil
	}
	return fmt.Sprintf("bound(%s)", st.optional(n.Ref)), nil
}

func (st *translation) combine(ops []queryir.Predicate, sep string) (string, error) {
	parts, err := queryir.WalkAll[string](ops, st)
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (st *translation) VisitAnd(n queryir.And) (string, error) { return st.combine(n.Operands, " && ") }
func (st *translation) VisitOr(n queryir.Or) (string, error)   { return st.combine(n.Operands, " || ") }

func (st *translation) VisitNot(n queryir.Not) (string, error) {
	st.negated++
	defer func() { st.negated-- }()
	inner, err := queryir.Walk[string](n.Operand, st)
	if err != nil {
		return "", err
	}
	return "!" + parens(inner), nil
}

// parens wraps s unless it is already a single parenthesized group.
func parens(s string) string {
	if enclosed(s) {
		return s
	}
	return "(" + s + ")"
}

func enclosed(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}
