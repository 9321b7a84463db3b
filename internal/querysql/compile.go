package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// Backend is the backend name reported in errors.
const Backend = "sql"

const rootAlias = "t0"

// Statement is a compiled query. SQL selects the identity column of the
// matching entities in order; CountSQL counts them, ignoring pagination.
type Statement struct {
	SQL         string
	Params      []any
	CountSQL    string
	CountParams []any
}

// Compiler compiles Specifications into SQL for one dialect and mapping.
//
// Every SELECT ends with an ORDER BY on the identity column, after any
// requested ordering, so results are deterministic.
type Compiler struct {
	Dialect Dialect
	Mapping Mapping
}

// NewCompiler returns a Compiler with the SnakeCase mapping.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d, Mapping: SnakeCase{}}
}

// Compile resolves spec's variables with vars and renders the statement.
func (c *Compiler) Compile(spec query.Specification, vars query.Bindings) (Statement, error) {
	resolved, err := query.Resolve(spec, vars)
	if err != nil {
		return Statement{}, err
	}

	sql, params, err := c.render(resolved, false)
	if err != nil {
		return Statement{}, err
	}
	countSQL, countParams, err := c.render(resolved, true)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Params: params, CountSQL: countSQL, CountParams: countParams}, nil
}

func (c *Compiler) render(spec query.Specification, count bool) (string, []any, error) {
	st := &compilation{c: c}
	d := c.Dialect

	from := fmt.Sprintf("%s %s", d.QuoteIdent(c.Mapping.Table(spec.ResultShape())), rootAlias)
	identity := st.col(rootAlias, IdentityColumn)

	var where string
	if p := spec.Where(); p != nil {
		w, err := queryir.Walk[string](p, st)
		if err != nil {
			return "", nil, err
		}
		where = " WHERE " + w
	}

	if count {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", from, where), st.params, nil
	}

	terms := make([]string, 0, len(spec.OrderBy())+1)
	for _, o := range spec.OrderBy() {
		expr, err := st.scalar(o.Ref.Steps(), rootAlias)
		if err != nil {
			return "", nil, err
		}
		v := o.Ref.Last().Value
		text := v.Kind == ir.KindString || v.Kind == ir.KindEntity
		terms = append(terms, d.OrderTerm(expr, text, o.Direction == queryir.Descending))
	}
	terms = append(terms, d.StableKey(identity))

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", identity, from, where, strings.Join(terms, ", "))
	first, hasFirst := spec.FirstResult()
	limit, hasMax := spec.MaxResults()
	return d.Paginate(sql, first, limit, hasFirst, hasMax), st.params, nil
}

// compilation holds the state of one render: bound parameters, the alias
// counter and how many Not (or ne) nodes enclose the current leaf.
type compilation struct {
	c       *Compiler
	params  []any
	aliases int
	negated int
}

func (st *compilation) bind(p any) string {
	st.params = append(st.params, p)
	return st.c.Dialect.Placeholder(len(st.params))
}

func (st *compilation) alias(prefix string) string {
	st.aliases++
	return fmt.Sprintf("%s%d", prefix, st.aliases)
}

func (st *compilation) col(alias, column string) string {
	return alias + "." + st.c.Dialect.QuoteIdent(column)
}

func (st *compilation) table(shapeName string) string {
	return st.c.Dialect.QuoteIdent(st.c.Mapping.Table(shapeName))
}

func (st *compilation) unsupported(kind, reason string) error {
	return queryir.NewUnsupportedPredicateError(kind, Backend+"/"+st.c.Dialect.Name(), reason)
}

// operand is the end of a path: a value expression, or for a many or
// named association the alias of the row that owns the links.
type operand struct {
	expr   string
	owner  string
	step   queryir.Step
	nested bool
}

type condition func(op operand) (string, error)

// path renders cond at the end of ref, wrapping it in one EXISTS subselect
// per association hop.
func (st *compilation) path(kind string, ref queryir.Reference, cond condition) (string, error) {
	return st.walk(kind, ref.Steps(), rootAlias, false, cond)
}

func (st *compilation) walk(kind string, steps []queryir.Step, alias string, nested bool, cond condition) (string, error) {
	s, rest := steps[0], steps[1:]
	col := st.col(alias, st.c.Mapping.Column(s.Shape, s.Name))

	if len(rest) == 0 {
		if s.Kind.IsMulti() {
			return cond(operand{owner: alias, step: s, nested: nested})
		}
		return cond(operand{expr: col, step: s, nested: nested})
	}

	switch {
	case s.Kind == shape.Association:
		t := st.alias("t")
		inner, err := st.walk(kind, rest, t, true, cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s = %s AND %s)",
			st.table(s.Target), t, st.col(t, IdentityColumn), col, inner), nil

	case s.Kind.IsMulti():
		l, t := st.alias("l"), st.alias("t")
		inner, err := st.walk(kind, rest, t, true, cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s JOIN %s %s ON %s = %s WHERE %s AND %s)",
			st.c.Dialect.QuoteIdent(st.c.Mapping.LinkTable()), l,
			st.table(s.Target), t, st.col(t, IdentityColumn), st.col(l, TargetColumn),
			st.linkOwner(l, alias, s), inner), nil

	case s.Value.IsValueObject():
		return st.json(kind, col, nil, rest, nested, cond)
	}
	return "", st.unsupported(kind, fmt.Sprintf("cannot traverse %s %s", s.Kind, s.Name))
}

func (st *compilation) json(kind, base string, path []string, steps []queryir.Step, nested bool, cond condition) (string, error) {
	s, rest := steps[0], steps[1:]
	if s.Kind != shape.Property {
		return "", st.unsupported(kind, fmt.Sprintf("%s %s inside a value object", s.Kind, s.Name))
	}
	path = append(path, s.Name)
	if len(rest) > 0 {
		if !s.Value.IsValueObject() {
			return "", st.unsupported(kind, fmt.Sprintf("cannot traverse %s", s.Name))
		}
		return st.json(kind, base, path, rest, nested, cond)
	}
	expr, err := st.c.Dialect.JSONField(base, path, s.Value)
	if err != nil {
		return "", st.unsupported(kind, err.Error())
	}
	return cond(operand{expr: expr, step: s, nested: nested})
}

func (st *compilation) linkOwner(l, owner string, s queryir.Step) string {
	return fmt.Sprintf("%s = %s AND %s = %s",
		st.col(l, OwnerColumn), st.col(owner, IdentityColumn),
		st.col(l, AccessorColumn), sqlString(s.Name))
}

// scalar renders the single value at the end of steps, for ORDER BY.
func (st *compilation) scalar(steps []queryir.Step, alias string) (string, error) {
	s, rest := steps[0], steps[1:]
	col := st.col(alias, st.c.Mapping.Column(s.Shape, s.Name))
	if len(rest) == 0 {
		return col, nil
	}
	switch {
	case s.Kind == shape.Association:
		t := st.alias("t")
		inner, err := st.scalar(rest, t)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(SELECT %s FROM %s %s WHERE %s = %s)",
			inner, st.table(s.Target), t, st.col(t, IdentityColumn), col), nil
	case s.Value.IsValueObject():
		return st.json("orderBy", col, nil, rest, false, func(op operand) (string, error) {
			return op.expr, nil
		})
	}
	return "", st.unsupported("orderBy", fmt.Sprintf("cannot order through %s %s", s.Kind, s.Name))
}

// strict makes a leaf two-valued: under a negation a NULL column must read
// as false, not unknown. Leaves inside EXISTS are already two-valued.
func (st *compilation) strict(op operand, cond string) string {
	if st.negated == 0 || op.nested {
		return cond
	}
	return fmt.Sprintf("(%s AND %s IS NOT NULL)", cond, op.expr)
}

func literal(v queryir.ValueExpr) ir.IRValue {
	if lit, ok := v.(queryir.Literal); ok {
		return lit.Value
	}
	return nil
}

var comparisonOps = map[queryir.Op]string{
	queryir.OpEq: "=",
	queryir.OpLt: "<",
	queryir.OpLe: "<=",
	queryir.OpGt: ">",
	queryir.OpGe: ">=",
}

func (st *compilation) VisitComparison(n queryir.Comparison) (string, error) {
	p, err := Param(literal(n.Value))
	if err != nil {
		return "", st.unsupported(n.NodeKind(), err.Error())
	}

	if n.Op == queryir.OpNe {
		if n.Ref.Len() == 1 {
			return st.path(n.NodeKind(), n.Ref, func(op operand) (string, error) {
				return fmt.Sprintf("(%s IS NULL OR %s <> %s)", op.expr, op.expr, st.bind(p)), nil
			})
		}
		st.negated++
		defer func() { st.negated-- }()
		inner, err := st.path(n.NodeKind(), n.Ref, func(op operand) (string, error) {
			return st.strict(op, fmt.Sprintf("%s = %s", op.expr, st.bind(p))), nil
		})
		if err != nil {
			return "", err
		}
		return "NOT " + parens(inner), nil
	}

	sym := comparisonOps[n.Op]
	return st.path(n.NodeKind(), n.Ref, func(op operand) (string, error) {
		return st.strict(op, fmt.Sprintf("%s %s %s", op.expr, sym, st.bind(p))), nil
	})
}

func (st *compilation) VisitMatches(n queryir.Matches) (string, error) {
	p, err := Param(literal(n.Pattern))
	if err != nil {
		return "", st.unsupported(n.NodeKind(), err.Error())
	}
	return st.path(n.NodeKind(), n.Ref, func(op operand) (string, error) {
		cond, err := st.c.Dialect.Regexp(op.expr, st.bind(p))
		if err != nil {
			return "", st.unsupported(n.NodeKind(), err.Error())
		}
		return st.strict(op, cond), nil
	})
}

func (st *compilation) contains(kind string, ref queryir.Reference, elems ir.IRArray) (string, error) {
	return st.path(kind, ref, func(op operand) (string, error) {
		if len(elems) == 0 {
			return op.expr + " IS NOT NULL", nil
		}
		cond, err := st.c.Dialect.Contains(op.expr, elems, st.bind)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				return "", st.unsupported(kind, err.Error())
			}
			return "", err
		}
		return st.strict(op, cond), nil
	})
}

func (st *compilation) VisitContains(n queryir.Contains) (string, error) {
	return st.contains(n.NodeKind(), n.Ref, ir.IRArray{literal(n.Value)})
}

func (st *compilation) VisitContainsAll(n queryir.ContainsAll) (string, error) {
	elems, _ := literal(n.Values).(ir.IRArray)
	return st.contains(n.NodeKind(), n.Ref, elems)
}

func (st *compilation) links(kind string, ref queryir.Reference, column string, v ir.IRValue) (string, error) {
	p, err := Param(v)
	if err != nil {
		return "", st.unsupported(kind, err.Error())
	}
	return st.path(kind, ref, func(op operand) (string, error) {
		l := st.alias("l")
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s AND %s = %s)",
			st.c.Dialect.QuoteIdent(st.c.Mapping.LinkTable()), l,
			st.linkOwner(l, op.owner, op.step), st.col(l, column), st.bind(p)), nil
	})
}

func (st *compilation) VisitContainsAssociation(n queryir.ContainsAssociation) (string, error) {
	return st.links(n.NodeKind(), n.Ref, TargetColumn, literal(n.Value))
}

func (st *compilation) VisitContainsName(n queryir.ContainsName) (string, error) {
	return st.links(n.NodeKind(), n.Ref, NameColumn, literal(n.Name))
}

func (st *compilation) notNull(kind string, ref queryir.Reference) (string, error) {
	return st.path(kind, ref, func(op operand) (string, error) {
		return op.expr + " IS NOT NULL", nil
	})
}

func (st *compilation) VisitIsNull(n queryir.IsNull) (string, error) {
	if n.Ref.Len() == 1 {
		return st.path(n.NodeKind(), n.Ref, func(op operand) (string, error) {
			return op.expr + " IS NULL", nil
		})
	}
	inner, err := st.notNull(n.NodeKind(), n.Ref)
	if err != nil {
		return "", err
	}
	return "NOT " + parens(inner), nil
}

func (st *compilation) VisitIsNotNull(n queryir.IsNotNull) (string, error) {
	return st.notNull(n.NodeKind(), n.Ref)
}

func (st *compilation) combine(ops []queryir.Predicate, sep string) (string, error) {
	parts, err := queryir.WalkAll[string](ops, st)
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (st *compilation) VisitAnd(n queryir.And) (string, error) {
	return st.combine(n.Operands, " AND ")
}
func (st *compilation) VisitOr(n queryir.Or) (string, error) { return st.combine(n.Operands, " OR ") }

func (st *compilation) VisitNot(n queryir.Not) (string, error) {
	st.negated++
	defer func() { st.negated-- }()
	inner, err := queryir.Walk[string](n.Operand, st)
	if err != nil {
		return "", err
	}
	return "NOT " + parens(inner), nil
}

// parens wraps s unless it is already a single parenthesized group or an
// EXISTS subselect.
func parens(s string) string {
	if strings.HasPrefix(s, "EXISTS (") || enclosed(s) {
		return s
	}
	return "(" + s + ")"
}

func enclosed(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}
