package querymem

import (
	"iter"
	"regexp"
	"slices"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// Backend is the backend name reported in errors.
const Backend = "memory"

// Option configures a Plan.
type Option func(*Plan)

// WithResolver sets the resolver used to follow association values.
// Without one, paths through associations find no values.
func WithResolver(r entity.Resolver) Option {
	return func(p *Plan) { p.resolver = r }
}

// WithRegistry lets the plan accept entities whose shape extends the
// result shape. Without a registry only exact shape matches are kept.
func WithRegistry(reg *shape.Registry) Option {
	return func(p *Plan) { p.reg = reg }
}

// Plan is a compiled in-memory query. It is immutable and safe for
// concurrent use.
type Plan struct {
	spec     query.Specification
	match    predicate
	order    []queryir.OrderBy
	resolver entity.Resolver
	reg      *shape.Registry
}

type predicate func(entity.Entity) bool

// Translate resolves spec's variables with vars and compiles the result.
func Translate(spec query.Specification, vars query.Bindings, opts ...Option) (*Plan, error) {
	resolved, err := query.Resolve(spec, vars)
	if err != nil {
		return nil, err
	}

	p := &Plan{spec: resolved, order: resolved.OrderBy()}
	for _, opt := range opts {
		opt(p)
	}

	p.match = func(entity.Entity) bool { return true }
	if where := resolved.Where(); where != nil {
		m, err := queryir.Walk[predicate](where, translator{plan: p})
		if err != nil {
			return nil, err
		}
		p.match = m
	}
	return p, nil
}

// Specification returns the resolved specification the plan runs.
func (p *Plan) Specification() query.Specification { return p.spec }

// Match reports whether e is of the result shape and satisfies the filter.
func (p *Plan) Match(e entity.Entity) bool {
	return p.accepts(e.Shape()) && p.match(e)
}

func (p *Plan) accepts(shapeName string) bool {
	if shapeName == p.spec.ResultShape() {
		return true
	}
	return p.reg != nil && p.reg.AssignableTo(shapeName, p.spec.ResultShape())
}

// Compare orders a and b by the plan's ordering segments: the first
// segment decides unless it ties, then the next. Absent values sort first
// in ascending order.
func (p *Plan) Compare(a, b entity.Entity) int {
	for _, o := range p.order {
		c := compareValues(p.first(a, o.Ref), p.first(b, o.Ref))
		if o.Direction == queryir.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func (p *Plan) first(e entity.Entity, ref queryir.Reference) ir.IRValue {
	if vs := valuesAt(e, ref, p.resolver); len(vs) > 0 {
		return vs[0]
	}
	return nil
}

func compareValues(a, b ir.IRValue) int {
	c, ok := ir.Compare(a, b)
	if !ok {
		return 0
	}
	return c
}

// Apply filters, sorts and paginates src. Filtering is lazy when there is
// no ordering; otherwise the matches are collected and stably sorted first.
func (p *Plan) Apply(src iter.Seq[entity.Entity]) iter.Seq[entity.Entity] {
	skip, _ := p.spec.FirstResult()
	take, limited := p.spec.MaxResults()

	return func(yield func(entity.Entity) bool) {
		if limited && take == 0 {
			return
		}

		matches := func(yield func(entity.Entity) bool) {
			for e := range src {
				if p.Match(e) && !yield(e) {
					return
				}
			}
		}

		if len(p.order) > 0 {
			sorted := slices.Collect(iter.Seq[entity.Entity](matches))
			slices.SortStableFunc(sorted, p.Compare)
			matches = func(yield func(entity.Entity) bool) {
				for _, e := range sorted {
					if !yield(e) {
						return
					}
				}
			}
		}

		seen, taken := 0, 0
		for e := range matches {
			if seen < skip {
				seen++
				continue
			}
			if !yield(e) {
				return
			}
			taken++
			if limited && taken >= take {
				return
			}
		}
	}
}

// Run applies the plan to a slice.
func (p *Plan) Run(es []entity.Entity) []entity.Entity {
	return slices.Collect(p.Apply(slices.Values(es)))
}

// Count returns the number of entities in src that match, ignoring
// pagination.
func (p *Plan) Count(src iter.Seq[entity.Entity]) int64 {
	var n int64
	for e := range src {
		if p.Match(e) {
			n++
		}
	}
	return n
}

// translator compiles predicate nodes into closures.
type translator struct {
	plan *Plan
}

func (t translator) values(e entity.Entity, ref queryir.Reference) []ir.IRValue {
	return valuesAt(e, ref, t.plan.resolver)
}

func literal(v queryir.ValueExpr) ir.IRValue {
	if lit, ok := v.(queryir.Literal); ok {
		return lit.Value
	}
	return nil
}

func (t translator) VisitComparison(n queryir.Comparison) (predicate, error) {
	want := literal(n.Value)
	if n.Op == queryir.OpNe {
		return func(e entity.Entity) bool {
			return !slices.ContainsFunc(t.values(e, n.Ref), func(v ir.IRValue) bool { return ir.Equal(v, want) })
		}, nil
	}
	return func(e entity.Entity) bool {
		for _, v := range t.values(e, n.Ref) {
			if n.Op == queryir.OpEq {
				if ir.Equal(v, want) {
					return true
				}
				continue
			}
			if c, ok := ir.Compare(v, want); ok && n.Op.Holds(c) {
				return true
			}
		}
		return false
	}, nil
}

func (t translator) VisitMatches(n queryir.Matches) (predicate, error) {
	s, _ := literal(n.Pattern).(ir.IRString)
	re, err := regexp.Compile(string(s))
	if err != nil {
		return nil, queryir.NewTypeMismatchError(n.Ref.Last().Shape, n.Ref.Last().Name, "invalid pattern: %v", err)
	}
	return func(e entity.Entity) bool {
		for _, v := range t.values(e, n.Ref) {
			if s, ok := v.(ir.IRString); ok && re.MatchString(string(s)) {
				return true
			}
		}
		return false
	}, nil
}

func (t translator) VisitContains(n queryir.Contains) (predicate, error) {
	want := literal(n.Value)
	return func(e entity.Entity) bool {
		for _, v := range t.values(e, n.Ref) {
			if arr, ok := v.(ir.IRArray); ok && holds(arr, want) {
				return true
			}
		}
		return false
	}, nil
}

func (t translator) VisitContainsAll(n queryir.ContainsAll) (predicate, error) {
	want, _ := literal(n.Values).(ir.IRArray)
	return func(e entity.Entity) bool {
		for _, v := range t.values(e, n.Ref) {
			arr, ok := v.(ir.IRArray)
			if !ok {
				continue
			}
			all := true
			for _, w := range want {
				if !holds(arr, w) {
					all = false
					break
				}
			}
			if all {
				return true
			}
		}
		return false
	}, nil
}

func (t translator) VisitContainsAssociation(n queryir.ContainsAssociation) (predicate, error) {
	want := literal(n.Value)
	return func(e entity.Entity) bool {
		for _, v := range t.values(e, n.Ref) {
			switch x := v.(type) {
			case ir.IRArray:
				if holds(x, want) {
					return true
				}
			case ir.IRObject:
				for _, k := range x.SortedKeys() {
					if ir.Equal(x[k], want) {
						return true
					}
				}
			}
		}
		return false
	}, nil
}

func (t translator) VisitContainsName(n queryir.ContainsName) (predicate, error) {
	name, _ := literal(n.Name).(ir.IRString)
	return func(e entity.Entity) bool {
		for _, v := range t.values(e, n.Ref) {
			if obj, ok := v.(ir.IRObject); ok {
				if _, ok := obj[string(name)]; ok {
					return true
				}
			}
		}
		return false
	}, nil
}

func (t translator) VisitIsNull(n queryir.IsNull) (predicate, error) {
	return func(e entity.Entity) bool { return len(t.values(e, n.Ref)) == 0 }, nil
}

func (t translator) VisitIsNotNull(n queryir.IsNotNull) (predicate, error) {
	return func(e entity.Entity) bool { return len(t.values(e, n.Ref)) > 0 }, nil
}

func (t translator) VisitAnd(n queryir.And) (predicate, error) {
	ps, err := queryir.WalkAll[predicate](n.Operands, t)
	if err != nil {
		return nil, err
	}
	return func(e entity.Entity) bool {
		for _, p := range ps {
			if !p(e) {
				return false
			}
		}
		return true
	}, nil
}

func (t translator) VisitOr(n queryir.Or) (predicate, error) {
	ps, err := queryir.WalkAll[predicate](n.Operands, t)
	if err != nil {
		return nil, err
	}
	return func(e entity.Entity) bool {
		for _, p := range ps {
			if p(e) {
				return true
			}
		}
		return false
	}, nil
}

func (t translator) VisitNot(n queryir.Not) (predicate, error) {
	p, err := queryir.Walk[predicate](n.Operand, t)
	if err != nil {
		return nil, err
	}
	return func(e entity.Entity) bool { return !p(e) }, nil
}

func holds(arr ir.IRArray, want ir.IRValue) bool {
	return slices.ContainsFunc(arr, func(v ir.IRValue) bool { return ir.Equal(v, want) })
}
