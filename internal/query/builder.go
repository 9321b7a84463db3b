package query

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// Builder assembles a Specification. Methods have value receivers and
// return a new Builder, so a partially built query can be reused as a base.
type Builder struct {
	reg      *shape.Registry
	shape    string
	where    queryir.Predicate
	order    []queryir.OrderBy
	first    int
	max      int
	hasFirst bool
	hasMax   bool
	defaults map[string]ir.IRValue
	errs     []error
}

// NewBuilder starts a query returning entities of resultShape. reg may be
// nil, in which case every reference must be rooted at resultShape itself;
// with a registry, references rooted at a supertype are accepted too.
func NewBuilder(reg *shape.Registry, resultShape string) Builder {
	return Builder{reg: reg, shape: resultShape}
}

// Where adds a filter. The first call sets it; later calls AND the new
// predicate with what is already there.
func (b Builder) Where(p queryir.Predicate) Builder {
	if b.where == nil {
		b.where = p
		return b
	}
	b.where = And(b.where, p)
	return b
}

// OrderBy appends ordering segments. Earlier segments take priority.
func (b Builder) OrderBy(o ...queryir.OrderBy) Builder {
	b.order = append(slices.Clone(b.order), o...)
	return b
}

// FirstResult skips the first n results.
func (b Builder) FirstResult(n int) Builder {
	b.first, b.hasFirst = n, true
	return b
}

// MaxResults limits the query to n results.
func (b Builder) MaxResults(n int) Builder {
	b.max, b.hasMax = n, true
	return b
}

// WithVariable declares a default value for a variable. Bindings passed at
// execution time take precedence.
func (b Builder) WithVariable(name string, value any) Builder {
	v, err := ir.FromGo(value)
	if err != nil {
		b.errs = append(slices.Clone(b.errs), fmt.Errorf("variable %q: %w", name, err))
		return b
	}
	b.defaults = maps.Clone(b.defaults)
	if b.defaults == nil {
		b.defaults = map[string]ir.IRValue{}
	}
	b.defaults[name] = v
	return b
}

// Build validates the query and returns an independent Specification.
func (b Builder) Build() (Specification, error) {
	errs := slices.Clone(b.errs)

	if b.shape == "" {
		errs = append(errs, errors.New("result shape is required"))
	} else if b.reg != nil {
		if _, ok := b.reg.Lookup(b.shape); !ok {
			errs = append(errs, queryir.NewUnknownShapeError(b.shape))
		}
	}
	if b.hasFirst && b.first < 0 {
		errs = append(errs, fmt.Errorf("firstResult must not be negative, got %d", b.first))
	}
	if b.hasMax && b.max < 0 {
		errs = append(errs, fmt.Errorf("maxResults must not be negative, got %d", b.max))
	}
	if b.where != nil {
		if err := queryir.Validate(b.where); err != nil {
			errs = append(errs, err)
		}
	}

	refs := queryir.References(b.where)
	for _, o := range b.order {
		refs = append(refs, o.Ref)
	}
	for _, r := range refs {
		if !b.rooted(r) {
			errs = append(errs, fmt.Errorf("reference %s is not rooted at %s", r, b.shape))
			continue
		}
		if err := b.resolve(r); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return Specification{}, fmt.Errorf("build %s query: %w", b.shape, errors.Join(errs...))
	}

	return Specification{
		shape:    b.shape,
		where:    b.where,
		order:    slices.Clone(b.order),
		first:    b.first,
		max:      b.max,
		hasFirst: b.hasFirst,
		hasMax:   b.hasMax,
		defaults: maps.Clone(b.defaults),
	}, nil
}

// MustBuild is like Build but panics on error.
func (b Builder) MustBuild() Specification {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// resolve checks every step of r against the registry, so a hand-assembled
// Reference cannot reach an accessor a Template would have refused.
func (b Builder) resolve(r queryir.Reference) error {
	if b.reg == nil {
		return nil
	}
	owner := r.Root()
	for i := range r.Len() {
		st := r.Step(i)
		if st.Shape != "" {
			owner = st.Shape
		}
		a, ok := b.reg.Accessor(owner, st.Name)
		switch {
		case !ok:
			return queryir.NewUnknownAccessorError(owner, st.Name)
		case !a.Queryable:
			return queryir.NewUnqueryableAccessorError(owner, st.Name)
		case a.Kind != st.Kind:
			return queryir.NewTypeMismatchError(owner, st.Name, "is a %s, not a %s", a.Kind, st.Kind)
		}
		owner = a.Target
		if owner == "" {
			owner = a.Value.Shape
		}
	}
	return nil
}

func (b Builder) rooted(r queryir.Reference) bool {
	if r.Root() == b.shape {
		return true
	}
	return b.reg != nil && b.reg.AssignableTo(b.shape, r.Root())
}
