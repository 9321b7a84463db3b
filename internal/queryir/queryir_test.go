package queryir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

var (
	nameStep  = Step{Shape: "Person", Name: "name", Kind: shape.Property, Value: shape.Scalar(ir.KindString)}
	yearStep  = Step{Shape: "Person", Name: "yearOfBirth", Kind: shape.Property, Value: shape.Scalar(ir.KindInt)}
	placeStep = Step{Shape: "Person", Name: "placeOfBirth", Kind: shape.Association, Value: shape.Scalar(ir.KindEntity), Target: "City"}
	cityName  = Step{Shape: "City", Name: "name", Kind: shape.Property, Value: shape.Scalar(ir.KindString)}
)

func TestReferenceEquality(t *testing.T) {
	a := NewReference("Person", placeStep, cityName)
	b := NewReference("Person", placeStep).Append(cityName)
	c := NewReference("Person", nameStep)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.True(t, cmp.Equal(a, b), "cmp uses the Equal method")
}

func TestReferenceImmutable(t *testing.T) {
	steps := []Step{placeStep, cityName}
	r := NewReference("Person", steps...)
	steps[0].Name = "mutated"
	assert.Equal(t, "Person.placeOfBirth.name", r.String())

	got := r.Steps()
	got[1].Name = "mutated"
	assert.Equal(t, "Person.placeOfBirth.name", r.String())

	parent := NewReference("Person", placeStep)
	child1 := parent.Append(cityName)
	child2 := parent.Append(Step{Shape: "City", Name: "country", Kind: shape.Property})
	assert.Equal(t, "Person.placeOfBirth.name", child1.String())
	assert.Equal(t, "Person.placeOfBirth.country", child2.String())
	assert.Equal(t, 1, parent.Len())
}

func TestReferenceAccessors(t *testing.T) {
	r := NewReference("Person", placeStep, cityName)

	assert.Equal(t, "Person", r.Root())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"placeOfBirth", "name"}, r.Names())
	assert.Equal(t, "placeOfBirth.name", r.Path())
	assert.Equal(t, shape.Property, r.Kind())
	assert.Equal(t, ir.KindString, r.ValueType().Kind)
	assert.Equal(t, "City", r.Last().Shape)
	assert.False(t, r.IsZero())
	assert.True(t, Reference{}.IsZero())

	parent, ok := r.Parent()
	require.True(t, ok)
	assert.Equal(t, "Person.placeOfBirth", parent.String())
	_, ok = parent.Parent()
	assert.False(t, ok)
}

func TestOpHolds(t *testing.T) {
	tests := []struct {
		op   Op
		c    int
		want bool
	}{
		{OpEq, 0, true}, {OpEq, 1, false},
		{OpNe, -1, true}, {OpNe, 0, false},
		{OpLt, -1, true}, {OpLt, 0, false},
		{OpLe, 0, true}, {OpLe, 1, false},
		{OpGt, 1, true}, {OpGt, 0, false},
		{OpGe, 0, true}, {OpGe, -1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.Holds(tt.c), "%s %d", tt.op, tt.c)
	}
	assert.True(t, OpGe.Ordering())
	assert.False(t, OpNe.Ordering())
	assert.Equal(t, "op(9)", Op(9).String())
}

func samplePredicate() Predicate {
	return And{Operands: []Predicate{
		Comparison{Op: OpGe, Ref: NewReference("Person", yearStep), Value: Lit(ir.IRInt(1900))},
		Comparison{Op: OpEq, Ref: NewReference("Person", placeStep, cityName), Value: Variable{Name: "city"}},
	}}
}

func TestFormat(t *testing.T) {
	assert.Equal(t,
		`and(ge(Person.yearOfBirth, 1900), eq(Person.placeOfBirth.name, ${city}))`,
		Format(samplePredicate()))

	assert.Equal(t, "all", Format(nil))
	assert.Equal(t, "not(isNull(Person.name))", Format(Not{Operand: IsNull{Ref: NewReference("Person", nameStep)}}))
	assert.Equal(t, `containsAll(Person.name, ["a", 1])`, Format(ContainsAll{
		Ref:    NewReference("Person", nameStep),
		Values: Lit(ir.IRArray{ir.IRString("a"), ir.IRInt(1)}),
	}))
	assert.Equal(t, "containsAssociation(Person.placeOfBirth, <city-kl>)", Format(ContainsAssociation{
		Ref:   NewReference("Person", placeStep),
		Value: Lit(ir.IREntity("city-kl")),
	}))
	assert.Equal(t, "Person.name desc", FormatOrder([]OrderBy{{Ref: NewReference("Person", nameStep), Direction: Descending}}))
}

func TestEncodeStructuralEquality(t *testing.T) {
	a := ir.MustFingerprint(ir.DomainSpecification, Encode(samplePredicate()))
	b := ir.MustFingerprint(ir.DomainSpecification, Encode(samplePredicate()))
	assert.Equal(t, a, b)

	other := Encode(Or{Operands: samplePredicate().(And).Operands})
	assert.NotEqual(t, a, ir.MustFingerprint(ir.DomainSpecification, other))
	assert.Equal(t, ir.IRNull{}, Encode(nil))
}

func TestVariables(t *testing.T) {
	p := Or{Operands: []Predicate{
		samplePredicate(),
		Not{Operand: Matches{Ref: NewReference("Person", nameStep), Pattern: Variable{Name: "pattern"}}},
		Comparison{Op: OpLt, Ref: NewReference("Person", yearStep), Value: Variable{Name: "city"}},
	}}
	assert.Equal(t, []string{"city", "pattern"}, Variables(p))
	assert.Empty(t, Variables(nil))
}

func TestMapValuesDoesNotMutate(t *testing.T) {
	orig := samplePredicate()
	before := Format(orig)

	mapped, err := MapValues(orig, func(_ Predicate, v ValueExpr) (ValueExpr, error) {
		if vr, ok := v.(Variable); ok && vr.Name == "city" {
			return Lit(ir.IRString("Penang")), nil
		}
		return v, nil
	})
	require.NoError(t, err)

	assert.Equal(t, before, Format(orig))
	assert.Equal(t, `and(ge(Person.yearOfBirth, 1900), eq(Person.placeOfBirth.name, "Penang"))`, Format(mapped))
}

func TestMapValuesPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := MapValues(samplePredicate(), func(Predicate, ValueExpr) (ValueExpr, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestReferences(t *testing.T) {
	refs := References(samplePredicate())
	require.Len(t, refs, 2)
	assert.Equal(t, "Person.yearOfBirth", refs[0].String())
	assert.Equal(t, "Person.placeOfBirth.name", refs[1].String())
}

type countingVisitor struct{ leaves int }

func (c *countingVisitor) leaf() (int, error) { c.leaves++; return 1, nil }

func (c *countingVisitor) VisitComparison(Comparison) (int, error)   { return c.leaf() }
func (c *countingVisitor) VisitMatches(Matches) (int, error)         { return c.leaf() }
func (c *countingVisitor) VisitContains(Contains) (int, error)       { return c.leaf() }
func (c *countingVisitor) VisitContainsAll(ContainsAll) (int, error) { return c.leaf() }
func (c *countingVisitor) VisitContainsAssociation(ContainsAssociation) (int, error) {
	return c.leaf()
}
func (c *countingVisitor) VisitContainsName(ContainsName) (int, error) { return c.leaf() }
func (c *countingVisitor) VisitIsNull(IsNull) (int, error)             { return c.leaf() }
func (c *countingVisitor) VisitIsNotNull(IsNotNull) (int, error)       { return c.leaf() }
func (c *countingVisitor) VisitAnd(n And) (int, error)                 { return c.sum(n.Operands) }
func (c *countingVisitor) VisitOr(n Or) (int, error)                   { return c.sum(n.Operands) }
func (c *countingVisitor) VisitNot(n Not) (int, error)                 { return Walk[int](n.Operand, c) }

func (c *countingVisitor) sum(ops []Predicate) (int, error) {
	rs, err := WalkAll[int](ops, c)
	total := 0
	for _, r := range rs {
		total += r
	}
	return total, err
}

func TestWalkDispatch(t *testing.T) {
	v := &countingVisitor{}
	n, err := Walk[int](Not{Operand: samplePredicate()}, v)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, v.leaves)
}

func TestValidate(t *testing.T) {
	ref := NewReference("Person", nameStep)

	tests := []struct {
		name    string
		p       Predicate
		wantErr string
	}{
		{"nil is match all", nil, ""},
		{"valid tree", samplePredicate(), ""},
		{"and arity", And{Operands: []Predicate{IsNull{Ref: ref}}}, "and needs at least 2 operands, got 1"},
		{"or nil operand", Or{Operands: []Predicate{IsNull{Ref: ref}, nil}}, "where.or[1]: nil operand"},
		{"not without operand", Not{}, "where.not: nil operand"},
		{"zero reference", IsNotNull{}, "isNotNull without reference"},
		{"missing value", Comparison{Op: OpEq, Ref: ref}, "eq(Person.name) without value"},
		{"unnamed variable", Contains{Ref: ref, Value: Variable{}}, "unnamed variable"},
		{"containsAll scalar", ContainsAll{Ref: ref, Values: Lit(ir.IRString("a"))}, "needs a collection value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
