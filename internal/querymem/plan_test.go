package querymem

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/template"
	"github.com/roach88/shapeq/internal/testutil"
)

var (
	reg    = testutil.People()
	person = template.MustFor(reg, "Person")

	name     = person.MustProperty("name")
	year     = person.MustProperty("yearOfBirth")
	height   = person.MustProperty("height")
	born     = person.MustProperty("born")
	email    = person.MustProperty("email")
	tags     = person.MustProperty("tags")
	street   = person.MustPath("address", "street")
	pob      = person.MustAssociation("placeOfBirth")
	cityName = person.MustPath("placeOfBirth", "name")
	children = person.MustManyAssociation("children")
	places   = person.MustNamedAssociation("places")
	kidYear  = person.MustPath("children", "yearOfBirth")
	placeNm  = person.MustPath("places", "name")
)

func people() []entity.Entity {
	return testutil.PeopleSet().OfShape("Person", "City")
}

func run(t *testing.T, b query.Builder, vars query.Bindings) []string {
	t.Helper()
	spec, err := b.Build()
	require.NoError(t, err)
	plan, err := Translate(spec, vars, WithResolver(testutil.PeopleSet()), WithRegistry(reg))
	require.NoError(t, err)
	return testutil.Names(plan.Run(people()))
}

func where(p queryir.Predicate) query.Builder {
	return query.NewBuilder(reg, "Person").Where(p)
}

func TestPeopleScenario(t *testing.T) {
	t.Run("born after 1973", func(t *testing.T) {
		got := run(t, where(query.Must(query.Ge(year, 1973))), nil)
		assert.Equal(t, []string{"Ann Doe", "Joe Doe", "Vivian Smith"}, got)
	})

	t.Run("born in Penang", func(t *testing.T) {
		p := query.And(
			query.Must(query.Ge(year, 1900)),
			query.Must(query.Eq(cityName, "Penang")),
		)
		assert.Equal(t, []string{"Jack Doe"}, run(t, where(p), nil))
	})

	t.Run("ordered by name", func(t *testing.T) {
		b := query.NewBuilder(reg, "Person").OrderBy(query.MustOrderBy(name))
		assert.Equal(t, []string{"Ann Doe", "Jack Doe", "Joe Doe", "Vivian Smith"}, run(t, b, nil))
	})

	t.Run("variable city", func(t *testing.T) {
		p := query.Must(query.Eq(cityName, query.Var("city")))
		got := run(t, where(p), query.Bindings{"city": "Kuala Lumpur"})
		assert.Equal(t, []string{"Ann Doe", "Joe Doe", "Vivian Smith"}, got)
	})
}

func TestLeafPredicates(t *testing.T) {
	tests := []struct {
		name string
		p    queryir.Predicate
		want []string
	}{
		{"eq string", query.Must(query.Eq(name, "Joe Doe")), []string{"Joe Doe"}},
		{"ne includes null", query.Must(query.Ne(email, "ann@doe.example")), []string{"Joe Doe", "Jack Doe", "Vivian Smith"}},
		{"lt int", query.Must(query.Lt(year, 1975)), []string{"Jack Doe"}},
		{"le int", query.Must(query.Le(year, 1975)), []string{"Ann Doe", "Jack Doe"}},
		{"gt float", query.Must(query.Gt(height, 1.7)), []string{"Joe Doe", "Jack Doe"}},
		{"gt string", query.Must(query.Gt(name, "Jo")), []string{"Joe Doe", "Vivian Smith"}},
		{"lt time", query.Must(query.Lt(born, "1980-01-01")), []string{"Ann Doe", "Jack Doe"}},
		{"matches", query.Must(query.Matches(name, "^J")), []string{"Joe Doe", "Jack Doe"}},
		{"contains", query.Must(query.Contains(tags, "chess")), []string{"Ann Doe", "Joe Doe"}},
		{"containsAll", query.Must(query.ContainsAll(tags, []string{"chess", "cooking"})), []string{"Ann Doe"}},
		{"containsAll empty", query.Must(query.ContainsAll(tags, []string{})), []string{"Ann Doe", "Joe Doe", "Jack Doe", "Vivian Smith"}},
		{"containsAssociation many", query.Must(query.ContainsAssociation(children, testutil.Joe)), []string{"Ann Doe", "Jack Doe"}},
		{"containsAssociation named", query.Must(query.ContainsAssociation(places, testutil.Penang)), []string{"Ann Doe", "Jack Doe"}},
		{"containsName", query.Must(query.ContainsName(places, "work")), []string{"Ann Doe"}},
		{"isNull", query.Must(query.IsNull(email)), []string{"Joe Doe"}},
		{"isNotNull value object", query.Must(query.IsNotNull(street)), []string{"Ann Doe", "Jack Doe"}},
		{"eq association", query.Must(query.Eq(pob, testutil.Penang)), []string{"Jack Doe"}},
		{"value object path", query.Must(query.Eq(street, "Lebuh Chulia")), []string{"Jack Doe"}},
		{"any child", query.Must(query.Ge(kidYear, 1990)), []string{"Ann Doe", "Jack Doe"}},
		{"any named place", query.Must(query.Eq(placeNm, "Penang")), []string{"Ann Doe", "Jack Doe"}},
		{"not", query.Not(query.Must(query.Contains(tags, "chess"))), []string{"Jack Doe", "Vivian Smith"}},
		{"or", query.Or(query.Must(query.Lt(year, 1971)), query.Must(query.Gt(year, 1991))), []string{"Jack Doe", "Vivian Smith"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, where(tt.p), nil))
		})
	}
}

func TestShapeFilter(t *testing.T) {
	got := run(t, query.NewBuilder(reg, "City"), nil)
	assert.Equal(t, []string{"Kuala Lumpur", "Penang"}, got)

	nameable := run(t, query.NewBuilder(reg, "Nameable"), nil)
	assert.Len(t, nameable, 6, "subtypes match their supertype")

	spec := query.NewBuilder(nil, "Nameable").MustBuild()
	plan, err := Translate(spec, nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Run(people()), "without a registry only exact shapes match")
}

func TestOrderIndependence(t *testing.T) {
	p := query.And(
		query.Must(query.Ge(year, 1970)),
		query.Must(query.Eq(cityName, "Kuala Lumpur")),
	)
	plan, err := Translate(where(p).MustBuild(), nil, WithResolver(testutil.PeopleSet()), WithRegistry(reg))
	require.NoError(t, err)

	base := ids(plan.Run(people()))
	slices.Sort(base)

	r := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		es := people()
		r.Shuffle(len(es), func(i, j int) { es[i], es[j] = es[j], es[i] })
		got := ids(plan.Run(es))
		slices.Sort(got)
		assert.Equal(t, base, got)
	}
}

func TestAndIsIntersection(t *testing.T) {
	p := query.Must(query.Contains(tags, "cooking"))
	q := query.Must(query.Eq(cityName, "Kuala Lumpur"))

	ps := run(t, where(p), nil)
	qs := run(t, where(q), nil)
	both := run(t, where(query.And(p, q)), nil)

	var want []string
	for _, n := range ps {
		if slices.Contains(qs, n) {
			want = append(want, n)
		}
	}
	assert.Equal(t, want, both)
}

func TestOrderingTieBreak(t *testing.T) {
	mk := func(id string, a, b int64) entity.Entity {
		return entity.Record{ID: id, Type: "Person", State: ir.IRObject{
			"yearOfBirth": ir.IRInt(a),
			"height":      ir.IRFloat(float64(b)),
			"name":        ir.IRString(id),
		}}
	}
	es := []entity.Entity{mk("x", 1, 2), mk("y", 1, 1), mk("z", 0, 5)}

	asc := query.NewBuilder(reg, "Person").
		OrderBy(query.MustOrderBy(year), query.MustOrderBy(height)).
		MustBuild()
	plan, err := Translate(asc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x"}, ids(plan.Run(es)))

	// Swapping the input order of x and y does not change the result.
	plan2, err := Translate(asc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x"}, ids(plan2.Run([]entity.Entity{es[1], es[0], es[2]})))

	// Reversing the second segment only reverses its tie-break.
	desc := query.NewBuilder(reg, "Person").
		OrderBy(query.MustOrderBy(year), query.MustOrderBy(height, query.Descending)).
		MustBuild()
	plan, err = Translate(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y"}, ids(plan.Run(es)))
}

func TestNullsSortFirst(t *testing.T) {
	b := query.NewBuilder(reg, "Person").OrderBy(query.MustOrderBy(email))
	assert.Equal(t, []string{"Joe Doe", "Ann Doe", "Jack Doe", "Vivian Smith"}, run(t, b, nil))
}

func TestPagination(t *testing.T) {
	ordered := query.NewBuilder(reg, "Person").OrderBy(query.MustOrderBy(name))
	full := run(t, ordered, nil)

	for k := 0; k <= 5; k++ {
		for n := 0; n <= 5; n++ {
			got := run(t, ordered.FirstResult(k).MaxResults(n), nil)
			lo := min(k, len(full))
			hi := min(k+n, len(full))
			assert.Equal(t, full[lo:hi], nonNil(got), "first=%d max=%d", k, n)
		}
	}

	unsorted := run(t, query.NewBuilder(reg, "Person").MaxResults(3), nil)
	assert.Len(t, unsorted, 3)
}

func TestApplyIsLazy(t *testing.T) {
	spec := query.NewBuilder(reg, "Person").MaxResults(1).MustBuild()
	plan, err := Translate(spec, nil)
	require.NoError(t, err)

	pulled := 0
	src := func(yield func(entity.Entity) bool) {
		for _, e := range people() {
			pulled++
			if !yield(e) {
				return
			}
		}
	}
	got := slices.Collect(plan.Apply(src))
	assert.Len(t, got, 1)
	assert.Equal(t, 3, pulled, "two cities then the first person")
}

func TestCount(t *testing.T) {
	spec := where(query.Must(query.Ge(year, 1973))).MaxResults(1).MustBuild()
	plan, err := Translate(spec, nil, WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, int64(3), plan.Count(slices.Values(people())))
}

func TestTranslateErrors(t *testing.T) {
	spec := where(query.Must(query.Eq(name, query.Var("who")))).MustBuild()
	_, err := Translate(spec, nil)
	assert.True(t, queryir.IsUnboundVariable(err))

	pattern := where(query.Must(query.Matches(name, query.Var("re")))).MustBuild()
	_, err = Translate(pattern, query.Bindings{"re": "("})
	assert.True(t, queryir.IsTypeMismatch(err))
}

func TestDanglingReference(t *testing.T) {
	set := entity.NewSet(entity.Record{ID: "p", Type: "Person", State: ir.IRObject{
		"name":         ir.IRString("Lost"),
		"placeOfBirth": ir.IREntity("nowhere"),
	}})
	spec := where(query.Must(query.IsNull(cityName))).MustBuild()
	plan, err := Translate(spec, nil, WithResolver(set))
	require.NoError(t, err)
	assert.Equal(t, []string{"Lost"}, testutil.Names(plan.Run(set.OfShape("Person"))))
}

func ids(es []entity.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Identity()
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
