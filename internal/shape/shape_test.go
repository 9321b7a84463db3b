package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/ir"
)

func people(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		Define("Nameable").Property("name", Scalar(ir.KindString)).Descriptor(),
		Define("City", "Nameable").Property("country", Scalar(ir.KindString)).Descriptor(),
		Define("Address").Property("street", Scalar(ir.KindString)).Descriptor(),
		Define("Person", "Nameable").
			Property("yearOfBirth", Scalar(ir.KindInt)).
			Property("tags", Collection(ir.KindString)).
			Property("address", ValueObject("Address")).
			Hidden("password", Scalar(ir.KindString)).
			Association("placeOfBirth", "City").
			ManyAssociation("children", "Person").
			NamedAssociation("accounts", "City").
			Descriptor(),
		Define("Employee", "Person").Property("salary", Scalar(ir.KindFloat)).Descriptor(),
	)
	require.NoError(t, err)
	return r
}

func TestRegistryLookup(t *testing.T) {
	r := people(t)

	d, ok := r.Lookup("Person")
	require.True(t, ok)
	assert.Equal(t, "Person", d.Name)

	_, ok = r.Lookup("Martian")
	assert.False(t, ok)

	assert.Equal(t, []string{"Address", "City", "Employee", "Nameable", "Person"}, r.Names())
}

func TestRegistryInheritedAccessor(t *testing.T) {
	r := people(t)

	a, ok := r.Accessor("Employee", "name")
	require.True(t, ok)
	assert.Equal(t, Property, a.Kind)
	assert.Equal(t, ir.KindString, a.Value.Kind)

	a, ok = r.Accessor("Employee", "placeOfBirth")
	require.True(t, ok)
	assert.Equal(t, "City", a.Target)

	_, ok = r.Accessor("City", "yearOfBirth")
	assert.False(t, ok)
}

func TestRegistryAccessorsOrder(t *testing.T) {
	r := people(t)

	var names []string
	for _, a := range r.Accessors("Employee") {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{
		"salary", "yearOfBirth", "tags", "address", "password",
		"placeOfBirth", "children", "accounts", "name",
	}, names)
}

func TestRegistryAssignable(t *testing.T) {
	r := people(t)

	assert.True(t, r.AssignableTo("Employee", "Person"))
	assert.True(t, r.AssignableTo("Employee", "Nameable"))
	assert.True(t, r.AssignableTo("Person", "Person"))
	assert.False(t, r.AssignableTo("Person", "Employee"))
	assert.False(t, r.AssignableTo("City", "Person"))

	assert.Equal(t, []string{"Employee", "Person"}, r.Subtypes("Person"))
}

func TestNewRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		shapes  []*Descriptor
		wantErr string
	}{
		{
			name:    "duplicate",
			shapes:  []*Descriptor{Define("A").Descriptor(), Define("A").Descriptor()},
			wantErr: `duplicate shape "A"`,
		},
		{
			name:    "unknown target",
			shapes:  []*Descriptor{Define("A").Association("b", "B").Descriptor()},
			wantErr: `A.b targets unknown shape "B"`,
		},
		{
			name:    "unknown super",
			shapes:  []*Descriptor{Define("A", "Z").Descriptor()},
			wantErr: `A extends unknown shape "Z"`,
		},
		{
			name:    "unknown value shape",
			shapes:  []*Descriptor{Define("A").Property("v", ValueObject("V")).Descriptor()},
			wantErr: `unknown value shape "V"`,
		},
		{
			name:    "nameless",
			shapes:  []*Descriptor{{}},
			wantErr: "without name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.shapes...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustRegistryPanics(t *testing.T) {
	assert.Panics(t, func() { MustRegistry(Define("A", "missing").Descriptor()) })
}

func TestValueTypeOrdered(t *testing.T) {
	assert.True(t, Scalar(ir.KindString).Ordered())
	assert.True(t, Scalar(ir.KindTime).Ordered())
	assert.True(t, Scalar(ir.KindFloat).Ordered())
	assert.False(t, Scalar(ir.KindBool).Ordered())
	assert.False(t, Collection(ir.KindInt).Ordered())
	assert.False(t, ValueObject("Address").Ordered())
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "[string]", Collection(ir.KindString).String())
	assert.Equal(t, "Address", ValueObject("Address").String())
	assert.Equal(t, "namedAssociation", NamedAssociation.String())
	assert.Equal(t, "unknown", AccessorKind(9).String())

	d := Define("Person").Association("placeOfBirth", "City").Property("name", Scalar(ir.KindString)).Descriptor()
	assert.Equal(t, "placeOfBirth: association City", d.Accessors[0].String())
	assert.Equal(t, "name: property string", d.Accessors[1].String())
}

func TestBuilderDescriptorIsCopy(t *testing.T) {
	b := Define("A").Property("x", Scalar(ir.KindInt))
	d1 := b.Descriptor()
	b.Property("y", Scalar(ir.KindInt))
	d2 := b.Descriptor()

	assert.Len(t, d1.Accessors, 1)
	assert.Len(t, d2.Accessors, 2)
}
