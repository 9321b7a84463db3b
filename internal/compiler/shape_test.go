package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

const peopleCUE = `
shape: Nameable: property: name: string

shape: City: {
	extends: "Nameable"
	property: country: string
}

shape: Person: {
	extends: ["Nameable"]
	property: {
		yearOfBirth: int
		height:      float
		born:        {type: "time"}
		tags:        [...string]
		address:     {shape: "Address"}
		password:    {type: "string", queryable: false}
	}
	association: placeOfBirth: "City"
	manyAssociation: children: {target: "Person"}
	namedAssociation: accounts: {target: "City", queryable: false}
}

shape: Address: property: street: string
`

func TestCompileShapeBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(peopleCUE)
	require.NoError(t, v.Err())

	d, err := CompileShape(v.LookupPath(cue.ParsePath("shape.Person")))
	require.NoError(t, err)

	assert.Equal(t, "Person", d.Name)
	assert.Equal(t, []string{"Nameable"}, d.Extends)

	want := []shape.Accessor{
		{Name: "yearOfBirth", Kind: shape.Property, Value: shape.Scalar(ir.KindInt), Queryable: true},
		{Name: "height", Kind: shape.Property, Value: shape.Scalar(ir.KindFloat), Queryable: true},
		{Name: "born", Kind: shape.Property, Value: shape.Scalar(ir.KindTime), Queryable: true},
		{Name: "tags", Kind: shape.Property, Value: shape.Collection(ir.KindString), Queryable: true},
		{Name: "address", Kind: shape.Property, Value: shape.ValueObject("Address"), Queryable: true},
		{Name: "password", Kind: shape.Property, Value: shape.Scalar(ir.KindString), Queryable: false},
		{Name: "placeOfBirth", Kind: shape.Association, Value: shape.Scalar(ir.KindEntity), Target: "City", Queryable: true},
		{Name: "children", Kind: shape.ManyAssociation, Value: shape.Scalar(ir.KindEntity), Target: "Person", Queryable: true},
		{Name: "accounts", Kind: shape.NamedAssociation, Value: shape.Scalar(ir.KindEntity), Target: "City", Queryable: false},
	}
	assert.Equal(t, want, d.Accessors)
}

func TestCompileShapesDeclarationOrder(t *testing.T) {
	ctx := cuecontext.New()
	ds, err := CompileShapes(ctx.CompileString(peopleCUE))
	require.NoError(t, err)

	var names []string
	for _, d := range ds {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Nameable", "City", "Person", "Address"}, names)
	assert.Equal(t, []string{"Nameable"}, ds[1].Extends)
}

func TestCompileShapesErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "no shapes",
			src:     `other: 1`,
			wantErr: "no shapes declared",
		},
		{
			name:    "unsupported declared type",
			src:     `shape: A: property: x: {type: "decimal"}`,
			wantErr: `unsupported type "decimal"`,
		},
		{
			name:    "untyped list",
			src:     `shape: A: property: x: [...]`,
			wantErr: "unsupported type kind",
		},
		{
			name:    "association without target",
			src:     `shape: A: association: b: {queryable: true}`,
			wantErr: "target is required",
		},
		{
			name:    "struct property without type",
			src:     `shape: A: property: x: {y: 1}`,
			wantErr: "unsupported type kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			_, err := CompileShapes(ctx.CompileString(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseTypeName(t *testing.T) {
	tests := []struct {
		in   string
		want shape.ValueType
		ok   bool
	}{
		{"string", shape.Scalar(ir.KindString), true},
		{"time", shape.Scalar(ir.KindTime), true},
		{"[int]", shape.Collection(ir.KindInt), true},
		{"[decimal]", shape.ValueType{}, false},
		{"array", shape.ValueType{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTypeName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadString(t *testing.T) {
	r, err := LoadString(peopleCUE)
	require.NoError(t, err)

	a, ok := r.Accessor("Person", "name")
	require.True(t, ok)
	assert.Equal(t, ir.KindString, a.Value.Kind)
}

func TestLoadStringValidationFailure(t *testing.T) {
	_, err := LoadString(`shape: A: association: b: "Missing"`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidShapes))
	assert.Contains(t, err.Error(), ErrUnknownTarget)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.cue"), []byte("package people\n"+peopleCUE), 0o644))

	r, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Address", "City", "Nameable", "Person"}, r.Names())
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shapes directory")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "type", Message: "bad"}
	assert.Equal(t, "type: bad", err.Error())
}
