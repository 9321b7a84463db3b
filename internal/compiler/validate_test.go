package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValid(t *testing.T) {
	ds := []*shape.Descriptor{
		shape.Define("City").Property("name", shape.Scalar(ir.KindString)).Descriptor(),
		shape.Define("Person").Association("placeOfBirth", "City").Descriptor(),
	}
	assert.Empty(t, Validate(ds))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		ds   []*shape.Descriptor
		want []string
	}{
		{
			name: "duplicate shape",
			ds:   []*shape.Descriptor{shape.Define("A").Descriptor(), shape.Define("A").Descriptor()},
			want: []string{ErrDuplicateShape},
		},
		{
			name: "bad shape name",
			ds:   []*shape.Descriptor{shape.Define("1A").Descriptor()},
			want: []string{ErrShapeNameInvalid},
		},
		{
			name: "duplicate accessor",
			ds: []*shape.Descriptor{shape.Define("A").
				Property("x", shape.Scalar(ir.KindInt)).
				Property("x", shape.Scalar(ir.KindString)).Descriptor()},
			want: []string{ErrDuplicateAccessor},
		},
		{
			name: "bad accessor name",
			ds:   []*shape.Descriptor{shape.Define("A").Property("a-b", shape.Scalar(ir.KindInt)).Descriptor()},
			want: []string{ErrAccessorNameInvalid},
		},
		{
			name: "unknown target",
			ds:   []*shape.Descriptor{shape.Define("A").ManyAssociation("b", "B").Descriptor()},
			want: []string{ErrUnknownTarget},
		},
		{
			name: "unknown supertype",
			ds:   []*shape.Descriptor{shape.Define("A", "Z").Descriptor()},
			want: []string{ErrUnknownSupertype},
		},
		{
			name: "unknown value shape",
			ds:   []*shape.Descriptor{shape.Define("A").Property("v", shape.ValueObject("V")).Descriptor()},
			want: []string{ErrUnknownValueShape},
		},
		{
			name: "object without shape",
			ds:   []*shape.Descriptor{shape.Define("A").Property("v", shape.Scalar(ir.KindObject)).Descriptor()},
			want: []string{ErrInvalidValueType},
		},
		{
			name: "collection of arrays",
			ds:   []*shape.Descriptor{shape.Define("A").Property("v", shape.Collection(ir.KindArray)).Descriptor()},
			want: []string{ErrInvalidValueType},
		},
		{
			name: "extends cycle",
			ds:   []*shape.Descriptor{shape.Define("A", "B").Descriptor(), shape.Define("B", "A").Descriptor()},
			want: []string{ErrExtendsCycle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.ds)))
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "A.b", Message: "oops", Code: ErrUnknownTarget}
	assert.Equal(t, "[E106] A.b: oops", e.Error())
}
