package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// CompileShapes compiles every entry of the top-level "shape" struct, in
// declaration order.
//
//	shape: Person: {
//		extends: ["Nameable"]
//		property: {
//			yearOfBirth: int
//			tags:        [...string]
//			born:        {type: "time"}
//			password:    {type: "string", queryable: false}
//		}
//		association: placeOfBirth: "City"
//		manyAssociation: children: {target: "Person"}
//	}
func CompileShapes(root cue.Value) ([]*shape.Descriptor, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	shapesVal := root.LookupPath(cue.ParsePath("shape"))
	if !shapesVal.Exists() {
		return nil, &CompileError{
			Field:   "shape",
			Message: "no shapes declared",
			Pos:     root.Pos(),
		}
	}

	iter, err := shapesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []*shape.Descriptor
	for iter.Next() {
		d, err := CompileShape(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// CompileShape parses a CUE value into a shape.Descriptor.
// The shape name is the last path selector of v.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`shape: City: property: name: string`)
//	d, err := CompileShape(v.LookupPath(cue.ParsePath("shape.City")))
func CompileShape(v cue.Value) (*shape.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &shape.Descriptor{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		d.Name = labels[len(labels)-1].String()
	}

	extends, err := parseExtends(v)
	if err != nil {
		return nil, err
	}
	d.Extends = extends

	props, err := parseProperties(v)
	if err != nil {
		return nil, err
	}
	d.Accessors = append(d.Accessors, props...)

	for _, kind := range []shape.AccessorKind{shape.Association, shape.ManyAssociation, shape.NamedAssociation} {
		assocs, err := parseAssociations(v, kind)
		if err != nil {
			return nil, err
		}
		d.Accessors = append(d.Accessors, assocs...)
	}

	return d, nil
}

// parseExtends reads the optional list of supertypes.
func parseExtends(v cue.Value) ([]string, error) {
	extVal := v.LookupPath(cue.ParsePath("extends"))
	if !extVal.Exists() {
		return nil, nil
	}

	// A single supertype may be written without a list.
	if s, err := extVal.String(); err == nil {
		return []string{s}, nil
	}

	iter, err := extVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// parseProperties extracts property accessors. A property is either a bare
// CUE type (string, int, float, bool, [...T]) or a struct with "type",
// optional "shape" and optional "queryable".
func parseProperties(v cue.Value) ([]shape.Accessor, error) {
	propVal := v.LookupPath(cue.ParsePath("property"))
	if !propVal.Exists() {
		return nil, nil
	}

	iter, err := propVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []shape.Accessor
	for iter.Next() {
		name := iter.Label()
		a := shape.Accessor{Name: name, Kind: shape.Property, Queryable: true}

		pv := iter.Value()
		if isDeclaration(pv) {
			t, err := parseDeclaredType(pv)
			if err != nil {
				return nil, err
			}
			a.Value = t
			q, err := parseQueryable(pv)
			if err != nil {
				return nil, err
			}
			a.Queryable = q
		} else {
			t, err := extractValueType(pv)
			if err != nil {
				return nil, err
			}
			a.Value = t
		}
		out = append(out, a)
	}
	return out, nil
}

// parseAssociations extracts accessors of one association kind. Each entry
// is either a target shape name or a struct with "target" and optional
// "queryable".
func parseAssociations(v cue.Value, kind shape.AccessorKind) ([]shape.Accessor, error) {
	assocVal := v.LookupPath(cue.ParsePath(kind.String()))
	if !assocVal.Exists() {
		return nil, nil
	}

	iter, err := assocVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []shape.Accessor
	for iter.Next() {
		a := shape.Accessor{
			Name:      iter.Label(),
			Kind:      kind,
			Value:     shape.Scalar(ir.KindEntity),
			Queryable: true,
		}

		av := iter.Value()
		if target, err := av.String(); err == nil {
			a.Target = target
			out = append(out, a)
			continue
		}

		targetVal := av.LookupPath(cue.ParsePath("target"))
		if !targetVal.Exists() {
			return nil, &CompileError{
				Field:   kind.String() + "." + a.Name,
				Message: "target is required",
				Pos:     av.Pos(),
			}
		}
		target, err := targetVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		a.Target = target

		q, err := parseQueryable(av)
		if err != nil {
			return nil, err
		}
		a.Queryable = q
		out = append(out, a)
	}
	return out, nil
}

// isDeclaration reports whether a property is written as a struct with an
// explicit type or value-object shape.
func isDeclaration(v cue.Value) bool {
	if v.IncompleteKind() != cue.StructKind {
		return false
	}
	return v.LookupPath(cue.ParsePath("type")).Exists() || v.LookupPath(cue.ParsePath("shape")).Exists()
}

func parseQueryable(v cue.Value) (bool, error) {
	qVal := v.LookupPath(cue.ParsePath("queryable"))
	if !qVal.Exists() {
		return true, nil
	}
	q, err := qVal.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return q, nil
}

func parseDeclaredType(v cue.Value) (shape.ValueType, error) {
	shapeVal := v.LookupPath(cue.ParsePath("shape"))
	if shapeVal.Exists() {
		name, err := shapeVal.String()
		if err != nil {
			return shape.ValueType{}, formatCUEError(err)
		}
		return shape.ValueObject(name), nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	typeName, err := typeVal.String()
	if err != nil {
		return shape.ValueType{}, formatCUEError(err)
	}
	t, ok := ParseTypeName(typeName)
	if !ok {
		return shape.ValueType{}, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type %q", typeName),
			Pos:     typeVal.Pos(),
		}
	}
	return t, nil
}

// ParseTypeName parses a type name such as "int", "time" or "[string]".
func ParseTypeName(s string) (shape.ValueType, bool) {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		elem, ok := scalarKinds[s[1:len(s)-1]]
		if !ok {
			return shape.ValueType{}, false
		}
		return shape.Collection(elem), true
	}
	k, ok := scalarKinds[s]
	if !ok {
		return shape.ValueType{}, false
	}
	return shape.Scalar(k), true
}

var scalarKinds = map[string]ir.Kind{
	"string": ir.KindString,
	"int":    ir.KindInt,
	"float":  ir.KindFloat,
	"bool":   ir.KindBool,
	"time":   ir.KindTime,
	"entity": ir.KindEntity,
}

// extractValueType converts a bare CUE type to a ValueType.
func extractValueType(v cue.Value) (shape.ValueType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return shape.Scalar(ir.KindString), nil
	case cue.IntKind:
		return shape.Scalar(ir.KindInt), nil
	case cue.FloatKind, cue.NumberKind:
		return shape.Scalar(ir.KindFloat), nil
	case cue.BoolKind:
		return shape.Scalar(ir.KindBool), nil
	case cue.ListKind:
		elem := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if !elem.Exists() {
			return shape.ValueType{}, &CompileError{
				Field:   "type",
				Message: "collection element type must be declared, e.g. [...string]",
				Pos:     v.Pos(),
			}
		}
		et, err := extractValueType(elem)
		if err != nil {
			return shape.ValueType{}, err
		}
		if et.IsCollection() {
			return shape.ValueType{}, &CompileError{
				Field:   "type",
				Message: "nested collections are not supported",
				Pos:     v.Pos(),
			}
		}
		return shape.Collection(et.Kind), nil
	default:
		return shape.ValueType{}, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
