package entity

import (
	"fmt"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// Normalize checks a record against its shape and coerces each value to
// the declared kind (for example an RFC 3339 string to ir.IRTime, or a bare
// identity to ir.IREntity). Unknown shapes or accessors are errors. Value
// objects are normalized recursively.
func Normalize(reg *shape.Registry, r Record) (Record, error) {
	if _, ok := reg.Lookup(r.Type); !ok {
		return Record{}, fmt.Errorf("entity %s: unknown shape %q", r.ID, r.Type)
	}
	state, err := normalizeObject(reg, r.Type, r.State)
	if err != nil {
		return Record{}, fmt.Errorf("entity %s: %w", r.ID, err)
	}
	return Record{ID: r.ID, Type: r.Type, State: state}, nil
}

func normalizeObject(reg *shape.Registry, shapeName string, obj ir.IRObject) (ir.IRObject, error) {
	out := make(ir.IRObject, len(obj))
	for name, v := range obj {
		a, ok := reg.Accessor(shapeName, name)
		if !ok {
			return nil, fmt.Errorf("%s has no accessor %q", shapeName, name)
		}
		nv, err := NormalizeValue(reg, a, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", shapeName, name, err)
		}
		out[name] = nv
	}
	return out, nil
}

// NormalizeValue coerces v to the type accessor a declares.
func NormalizeValue(reg *shape.Registry, a shape.Accessor, v ir.IRValue) (ir.IRValue, error) {
	if ir.IsNull(v) {
		return ir.IRNull{}, nil
	}

	switch a.Kind {
	case shape.Association:
		return ir.Coerce(v, ir.KindEntity)
	case shape.ManyAssociation:
		return coerceArray(v, ir.KindEntity)
	case shape.NamedAssociation:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("named association needs an object, got %s", v.Kind())
		}
		out := make(ir.IRObject, len(obj))
		for k, e := range obj {
			ce, err := ir.Coerce(e, ir.KindEntity)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = ce
		}
		return out, nil
	}

	switch {
	case a.Value.IsCollection():
		return coerceArray(v, a.Value.Elem)
	case a.Value.IsValueObject():
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("value object needs an object, got %s", v.Kind())
		}
		return normalizeObject(reg, a.Value.Shape, obj)
	}
	return ir.Coerce(v, a.Value.Kind)
}

func coerceArray(v ir.IRValue, elem ir.Kind) (ir.IRValue, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("collection needs an array, got %s", v.Kind())
	}
	out := make(ir.IRArray, len(arr))
	for i, e := range arr {
		ce, err := ir.Coerce(e, elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = ce
	}
	return out, nil
}
