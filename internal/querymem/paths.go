package querymem

import (
	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// getter is the part of entity.Entity path traversal needs. Value objects
// are wrapped so they can be walked like entities.
type getter interface {
	Get(accessor string) (ir.IRValue, bool)
}

type object ir.IRObject

func (o object) Get(accessor string) (ir.IRValue, bool) {
	v, ok := o[accessor]
	if !ok || ir.IsNull(v) {
		return nil, false
	}
	return v, true
}

// valuesAt returns every non-null value reachable from e along ref. A
// single-valued path yields at most one value; each many or named hop fans
// out over its elements. Dangling entity references are skipped.
func valuesAt(e entity.Entity, ref queryir.Reference, r entity.Resolver) []ir.IRValue {
	cur := []getter{e}
	steps := ref.Steps()
	for i, step := range steps {
		last := i == len(steps)-1
		var next []getter
		var out []ir.IRValue
		for _, g := range cur {
			v, ok := g.Get(step.Name)
			if !ok {
				continue
			}
			if last {
				out = append(out, v)
				continue
			}
			next = append(next, hop(step, v, r)...)
		}
		if last {
			return out
		}
		cur = next
	}
	return nil
}

func hop(step queryir.Step, v ir.IRValue, r entity.Resolver) []getter {
	switch step.Kind {
	case shape.Association:
		return resolve(r, v)
	case shape.ManyAssociation:
		arr, _ := v.(ir.IRArray)
		var out []getter
		for _, e := range arr {
			out = append(out, resolve(r, e)...)
		}
		return out
	case shape.NamedAssociation:
		obj, _ := v.(ir.IRObject)
		var out []getter
		for _, k := range obj.SortedKeys() {
			out = append(out, resolve(r, obj[k])...)
		}
		return out
	}
	if obj, ok := v.(ir.IRObject); ok {
		return []getter{object(obj)}
	}
	return nil
}

func resolve(r entity.Resolver, v ir.IRValue) []getter {
	if r == nil {
		return nil
	}
	var id string
	switch x := v.(type) {
	case ir.IREntity:
		id = x.Identity()
	case ir.IRString:
		id = string(x)
	default:
		return nil
	}
	e, ok := r.Resolve(id)
	if !ok {
		return nil
	}
	return []getter{e}
}
