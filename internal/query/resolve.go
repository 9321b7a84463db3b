package query

import (
	"fmt"
	"maps"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/queryir"
)

// Bindings maps variable names to Go or ir values.
type Bindings map[string]any

// Resolve replaces every variable in spec's filter with its bound value,
// checked and coerced against the leaf that uses it. Bindings override the
// specification's declared defaults. A variable bound by neither fails with
// an UnboundVariable error. The returned Specification holds only literals.
func Resolve(spec Specification, bindings Bindings) (Specification, error) {
	if spec.where == nil {
		return spec, nil
	}

	values := maps.Clone(spec.defaults)
	if values == nil {
		values = map[string]ir.IRValue{}
	}
	for name, raw := range bindings {
		v, err := ir.FromGo(raw)
		if err != nil {
			return Specification{}, fmt.Errorf("variable %q: %w", name, err)
		}
		values[name] = v
	}

	where, err := queryir.MapValues(spec.where, func(leaf queryir.Predicate, x queryir.ValueExpr) (queryir.ValueExpr, error) {
		var v ir.IRValue
		switch x := x.(type) {
		case queryir.Variable:
			bound, ok := values[x.Name]
			if !ok {
				return nil, queryir.NewUnboundVariableError(x.Name)
			}
			v = bound
		case queryir.Literal:
			v = x.Value
		default:
			return x, nil
		}
		cv, err := CheckValue(leaf, v)
		if err != nil {
			return nil, err
		}
		return queryir.Lit(cv), nil
	})
	if err != nil {
		return Specification{}, err
	}

	spec.where = where
	return spec, nil
}

// BindingsFingerprint hashes the values spec's variables resolve to, for
// cache keys that must distinguish executions of the same specification.
func BindingsFingerprint(spec Specification, bindings Bindings) (string, error) {
	obj := ir.IRObject{}
	for _, name := range spec.Variables() {
		raw, ok := bindings[name]
		if !ok {
			if d, ok := spec.defaults[name]; ok {
				obj[name] = d
			}
			continue
		}
		v, err := ir.FromGo(raw)
		if err != nil {
			return "", fmt.Errorf("variable %q: %w", name, err)
		}
		obj[name] = v
	}
	return ir.Fingerprint(ir.DomainBindings, obj)
}
