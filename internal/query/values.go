package query

import (
	"regexp"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// bindLiterals checks every literal in p against its leaf and replaces it
// with the coerced value. Variables are left alone.
func bindLiterals(p queryir.Predicate) (queryir.Predicate, error) {
	return queryir.MapValues(p, func(leaf queryir.Predicate, v queryir.ValueExpr) (queryir.ValueExpr, error) {
		lit, ok := v.(queryir.Literal)
		if !ok {
			return v, nil
		}
		cv, err := CheckValue(leaf, lit.Value)
		if err != nil {
			return nil, err
		}
		return queryir.Lit(cv), nil
	})
}

// CheckValue coerces v to the type the leaf predicate expects and returns a
// TypeMismatch error when it cannot. Ints widen to float, RFC 3339 strings
// become times and identity strings become entity references.
func CheckValue(leaf queryir.Predicate, v ir.IRValue) (ir.IRValue, error) {
	ref, _ := queryir.LeafRef(leaf)

	switch n := leaf.(type) {
	case queryir.Comparison:
		if ir.IsNull(v) {
			return nil, mismatch(ref, "%s with null, use isNull or isNotNull", n.Op)
		}
		return coerce(ref, v, scalarKind(ref))

	case queryir.Matches:
		s, err := coerce(ref, v, ir.KindString)
		if err != nil {
			return nil, err
		}
		if _, err := regexp.Compile(string(s.(ir.IRString))); err != nil {
			return nil, mismatch(ref, "invalid pattern: %v", err)
		}
		return s, nil

	case queryir.Contains:
		return coerce(ref, v, ref.ValueType().Elem)

	case queryir.ContainsAll:
		arr, ok := v.(ir.IRArray)
		if !ok {
			return nil, mismatch(ref, "containsAll needs a list of values, got %s", kindOf(v))
		}
		out := make(ir.IRArray, len(arr))
		for i, e := range arr {
			ce, err := coerce(ref, e, ref.ValueType().Elem)
			if err != nil {
				return nil, err
			}
			out[i] = ce
		}
		return out, nil

	case queryir.ContainsAssociation:
		return coerce(ref, v, ir.KindEntity)

	case queryir.ContainsName:
		return coerce(ref, v, ir.KindString)
	}
	return v, nil
}

func scalarKind(ref queryir.Reference) ir.Kind {
	if ref.Kind() != shape.Property {
		return ir.KindEntity
	}
	return ref.ValueType().Kind
}

func coerce(ref queryir.Reference, v ir.IRValue, k ir.Kind) (ir.IRValue, error) {
	if ir.IsNull(v) {
		return nil, mismatch(ref, "expected %s, got null", k)
	}
	cv, err := ir.Coerce(v, k)
	if err != nil {
		return nil, mismatch(ref, "%v", err)
	}
	return cv, nil
}

func kindOf(v ir.IRValue) ir.Kind {
	if v == nil {
		return ir.KindNull
	}
	return v.Kind()
}
