package query

import (
	"fmt"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// Ordering directions for OrderBy.
const (
	Ascending  = queryir.Ascending
	Descending = queryir.Descending
)

// Var returns a named placeholder, bound later through Builder.WithVariable
// or the bindings passed to Resolve.
func Var(name string) queryir.Variable { return queryir.Variable{Name: name} }

// Must unwraps a factory result and panics on error.
func Must(p queryir.Predicate, err error) queryir.Predicate {
	if err != nil {
		panic(err)
	}
	return p
}

// Eq matches entities whose value at ref equals v.
func Eq(ref queryir.Reference, v any) (queryir.Predicate, error) {
	return comparison(queryir.OpEq, ref, v)
}

// Ne matches entities whose value at ref differs from v. An absent value
// differs from every literal.
func Ne(ref queryir.Reference, v any) (queryir.Predicate, error) {
	return comparison(queryir.OpNe, ref, v)
}

// Lt matches entities whose value at ref is less than v.
func Lt(ref queryir.Reference, v any) (queryir.Predicate, error) {
	return comparison(queryir.OpLt, ref, v)
}

// Le matches entities whose value at ref is at most v.
func Le(ref queryir.Reference, v any) (queryir.Predicate, error) {
	return comparison(queryir.OpLe, ref, v)
}

// Gt matches entities whose value at ref is greater than v.
func Gt(ref queryir.Reference, v any) (queryir.Predicate, error) {
	return comparison(queryir.OpGt, ref, v)
}

// Ge matches entities whose value at ref is at least v.
func Ge(ref queryir.Reference, v any) (queryir.Predicate, error) {
	return comparison(queryir.OpGe, ref, v)
}

func comparison(op queryir.Op, ref queryir.Reference, v any) (queryir.Predicate, error) {
	if err := requireRef(ref); err != nil {
		return nil, err
	}
	if op.Ordering() {
		if err := requireOrdered(ref, op.String()); err != nil {
			return nil, err
		}
	} else if err := requireScalar(ref, op.String()); err != nil {
		return nil, err
	}
	return leaf(ref, v, func(x queryir.ValueExpr) queryir.Predicate {
		return queryir.Comparison{Op: op, Ref: ref, Value: x}
	})
}

// Matches matches entities whose string value at ref matches the regular
// expression pattern. Literal patterns are compiled here (RE2 syntax).
func Matches(ref queryir.Reference, pattern any) (queryir.Predicate, error) {
	if err := requireRef(ref); err != nil {
		return nil, err
	}
	if ref.Kind() != shape.Property || ref.ValueType().Kind != ir.KindString {
		return nil, mismatch(ref, "matches needs a string property, got %s", describe(ref))
	}
	return leaf(ref, pattern, func(x queryir.ValueExpr) queryir.Predicate {
		return queryir.Matches{Ref: ref, Pattern: x}
	})
}

// Contains matches entities whose collection at ref holds v.
func Contains(ref queryir.Reference, v any) (queryir.Predicate, error) {
	if err := requireCollection(ref, "contains"); err != nil {
		return nil, err
	}
	return leaf(ref, v, func(x queryir.ValueExpr) queryir.Predicate {
		return queryir.Contains{Ref: ref, Value: x}
	})
}

// ContainsAll matches entities whose collection at ref holds every element
// of values. values is a slice (or ir.IRArray) or a Variable bound to one.
func ContainsAll(ref queryir.Reference, values any) (queryir.Predicate, error) {
	if err := requireCollection(ref, "containsAll"); err != nil {
		return nil, err
	}
	return leaf(ref, values, func(x queryir.ValueExpr) queryir.Predicate {
		return queryir.ContainsAll{Ref: ref, Values: x}
	})
}

// ContainsAssociation matches entities whose many or named association at
// ref refers to the entity v (an ir.IREntity or an identity string).
func ContainsAssociation(ref queryir.Reference, v any) (queryir.Predicate, error) {
	if err := requireRef(ref); err != nil {
		return nil, err
	}
	if !ref.Kind().IsMulti() {
		return nil, mismatch(ref, "containsAssociation needs a many or named association, got %s", describe(ref))
	}
	return leaf(ref, v, func(x queryir.ValueExpr) queryir.Predicate {
		return queryir.ContainsAssociation{Ref: ref, Value: x}
	})
}

// ContainsName matches entities whose named association at ref has an
// entry called name.
func ContainsName(ref queryir.Reference, name any) (queryir.Predicate, error) {
	if err := requireRef(ref); err != nil {
		return nil, err
	}
	if ref.Kind() != shape.NamedAssociation {
		return nil, mismatch(ref, "containsName needs a named association, got %s", describe(ref))
	}
	return leaf(ref, name, func(x queryir.ValueExpr) queryir.Predicate {
		return queryir.ContainsName{Ref: ref, Name: x}
	})
}

// IsNull matches entities with no value at ref.
func IsNull(ref queryir.Reference) (queryir.Predicate, error) {
	if err := requireNullable(ref, "isNull"); err != nil {
		return nil, err
	}
	return queryir.IsNull{Ref: ref}, nil
}

// IsNotNull matches entities with a value at ref.
func IsNotNull(ref queryir.Reference) (queryir.Predicate, error) {
	if err := requireNullable(ref, "isNotNull"); err != nil {
		return nil, err
	}
	return queryir.IsNotNull{Ref: ref}, nil
}

// And holds when every operand holds.
func And(a, b queryir.Predicate, more ...queryir.Predicate) queryir.Predicate {
	ops := make([]queryir.Predicate, 0, 2+len(more))
	ops = append(ops, a, b)
	return queryir.And{Operands: append(ops, more...)}
}

// Or holds when any operand holds.
func Or(a, b queryir.Predicate, more ...queryir.Predicate) queryir.Predicate {
	ops := make([]queryir.Predicate, 0, 2+len(more))
	ops = append(ops, a, b)
	return queryir.Or{Operands: append(ops, more...)}
}

// Not negates p.
func Not(p queryir.Predicate) queryir.Predicate {
	return queryir.Not{Operand: p}
}

// OrderBy orders results by the property at ref, ascending unless
// Descending is given.
func OrderBy(ref queryir.Reference, dir ...queryir.Direction) (queryir.OrderBy, error) {
	if err := requireOrdered(ref, "orderBy"); err != nil {
		return queryir.OrderBy{}, err
	}
	for i := 0; i < ref.Len()-1; i++ {
		if ref.Step(i).Kind.IsMulti() {
			return queryir.OrderBy{}, mismatch(ref, "cannot order by a path through %s %s", ref.Step(i).Kind, ref.Step(i).Name)
		}
	}
	o := queryir.OrderBy{Ref: ref, Direction: queryir.Ascending}
	if len(dir) > 0 {
		o.Direction = dir[0]
	}
	return o, nil
}

// MustOrderBy is like OrderBy but panics on error.
func MustOrderBy(ref queryir.Reference, dir ...queryir.Direction) queryir.OrderBy {
	o, err := OrderBy(ref, dir...)
	if err != nil {
		panic(err)
	}
	return o
}

// leaf converts v to a value expression, builds the node and checks any
// literal against the reference's declared type.
func leaf(ref queryir.Reference, v any, build func(queryir.ValueExpr) queryir.Predicate) (queryir.Predicate, error) {
	x, err := valueExpr(v)
	if err != nil {
		return nil, mismatch(ref, "%v", err)
	}
	return bindLiterals(build(x))
}

func valueExpr(v any) (queryir.ValueExpr, error) {
	switch x := v.(type) {
	case queryir.Variable:
		return x, nil
	case queryir.Literal:
		return x, nil
	}
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, err
	}
	return queryir.Lit(iv), nil
}

func requireRef(ref queryir.Reference) error {
	if ref.IsZero() || ref.Len() == 0 {
		return queryir.NewUnknownAccessorError(ref.Root(), "<empty path>")
	}
	return nil
}

func requireScalar(ref queryir.Reference, op string) error {
	switch {
	case ref.Kind() == shape.Association:
		return nil
	case ref.Kind().IsMulti():
		return mismatch(ref, "%s cannot compare a %s, use containsAssociation", op, ref.Kind())
	case ref.ValueType().IsCollection():
		return mismatch(ref, "%s cannot compare a collection, use contains", op)
	case ref.ValueType().IsValueObject():
		return mismatch(ref, "%s cannot compare value object %s", op, ref.ValueType())
	}
	return nil
}

func requireOrdered(ref queryir.Reference, op string) error {
	if err := requireRef(ref); err != nil {
		return err
	}
	if ref.Kind() != shape.Property || !ref.ValueType().Ordered() {
		return mismatch(ref, "%s needs an ordered property, got %s", op, describe(ref))
	}
	return nil
}

func requireCollection(ref queryir.Reference, op string) error {
	if err := requireRef(ref); err != nil {
		return err
	}
	if ref.Kind() != shape.Property || !ref.ValueType().IsCollection() {
		return mismatch(ref, "%s needs a collection property, got %s", op, describe(ref))
	}
	return nil
}

func requireNullable(ref queryir.Reference, op string) error {
	if err := requireRef(ref); err != nil {
		return err
	}
	if ref.Kind().IsMulti() {
		return mismatch(ref, "%s does not apply to a %s", op, ref.Kind())
	}
	return nil
}

func describe(ref queryir.Reference) string {
	if ref.Kind() == shape.Property {
		return fmt.Sprintf("%s property", ref.ValueType())
	}
	return ref.Kind().String()
}

func mismatch(ref queryir.Reference, format string, args ...any) error {
	last := ref.Last()
	return queryir.NewTypeMismatchError(last.Shape, last.Name, format, args...)
}
