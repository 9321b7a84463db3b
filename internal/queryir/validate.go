package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/shapeq/internal/ir"
)

// ErrMalformed is wrapped by every error Validate returns.
var ErrMalformed = errors.New("malformed predicate")

// Validate checks the structural rules every backend relies on:
//  1. And/Or have at least two operands, none nil
//  2. Not has an operand
//  3. Every leaf holds a non-zero Reference
//  4. Value-carrying leaves hold a value expression, and variables are named
//  5. A literal ContainsAll value is an array
//
// It reports every problem found (does not fail-fast). A nil predicate is
// valid and means "match all". Validate is a pure function.
func Validate(p Predicate) error {
	if p == nil {
		return nil
	}
	v := &validator{}
	v.validate(p, "where")
	return errors.Join(v.problems...)
}

// validator accumulates problems during traversal.
type validator struct {
	problems []error
}

func (v *validator) add(path, format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf("%w: %s: %s", ErrMalformed, path, fmt.Sprintf(format, args...)))
}

func (v *validator) validate(p Predicate, path string) {
	if p == nil {
		v.add(path, "nil operand")
		return
	}

	switch n := p.(type) {
	case And:
		v.validateOperands(n.NodeKind(), n.Operands, path)
		return
	case Or:
		v.validateOperands(n.NodeKind(), n.Operands, path)
		return
	case Not:
		v.validate(n.Operand, path+".not")
		return
	}

	ref, ok := LeafRef(p)
	if !ok {
		v.add(path, "unknown predicate type %T", p)
		return
	}
	if ref.IsZero() || ref.Len() == 0 {
		v.add(path, "%s without reference", p.NodeKind())
	}

	val, hasValue := LeafValue(p)
	if !hasValue {
		return
	}
	switch x := val.(type) {
	case nil:
		v.add(path, "%s(%s) without value", p.NodeKind(), ref)
	case Variable:
		if x.Name == "" {
			v.add(path, "%s(%s) with unnamed variable", p.NodeKind(), ref)
		}
	case Literal:
		if _, isAll := p.(ContainsAll); isAll {
			if _, isArr := x.Value.(ir.IRArray); !isArr {
				v.add(path, "containsAll(%s) needs a collection value", ref)
			}
		}
	}
}

func (v *validator) validateOperands(kind string, ops []Predicate, path string) {
	if len(ops) < 2 {
		v.add(path, "%s needs at least 2 operands, got %d", kind, len(ops))
	}
	for i, op := range ops {
		v.validate(op, fmt.Sprintf("%s.%s[%d]", path, kind, i))
	}
}
