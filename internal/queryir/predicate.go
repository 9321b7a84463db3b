package queryir

import (
	"fmt"

	"github.com/roach88/shapeq/internal/ir"
)

// ValueExpr is a literal value or a named Variable.
//
// This is a sealed interface - only Literal and Variable implement it.
// Variables are resolved to Literals before a backend translates a tree.
type ValueExpr interface {
	valueExpr() // Marker method - seals interface to this package
}

// Literal is a concrete value.
type Literal struct {
	Value ir.IRValue
}

func (Literal) valueExpr() {}

// Variable is a placeholder bound by name at execution time.
// Two Variables are equal when their names are equal.
type Variable struct {
	Name string
}

func (Variable) valueExpr() {}

// Lit wraps an IRValue as a Literal.
func Lit(v ir.IRValue) Literal { return Literal{Value: v} }

// Predicate is a boolean test over References and values.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Comparison: eq, ne, lt, le, gt, ge
//   - Matches: regular expression over a string property
//   - Contains, ContainsAll: collection property membership
//   - ContainsAssociation: many/named association membership
//   - ContainsName: named association key presence
//   - IsNull, IsNotNull: null checks
//   - And, Or, Not: boolean combinators
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package

	// NodeKind names the node for diagnostics ("eq", "matches", "and", ...).
	NodeKind() string
}

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var opNames = [...]string{OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge"}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opNames[o]
}

// Ordering reports whether the operator needs a natural ordering.
func (o Op) Ordering() bool {
	return o == OpLt || o == OpLe || o == OpGt || o == OpGe
}

// Holds reports whether a comparison result c (as returned by ir.Compare)
// satisfies the operator.
func (o Op) Holds(c int) bool {
	switch o {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// Comparison compares the value at Ref with Value.
type Comparison struct {
	Op    Op
	Ref   Reference
	Value ValueExpr
}

func (Comparison) predicateNode()     {}
func (c Comparison) NodeKind() string { return c.Op.String() }

// Matches tests a string property against a regular expression.
type Matches struct {
	Ref     Reference
	Pattern ValueExpr
}

func (Matches) predicateNode()   {}
func (Matches) NodeKind() string { return "matches" }

// Contains tests whether a collection property holds Value.
type Contains struct {
	Ref   Reference
	Value ValueExpr
}

func (Contains) predicateNode()   {}
func (Contains) NodeKind() string { return "contains" }

// ContainsAll tests whether a collection property holds every element of
// Values, which resolves to an ir.IRArray.
type ContainsAll struct {
	Ref    Reference
	Values ValueExpr
}

func (ContainsAll) predicateNode()   {}
func (ContainsAll) NodeKind() string { return "containsAll" }

// ContainsAssociation tests whether a many or named association refers to
// the entity Value.
type ContainsAssociation struct {
	Ref   Reference
	Value ValueExpr
}

func (ContainsAssociation) predicateNode()   {}
func (ContainsAssociation) NodeKind() string { return "containsAssociation" }

// ContainsName tests whether a named association has an entry called Name.
type ContainsName struct {
	Ref  Reference
	Name ValueExpr
}

func (ContainsName) predicateNode()   {}
func (ContainsName) NodeKind() string { return "containsName" }

// IsNull tests whether the value at Ref is absent.
type IsNull struct {
	Ref Reference
}

func (IsNull) predicateNode()   {}
func (IsNull) NodeKind() string { return "isNull" }

// IsNotNull tests whether the value at Ref is present.
type IsNotNull struct {
	Ref Reference
}

func (IsNotNull) predicateNode()   {}
func (IsNotNull) NodeKind() string { return "isNotNull" }

// And holds when every operand holds. It has at least two operands.
type And struct {
	Operands []Predicate
}

func (And) predicateNode()   {}
func (And) NodeKind() string { return "and" }

// Or holds when any operand holds. It has at least two operands.
type Or struct {
	Operands []Predicate
}

func (Or) predicateNode()   {}
func (Or) NodeKind() string { return "or" }

// Not negates its operand.
type Not struct {
	Operand Predicate
}

func (Not) predicateNode()   {}
func (Not) NodeKind() string { return "not" }

// Direction is an ordering direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// OrderBy is one ordering segment.
type OrderBy struct {
	Ref       Reference
	Direction Direction
}

// String renders the segment as Person.name asc.
func (o OrderBy) String() string {
	return o.Ref.String() + " " + o.Direction.String()
}
