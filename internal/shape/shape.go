package shape

import (
	"fmt"
	"slices"

	"github.com/roach88/shapeq/internal/ir"
)

// AccessorKind distinguishes the four accessor forms a shape can declare.
type AccessorKind int

const (
	Property AccessorKind = iota
	Association
	ManyAssociation
	NamedAssociation
)

var accessorKindNames = [...]string{
	Property:         "property",
	Association:      "association",
	ManyAssociation:  "manyAssociation",
	NamedAssociation: "namedAssociation",
}

func (k AccessorKind) String() string {
	if k < 0 || int(k) >= len(accessorKindNames) {
		return "unknown"
	}
	return accessorKindNames[k]
}

// IsAssociation reports whether k refers to another entity.
func (k AccessorKind) IsAssociation() bool {
	return k == Association || k == ManyAssociation || k == NamedAssociation
}

// IsMulti reports whether k holds several entities.
func (k AccessorKind) IsMulti() bool {
	return k == ManyAssociation || k == NamedAssociation
}

// ValueType is the declared type of a property.
//
// Kind is the ir.Kind of the stored value. Collections use ir.KindArray with
// Elem set to the element kind. Value objects use ir.KindObject with Shape
// naming the nested descriptor.
type ValueType struct {
	Kind  ir.Kind `json:"kind"`
	Elem  ir.Kind `json:"elem,omitempty"`
	Shape string  `json:"shape,omitempty"`
}

// Scalar returns the ValueType of a plain value.
func Scalar(k ir.Kind) ValueType { return ValueType{Kind: k} }

// Collection returns the ValueType of a collection of elem.
func Collection(elem ir.Kind) ValueType { return ValueType{Kind: ir.KindArray, Elem: elem} }

// ValueObject returns the ValueType of a nested value object.
func ValueObject(shape string) ValueType { return ValueType{Kind: ir.KindObject, Shape: shape} }

// IsCollection reports whether the type is a collection.
func (t ValueType) IsCollection() bool { return t.Kind == ir.KindArray }

// IsValueObject reports whether the type is a nested value object.
func (t ValueType) IsValueObject() bool { return t.Kind == ir.KindObject && t.Shape != "" }

// Ordered reports whether values of this type have a natural ordering
// usable by lt/le/gt/ge and ORDER BY.
func (t ValueType) Ordered() bool {
	switch t.Kind {
	case ir.KindString, ir.KindInt, ir.KindFloat, ir.KindTime:
		return true
	}
	return false
}

func (t ValueType) String() string {
	switch {
	case t.IsCollection():
		return "[" + t.Elem.String() + "]"
	case t.IsValueObject():
		return t.Shape
	}
	return t.Kind.String()
}

// Accessor is one declared member of a shape.
type Accessor struct {
	Name string       `json:"name"`
	Kind AccessorKind `json:"kind"`
	// Value is the declared type for properties.
	Value ValueType `json:"value"`
	// Target names the associated shape for associations.
	Target    string `json:"target,omitempty"`
	Queryable bool   `json:"queryable"`
}

// Descriptor describes a shape: its name, the shapes it extends and its
// accessors in declaration order.
type Descriptor struct {
	Name      string     `json:"name"`
	Extends   []string   `json:"extends,omitempty"`
	Accessors []Accessor `json:"accessors"`
}

// Accessor returns the accessor declared directly on d with the given name.
// Inherited accessors are resolved by Registry.Accessor.
func (d *Descriptor) Accessor(name string) (Accessor, bool) {
	i := slices.IndexFunc(d.Accessors, func(a Accessor) bool { return a.Name == name })
	if i < 0 {
		return Accessor{}, false
	}
	return d.Accessors[i], true
}

// Builder declares a Descriptor in Go code.
//
//	person := shape.Define("Person").
//		Property("name", shape.Scalar(ir.KindString)).
//		Association("placeOfBirth", "City").
//		Hidden("password", shape.Scalar(ir.KindString)).
//		Descriptor()
type Builder struct {
	d Descriptor
}

// Define starts a descriptor for the named shape.
func Define(name string, extends ...string) *Builder {
	return &Builder{d: Descriptor{Name: name, Extends: slices.Clone(extends)}}
}

// Property adds a queryable property.
func (b *Builder) Property(name string, t ValueType) *Builder {
	b.d.Accessors = append(b.d.Accessors, Accessor{Name: name, Kind: Property, Value: t, Queryable: true})
	return b
}

// Hidden adds a property that cannot be queried.
func (b *Builder) Hidden(name string, t ValueType) *Builder {
	b.d.Accessors = append(b.d.Accessors, Accessor{Name: name, Kind: Property, Value: t})
	return b
}

// Association adds a queryable single association to target.
func (b *Builder) Association(name, target string) *Builder {
	return b.association(name, Association, target)
}

// ManyAssociation adds a queryable many-association to target.
func (b *Builder) ManyAssociation(name, target string) *Builder {
	return b.association(name, ManyAssociation, target)
}

// NamedAssociation adds a queryable named association to target.
func (b *Builder) NamedAssociation(name, target string) *Builder {
	return b.association(name, NamedAssociation, target)
}

func (b *Builder) association(name string, kind AccessorKind, target string) *Builder {
	b.d.Accessors = append(b.d.Accessors, Accessor{
		Name:      name,
		Kind:      kind,
		Value:     Scalar(ir.KindEntity),
		Target:    target,
		Queryable: true,
	})
	return b
}

// Accessor adds a fully specified accessor.
func (b *Builder) Accessor(a Accessor) *Builder {
	b.d.Accessors = append(b.d.Accessors, a)
	return b
}

// Descriptor returns a copy of the built descriptor.
func (b *Builder) Descriptor() *Descriptor {
	d := b.d
	d.Extends = slices.Clone(b.d.Extends)
	d.Accessors = slices.Clone(b.d.Accessors)
	return &d
}

// String renders an accessor as "name: kind type".
func (a Accessor) String() string {
	if a.Kind.IsAssociation() {
		return fmt.Sprintf("%s: %s %s", a.Name, a.Kind, a.Target)
	}
	return fmt.Sprintf("%s: %s %s", a.Name, a.Kind, a.Value)
}
