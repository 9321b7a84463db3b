// Package template captures access paths over shapes as queryir.References.
//
// A Template stands in for an instance of a shape. Its accessor methods do
// not read data; they return the Reference naming the path walked so far:
//
//	person := template.MustFor(registry, "Person")
//	name := person.MustProperty("name")                        // Person.name
//	city := person.MustTraverse("placeOfBirth").MustProperty("name") // Person.placeOfBirth.name
//
// Templates are values. Every method returns a new Template or Reference, so
// one Template can be branched into any number of independent paths.
package template

import (
	"github.com/roach88/shapeq/internal/queryir"
	"github.com/roach88/shapeq/internal/shape"
)

// Template is a stand-in for an instance of a shape, positioned at the end
// of a (possibly empty) access path.
type Template struct {
	reg   *shape.Registry
	root  string
	shape string
	base  queryir.Reference
}

// For returns the Template for the root of shapeName.
func For(reg *shape.Registry, shapeName string) (Template, error) {
	if _, ok := reg.Lookup(shapeName); !ok {
		return Template{}, queryir.NewUnknownShapeError(shapeName)
	}
	return Template{reg: reg, root: shapeName, shape: shapeName}, nil
}

// MustFor is like For but panics on error.
func MustFor(reg *shape.Registry, shapeName string) Template {
	t, err := For(reg, shapeName)
	if err != nil {
		panic(err)
	}
	return t
}

// Root returns the shape the template's paths start at.
func (t Template) Root() string { return t.root }

// Shape returns the shape the template is currently positioned on.
func (t Template) Shape() string { return t.shape }

// Base returns the path walked to reach this template. It is the zero
// Reference for a root template.
func (t Template) Base() queryir.Reference { return t.base }

// Property returns the Reference to a property.
func (t Template) Property(name string) (queryir.Reference, error) {
	return t.expect(name, shape.Property)
}

// Association returns the Reference to a single association.
func (t Template) Association(name string) (queryir.Reference, error) {
	return t.expect(name, shape.Association)
}

// ManyAssociation returns the Reference to a many-association.
func (t Template) ManyAssociation(name string) (queryir.Reference, error) {
	return t.expect(name, shape.ManyAssociation)
}

// NamedAssociation returns the Reference to a named association.
func (t Template) NamedAssociation(name string) (queryir.Reference, error) {
	return t.expect(name, shape.NamedAssociation)
}

// Ref returns the Reference to an accessor of any kind.
func (t Template) Ref(name string) (queryir.Reference, error) {
	a, err := t.accessor(name)
	if err != nil {
		return queryir.Reference{}, err
	}
	return t.extend(a), nil
}

// Traverse returns the Template for the shape reached through a single
// association or a value-object property. Accessor calls on the result are
// recorded relative to this template's path.
func (t Template) Traverse(name string) (Template, error) {
	a, err := t.accessor(name)
	if err != nil {
		return Template{}, err
	}

	switch {
	case a.Kind == shape.Association:
		return t.descend(a, a.Target), nil
	case a.Kind == shape.Property && a.Value.IsValueObject():
		return t.descend(a, a.Value.Shape), nil
	case a.Kind.IsMulti():
		return Template{}, queryir.NewTypeMismatchError(t.shape, name, "%s cannot be traversed directly, use OneOf", a.Kind)
	}
	return Template{}, queryir.NewTypeMismatchError(t.shape, name, "%s of type %s cannot be traversed", a.Kind, a.Value)
}

// OneOf returns the Template for an arbitrary element of a many or named
// association. Predicates over its paths hold when any element satisfies
// them.
func (t Template) OneOf(name string) (Template, error) {
	a, err := t.accessor(name)
	if err != nil {
		return Template{}, err
	}
	if !a.Kind.IsMulti() {
		return Template{}, queryir.NewTypeMismatchError(t.shape, name, "OneOf needs a many or named association, got %s", a.Kind)
	}
	return t.descend(a, a.Target), nil
}

// Path resolves a chain of accessor names. Every name but the last is
// traversed (single associations and value objects directly, many and named
// associations as OneOf); the last may be any accessor.
func (t Template) Path(names ...string) (queryir.Reference, error) {
	if len(names) == 0 {
		return queryir.Reference{}, queryir.NewUnknownAccessorError(t.shape, "<empty path>")
	}

	cur := t
	for _, name := range names[:len(names)-1] {
		a, err := cur.accessor(name)
		if err != nil {
			return queryir.Reference{}, err
		}
		if a.Kind.IsMulti() {
			cur, err = cur.OneOf(name)
		} else {
			cur, err = cur.Traverse(name)
		}
		if err != nil {
			return queryir.Reference{}, err
		}
	}
	return cur.Ref(names[len(names)-1])
}

func (t Template) expect(name string, kind shape.AccessorKind) (queryir.Reference, error) {
	a, err := t.accessor(name)
	if err != nil {
		return queryir.Reference{}, err
	}
	if a.Kind != kind {
		return queryir.Reference{}, queryir.NewTypeMismatchError(t.shape, name, "is a %s, not a %s", a.Kind, kind)
	}
	return t.extend(a), nil
}

// accessor resolves name on the current shape. Non-queryable accessors fail
// here, so no Reference through them can ever exist.
func (t Template) accessor(name string) (shape.Accessor, error) {
	if t.reg == nil {
		return shape.Accessor{}, queryir.NewUnknownAccessorError(t.shape, name)
	}
	a, ok := t.reg.Accessor(t.shape, name)
	if !ok {
		return shape.Accessor{}, queryir.NewUnknownAccessorError(t.shape, name)
	}
	if !a.Queryable {
		return shape.Accessor{}, queryir.NewUnqueryableAccessorError(t.shape, name)
	}
	return a, nil
}

func (t Template) step(a shape.Accessor) queryir.Step {
	return queryir.Step{
		Shape:  t.shape,
		Name:   a.Name,
		Kind:   a.Kind,
		Value:  a.Value,
		Target: a.Target,
	}
}

func (t Template) extend(a shape.Accessor) queryir.Reference {
	if t.base.IsZero() {
		return queryir.NewReference(t.root, t.step(a))
	}
	return t.base.Append(t.step(a))
}

func (t Template) descend(a shape.Accessor, next string) Template {
	return Template{reg: t.reg, root: t.root, shape: next, base: t.extend(a)}
}
