package shape

import (
	"fmt"
	"slices"
	"sort"
)

// Registry holds a closed set of descriptors. It is immutable after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	shapes map[string]*Descriptor
}

// NewRegistry collects descriptors, rejecting duplicates and dangling
// references to association targets, value object shapes and supertypes.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{shapes: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d == nil || d.Name == "" {
			return nil, fmt.Errorf("shape registry: descriptor without name")
		}
		if _, dup := r.shapes[d.Name]; dup {
			return nil, fmt.Errorf("shape registry: duplicate shape %q", d.Name)
		}
		r.shapes[d.Name] = d
	}

	for _, d := range descriptors {
		for _, super := range d.Extends {
			if _, ok := r.shapes[super]; !ok {
				return nil, fmt.Errorf("shape registry: %s extends unknown shape %q", d.Name, super)
			}
		}
		for _, a := range d.Accessors {
			if a.Kind.IsAssociation() {
				if _, ok := r.shapes[a.Target]; !ok {
					return nil, fmt.Errorf("shape registry: %s.%s targets unknown shape %q", d.Name, a.Name, a.Target)
				}
			}
			if a.Value.IsValueObject() {
				if _, ok := r.shapes[a.Value.Shape]; !ok {
					return nil, fmt.Errorf("shape registry: %s.%s uses unknown value shape %q", d.Name, a.Name, a.Value.Shape)
				}
			}
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Use only for package-level shape declarations.
func MustRegistry(descriptors ...*Descriptor) *Registry {
	r, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.shapes[name]
	return d, ok
}

// Names returns the registered shape names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.shapes))
	for n := range r.shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Accessor resolves name on shapeName, searching supertypes depth-first in
// declaration order when the shape does not declare it itself.
func (r *Registry) Accessor(shapeName, name string) (Accessor, bool) {
	return r.accessor(shapeName, name, map[string]bool{})
}

func (r *Registry) accessor(shapeName, name string, seen map[string]bool) (Accessor, bool) {
	if seen[shapeName] {
		return Accessor{}, false
	}
	seen[shapeName] = true

	d, ok := r.shapes[shapeName]
	if !ok {
		return Accessor{}, false
	}
	if a, ok := d.Accessor(name); ok {
		return a, true
	}
	for _, super := range d.Extends {
		if a, ok := r.accessor(super, name, seen); ok {
			return a, true
		}
	}
	return Accessor{}, false
}

// Accessors returns every accessor visible on shapeName: its own accessors
// first, then inherited ones not shadowed by a closer declaration.
func (r *Registry) Accessors(shapeName string) []Accessor {
	var out []Accessor
	seen := map[string]bool{}
	names := map[string]bool{}
	var walk func(string)
	walk = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		d, ok := r.shapes[n]
		if !ok {
			return
		}
		for _, a := range d.Accessors {
			if !names[a.Name] {
				names[a.Name] = true
				out = append(out, a)
			}
		}
		for _, super := range d.Extends {
			walk(super)
		}
	}
	walk(shapeName)
	return out
}

// AssignableTo reports whether shape from is to or extends it, directly or
// transitively.
func (r *Registry) AssignableTo(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{}
	queue := []string{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		d, ok := r.shapes[n]
		if !ok {
			continue
		}
		if slices.Contains(d.Extends, to) {
			return true
		}
		queue = append(queue, d.Extends...)
	}
	return false
}

// Subtypes returns shapeName and every registered shape assignable to it,
// sorted by name.
func (r *Registry) Subtypes(shapeName string) []string {
	var out []string
	for _, n := range r.Names() {
		if r.AssignableTo(n, shapeName) {
			out = append(out, n)
		}
	}
	return out
}
