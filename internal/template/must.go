package template

import "github.com/roach88/shapeq/internal/queryir"

// The Must variants panic on error. They are meant for package-level query
// definitions, like regexp.MustCompile.

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// MustProperty is like Property but panics on error.
func (t Template) MustProperty(name string) queryir.Reference { return must(t.Property(name)) }

// MustAssociation is like Association but panics on error.
func (t Template) MustAssociation(name string) queryir.Reference { return must(t.Association(name)) }

// MustManyAssociation is like ManyAssociation but panics on error.
func (t Template) MustManyAssociation(name string) queryir.Reference {
	return must(t.ManyAssociation(name))
}

// MustNamedAssociation is like NamedAssociation but panics on error.
func (t Template) MustNamedAssociation(name string) queryir.Reference {
	return must(t.NamedAssociation(name))
}

// MustRef is like Ref but panics on error.
func (t Template) MustRef(name string) queryir.Reference { return must(t.Ref(name)) }

// MustTraverse is like Traverse but panics on error.
func (t Template) MustTraverse(name string) Template { return must(t.Traverse(name)) }

// MustOneOf is like OneOf but panics on error.
func (t Template) MustOneOf(name string) Template { return must(t.OneOf(name)) }

// MustPath is like Path but panics on error.
func (t Template) MustPath(names ...string) queryir.Reference { return must(t.Path(names...)) }
