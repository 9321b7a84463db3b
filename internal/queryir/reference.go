package queryir

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/shapeq/internal/shape"
)

// Step is one accessor hop of a Reference.
type Step struct {
	// Shape is the shape the accessor was resolved on.
	Shape string
	// Name is the accessor name.
	Name string
	// Kind is the accessor form.
	Kind shape.AccessorKind
	// Value is the declared value type. Associations use ir.KindEntity.
	Value shape.ValueType
	// Target is the associated shape for associations.
	Target string
}

// Reference identifies an access path rooted at a shape. It is a name, not a
// read: it never holds a value.
//
// The zero Reference is invalid. References are built by internal/template.
type Reference struct {
	root  string
	steps []Step
}

// NewReference builds a Reference from a root shape and at least one step.
// The steps are copied.
func NewReference(root string, steps ...Step) Reference {
	return Reference{root: root, steps: slices.Clone(steps)}
}

// Root returns the shape the path starts at.
func (r Reference) Root() string { return r.root }

// Len returns the number of steps.
func (r Reference) Len() int { return len(r.steps) }

// IsZero reports whether r is the zero Reference.
func (r Reference) IsZero() bool { return r.root == "" && len(r.steps) == 0 }

// Steps returns a copy of the steps.
func (r Reference) Steps() []Step { return slices.Clone(r.steps) }

// Step returns the i-th step.
func (r Reference) Step(i int) Step { return r.steps[i] }

// Last returns the final step. It panics on the zero Reference.
func (r Reference) Last() Step { return r.steps[len(r.steps)-1] }

// Kind returns the accessor kind of the final step.
func (r Reference) Kind() shape.AccessorKind { return r.Last().Kind }

// ValueType returns the declared value type of the final step.
func (r Reference) ValueType() shape.ValueType { return r.Last().Value }

// Names returns the accessor names along the path.
func (r Reference) Names() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.Name
	}
	return names
}

// Append returns a new Reference extended by s. r is unchanged.
func (r Reference) Append(s Step) Reference {
	steps := make([]Step, len(r.steps), len(r.steps)+1)
	copy(steps, r.steps)
	return Reference{root: r.root, steps: append(steps, s)}
}

// Parent returns the Reference without its final step. The second result is
// false when r has a single step.
func (r Reference) Parent() (Reference, bool) {
	if len(r.steps) < 2 {
		return Reference{}, false
	}
	return Reference{root: r.root, steps: slices.Clone(r.steps[:len(r.steps)-1])}, true
}

// Equal reports whether two References name the same path.
func (r Reference) Equal(o Reference) bool {
	return r.root == o.root && slices.Equal(r.steps, o.steps)
}

// Hash returns a hash of the path. Equal References hash equal.
func (r Reference) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(r.root)
	for _, s := range r.steps {
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(s.Name)
		_, _ = h.Write([]byte{byte(s.Kind)})
	}
	return h.Sum64()
}

// String renders the path as Root.step.step.
func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(r.root)
	for _, s := range r.steps {
		b.WriteByte('.')
		b.WriteString(s.Name)
	}
	return b.String()
}

// Path returns the accessor names joined with dots, without the root.
func (r Reference) Path() string {
	return strings.Join(r.Names(), ".")
}
