package querysql

import (
	"strings"
	"unicode"
)

// Mapping names the tables and columns shapes are stored in.
type Mapping interface {
	// Table returns the table for a shape.
	Table(shape string) string
	// Column returns the column for an accessor of a shape.
	Column(shape, accessor string) string
	// LinkTable returns the table holding many and named associations.
	LinkTable() string
}

// Fixed column names shared by every shape table and the link table.
const (
	IdentityColumn = "identity"
	OwnerColumn    = "owner"
	AccessorColumn = "accessor"
	NameColumn     = "name"
	PositionColumn = "position"
	TargetColumn   = "target"
)

// SnakeCase is the default Mapping: shape Person is table person,
// accessor placeOfBirth is column place_of_birth. Prefix, when set, is
// prepended to table names.
type SnakeCase struct {
	Prefix string
}

// Table implements Mapping.
func (m SnakeCase) Table(shape string) string { return m.Prefix + snake(shape) }

// Column implements Mapping.
func (m SnakeCase) Column(_, accessor string) string { return snake(accessor) }

// LinkTable implements Mapping.
func (m SnakeCase) LinkTable() string { return m.Prefix + "shapeq_links" }

func snake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || (i+1 < len(rs) && unicode.IsLower(rs[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
