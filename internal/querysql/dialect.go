package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// Binder appends a parameter and returns its placeholder.
type Binder func(param any) string

// Dialect isolates the SQL differences between database engines.
type Dialect interface {
	// Name identifies the dialect in errors and cache keys.
	Name() string
	// Placeholder returns the placeholder for the n-th parameter (1-based).
	Placeholder(n int) string
	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string
	// Paginate appends row limiting to a complete SELECT.
	Paginate(sql string, first, limit int, hasFirst, hasMax bool) string
	// Regexp renders a regular-expression match of expr against the pattern
	// placeholder.
	Regexp(expr, pattern string) (string, error)
	// JSONField extracts a nested field of a JSON text column, typed as t.
	JSONField(expr string, path []string, t shape.ValueType) (string, error)
	// Contains renders "the JSON array in expr holds every element of elems".
	Contains(expr string, elems ir.IRArray, bind Binder) (string, error)
	// OrderTerm renders one ORDER BY term. Absent values sort first in
	// ascending order and last in descending order. Text terms compare
	// bytewise, whatever the database locale.
	OrderTerm(expr string, text, desc bool) string
	// StableKey renders the identity tiebreaker that ends every ORDER BY.
	StableKey(expr string) string
}

// ErrUnsupported is wrapped by dialect methods that have no rendering.
var ErrUnsupported = fmt.Errorf("not supported by dialect")

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlString renders s as a single-quoted SQL string.
func sqlString(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

func jsonPath(path []string) string {
	return "$." + strings.Join(path, ".")
}

// SQLite renders for SQLite 3.38+ with the JSON1 functions and a REGEXP
// function registered on the connection (see internal/store).
type SQLite struct{}

func (SQLite) Name() string                  { return "sqlite" }
func (SQLite) Placeholder(int) string        { return "?" }
func (SQLite) QuoteIdent(name string) string { return quote(name) }

func (SQLite) Paginate(sql string, first, limit int, hasFirst, hasMax bool) string {
	switch {
	case hasMax && hasFirst:
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, limit, first)
	case hasMax:
		return fmt.Sprintf("%s LIMIT %d", sql, limit)
	case hasFirst:
		return fmt.Sprintf("%s LIMIT -1 OFFSET %d", sql, first)
	}
	return sql
}

func (SQLite) Regexp(expr, pattern string) (string, error) {
	return expr + " REGEXP " + pattern, nil
}

func (SQLite) JSONField(expr string, path []string, _ shape.ValueType) (string, error) {
	return fmt.Sprintf("json_extract(%s, %s)", expr, sqlString(jsonPath(path))), nil
}

func (SQLite) Contains(expr string, elems ir.IRArray, bind Binder) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		p, err := Param(e)
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE value = %s)", expr, bind(p))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (SQLite) OrderTerm(expr string, _, desc bool) string {
	if desc {
		return expr + " DESC"
	}
	return expr + " ASC"
}

func (SQLite) StableKey(expr string) string { return expr + " COLLATE BINARY ASC" }

// PostgreSQL renders for PostgreSQL 12+. Collections and value objects are
// read as jsonb.
type PostgreSQL struct{}

func (PostgreSQL) Name() string                  { return "postgresql" }
func (PostgreSQL) Placeholder(n int) string      { return "$" + strconv.Itoa(n) }
func (PostgreSQL) QuoteIdent(name string) string { return quote(name) }

func (PostgreSQL) Paginate(sql string, first, limit int, hasFirst, hasMax bool) string {
	if hasMax {
		sql = fmt.Sprintf("%s LIMIT %d", sql, limit)
	}
	if hasFirst {
		sql = fmt.Sprintf("%s OFFSET %d", sql, first)
	}
	return sql
}

func (PostgreSQL) Regexp(expr, pattern string) (string, error) {
	return expr + " ~ " + pattern, nil
}

func (PostgreSQL) JSONField(expr string, path []string, t shape.ValueType) (string, error) {
	keys := sqlString("{" + strings.Join(path, ",") + "}")
	field := fmt.Sprintf("(%s::jsonb #>> %s)", expr, keys)
	switch t.Kind {
	case ir.KindInt:
		return field + "::bigint", nil
	case ir.KindFloat:
		return field + "::double precision", nil
	case ir.KindBool:
		return field + "::boolean", nil
	case ir.KindArray, ir.KindObject:
		return fmt.Sprintf("(%s::jsonb #> %s)", expr, keys), nil
	}
	return field, nil
}

func (PostgreSQL) Contains(expr string, elems ir.IRArray, bind Binder) (string, error) {
	data, err := ir.MarshalValue(elems)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s::jsonb @> %s::jsonb", expr, bind(string(data))), nil
}

func (PostgreSQL) OrderTerm(expr string, text, desc bool) string {
	if text {
		expr += ` COLLATE "C"`
	}
	if desc {
		return expr + " DESC NULLS LAST"
	}
	return expr + " ASC NULLS FIRST"
}

func (PostgreSQL) StableKey(expr string) string { return expr + ` COLLATE "C" ASC` }

// Derby renders for Apache Derby 10.7+, which has standard row limiting
// but neither regular expressions nor JSON functions.
type Derby struct{}

func (Derby) Name() string                  { return "derby" }
func (Derby) Placeholder(int) string        { return "?" }
func (Derby) QuoteIdent(name string) string { return quote(name) }

func (Derby) Paginate(sql string, first, limit int, hasFirst, hasMax bool) string {
	if hasFirst {
		sql = fmt.Sprintf("%s OFFSET %d ROWS", sql, first)
	}
	if hasMax {
		sql = fmt.Sprintf("%s FETCH NEXT %d ROWS ONLY", sql, limit)
	}
	return sql
}

func (Derby) Regexp(string, string) (string, error) {
	return "", fmt.Errorf("regular expressions: %w", ErrUnsupported)
}

func (Derby) JSONField(string, []string, shape.ValueType) (string, error) {
	return "", fmt.Errorf("value object fields: %w", ErrUnsupported)
}

func (Derby) Contains(string, ir.IRArray, Binder) (string, error) {
	return "", fmt.Errorf("collection containment: %w", ErrUnsupported)
}

func (Derby) OrderTerm(expr string, _, desc bool) string {
	if desc {
		return expr + " DESC NULLS LAST"
	}
	return expr + " ASC NULLS FIRST"
}

func (Derby) StableKey(expr string) string { return expr + " ASC" }

// DialectFor returns the dialect with the given name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3", "":
		return SQLite{}, nil
	case "postgresql", "postgres", "pg":
		return PostgreSQL{}, nil
	case "derby":
		return Derby{}, nil
	}
	return nil, fmt.Errorf("unknown SQL dialect %q", name)
}

// Param converts an ir value into a driver parameter. Times are bound as
// fixed-width UTC text so that text ordering matches time ordering.
func Param(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRTime:
		return ir.FormatTime(val.Time()), nil
	case ir.IREntity:
		return val.Identity(), nil
	case ir.IRNull, nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported value for SQL parameter: %s", val.Kind())
	}
}
