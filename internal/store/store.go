package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/querysql"
	"github.com/roach88/shapeq/internal/shape"
)

//go:embed schema.sql
var schemaSQL string

// DriverName is the database/sql driver registered by this package: the
// mattn SQLite driver with a REGEXP function.
const DriverName = "sqlite3_shapeq"

// Schema version tracking:
// 1 - Entity state table plus per-shape projections
const currentSchemaVersion = 1

var patterns, _ = lru.New(256)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch backs "value REGEXP pattern", which SQLite calls as
// regexp(pattern, value). NULL and non-text values never match.
func regexpMatch(pattern string, value any) (bool, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false, nil
	}

	if re, ok := patterns.Get(pattern); ok {
		return re.(*regexp.Regexp).MatchString(s), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	patterns.Add(pattern, re)
	return re.MatchString(s), nil
}

// Option configures a Store.
type Option func(*Store)

// WithMapping sets the table mapping. It must match the mapping of the
// querysql.Compiler used against the store. Default: querysql.SnakeCase{}.
func WithMapping(m querysql.Mapping) Option {
	return func(s *Store) { s.mapping = m }
}

// WithIdentityGenerator sets the generator for records written without an
// identity. Default: entity.UUIDv7Generator.
func WithIdentityGenerator(g entity.IdentityGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// Store is a SQLite entity store for one shape registry.
type Store struct {
	db      *sql.DB
	reg     *shape.Registry
	mapping querysql.Mapping
	ids     entity.IdentityGenerator
}

// Open creates or opens a SQLite database at the given path and creates
// the tables for every shape in reg. Use ":memory:" for a throwaway store.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, reg *shape.Registry, opts ...Option) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{db: db, reg: reg, mapping: querysql.SnakeCase{}, ids: entity.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Registry returns the shapes the store was opened with.
func (s *Store) Registry() *shape.Registry { return s.reg }

// Mapping returns the table mapping.
func (s *Store) Mapping() querysql.Mapping { return s.mapping }

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the state table, the link table and one projection
// table per shape. This function is idempotent.
func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	for _, stmt := range s.projectionDDL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create projection: %w", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *Store) projectionDDL() []string {
	q := querysql.SQLite{}.QuoteIdent
	links := q(s.mapping.LinkTable())

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL, %s TEXT NOT NULL, %s TEXT, %s INTEGER, %s TEXT NOT NULL)`,
			links, q(querysql.OwnerColumn), q(querysql.AccessorColumn), q(querysql.NameColumn),
			q(querysql.PositionColumn), q(querysql.TargetColumn)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s, %s)`,
			q("idx_"+s.mapping.LinkTable()+"_owner"), links, q(querysql.OwnerColumn), q(querysql.AccessorColumn)),
	}

	if s.reg == nil {
		return stmts
	}
	for _, name := range s.reg.Names() {
		cols := []string{q(querysql.IdentityColumn) + " TEXT PRIMARY KEY"}
		for _, a := range s.reg.Accessors(name) {
			if a.Kind.IsMulti() {
				continue
			}
			cols = append(cols, q(s.mapping.Column(name, a.Name))+" "+columnType(a.Value))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			q(s.mapping.Table(name)), strings.Join(cols, ", ")))
	}
	return stmts
}

func columnType(t shape.ValueType) string {
	switch t.Kind {
	case ir.KindInt, ir.KindBool:
		return "INTEGER"
	case ir.KindFloat:
		return "REAL"
	}
	return "TEXT"
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// Resolver returns an entity.Resolver backed by Load.
func (s *Store) Resolver(ctx context.Context) entity.Resolver {
	return resolver{ctx: ctx, s: s}
}

type resolver struct {
	ctx context.Context
	s   *Store
}

func (r resolver) Resolve(identity string) (entity.Entity, bool) {
	rec, err := r.s.Load(r.ctx, identity)
	if err != nil {
		return nil, false
	}
	return rec, true
}
