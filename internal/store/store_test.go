package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/querysql"
	"github.com/roach88/shapeq/internal/testutil"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, testutil.People())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path, testutil.People())
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_CreatesProjectionTables(t *testing.T) {
	s := createTestStore(t)

	tables := map[string]bool{}
	rows, err := s.DB().Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		tables[n] = true
	}
	require.NoError(t, rows.Err())

	for _, want := range []string{"shapeq_entities", "shapeq_links", "nameable", "city", "address", "person"} {
		assert.True(t, tables[want], "missing table %s", want)
	}
}

func TestOpen_ColumnTypes(t *testing.T) {
	s := createTestStore(t)

	types := map[string]string{}
	rows, err := s.DB().Query(`SELECT name, type FROM pragma_table_info('person')`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n, typ string
		require.NoError(t, rows.Scan(&n, &typ))
		types[n] = typ
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, map[string]string{
		querysql.IdentityColumn: "TEXT",
		"name":                  "TEXT",
		"year_of_birth":         "INTEGER",
		"height":                "REAL",
		"born":                  "TEXT",
		"email":                 "TEXT",
		"tags":                  "TEXT",
		"address":               "TEXT",
		"password":              "TEXT",
		"place_of_birth":        "TEXT",
	}, types)
}

func TestRegexpFunction(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		value any
		want  bool
	}{
		{"Joe Doe", true},
		{"Ann Doe", false},
		{nil, false},
	}
	for _, tt := range tests {
		var got bool
		err := s.DB().QueryRow("SELECT COALESCE(? REGEXP '^J', 0)", tt.value).Scan(&got)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.value)
	}

	var ignored bool
	err := s.DB().QueryRow("SELECT 'x' REGEXP '('").Scan(&ignored)
	assert.Error(t, err)
}
