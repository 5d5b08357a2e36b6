package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `
-- header
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second; with a semicolon
CREATE TABLE b (y String DEFAULT 'a;b') ENGINE = Memory; -- trailing
INSERT INTO b VALUES ('it''s; fine')
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String DEFAULT 'a;b') ENGINE = Memory", stmts[1])
	assert.Equal(t, "INSERT INTO b VALUES ('it''s; fine')", stmts[2])
}

func TestSplitStatements_Empty(t *testing.T) {
	assert.Empty(t, splitStatements("-- only a comment\n\n;;\n"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/newsvendor")
	require.NoError(t, err)
	assert.Equal(t, "newsvendor", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.ErrorIs(t, err, ErrInvalidDatabase)

	_, err = databaseFromDSN("clickhouse://localhost:9000/bad-name")
	assert.ErrorIs(t, err, ErrInvalidDatabase)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	for _, tc := range []struct {
		fsys fs.FS
		dir  string
	}{
		{PostgresFS, "postgres"},
		{ClickhouseFS, "clickhouse"},
	} {
		files, err := sqlFiles(tc.fsys, tc.dir)
		require.NoError(t, err)
		require.NotEmpty(t, files, tc.dir)

		for _, file := range files {
			data, err := fs.ReadFile(tc.fsys, file)
			require.NoError(t, err)
			assert.NotEmpty(t, splitStatements(string(data)), file)
		}
	}
}

func TestEmbeddedClickhouseSchema(t *testing.T) {
	data, err := fs.ReadFile(ClickhouseFS, "clickhouse/001_run_summaries.sql")
	require.NoError(t, err)

	stmts := splitStatements(string(data))
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "ReplacingMergeTree")
	assert.Contains(t, stmts[0], "ORDER BY (run_id, position)")
}
