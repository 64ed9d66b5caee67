package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsAppliesEmbeddedSchemaOnce(t *testing.T) {
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	applied, err := RunMigrations(ctx, database, Migrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql"}, applied)

	applied, err = RunMigrations(ctx, database, Migrations())
	require.NoError(t, err)
	assert.Empty(t, applied)

	for _, table := range []string{"pomodoro_sessions", "timer_snapshots", "schema_migrations"} {
		var name string
		err := database.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestRunMigrationsLexicalOrderAndRollback(t *testing.T) {
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	migrations := fstest.MapFS{
		"0002_seed.sql":   {Data: []byte(`INSERT INTO things (id) VALUES (1);`)},
		"0001_create.sql": {Data: []byte(`CREATE TABLE things (id INTEGER PRIMARY KEY);`)},
		"0003_broken.sql": {Data: []byte(`INSERT INTO missing_table VALUES (1);`)},
		"README.md":       {Data: []byte(`ignored`)},
	}

	applied, err := RunMigrations(context.Background(), database, migrations)
	require.Error(t, err)
	assert.Equal(t, []string{"0001_create.sql", "0002_seed.sql"}, applied)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count)
}
