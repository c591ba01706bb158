package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ns-gamming/ns-tracker-sub000/internal/infra/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreReadable(t *testing.T) {
	migrations, err := postgres.ReadMigrations(migrationSource(""))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
}

func TestMigrationSourceFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_second.sql"), []byte("SELECT 2;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_first.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	migrations, err := postgres.ReadMigrations(migrationSource(dir))
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "SELECT 2;", migrations[1].SQL)

	pending := postgres.PendingMigrations(migrations, []postgres.AppliedMigration{{Version: 1, Name: "first"}})
	require.Len(t, pending, 1)
	assert.Equal(t, "0002_second.sql", pending[0].Filename)
}
