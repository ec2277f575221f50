package database

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/migrations"
)

// TestNewMigrator_Validation tests the input validation for the migrator constructors.
func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("fails with nil database", func(t *testing.T) {
		migrator, err := NewMigrator(nil, t.TempDir(), logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("fails with nil pool", func(t *testing.T) {
		db := &DB{pool: nil}
		migrator, err := NewMigrator(db, t.TempDir(), logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "database pool not initialized")
	})

	t.Run("fails with empty migrations path", func(t *testing.T) {
		migrator, err := NewMigrator(&DB{}, "", logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "migrations path is required")
	})

	t.Run("embedded fails with nil filesystem", func(t *testing.T) {
		migrator, err := NewEmbeddedMigrator(&DB{}, nil, logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "migrations filesystem is required")
	})

	t.Run("embedded fails with nil database", func(t *testing.T) {
		migrator, err := NewEmbeddedMigrator(nil, fstest.MapFS{}, logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
	})
}

// TestEmbeddedMigrations checks every compiled-in up migration has a down.
func TestEmbeddedMigrations(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, name := range ups {
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrations.FS, down)
		assert.NoError(t, err, "%s has no down migration", name)
	}
}
