package persistence

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := MigrationFiles(Migrations())
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.sql"}, files)

	content, err := fs.ReadFile(Migrations(), files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS issues")
	assert.Contains(t, string(content), "version")
}

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_scores.sql": {Data: []byte("select 2")},
		"0001_init.sql":   {Data: []byte("select 1")},
		"README.md":       {Data: []byte("notes")},
	}
	files, err := MigrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_scores.sql"}, files)
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, Migrations(), zap.NewNop()))
}
