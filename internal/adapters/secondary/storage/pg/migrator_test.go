package pg

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion int64
		wantName    string
		wantErr     bool
	}{
		{name: "valid", filename: "0001_init.sql", wantVersion: 1, wantName: "init"},
		{name: "underscores in name", filename: "0012_add_jobs_index.sql", wantVersion: 12, wantName: "add_jobs_index"},
		{name: "no name", filename: "0003.sql", wantErr: true},
		{name: "bad version", filename: "abc_init.sql", wantErr: true},
		{name: "zero version", filename: "0000_init.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, name, err := parseMigrationName(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0010_later.sql":  {Data: []byte("SELECT 10")},
		"m/0002_second.sql": {Data: []byte("SELECT 2")},
		"m/0001_first.sql":  {Data: []byte("SELECT 1")},
		"m/README.md":       {Data: []byte("skip me")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Equal(t, int64(10), migrations[2].Version)
	assert.Equal(t, "SELECT 10", migrations[2].Content)
}

func TestLoadMigrationsRejectsDuplicateVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("SELECT 1")},
		"m/0001_b.sql": {Data: []byte("SELECT 1")},
	}

	_, err := loadMigrations(fsys, "m")
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Contains(t, migrations[0].Content, "CREATE TABLE IF NOT EXISTS credit_transactions")
}
