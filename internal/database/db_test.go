package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akovalyov/currex/internal/models"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, AutoMigrateAll(db))

	require.True(t, db.Migrator().HasTable(&models.User{}))
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	_ = sqlDB.Close()
}

func TestOpenSQLiteCreatesDataDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "app.sqlite")

	db, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, AutoMigrateAll(db))

	_, err = os.Stat(filepath.Dir(path))
	require.NoError(t, err)
}

func TestSQLiteDSNPrefersExplicitOverride(t *testing.T) {
	dsn, err := sqliteDSN(Config{DSN: "file:custom.sqlite?mode=ro"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.sqlite?mode=ro", dsn)

	dsn, err = sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Contains(t, dsn, "memory")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestAutoMigrateAllNilHandle(t *testing.T) {
	require.Error(t, AutoMigrateAll(nil))
}
