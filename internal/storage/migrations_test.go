package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBareDB(t *testing.T) *sql.DB {
	db, err := openDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	var found string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestApplyMigrations(t *testing.T) {
	db := openBareDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))

	assert.True(t, tableExists(t, db, "notes"))
	assert.True(t, tableExists(t, db, "contexts"))
	assert.True(t, tableExists(t, db, "note_contexts"))
	assert.True(t, tableExists(t, db, "schema_version"))

	var version string
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	db := openBareDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRollbackMigration(t *testing.T) {
	db := openBareDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, RollbackMigration(ctx, db))

	assert.False(t, tableExists(t, db, "notes"))
	assert.False(t, tableExists(t, db, "contexts"))
	assert.False(t, tableExists(t, db, "note_contexts"))
}

func TestRollbackMigrationNothingApplied(t *testing.T) {
	db := openBareDB(t)

	err := RollbackMigration(context.Background(), db)
	assert.Error(t, err)
}
