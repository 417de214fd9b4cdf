package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	for _, table := range []string{"kv", "schema_migrations"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?", "idx_kv_updated_at",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_kv_updated_at", name)
}

func TestMigrationRunner_SeedsDefaults(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	want := map[string]string{
		KeyAPIKey:   `""`,
		KeyProfile:  `"Default"`,
		KeyEnabled:  `true`,
		KeyWatchLog: `[]`,
	}
	for key, value := range want {
		var got string
		require.NoError(t, db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&got))
		assert.Equal(t, value, got, "key %s", key)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	_, err := db.Exec("UPDATE kv SET value = '\"Work\"' WHERE key = ?", KeyProfile)
	require.NoError(t, err)

	require.NoError(t, runner.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	// Re-running must not reseed over user data.
	var profile string
	require.NoError(t, db.QueryRow("SELECT value FROM kv WHERE key = ?", KeyProfile).Scan(&profile))
	assert.Equal(t, `"Work"`, profile)
}

func TestMigrationRunner_RecordsVersion(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	var version int
	var name string
	require.NoError(t, db.QueryRow("SELECT version, name FROM schema_migrations").Scan(&version, &name))
	assert.Equal(t, 1, version)
	assert.Equal(t, "kv_store", name)
}
