package storage

import "database/sql"

// migrateV001 creates the key/value table holding settings and the watch
// log, and seeds the default settings.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_kv_updated_at ON kv(updated_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return seedDefaults(tx)
}

// seedDefaults writes the initial settings and an empty log. Uses INSERT OR
// IGNORE so re-running is safe.
func seedDefaults(tx *sql.Tx) error {
	defaults := []struct {
		Key   string
		Value string
	}{
		{KeyAPIKey, `""`},
		{KeyProfile, `"Default"`},
		{KeyEnabled, `true`},
		{KeyWatchLog, `[]`},
	}

	const insertSQL = `INSERT OR IGNORE INTO kv (key, value) VALUES (?, ?)`

	for _, d := range defaults {
		if _, err := tx.Exec(insertSQL, d.Key, d.Value); err != nil {
			return err
		}
	}

	return nil
}
