package store

import "database/sql"

// migrate creates the schema if it doesn't exist.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS sync_queue (
			id           TEXT PRIMARY KEY,
			item_type    TEXT NOT NULL,
			reference_id TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'pending',
			detail       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sync_queue_status
			ON sync_queue(status, created_at);

		CREATE TABLE IF NOT EXISTS sync_log (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			session_ticket TEXT NOT NULL DEFAULT '',
			operation      TEXT NOT NULL,
			direction      TEXT NOT NULL,
			status         TEXT NOT NULL,
			detail         TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sync_log_created
			ON sync_log(created_at);

		CREATE TABLE IF NOT EXISTS connections (
			id              TEXT PRIMARY KEY,
			app_name        TEXT NOT NULL,
			username        TEXT NOT NULL,
			password_hash   TEXT NOT NULL,
			company_file    TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'disconnected',
			status_detail   TEXT NOT NULL DEFAULT '',
			product_version TEXT NOT NULL DEFAULT '',
			directory_sync  INTEGER NOT NULL DEFAULT 0,
			updated_at      TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS external_refs (
			item_id    TEXT PRIMARY KEY,
			ref_type   TEXT NOT NULL,
			ref_value  TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}
