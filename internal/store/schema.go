// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines users, sessions, entity tables, and the realtime change log.
package store

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS project (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT,
		provider TEXT NOT NULL DEFAULT 'email',
		email_confirmed INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS recovery_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS health_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('good', 'normal', 'bad')),
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (user_id, date),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL CHECK (title <> ''),
		description TEXT,
		date TEXT NOT NULL,
		end_date TEXT,
		start_time TEXT,
		end_time TEXT,
		is_all_day INTEGER NOT NULL DEFAULT 0,
		calendar_source TEXT NOT NULL DEFAULT 'manual',
		external_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		font_size INTEGER NOT NULL DEFAULT 16,
		week_starts_monday INTEGER NOT NULL DEFAULT 0,
		theme TEXT NOT NULL DEFAULT 'light',
		notifications_enabled INTEGER NOT NULL DEFAULT 1,
		reminder_time TEXT NOT NULL DEFAULT '09:00:00',
		google_calendar_connected INTEGER NOT NULL DEFAULT 0,
		apple_calendar_connected INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS changes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		op TEXT NOT NULL,
		user_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_health_records_user_date ON health_records(user_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_schedules_user_date ON schedules(user_id, date, start_time);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_schedules_external
		ON schedules(user_id, calendar_source, external_id) WHERE external_id IS NOT NULL;
	`

	_, err := d.db.Exec(schema)
	return err
}
