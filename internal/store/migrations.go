package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	payload     TEXT NOT NULL DEFAULT '{}',
	timestamp   TEXT NOT NULL,
	device_id   TEXT NOT NULL,
	synced      INTEGER NOT NULL DEFAULT 0 CHECK(synced IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_events_pending ON events(synced, id);
CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS snapshot_todos (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'open',
	priority   TEXT NOT NULL DEFAULT 'medium',
	category   TEXT NOT NULL DEFAULT '',
	due_date   DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_logs (
	date        TEXT PRIMARY KEY,
	remote_id   TEXT NOT NULL DEFAULT '',
	mood        INTEGER NOT NULL DEFAULT 0,
	energy      INTEGER NOT NULL DEFAULT 0,
	sleep_hours REAL NOT NULL DEFAULT 0,
	highlights  TEXT NOT NULL DEFAULT '',
	gratitude   TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS entity_map (
	local_id  TEXT PRIMARY KEY,
	remote_id TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
