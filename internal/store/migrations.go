package store

import "github.com/nhle/todoshare/internal/model"

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

const schemaVersionDDL = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`

// NotifyChannel is the postgres channel the change trigger notifies on.
const NotifyChannel = "row_changes"

// migrations holds the ordered schema migrations per driver. Versions must
// be sequential starting from 1. Version 1 is the original schema, which
// had no status columns; tasks written before version 2 keep a NULL status
// and are classified by their completed flag.
var migrations = map[string][]migration{
	model.DriverSQLite: {
		{
			version: 1,
			sql: `
CREATE TABLE IF NOT EXISTS lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES lists(id),
	title       TEXT NOT NULL,
	description TEXT,
	completed   BOOLEAN NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lists_created_at ON lists(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_list_id ON tasks(list_id, created_at);
`,
		},
		{
			version: 2,
			sql: `
ALTER TABLE lists ADD COLUMN status TEXT NOT NULL DEFAULT 'active';
ALTER TABLE tasks ADD COLUMN status TEXT;

CREATE INDEX IF NOT EXISTS idx_lists_status ON lists(status);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`,
		},
	},
	model.DriverPostgres: {
		{
			version: 1,
			sql: `
CREATE TABLE IF NOT EXISTS lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES lists(id),
	title       TEXT NOT NULL,
	description TEXT,
	completed   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lists_created_at ON lists(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_list_id ON tasks(list_id, created_at);
`,
		},
		{
			version: 2,
			sql: `
ALTER TABLE lists ADD COLUMN IF NOT EXISTS status TEXT NOT NULL DEFAULT 'active';
ALTER TABLE tasks ADD COLUMN IF NOT EXISTS status TEXT;

CREATE INDEX IF NOT EXISTS idx_lists_status ON lists(status);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`,
		},
		{
			version: 3,
			sql: `
CREATE OR REPLACE FUNCTION notify_row_change() RETURNS trigger AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
		'collection', TG_TABLE_NAME,
		'op', lower(TG_OP),
		rtrim(TG_TABLE_NAME, 's'), row_to_json(rec)
	)::text);
	RETURN rec;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS lists_notify ON lists;
CREATE TRIGGER lists_notify AFTER INSERT OR UPDATE OR DELETE ON lists
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();

DROP TRIGGER IF EXISTS tasks_notify ON tasks;
CREATE TRIGGER tasks_notify AFTER INSERT OR UPDATE OR DELETE ON tasks
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();
`,
		},
	},
}
