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

CREATE TABLE IF NOT EXISTS snapshots (
	id        TEXT NOT NULL,
	cache_key TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	data      BLOB NOT NULL,
	saved_at  INTEGER NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_snapshots_kind ON snapshots(kind);
CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
