package store

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    model      TEXT NOT NULL DEFAULT '',
    dim        INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    record_id  TEXT NOT NULL,
    document   TEXT NOT NULL,
    file_path  TEXT NOT NULL,
    language   TEXT NOT NULL DEFAULT '',
    chunk_type TEXT NOT NULL DEFAULT '',
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    UNIQUE(collection, record_id)
);

CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
`

// Init creates the schema tables if they don't exist. The per-collection
// vec0 virtual tables are created lazily on first upsert, once the embedding
// dimension is known.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
