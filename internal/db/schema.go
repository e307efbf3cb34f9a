package db

import (
	"database/sql"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	type             TEXT NOT NULL,
	id               TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	content          TEXT,
	parent_type      TEXT,
	parent_id        TEXT,
	inherits_context INTEGER NOT NULL DEFAULT 0,
	metadata         TEXT,
	embedding        BLOB,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL,
	PRIMARY KEY (type, id)
);
CREATE INDEX IF NOT EXISTS idx_objects_parent ON objects(parent_type, parent_id);
CREATE INDEX IF NOT EXISTS idx_objects_id ON objects(id);
`

// ftsSchema is applied separately so stores built without FTS5 still open.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS objects_fts USING fts5(
	title, content, content='objects', content_rowid='rowid'
);
CREATE TRIGGER IF NOT EXISTS objects_ai AFTER INSERT ON objects BEGIN
	INSERT INTO objects_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
END;
CREATE TRIGGER IF NOT EXISTS objects_ad AFTER DELETE ON objects BEGIN
	INSERT INTO objects_fts(objects_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.content);
END;
CREATE TRIGGER IF NOT EXISTS objects_au AFTER UPDATE OF title, content ON objects BEGIN
	INSERT INTO objects_fts(objects_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.content);
	INSERT INTO objects_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
END;
`

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := conn.Exec(ftsSchema); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return fmt.Errorf("creating search index: %w", err)
	}
	return nil
}
