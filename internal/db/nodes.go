package db

import (
	"context"
	"database/sql"
	"errors"
)

// AllObjects returns every object ordered by created_at descending
func (d *DB) AllObjects(ctx context.Context) ([]Object, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+objectColumns+` FROM objects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

// GetObject returns a single object, or nil if not found
func (d *DB) GetObject(ctx context.Context, objType, id string) (*Object, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+objectColumns+` FROM objects WHERE type = ? AND id = ?`, objType, id)

	o, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SearchByIDPrefix finds objects whose ID starts with the given prefix. An
// empty objType matches every type.
func (d *DB) SearchByIDPrefix(ctx context.Context, objType, prefix string, limit int) ([]Object, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE id LIKE ?1 AND (?2 = '' OR type = ?2)
		 ORDER BY id LIMIT ?3`,
		prefix+"%", objType, limit)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

// ChildrenOf returns the objects whose parent is (parentType, parentID)
func (d *DB) ChildrenOf(ctx context.Context, parentType, parentID string) ([]Object, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE parent_type = ? AND parent_id = ?
		 ORDER BY created_at, id`,
		parentType, parentID)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

// CountObjects returns the number of stored objects per type
func (d *DB) CountObjects(ctx context.Context) (map[string]int, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT type, COUNT(*) FROM objects GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

func collectObjects(rows *sql.Rows) ([]Object, error) {
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}
