package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertObjectOpts holds the fields written by UpsertObject
type UpsertObjectOpts struct {
	ID              string // generated when empty
	Content         string
	ParentType      string
	ParentID        string
	InheritsContext bool
	Metadata        map[string]any
}

// UpsertObject inserts or updates an object and returns its ID. An update
// keeps the stored embedding only when title and content are unchanged.
func (d *DB) UpsertObject(ctx context.Context, objType, title string, opts UpsertObjectOpts) (string, error) {
	if objType == "" {
		return "", fmt.Errorf("object type is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	var metadata *string
	if len(opts.Metadata) > 0 {
		raw, err := json.Marshal(opts.Metadata)
		if err != nil {
			return "", fmt.Errorf("encoding metadata: %w", err)
		}
		s := string(raw)
		metadata = &s
	}

	now := time.Now().UnixMilli()
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO objects (type, id, title, content, parent_type, parent_id,
		                     inherits_context, metadata, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?9)
		ON CONFLICT(type, id) DO UPDATE SET
			embedding = CASE
				WHEN objects.title = excluded.title AND objects.content IS excluded.content
				THEN objects.embedding ELSE NULL END,
			title = excluded.title,
			content = excluded.content,
			parent_type = excluded.parent_type,
			parent_id = excluded.parent_id,
			inherits_context = excluded.inherits_context,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, objType, id, title, nullable(opts.Content), nullable(opts.ParentType),
		nullable(opts.ParentID), opts.InheritsContext, metadata, now)
	if err != nil {
		return "", fmt.Errorf("upserting object %s:%s: %w", objType, id, err)
	}
	return id, nil
}

// SetEmbedding stores the embedding vector of an object.
func (d *DB) SetEmbedding(ctx context.Context, objType, id string, embedding []float32) error {
	res, err := d.conn.ExecContext(ctx,
		`UPDATE objects SET embedding = ? WHERE type = ? AND id = ?`,
		embeddingToBytes(embedding), objType, id)
	if err != nil {
		return fmt.Errorf("storing embedding for %s:%s: %w", objType, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storing embedding: object %s:%s not found", objType, id)
	}
	return nil
}

// DeleteObject removes an object. Children keep their dangling parent
// reference and simply stop resolving it.
func (d *DB) DeleteObject(ctx context.Context, objType, id string) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM objects WHERE type = ? AND id = ?`, objType, id)
	if err != nil {
		return fmt.Errorf("deleting object %s:%s: %w", objType, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deleting object: %s:%s not found", objType, id)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
