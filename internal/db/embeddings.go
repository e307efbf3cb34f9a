package db

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
)

// ObjectEmbedding pairs an object with its deserialized embedding vector.
type ObjectEmbedding struct {
	Type      string
	ID        string
	Title     string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// bytesToEmbedding converts a little-endian byte slice to []float32.
// Each 4 bytes = one LE float32. Short trailing chunk → 0.0.
func bytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++ // include partial chunk as 0.0
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// embeddingToBytes is the inverse of bytesToEmbedding.
func embeddingToBytes(v []float32) []byte {
	data := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return data
}

// GetEmbedding returns the embedding for a single object, or nil if not set.
func (d *DB) GetEmbedding(ctx context.Context, objType, id string) ([]float32, error) {
	var data []byte
	err := d.conn.QueryRowContext(ctx,
		"SELECT embedding FROM objects WHERE type = ? AND id = ?", objType, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return bytesToEmbedding(data), nil
}

// EmbeddingsByType returns every object of objType that has an embedding.
// An empty objType returns all of them.
func (d *DB) EmbeddingsByType(ctx context.Context, objType string) ([]ObjectEmbedding, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT type, id, title, content, metadata, embedding
		FROM objects
		WHERE embedding IS NOT NULL AND (?1 = '' OR type = ?1)
		ORDER BY type, id
	`, objType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ObjectEmbedding
	for rows.Next() {
		var (
			e        ObjectEmbedding
			content  sql.NullString
			metadata sql.NullString
			data     []byte
		)
		if err := rows.Scan(&e.Type, &e.ID, &e.Title, &content, &metadata, &data); err != nil {
			return nil, err
		}
		o := Object{Metadata: &metadata.String}
		e.Content = content.String
		e.Metadata = o.Properties()
		e.Embedding = bytesToEmbedding(data)
		result = append(result, e)
	}
	return result, rows.Err()
}

// CountWithEmbeddings returns the count of objects with non-null embeddings.
func (d *DB) CountWithEmbeddings(ctx context.Context) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM objects WHERE embedding IS NOT NULL").Scan(&count)
	return count, err
}

// EmbeddingCursor marks the last object visited by a backfill. Objects sort
// by (created_at, type, id).
type EmbeddingCursor struct {
	CreatedAt int64
	Type      string
	ID        string
}

// CursorAt returns the cursor positioned on o.
func CursorAt(o Object) *EmbeddingCursor {
	return &EmbeddingCursor{CreatedAt: o.CreatedAt, Type: o.Type, ID: o.ID}
}

// ObjectsMissingEmbedding returns up to limit objects that have no embedding
// yet, oldest first, strictly after the cursor. A nil cursor starts from the
// beginning and an empty objType matches every type.
func (d *DB) ObjectsMissingEmbedding(ctx context.Context, objType string, after *EmbeddingCursor, limit int) ([]Object, error) {
	var (
		createdAt any
		afterType string
		afterID   string
	)
	if after != nil {
		createdAt, afterType, afterID = after.CreatedAt, after.Type, after.ID
	}
	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE embedding IS NULL AND (?1 = '' OR type = ?1)
		   AND (?3 IS NULL OR (created_at, type, id) > (?3, ?4, ?5))
		 ORDER BY created_at, type, id LIMIT ?2`,
		objType, limit, createdAt, afterType, afterID)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}
