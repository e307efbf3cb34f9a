package db

import "encoding/json"

// Object represents a row in the objects table
type Object struct {
	Type            string  `json:"type"`
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Content         *string `json:"content"`
	ParentType      *string `json:"parent_type"`
	ParentID        *string `json:"parent_id"`
	InheritsContext bool    `json:"inherits_context"`
	Metadata        *string `json:"metadata"`   // JSON object
	CreatedAt       int64   `json:"created_at"` // Unix millis
	UpdatedAt       int64   `json:"updated_at"` // Unix millis
}

// Properties decodes Metadata. A malformed document yields an empty map.
func (o *Object) Properties() map[string]any {
	props := map[string]any{}
	if o.Metadata != nil && *o.Metadata != "" {
		_ = json.Unmarshal([]byte(*o.Metadata), &props)
	}
	return props
}

// Text returns the content, or the title when there is none.
func (o *Object) Text() string {
	if o.Content != nil && *o.Content != "" {
		return *o.Content
	}
	return o.Title
}

const objectColumns = `type, id, title, content, parent_type, parent_id,
	inherits_context, metadata, created_at, updated_at`

// scanObject scans a row into an Object. The row must select objectColumns.
func scanObject(scanner interface{ Scan(dest ...any) error }) (Object, error) {
	var o Object
	err := scanner.Scan(
		&o.Type, &o.ID, &o.Title, &o.Content, &o.ParentType, &o.ParentID,
		&o.InheritsContext, &o.Metadata, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
