package db

import (
	"context"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// BuildFTSQuery turns free text into an FTS5 OR query. Words shorter than
// three characters and stopwords are dropped, surrounding punctuation is
// trimmed, and each term is quoted so ids and dotted names stay literal.
func BuildFTSQuery(query string) string {
	var terms []string
	for _, w := range strings.Fields(query) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(trimmed) < 3 || stopwords[strings.ToLower(trimmed)] {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(trimmed, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}

// SearchObjects performs FTS5 search over titles and content and returns
// matching objects ranked by relevance. Returns an empty slice if the
// preprocessed query is empty or if the FTS table doesn't exist.
func (d *DB) SearchObjects(ctx context.Context, query string, limit int) ([]Object, error) {
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Object{}, nil
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT o.type, o.id, o.title, o.content, o.parent_type, o.parent_id,
		       o.inherits_context, o.metadata, o.created_at, o.updated_at
		FROM objects o
		JOIN objects_fts fts ON o.rowid = fts.rowid
		WHERE objects_fts MATCH ?1
		ORDER BY rank
		LIMIT ?2
	`, ftsQuery, limit)
	if err != nil {
		// Stores opened without FTS5 have no index
		if strings.Contains(err.Error(), "no such table") {
			return []Object{}, nil
		}
		return nil, err
	}
	return collectObjects(rows)
}
