package cmd

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ideagraph/semnet/internal/db"
)

// ResolveObject finds an object of objType by full ID, ID prefix, or title search.
func ResolveObject(ctx context.Context, d *db.DB, objType, reference string) (*db.Object, error) {
	// 1. Exact ID match
	obj, err := d.GetObject(ctx, objType, reference)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		return obj, nil
	}

	// 2. ID prefix match (≥6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		matches, err := d.SearchByIDPrefix(ctx, objType, reference, 10)
		if err == nil {
			switch len(matches) {
			case 1:
				return &matches[0], nil
			case 0:
				// fall through to FTS
			default:
				return nil, ambiguous(reference, matches, "Use a full ID instead.")
			}
		}
	}

	// 3. FTS search
	found, err := d.SearchObjects(ctx, reference, 50)
	if err == nil {
		var typed []db.Object
		for _, o := range found {
			if o.Type == objType {
				typed = append(typed, o)
			}
		}
		switch len(typed) {
		case 1:
			return &typed[0], nil
		case 0:
			// fall through to not found
		default:
			return nil, ambiguous(reference, typed, "Use an ID instead.")
		}
	}

	return nil, fmt.Errorf("%s not found: %s", objType, reference)
}

func ambiguous(reference string, matches []db.Object, hint string) error {
	limit := min(len(matches), 10)
	lines := make([]string, limit)
	for i := 0; i < limit; i++ {
		lines[i] = fmt.Sprintf("  %s %s", truncID(matches[i].ID), matches[i].Title)
	}
	return fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\n%s",
		reference, len(matches), strings.Join(lines, "\n"), hint)
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	truncated := s[:max]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
