package roster

import (
	"strings"

	"golang.org/x/text/cases"
)

// Search returns the records whose id or name contains query, ignoring
// case. A blank query returns records unchanged.
func Search(records []Record, query string) []Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	fold := cases.Fold()
	q := fold.String(query)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(fold.String(r.ID), q) || strings.Contains(fold.String(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}
