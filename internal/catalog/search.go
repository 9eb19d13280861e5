package catalog

import (
	"database/sql"

	"github.com/amsel/raido/internal/models"
)

// SearchResult is one hit from a node name search.
type SearchResult struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ParentID string          `json:"parent_id"`
	Kind     models.ItemKind `json:"kind"`
}

func collectSearchResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.ParentID, &r.Kind); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
