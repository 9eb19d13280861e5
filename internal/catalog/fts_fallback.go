//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on nodes.name.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ string) error {
	// Name is already stored in the nodes table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// SearchNodes performs a LIKE-based search (fallback when FTS5 is not
// compiled in).
func (db *DB) SearchNodes(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, name, parent_id, kind
		FROM nodes
		WHERE name LIKE ?
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	return collectSearchResults(rows)
}
