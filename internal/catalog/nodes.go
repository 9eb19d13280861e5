package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/models"
)

const nodeColumns = `id, name, parent_id, kind, folder_kind, file_kind,
	duration, size_label, url, media_path, position, created_at`

// InsertNode stores a new node together with its FTS entry.
// MediaPath is the on-disk key for file nodes and empty for folders.
func (db *DB) InsertNode(it models.Item, mediaPath string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var duration, position int
	var sizeLabel, url, createdAt string
	switch {
	case it.Audio != nil:
		duration = it.Audio.DurationSeconds
		sizeLabel = it.Audio.SizeLabel
		createdAt = it.Audio.CreatedAt
	case it.Image != nil:
		url = it.Image.URL
		position = it.Image.Position
		createdAt = it.Image.CreatedAt
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (id, name, parent_id, kind, folder_kind, file_kind,
			duration, size_label, url, media_path, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ID, it.Name, it.ParentID, it.Kind, it.FolderKind, it.FileKind,
		duration, sizeLabel, url, mediaPath, position, createdAt)
	if err != nil {
		return fmt.Errorf("catalog: insert node: %w", err)
	}

	if err := ftsUpsert(tx, it.ID, it.Name); err != nil {
		return err
	}
	return tx.Commit()
}

// GetNode returns a single node by id.
func (db *DB) GetNode(id string) (*models.Item, error) {
	row := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get node %s: %w", id, err)
	}
	return it, nil
}

// Children returns all nodes whose parent_id equals the given id,
// in insertion order.
func (db *DB) Children(parentID string) ([]models.Item, error) {
	rows, err := db.conn.Query(
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? ORDER BY rowid`, parentID)
	if err != nil {
		return nil, fmt.Errorf("catalog: children of %s: %w", parentID, err)
	}
	return collectItems(rows)
}

// ParentNodes returns the nodes parented at the root sentinel.
func (db *DB) ParentNodes() ([]models.Item, error) {
	return db.Children(models.RootID)
}

// RepoFiles returns the file nodes under a repository folder.
func (db *DB) RepoFiles(repoID string) ([]models.Item, error) {
	rows, err := db.conn.Query(
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? AND kind = ? ORDER BY rowid`,
		repoID, models.KindFile)
	if err != nil {
		return nil, fmt.Errorf("catalog: repo files of %s: %w", repoID, err)
	}
	return collectItems(rows)
}

// RenameNode updates the display name, keeping identity and parentage.
func (db *DB) RenameNode(id, name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`UPDATE nodes SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("catalog: rename node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	if err := ftsUpsert(tx, id, name); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNode removes a single node row and its FTS entry. Descendants
// are left in place with a dangling parent_id; see the service layer
// for the orphaning contract.
func (db *DB) DeleteNode(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	return tx.Commit()
}

// SetPosition overwrites the ordering label of a single image node.
// Neighbours are not renumbered.
func (db *DB) SetPosition(id string, position int) error {
	res, err := db.conn.Exec(
		`UPDATE nodes SET position = ? WHERE id = ? AND file_kind = ?`,
		position, id, models.FileImage)
	if err != nil {
		return fmt.Errorf("catalog: set position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ImageCount returns the number of image nodes in the whole catalog.
func (db *DB) ImageCount() (int, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT count(*) FROM nodes WHERE file_kind = ?`, models.FileImage).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: image count: %w", err)
	}
	return n, nil
}

// ImageCountIn returns the number of image nodes under one parent.
func (db *DB) ImageCountIn(parentID string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT count(*) FROM nodes WHERE parent_id = ? AND file_kind = ?`,
		parentID, models.FileImage).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: image count in %s: %w", parentID, err)
	}
	return n, nil
}

// PositionInUse reports whether another image under parentID already
// carries the given position label.
func (db *DB) PositionInUse(parentID string, position int, excludeID string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT count(*) FROM nodes
		WHERE parent_id = ? AND file_kind = ? AND position = ? AND id != ?
	`, parentID, models.FileImage, position, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("catalog: position in use: %w", err)
	}
	return n > 0, nil
}

// NodeIDByMediaPath returns the id of the file node registered at the
// given on-disk key.
func (db *DB) NodeIDByMediaPath(path string) (string, error) {
	var id string
	err := db.conn.QueryRow(
		`SELECT id FROM nodes WHERE media_path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("catalog: node by media path: %w", err)
	}
	return id, nil
}

// AllMediaPaths returns media_path -> node id for every file node.
// Used by the media reconciliation pass.
func (db *DB) AllMediaPaths() (map[string]string, error) {
	rows, err := db.conn.Query(
		`SELECT media_path, id FROM nodes WHERE kind = ? AND media_path != ''`, models.KindFile)
	if err != nil {
		return nil, fmt.Errorf("catalog: all media paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, id string
		if err := rows.Scan(&p, &id); err != nil {
			return nil, err
		}
		out[p] = id
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var it models.Item
	var duration, position int
	var sizeLabel, url, mediaPath, createdAt string
	err := row.Scan(&it.ID, &it.Name, &it.ParentID, &it.Kind, &it.FolderKind,
		&it.FileKind, &duration, &sizeLabel, &url, &mediaPath, &position, &createdAt)
	if err != nil {
		return nil, err
	}
	switch it.FileKind {
	case models.FileAudio:
		it.Audio = &models.AudioMetadata{
			DurationSeconds: duration,
			SizeLabel:       sizeLabel,
			CreatedAt:       createdAt,
		}
	case models.FileImage:
		it.Image = &models.ImageMetadata{
			URL:       url,
			Position:  position,
			CreatedAt: createdAt,
		}
	}
	return &it, nil
}

func collectItems(rows *sql.Rows) ([]models.Item, error) {
	defer rows.Close()
	var out []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
