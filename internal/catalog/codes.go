package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/models"
)

// InsertCode stores a new access code. The code value must be unique.
func (db *DB) InsertCode(c models.AccessCode) error {
	_, err := db.conn.Exec(`
		INSERT INTO access_codes (id, code, label, valid_from, valid_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Code, c.Label, c.ValidFrom.UTC(), c.ValidUntil.UTC(), c.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("catalog: insert code: %w", err)
	}
	return nil
}

// GetCode looks up an access code by its value.
func (db *DB) GetCode(code string) (*models.AccessCode, error) {
	row := db.conn.QueryRow(`
		SELECT id, code, label, valid_from, valid_until, created_at
		FROM access_codes WHERE code = ?
	`, code)
	var c models.AccessCode
	err := row.Scan(&c.ID, &c.Code, &c.Label, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get code: %w", err)
	}
	return &c, nil
}

// ListCodes returns all access codes, newest first.
func (db *DB) ListCodes() ([]models.AccessCode, error) {
	rows, err := db.conn.Query(`
		SELECT id, code, label, valid_from, valid_until, created_at
		FROM access_codes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list codes: %w", err)
	}
	defer rows.Close()
	var out []models.AccessCode
	for rows.Next() {
		var c models.AccessCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Label, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCode removes an access code by id.
func (db *DB) DeleteCode(id string) error {
	res, err := db.conn.Exec(`DELETE FROM access_codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ValidateCode reports whether the code exists and its validity window
// covers the given instant.
func (db *DB) ValidateCode(code string, at time.Time) (bool, error) {
	c, err := db.GetCode(code)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.ActiveAt(at), nil
}
