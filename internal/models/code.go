package models

import "time"

// AccessCode grants visitors access to published content during a
// validity window.
type AccessCode struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Label      string    `json:"label,omitempty"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActiveAt reports whether the code is usable at the given instant.
func (c AccessCode) ActiveAt(at time.Time) bool {
	return !at.Before(c.ValidFrom) && !at.After(c.ValidUntil)
}
