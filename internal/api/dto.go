package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/amsel/raido/internal/models"
)

// CreateNodeRequest is the request body for creating a folder node.
type CreateNodeRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId,omitempty"`
}

// Validate validates the create request.
func (r CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(
			string(models.FolderLocation), string(models.FolderMap),
			string(models.FolderSpot), string(models.FolderStop))),
	)
}

// RenameNodeRequest is the request body for renaming a node.
type RenameNodeRequest struct {
	Name string `json:"name"`
}

// Validate validates the rename request.
func (r RenameNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// CreateCodeRequest is the request body for creating an access code.
type CreateCodeRequest struct {
	Code       string    `json:"code"`
	Label      string    `json:"label,omitempty"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
}

// Validate validates the code request, including window ordering.
func (r CreateCodeRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(4, 64)),
		validation.Field(&r.ValidFrom, validation.Required),
		validation.Field(&r.ValidUntil, validation.Required),
	); err != nil {
		return err
	}
	return validation.Validate(r.ValidUntil, validation.By(func(any) error {
		if !r.ValidUntil.After(r.ValidFrom) {
			return validation.NewError("validation_window", "valid_until must be after valid_from")
		}
		return nil
	}))
}

// NodeListResponse wraps node listings.
type NodeListResponse struct {
	Nodes []models.Item `json:"nodes"`
}

// CodeValidationResponse reports whether an access code is currently
// usable.
type CodeValidationResponse struct {
	Code  string `json:"code"`
	Valid bool   `json:"valid"`
}
