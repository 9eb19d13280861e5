// Package models defines the domain types for Raido.
package models

// RootID is the sentinel identifier for the top of the content tree.
// It never corresponds to a stored node; items parented directly at the
// root carry it as their ParentID.
const RootID = "root"

// RootName is the display label for the root path segment.
const RootName = "Home"

// ItemKind discriminates the Item union.
type ItemKind string

// Item kinds.
const (
	KindFolder ItemKind = "folder"
	KindFile   ItemKind = "file"
)

// FolderKind classifies folder items within the tour hierarchy.
type FolderKind string

// Folder kinds.
const (
	FolderLocation FolderKind = "location"
	FolderMap      FolderKind = "map"
	FolderSpot     FolderKind = "spot"
	FolderStop     FolderKind = "stop"
)

// ValidFolderKind reports whether k is one of the known folder kinds.
func ValidFolderKind(k FolderKind) bool {
	switch k {
	case FolderLocation, FolderMap, FolderSpot, FolderStop:
		return true
	}
	return false
}

// FileKind classifies file items by media type.
type FileKind string

// File kinds.
const (
	FileAudio FileKind = "audio"
	FileImage FileKind = "image"
)

// AudioMetadata describes an audio file item.
type AudioMetadata struct {
	DurationSeconds int    `json:"duration"`
	SizeLabel       string `json:"size"`
	CreatedAt       string `json:"created_at"`
}

// ImageMetadata describes an image file item. Position is a free-form
// non-negative ordering label among image items; it is not required to
// be unique.
type ImageMetadata struct {
	URL       string `json:"url"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at"`
}

// Item is a node in the content tree: either a folder or a file.
// The Kind field discriminates which of the optional groups is set.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Kind     ItemKind `json:"kind"`

	FolderKind FolderKind `json:"folder_kind,omitempty"`

	FileKind FileKind       `json:"file_kind,omitempty"`
	Audio    *AudioMetadata `json:"audio_metadata,omitempty"`
	Image    *ImageMetadata `json:"image_metadata,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (it Item) IsFolder() bool { return it.Kind == KindFolder }

// IsAudio reports whether the item is an audio file.
func (it Item) IsAudio() bool { return it.Kind == KindFile && it.FileKind == FileAudio }

// IsImage reports whether the item is an image file.
func (it Item) IsImage() bool { return it.Kind == KindFile && it.FileKind == FileImage }

// CreatedAt returns the kind-appropriate creation timestamp, or the
// empty string for folders. Used as the sort key for date ordering.
func (it Item) CreatedAt() string {
	switch {
	case it.IsAudio() && it.Audio != nil:
		return it.Audio.CreatedAt
	case it.IsImage() && it.Image != nil:
		return it.Image.CreatedAt
	}
	return ""
}

// PathSegment is one step of the breadcrumb ancestry chain.
type PathSegment struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}
