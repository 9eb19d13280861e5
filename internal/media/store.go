// Package media defines the on-disk store for uploaded audio and image
// files.
package media

import "time"

// FileInfo is lightweight metadata about one stored media file.
type FileInfo struct {
	Path      string // relative to the media root, e.g. "repoID/track.mp3"
	Size      int64
	Checksum  string
	UpdatedAt time.Time
}

// Store is the interface for media file operations. All paths are
// relative to the media root.
type Store interface {
	// List returns metadata for every file under dir ("" for all).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Save atomically writes content to path.
	Save(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a file is present at path.
	Exists(path string) bool
}
