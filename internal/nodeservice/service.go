// Package nodeservice coordinates catalog and media operations for the
// tour content tree.
package nodeservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/media"
	"github.com/amsel/raido/internal/models"
)

// Notifier is called after every successful mutation.
// kind is one of "created", "updated", "deleted", "uploaded".
type Notifier func(kind, id string)

// Service coordinates catalog and media store operations.
type Service struct {
	db     *catalog.DB
	store  media.Store
	notify Notifier
}

// NewService creates a new node service.
func NewService(db *catalog.DB, store media.Store) *Service {
	return &Service{db: db, store: store}
}

// SetNotifier installs a mutation callback (nil disables).
func (s *Service) SetNotifier(fn Notifier) { s.notify = fn }

func (s *Service) emit(kind, id string) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}

// Node returns a single node by id. The root sentinel resolves to a
// synthetic folder so ancestry walks terminate cleanly.
func (s *Service) Node(_ context.Context, id string) (*models.Item, error) {
	if id == models.RootID {
		return &models.Item{ID: models.RootID, Name: models.RootName, Kind: models.KindFolder}, nil
	}
	return s.db.GetNode(id)
}

// Children returns the direct children of a folder (or of the root).
func (s *Service) Children(_ context.Context, id string) ([]models.Item, error) {
	return s.db.Children(id)
}

// ParentNodes returns the top-level nodes.
func (s *Service) ParentNodes(_ context.Context) ([]models.Item, error) {
	return s.db.ParentNodes()
}

// RepoFiles returns the file nodes stored under a repository folder.
func (s *Service) RepoFiles(_ context.Context, repoID string) ([]models.Item, error) {
	return s.db.RepoFiles(repoID)
}

// CreateFolder creates a new folder node under parentID (root sentinel
// allowed). Under a map folder only spot and stop children are valid.
func (s *Service) CreateFolder(ctx context.Context, name string, kind models.FolderKind, parentID string) (*models.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: folder name is required", apperr.ErrInvalid)
	}
	if !models.ValidFolderKind(kind) {
		return nil, fmt.Errorf("%w: unknown folder kind %q", apperr.ErrInvalid, kind)
	}
	if parentID == "" {
		parentID = models.RootID
	}
	parent, err := s.Node(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsFolder() {
		return nil, fmt.Errorf("%w: parent %s is not a folder", apperr.ErrInvalid, parentID)
	}
	if parent.FolderKind == models.FolderMap && kind != models.FolderSpot && kind != models.FolderStop {
		return nil, fmt.Errorf("%w: a map may only contain spots and stops", apperr.ErrInvalid)
	}

	it := models.Item{
		ID:         uuid.NewString(),
		Name:       name,
		ParentID:   parentID,
		Kind:       models.KindFolder,
		FolderKind: kind,
	}
	if err := s.db.InsertNode(it, ""); err != nil {
		return nil, err
	}
	s.emit("created", it.ID)
	return &it, nil
}

// Rename updates a node's display name without changing identity,
// parentage, or ordering.
func (s *Service) Rename(_ context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrInvalid)
	}
	if err := s.db.RenameNode(id, name); err != nil {
		return err
	}
	s.emit("updated", id)
	return nil
}

// Delete removes a single node. File nodes have their stored media
// removed as well. Folder children are NOT cascaded: they remain in the
// catalog with a dangling parent_id, matching the dashboard's historic
// behaviour.
func (s *Service) Delete(ctx context.Context, id string) error {
	it, err := s.db.GetNode(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteNode(id); err != nil {
		return err
	}
	if it.Kind == models.KindFile {
		p := mediaKey(it.ParentID, it.Name)
		if s.store.Exists(p) {
			_ = s.store.Delete(p)
		}
	}
	s.emit("deleted", id)
	return nil
}

// SetPosition overwrites the ordering label of an image node. The range
// check spans every image in the catalog, not just same-parent
// siblings, and collisions are not auto-resolved.
func (s *Service) SetPosition(_ context.Context, id string, position int) error {
	it, err := s.db.GetNode(id)
	if err != nil {
		return err
	}
	if !it.IsImage() {
		return fmt.Errorf("%w: node %s is not an image", apperr.ErrInvalid, id)
	}
	total, err := s.db.ImageCount()
	if err != nil {
		return err
	}
	if position < 0 || position >= total {
		return fmt.Errorf("%w: position %d out of range [0, %d)", apperr.ErrInvalid, position, total)
	}
	if err := s.db.SetPosition(id, position); err != nil {
		return err
	}
	s.emit("updated", id)
	return nil
}

// Search performs a name search across all nodes.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.SearchNodes(query, limit)
}

// UploadRequest carries one file upload.
type UploadRequest struct {
	Name            string
	MIME            string
	Data            []byte
	Position        *int // explicit image position; nil assigns the next free slot
	ForcePosition   bool // overwrite on position conflict instead of failing
	DurationSeconds int  // audio duration as reported by the uploader
}

// UploadFile classifies the payload by MIME prefix, stores the bytes,
// and registers a file node under the repository folder. An explicit
// image position that is already taken in the same repository fails
// with a conflict unless ForcePosition is set.
func (s *Service) UploadFile(ctx context.Context, repoID string, req UploadRequest) (*models.Item, error) {
	var kind models.FileKind
	switch {
	case strings.HasPrefix(req.MIME, "audio/"):
		kind = models.FileAudio
	case strings.HasPrefix(req.MIME, "image/"):
		kind = models.FileImage
	default:
		return nil, fmt.Errorf("%w: unsupported media type %q", apperr.ErrInvalid, req.MIME)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: file name is required", apperr.ErrInvalid)
	}
	repo, err := s.db.GetNode(repoID)
	if err != nil {
		return nil, err
	}
	if !repo.IsFolder() {
		return nil, fmt.Errorf("%w: %s is not a repository folder", apperr.ErrInvalid, repoID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	it := models.Item{
		ID:       uuid.NewString(),
		Name:     req.Name,
		ParentID: repoID,
		Kind:     models.KindFile,
		FileKind: kind,
	}

	switch kind {
	case models.FileAudio:
		it.Audio = &models.AudioMetadata{
			DurationSeconds: req.DurationSeconds,
			SizeLabel:       models.SizeLabel(int64(len(req.Data))),
			CreatedAt:       now,
		}
	case models.FileImage:
		pos := 0
		if req.Position != nil {
			pos = *req.Position
			if pos < 0 {
				return nil, fmt.Errorf("%w: position must be non-negative", apperr.ErrInvalid)
			}
			taken, err := s.db.PositionInUse(repoID, pos, it.ID)
			if err != nil {
				return nil, err
			}
			if taken && !req.ForcePosition {
				return nil, fmt.Errorf("%w: position %d is already taken", apperr.ErrConflict, pos)
			}
		} else {
			pos, err = s.db.ImageCountIn(repoID)
			if err != nil {
				return nil, err
			}
		}
		it.Image = &models.ImageMetadata{
			URL:       "/media/" + repoID + "/" + req.Name,
			Position:  pos,
			CreatedAt: now,
		}
	}

	key := mediaKey(repoID, req.Name)
	if err := s.store.Save(key, req.Data); err != nil {
		return nil, err
	}
	if err := s.db.InsertNode(it, key); err != nil {
		// Roll the bytes back so a failed upload leaves no trace.
		_ = s.store.Delete(key)
		return nil, err
	}
	s.emit("uploaded", it.ID)
	return &it, nil
}

func mediaKey(repoID, name string) string {
	return repoID + "/" + name
}
