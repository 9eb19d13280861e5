package nodeservice

import (
	"context"

	"github.com/amsel/raido/internal/models"
	"github.com/amsel/raido/internal/navigator"
)

// Local adapts Service to the navigator.Catalog interface for
// in-process use (tests and embedded deployments). The REST client is
// the other implementation.
type Local struct {
	svc *Service
}

// NewLocal wraps a Service as a navigator catalog.
func NewLocal(svc *Service) *Local {
	return &Local{svc: svc}
}

var _ navigator.Catalog = (*Local)(nil)

func (l *Local) Node(ctx context.Context, id string) (*models.Item, error) {
	return l.svc.Node(ctx, id)
}

func (l *Local) Children(ctx context.Context, id string) ([]models.Item, error) {
	return l.svc.Children(ctx, id)
}

func (l *Local) CreateFolder(ctx context.Context, name string, kind models.FolderKind, parentID string) (*models.Item, error) {
	return l.svc.CreateFolder(ctx, name, kind, parentID)
}

func (l *Local) Delete(ctx context.Context, id string) error {
	return l.svc.Delete(ctx, id)
}

func (l *Local) Rename(ctx context.Context, id, name string) error {
	return l.svc.Rename(ctx, id, name)
}

func (l *Local) Upload(ctx context.Context, repoID string, up navigator.Upload) (*models.Item, error) {
	return l.svc.UploadFile(ctx, repoID, UploadRequest{
		Name:            up.Name,
		MIME:            up.MIME,
		Data:            up.Data,
		DurationSeconds: up.DurationSeconds,
	})
}

func (l *Local) SetPosition(ctx context.Context, id string, position int) error {
	return l.svc.SetPosition(ctx, id, position)
}

func (l *Local) ImageCount(context.Context) (int, error) {
	return l.svc.db.ImageCount()
}
