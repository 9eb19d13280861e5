package catalog

import (
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amsel/raido/internal/media"
	"github.com/amsel/raido/internal/models"
)

// Sync walks the media root and brings the catalog up to date:
//   - files without a node are registered under their repository folder
//   - nodes whose file is gone from disk are deleted
//
// Files are keyed "<repoID>/<filename>"; a file whose first path
// segment does not match an existing folder node is skipped.
func Sync(db *DB, store media.Store, logger *slog.Logger) error {
	infos, err := store.List("")
	if err != nil {
		return err
	}

	known, err := db.AllMediaPaths()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Path] = struct{}{}

		if _, ok := known[info.Path]; ok {
			continue
		}
		if err := registerFile(db, info); err != nil {
			logger.Warn("sync: register failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: registered", slog.String("path", info.Path))
		}
	}

	// Remove nodes whose media is gone.
	for p, id := range known {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNode(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// registerFile creates a file node for an on-disk media file. The file
// kind is derived from the extension; files that are neither audio nor
// image are ignored.
func registerFile(db *DB, info media.FileInfo) error {
	repoID, name, ok := strings.Cut(info.Path, "/")
	if !ok {
		return nil // loose file at the media root; not repository content
	}
	repo, err := db.GetNode(repoID)
	if err != nil || !repo.IsFolder() {
		return err
	}

	mt := mediaType(path.Ext(name))
	created := info.UpdatedAt.UTC().Format(time.RFC3339)
	it := models.Item{
		ID:       uuid.NewString(),
		Name:     name,
		ParentID: repoID,
		Kind:     models.KindFile,
	}
	switch {
	case strings.HasPrefix(mt, "audio/"):
		it.FileKind = models.FileAudio
		it.Audio = &models.AudioMetadata{
			SizeLabel: models.SizeLabel(info.Size),
			CreatedAt: created,
		}
	case strings.HasPrefix(mt, "image/"):
		pos, err := db.ImageCountIn(repoID)
		if err != nil {
			return err
		}
		it.FileKind = models.FileImage
		it.Image = &models.ImageMetadata{
			URL:       "/media/" + info.Path,
			Position:  pos,
			CreatedAt: created,
		}
	default:
		return nil
	}

	return db.InsertNode(it, info.Path)
}

// audioExts covers the formats the dashboard uploads; the system mime
// table has no entry for most of them.
var audioExts = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func mediaType(ext string) string {
	ext = strings.ToLower(ext)
	if mt, ok := audioExts[ext]; ok {
		return mt
	}
	return mime.TypeByExtension(ext)
}
