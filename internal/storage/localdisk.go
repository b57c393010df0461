package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-service/internal/domain/image"
	apperrors "media-service/pkg/errors"
)

const (
	localDirPerm    = 0o755
	localFilePerm   = 0o644
	localThumbStem  = "thumb_"
	localPublicBase = "/uploads"
)

// LocalDisk stores images under a directory served statically by the HTTP
// layer. Unlike the NAS backends it cannot derive renditions at read time, so
// the thumbnail is written alongside the original at store time.
type LocalDisk struct {
	root string
}

func NewLocalDisk(root string) *LocalDisk {
	return &LocalDisk{root: root}
}

func (b *LocalDisk) Kind() image.StorageKind {
	return image.KindLocal
}

// relativeFolder strips any NAS-style absolute prefix so destination paths
// computed for remote backends reuse cleanly on disk.
func (b *LocalDisk) relativeFolder(folder string) string {
	return strings.TrimLeft(filepath.ToSlash(folder), "/")
}

func (b *LocalDisk) Store(ctx context.Context, obj Object) (*image.StoredAsset, error) {
	rel := b.relativeFolder(obj.Folder)
	dir := filepath.Join(b.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, localDirPerm); err != nil {
		return nil, apperrors.Storage("failed to create upload directory", err)
	}

	filePath := filepath.Join(dir, obj.FileName)
	if err := os.WriteFile(filePath, obj.Data, localFilePerm); err != nil {
		return nil, apperrors.Storage("failed to write file", err)
	}

	asset := &image.StoredAsset{
		Kind:      image.KindLocal,
		Path:      rel + "/" + obj.FileName,
		PublicURL: localPublicBase + "/" + rel + "/" + obj.FileName,
		SizeBytes: int64(len(obj.Data)),
		CreatedAt: time.Now(),
	}
	asset.ThumbnailURL = asset.PublicURL

	if len(obj.Thumbnail) > 0 {
		thumbName := localThumbStem + obj.FileName
		if err := os.WriteFile(filepath.Join(dir, thumbName), obj.Thumbnail, localFilePerm); err != nil {
			return nil, apperrors.Storage("failed to write thumbnail", err)
		}
		asset.ThumbnailURL = localPublicBase + "/" + rel + "/" + thumbName
	}

	return asset, nil
}

func (b *LocalDisk) Remove(ctx context.Context, asset *image.StoredAsset) error {
	rel := filepath.FromSlash(strings.TrimLeft(asset.Path, "/"))
	filePath := filepath.Join(b.root, rel)

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return apperrors.Storage("failed to delete file", err)
	}

	thumbPath := filepath.Join(filepath.Dir(filePath), localThumbStem+filepath.Base(filePath))
	if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Storage("failed to delete thumbnail", err)
	}
	return nil
}
