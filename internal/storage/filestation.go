package storage

import (
	"context"
	"time"

	"media-service/internal/domain/image"
	"media-service/internal/naming"
	"media-service/internal/synology"
	apperrors "media-service/pkg/errors"
)

// FileStationBackend stores images as plain files on the NAS via the
// FileStation API. Files are addressed by path; the public URL is the
// file-proxy route over that path.
type FileStationBackend struct {
	fs    *synology.FileStation
	retry retryPolicy
}

func NewFileStationBackend(fs *synology.FileStation) *FileStationBackend {
	return &FileStationBackend{fs: fs, retry: defaultRetryPolicy()}
}

func (b *FileStationBackend) Kind() image.StorageKind {
	return image.KindFileStation
}

func (b *FileStationBackend) Store(ctx context.Context, obj Object) (*image.StoredAsset, error) {
	err := b.retry.run(ctx, func(int) error {
		if err := b.fs.CreateFolder(ctx, obj.Folder); err != nil {
			return err
		}
		return b.fs.Upload(ctx, obj.Folder, obj.FileName, obj.Data, obj.ContentType)
	})
	if err != nil {
		return nil, apperrors.Storage("failed to upload file", err)
	}

	path := obj.Path()
	return &image.StoredAsset{
		Kind:         image.KindFileStation,
		Path:         path,
		PublicURL:    naming.FileProxyPath(path),
		ThumbnailURL: naming.FileProxyThumbnailPath(path),
		SizeBytes:    int64(len(obj.Data)),
		CreatedAt:    time.Now(),
	}, nil
}

func (b *FileStationBackend) Remove(ctx context.Context, asset *image.StoredAsset) error {
	if err := b.fs.Delete(ctx, asset.Path); err != nil {
		return apperrors.Storage("failed to delete file", err)
	}
	return nil
}
