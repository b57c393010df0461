package storage

import (
	"context"
	"log"
	"time"

	"media-service/internal/domain/image"
	"media-service/internal/naming"
	"media-service/internal/synology"
	apperrors "media-service/pkg/errors"
)

// SmbBackend writes to the SMB-mounted share through the FileStation API, so
// files land where desktop clients of the share expect them. Deep destination
// folders sometimes do not exist on the share; after a no-such-directory
// failure the destination collapses to the safe root and the file still lands.
type SmbBackend struct {
	fs       *synology.FileStation
	safeRoot string
	retry    retryPolicy
}

func NewSmbBackend(fs *synology.FileStation, safeRoot string) *SmbBackend {
	return &SmbBackend{fs: fs, safeRoot: safeRoot, retry: defaultRetryPolicy()}
}

func (b *SmbBackend) Kind() image.StorageKind {
	return image.KindSmb
}

func (b *SmbBackend) Store(ctx context.Context, obj Object) (*image.StoredAsset, error) {
	folder := obj.Folder

	err := b.retry.run(ctx, func(attempt int) error {
		if err := b.fs.CreateFolder(ctx, folder); err != nil {
			if synology.IsNoSuchDirectory(err) && folder != b.safeRoot {
				log.Printf("smb: folder %s unavailable, collapsing to %s", folder, b.safeRoot)
				folder = b.safeRoot
			}
			return err
		}

		err := b.fs.Upload(ctx, folder, obj.FileName, obj.Data, obj.ContentType)
		if err != nil && synology.IsNoSuchDirectory(err) && folder != b.safeRoot {
			log.Printf("smb: upload into %s failed, collapsing to %s", folder, b.safeRoot)
			folder = b.safeRoot
		}
		return err
	})
	if err != nil {
		return nil, apperrors.Storage("failed to upload to share", err)
	}

	path := folder + "/" + obj.FileName
	return &image.StoredAsset{
		Kind:         image.KindSmb,
		Path:         path,
		PublicURL:    naming.SmbProxyPath(path),
		ThumbnailURL: naming.SmbProxyPath(path),
		SizeBytes:    int64(len(obj.Data)),
		CreatedAt:    time.Now(),
	}, nil
}

func (b *SmbBackend) Remove(ctx context.Context, asset *image.StoredAsset) error {
	if err := b.fs.Delete(ctx, asset.Path); err != nil {
		return apperrors.Storage("failed to delete file from share", err)
	}
	return nil
}
