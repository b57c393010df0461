package storage

import (
	"context"
	"strconv"
	"time"

	"media-service/internal/domain/image"
	"media-service/internal/naming"
	"media-service/internal/synology"
	apperrors "media-service/pkg/errors"
)

const (
	photosFullSize  = "xl"
	photosThumbSize = "m"
)

// PhotosBackend stores images in the NAS photo library. Items live in a
// single configured folder and are addressed by the NAS-assigned numeric id,
// so RemoteID is the only retrieval key the asset carries.
type PhotosBackend struct {
	photos   *synology.Photos
	folderID int
	retry    retryPolicy
}

func NewPhotosBackend(photos *synology.Photos, folderID int) *PhotosBackend {
	return &PhotosBackend{photos: photos, folderID: folderID, retry: defaultRetryPolicy()}
}

func (b *PhotosBackend) Kind() image.StorageKind {
	return image.KindPhotos
}

func (b *PhotosBackend) Store(ctx context.Context, obj Object) (*image.StoredAsset, error) {
	folderID := b.folderID
	if obj.FolderID != 0 {
		folderID = obj.FolderID
	}

	var itemID int64
	err := b.retry.run(ctx, func(int) error {
		id, err := b.photos.UploadToFolder(ctx, folderID, obj.FileName, obj.Data, obj.ContentType)
		if err != nil {
			return err
		}
		itemID = id
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage("failed to upload to photo library", err)
	}
	if itemID == 0 {
		return nil, apperrors.Storage("photo library returned no item id", apperrors.ErrStorage)
	}

	return &image.StoredAsset{
		Kind:         image.KindPhotos,
		Path:         strconv.FormatInt(itemID, 10),
		RemoteID:     itemID,
		PublicURL:    naming.ImageProxyPath(itemID, "photo", photosFullSize),
		ThumbnailURL: naming.ImageProxyPath(itemID, "thumbnail", photosThumbSize),
		SizeBytes:    int64(len(obj.Data)),
		CreatedAt:    time.Now(),
	}, nil
}

func (b *PhotosBackend) Remove(ctx context.Context, asset *image.StoredAsset) error {
	if asset.RemoteID == 0 {
		return apperrors.BadRequest("photo asset has no item id")
	}
	if err := b.photos.Delete(ctx, asset.RemoteID); err != nil {
		return apperrors.Storage("failed to delete photo item", err)
	}
	return nil
}
