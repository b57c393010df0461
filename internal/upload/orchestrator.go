// Package upload coordinates one batch through validation, transcoding,
// naming, storage and persistence. Files fail independently: one bad or
// unstorable file never aborts its batch, with the single exception of NAS
// authentication, which is checked once and fails the remaining files fast.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"media-service/internal/domain/image"
	"media-service/internal/imaging"
	"media-service/internal/naming"
	"media-service/internal/repository"
	"media-service/internal/storage"
	apperrors "media-service/pkg/errors"
)

const (
	errNoFilesInBatch   = "no files in upload batch"
	errTooManyFilesFmt  = "batch of %d files exceeds limit of %d"
	errAuthUnavailable  = "storage authentication failed"
	errPersistReasonFmt = "failed to record image: %v"
)

// Orchestrator runs upload batches. All collaborators are injected; the
// routing table decides which of them a given entity type exercises.
type Orchestrator struct {
	transcoder *imaging.Transcoder
	policy     *naming.Policy
	backends   *storage.Registry
	records    repository.Records

	maxFileSize  int64
	maxFiles     int
	thumbnailBox int
}

func NewOrchestrator(
	transcoder *imaging.Transcoder,
	policy *naming.Policy,
	backends *storage.Registry,
	records repository.Records,
	maxFileSize int64,
	maxFiles int,
	thumbnailBox int,
) *Orchestrator {
	return &Orchestrator{
		transcoder:   transcoder,
		policy:       policy,
		backends:     backends,
		records:      records,
		maxFileSize:  maxFileSize,
		maxFiles:     maxFiles,
		thumbnailBox: thumbnailBox,
	}
}

// Upload processes one batch on the entity's routed backend. The returned
// BatchResult carries every per-file outcome; a non-nil error means the batch
// as a whole was rejected and no file was attempted.
func (o *Orchestrator) Upload(ctx context.Context, req image.UploadRequest) (*image.BatchResult, error) {
	return o.run(ctx, req, "")
}

// UploadTo processes one batch on an explicitly chosen backend, for the
// endpoints whose storage target is part of their contract.
func (o *Orchestrator) UploadTo(ctx context.Context, req image.UploadRequest, kind image.StorageKind) (*image.BatchResult, error) {
	return o.run(ctx, req, kind)
}

func (o *Orchestrator) run(ctx context.Context, req image.UploadRequest, forced image.StorageKind) (*image.BatchResult, error) {
	if len(req.Files) == 0 {
		return nil, apperrors.BadRequest(errNoFilesInBatch)
	}
	if o.maxFiles > 0 && len(req.Files) > o.maxFiles {
		return nil, apperrors.BadRequest(fmt.Sprintf(errTooManyFilesFmt, len(req.Files), o.maxFiles))
	}

	route, err := image.RouteFor(req.EntityType)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if forced != "" {
		route.Backend = forced
		route.Fallback = ""
	}

	backend, err := o.backends.Get(route.Backend)
	if err != nil {
		if backend, err = o.fallback(route); err != nil {
			return nil, err
		}
	}

	folder, err := o.policy.DestinationPath(req.EntityType, req.EntityID, req.EntityName, req.Subcategory)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	result := &image.BatchResult{}
	coverSet := false

	for i := 0; i < len(req.Files); i++ {
		file := req.Files[i]

		asset, err := o.processFile(ctx, backend, folder, req, file)
		if err != nil && isAuthFailure(err) {
			// One authentication verdict per batch: switch the whole batch to
			// the fallback backend, or fail every remaining file.
			fb, fbErr := o.fallback(route)
			if fbErr != nil || fb.Kind() == backend.Kind() {
				o.failRemaining(result, req.Files[i:], errAuthUnavailable)
				break
			}
			log.Printf("upload: %s backend auth failed, falling back to %s", backend.Kind(), fb.Kind())
			backend = fb
			asset, err = o.processFile(ctx, backend, folder, req, file)
		}
		if err != nil {
			result.Failed = append(result.Failed, image.FileError{FileName: file.Name, Reason: reason(err)})
			continue
		}

		rec, err := o.persist(ctx, route, req, asset, &coverSet)
		if err != nil {
			// The bytes are already durable; roll the store back so a retry
			// of the same file cannot strand an orphan.
			if rmErr := backend.Remove(ctx, asset); rmErr != nil {
				log.Printf("upload: compensating delete of %s failed: %v", asset.Path, rmErr)
			}
			result.Failed = append(result.Failed, image.FileError{
				FileName: file.Name,
				Reason:   fmt.Sprintf(errPersistReasonFmt, reason(err)),
			})
			continue
		}

		result.Uploaded = append(result.Uploaded, *rec)
	}

	return result, nil
}

// processFile validates, transcodes, names and stores one file.
func (o *Orchestrator) processFile(ctx context.Context, backend storage.Backend, folder string, req image.UploadRequest, file image.RawFile) (*image.StoredAsset, error) {
	format, err := imaging.Validate(file.Bytes, o.maxFileSize)
	if err != nil {
		return nil, err
	}

	data, outFormat, err := o.transcoder.Compress(file.Bytes, format)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	var thumb []byte
	if backend.Kind() == image.KindLocal {
		if thumb, _, err = o.transcoder.Thumbnail(data, outFormat, o.thumbnailBox); err != nil {
			return nil, apperrors.BadRequest(err.Error())
		}
	}

	fileName := naming.FileName(req.EntityType, req.EntityID, rename(file.Name, format, outFormat))

	return backend.Store(ctx, storage.Object{
		Folder:      folder,
		FileName:    fileName,
		ContentType: outFormat.MimeType(),
		Data:        data,
		Thumbnail:   thumb,
		FolderID:    req.FolderID,
	})
}

// persist writes the asset reference: a row for table entities, the cover
// column for single-cover entities (first success only).
func (o *Orchestrator) persist(ctx context.Context, route image.Route, req image.UploadRequest, asset *image.StoredAsset, coverSet *bool) (*image.Record, error) {
	if route.CoverColumn != "" {
		if !*coverSet {
			if err := o.records.SetCover(ctx, route, req.EntityID, asset.PublicURL); err != nil {
				return nil, err
			}
			*coverSet = true
		}
		return &image.Record{
			EntityType:   req.EntityType,
			EntityID:     req.EntityID,
			ImageID:      imageID(asset),
			ImageURL:     asset.PublicURL,
			ThumbnailURL: asset.ThumbnailURL,
			SizeBytes:    asset.SizeBytes,
			AddedAt:      asset.CreatedAt,
		}, nil
	}

	rec := &image.Record{
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		ImageID:      imageID(asset),
		ImageURL:     asset.PublicURL,
		ThumbnailURL: asset.ThumbnailURL,
		SizeBytes:    asset.SizeBytes,
	}
	return o.records.Add(ctx, route, rec)
}

func (o *Orchestrator) fallback(route image.Route) (storage.Backend, error) {
	if route.Fallback == "" {
		return nil, apperrors.InternalServer(errAuthUnavailable, apperrors.ErrNasAuth)
	}
	return o.backends.Get(route.Fallback)
}

func (o *Orchestrator) failRemaining(result *image.BatchResult, files []image.RawFile, why string) {
	for _, f := range files {
		result.Failed = append(result.Failed, image.FileError{FileName: f.Name, Reason: why})
	}
}

// imageID is the join key back into the storage backend: the Photos numeric
// id when present, the storage path otherwise.
func imageID(asset *image.StoredAsset) string {
	if asset.RemoteID != 0 {
		return strconv.FormatInt(asset.RemoteID, 10)
	}
	return asset.Path
}

// rename swaps the extension when transcoding changed the output format
// (webp originals come back as jpeg).
func rename(name string, in, out imaging.Format) string {
	if in == out {
		return name
	}
	if ext := in.Extension(); len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)] + out.Extension()
	}
	return name + out.Extension()
}

func isAuthFailure(err error) bool {
	return errors.Is(err, apperrors.ErrNasAuth) || errors.Is(err, apperrors.ErrNasUnreachable)
}

// reason extracts the human-readable message for the per-file error list.
func reason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
