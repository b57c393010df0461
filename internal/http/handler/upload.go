package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"media-service/internal/domain/image"
	"media-service/internal/upload"
	apperrors "media-service/pkg/errors"
)

const (
	formFieldFiles      = "files"
	formFieldFile       = "file"
	formFieldEntityID   = "entityId"
	formFieldEntityName = "entityName"
	formFieldEntityType = "entityType"
	formFieldCategory   = "category"
	formFieldFolderID   = "folderId"

	errMissingEntityID   = "entityId is required"
	errNoFilesAttached   = "no files attached"
	errMultipartRequired = "multipart form required"
	errReadFilePrefix    = "failed to read uploaded file: "
)

// UploadHandler exposes the upload batch endpoints. Each endpoint differs
// only in how it derives the UploadRequest and which backend it pins.
type UploadHandler struct {
	orchestrator *upload.Orchestrator
}

func NewUploadHandler(orchestrator *upload.Orchestrator) *UploadHandler {
	return &UploadHandler{orchestrator: orchestrator}
}

// UploadEntity handles POST /api/upload/:entity: entity-typed uploads onto
// local disk, the path the admin UI uses for covers and style images.
func (h *UploadHandler) UploadEntity(c echo.Context) error {
	entityType, err := image.ParseEntityType(c.Param("entity"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	req, err := h.buildRequest(c, entityType, c.FormValue(formFieldEntityID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, errorMessage(err))
	}

	result, err := h.orchestrator.UploadTo(c.Request().Context(), *req, image.KindLocal)
	if err != nil {
		return err
	}
	return respondBatch(c, result)
}

// UploadAlbumFileStation handles POST /api/albums/:id/upload-filestation.
func (h *UploadHandler) UploadAlbumFileStation(c echo.Context) error {
	return h.uploadAlbum(c, image.KindFileStation)
}

// UploadAlbumSmb handles POST /api/albums/:id/upload-smb.
func (h *UploadHandler) UploadAlbumSmb(c echo.Context) error {
	return h.uploadAlbum(c, image.KindSmb)
}

func (h *UploadHandler) uploadAlbum(c echo.Context, kind image.StorageKind) error {
	req, err := h.buildRequest(c, image.EntityAlbum, c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, errorMessage(err))
	}

	result, err := h.orchestrator.UploadTo(c.Request().Context(), *req, kind)
	if err != nil {
		return err
	}
	return respondBatch(c, result)
}

// UploadSynology handles POST /api/upload/synology: category-scoped batches
// onto the FileStation, defaulting to fabric records.
func (h *UploadHandler) UploadSynology(c echo.Context) error {
	entityType := image.EntityFabric
	if v := c.FormValue(formFieldEntityType); v != "" {
		var err error
		if entityType, err = image.ParseEntityType(v); err != nil {
			return respondError(c, http.StatusBadRequest, err.Error())
		}
	}

	req, err := h.buildRequest(c, entityType, c.FormValue(formFieldEntityID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, errorMessage(err))
	}

	result, err := h.orchestrator.UploadTo(c.Request().Context(), *req, image.KindFileStation)
	if err != nil {
		return err
	}
	return respondBatch(c, result)
}

// UploadPhotos handles POST /api/synology/photos-upload: batches into the NAS
// photo library, optionally targeting an explicit folder id.
func (h *UploadHandler) UploadPhotos(c echo.Context) error {
	entityType := image.EntityAlbum
	if v := c.FormValue(formFieldEntityType); v != "" {
		var err error
		if entityType, err = image.ParseEntityType(v); err != nil {
			return respondError(c, http.StatusBadRequest, err.Error())
		}
	}

	req, err := h.buildRequest(c, entityType, c.FormValue(formFieldEntityID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, errorMessage(err))
	}

	if v := c.FormValue(formFieldFolderID); v != "" {
		folderID, err := strconv.Atoi(v)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "folderId must be numeric")
		}
		req.FolderID = folderID
	}

	result, err := h.orchestrator.UploadTo(c.Request().Context(), *req, image.KindPhotos)
	if err != nil {
		return err
	}
	return respondBatch(c, result)
}

// buildRequest assembles the common parts of an upload batch from the
// multipart form: owning entity, optional category, and the file contents.
// A non-nil error always means the request is malformed.
func (h *UploadHandler) buildRequest(c echo.Context, entityType image.EntityType, entityID string) (*image.UploadRequest, error) {
	if entityID == "" {
		return nil, apperrors.BadRequest(errMissingEntityID)
	}

	files, err := formFiles(c)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.BadRequest(errNoFilesAttached)
	}

	raw := make([]image.RawFile, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			return nil, apperrors.BadRequest(errReadFilePrefix + fh.Filename)
		}
		raw = append(raw, image.RawFile{
			Name:         fh.Filename,
			DeclaredMime: fh.Header.Get(echo.HeaderContentType),
			Size:         fh.Size,
			Bytes:        data,
		})
	}

	return &image.UploadRequest{
		EntityType:  entityType,
		EntityID:    entityID,
		EntityName:  c.FormValue(formFieldEntityName),
		Subcategory: c.FormValue(formFieldCategory),
		Files:       raw,
	}, nil
}

// formFiles accepts both the multi-file "files" field and the single-file
// "file" field the older clients send.
func formFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.BadRequest(errMultipartRequired)
	}

	if files := form.File[formFieldFiles]; len(files) > 0 {
		return files, nil
	}
	return form.File[formFieldFile], nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
