package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"media-service/internal/domain/image"
	"media-service/internal/repository"
	"media-service/internal/storage"
)

// AlbumHandler serves the read and delete side of album image rows.
type AlbumHandler struct {
	records  repository.Records
	backends *storage.Registry
}

func NewAlbumHandler(records repository.Records, backends *storage.Registry) *AlbumHandler {
	return &AlbumHandler{records: records, backends: backends}
}

// ListImages handles GET /api/albums/:id/images, in display order.
func (h *AlbumHandler) ListImages(c echo.Context) error {
	route, err := image.RouteFor(image.EntityAlbum)
	if err != nil {
		return err
	}

	records, err := h.records.List(c.Request().Context(), route, c.Param("id"))
	if err != nil {
		return err
	}
	if records == nil {
		records = []image.Record{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
	})
}

// DeleteImage handles DELETE /api/albums/:id/images/:imageID. The row is the
// source of truth: it goes first, then the backing file is removed best-effort
// so a storage hiccup cannot resurrect a deleted image in the UI.
func (h *AlbumHandler) DeleteImage(c echo.Context) error {
	route, err := image.RouteFor(image.EntityAlbum)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	rec, err := h.records.Get(ctx, route, c.Param("imageID"))
	if err != nil {
		return err
	}

	if err := h.records.Delete(ctx, route, rec.ID); err != nil {
		return err
	}

	if asset := assetFromRecord(rec); asset != nil {
		backend, err := h.backends.Get(asset.Kind)
		if err == nil {
			if err := backend.Remove(ctx, asset); err != nil {
				log.Printf("album: failed to remove %s from %s: %v", asset.Path, asset.Kind, err)
			}
		}
	}

	return respondMessage(c, http.StatusOK, "image deleted")
}

// assetFromRecord reconstructs the storage reference from a persisted row.
// The URL shape identifies the backend; ImageID carries the path or item id.
func assetFromRecord(rec *image.Record) *image.StoredAsset {
	asset := &image.StoredAsset{Path: rec.ImageID, PublicURL: rec.ImageURL}

	switch {
	case strings.Contains(rec.ImageURL, "/api/synology/image-proxy"):
		asset.Kind = image.KindPhotos
		id, err := strconv.ParseInt(rec.ImageID, 10, 64)
		if err != nil {
			return nil
		}
		asset.RemoteID = id
	case strings.Contains(rec.ImageURL, "/api/synology/smb-proxy"):
		asset.Kind = image.KindSmb
	case strings.Contains(rec.ImageURL, "/api/synology/file-proxy"):
		asset.Kind = image.KindFileStation
	case strings.HasPrefix(rec.ImageURL, "/uploads/"):
		asset.Kind = image.KindLocal
	default:
		return nil
	}

	return asset
}
