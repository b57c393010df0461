package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"media-service/internal/storage"
)

const presignedURLExpiry = 15 * time.Minute

// ArchiveHandler hands out short-lived download links for objects mirrored to
// the S3 archive. Registered only when the archive backend is configured.
type ArchiveHandler struct {
	archive *storage.ArchiveBackend
}

func NewArchiveHandler(archive *storage.ArchiveBackend) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// DownloadURL handles GET /api/archive/download-url?key=.
func (h *ArchiveHandler) DownloadURL(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return respondError(c, http.StatusBadRequest, "key is required")
	}

	url, err := h.archive.PresignedURL(key, presignedURLExpiry)
	if err != nil {
		return respondError(c, http.StatusBadGateway, "failed to generate download link")
	}

	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
