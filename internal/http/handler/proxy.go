package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"media-service/internal/imaging"
	"media-service/internal/synology"
)

const (
	queryParamPath      = "path"
	queryParamThumbnail = "thumbnail"
	queryParamID        = "id"
	queryParamType      = "type"
	queryParamSize      = "size"

	photoTypeThumbnail = "thumbnail"

	defaultPhotoSize      = "xl"
	thumbnailPhotoSize    = "m"
	defaultFolderPageSize = 100

	errMissingPath    = "path is required"
	errMissingID      = "id is required"
	errInvalidID      = "id must be numeric"
	errUpstreamFailed = "failed to fetch file from storage"
)

// ProxyHandler streams NAS-stored bytes to clients. The NAS is never exposed
// directly; every read goes through these endpoints with the service account.
type ProxyHandler struct {
	fs         *synology.FileStation
	photos     *synology.Photos
	transcoder *imaging.Transcoder
	thumbBox   int
}

func NewProxyHandler(fs *synology.FileStation, photos *synology.Photos, transcoder *imaging.Transcoder, thumbBox int) *ProxyHandler {
	return &ProxyHandler{fs: fs, photos: photos, transcoder: transcoder, thumbBox: thumbBox}
}

// FileProxy handles GET /api/synology/file-proxy?path=&thumbnail=. The
// FileStation has no rendition API, so thumbnails are derived here on the fly.
func (h *ProxyHandler) FileProxy(c echo.Context) error {
	path := c.QueryParam(queryParamPath)
	if path == "" {
		return respondError(c, http.StatusBadRequest, errMissingPath)
	}

	body, contentType, err := h.fs.Download(c.Request().Context(), path)
	if err != nil {
		return h.upstreamError(c, err)
	}
	defer body.Close()

	if c.QueryParam(queryParamThumbnail) != "true" {
		return c.Stream(http.StatusOK, contentType, body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return respondError(c, http.StatusBadGateway, errUpstreamFailed)
	}

	format, ok := imaging.DetectFormat(data)
	if !ok {
		// Not an image; serve the original bytes rather than failing.
		return c.Blob(http.StatusOK, contentType, data)
	}

	thumb, outFormat, err := h.transcoder.Thumbnail(data, format, h.thumbBox)
	if err != nil {
		return c.Blob(http.StatusOK, contentType, data)
	}
	return c.Blob(http.StatusOK, outFormat.MimeType(), thumb)
}

// ImageProxy handles GET /api/synology/image-proxy?id=&type=&size=: streams a
// photo-library rendition by NAS item id.
func (h *ProxyHandler) ImageProxy(c echo.Context) error {
	rawID := c.QueryParam(queryParamID)
	if rawID == "" {
		return respondError(c, http.StatusBadRequest, errMissingID)
	}
	itemID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return respondError(c, http.StatusBadRequest, errInvalidID)
	}

	size := photoRenditionSize(c.QueryParam(queryParamType), c.QueryParam(queryParamSize))

	body, contentType, err := h.photos.Thumbnail(c.Request().Context(), itemID, size)
	if err != nil {
		return h.upstreamError(c, err)
	}
	defer body.Close()

	return c.Stream(http.StatusOK, contentType, body)
}

// PhotoFolders handles GET /api/synology/photos-folders?offset=&limit=: lists
// photo-library folders so clients can pick a folderId for photos-upload.
func (h *ProxyHandler) PhotoFolders(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultFolderPageSize
	}

	folders, err := h.photos.ListFolders(c.Request().Context(), offset, limit)
	if err != nil {
		return h.upstreamError(c, err)
	}
	if folders == nil {
		folders = []synology.Folder{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    folders,
	})
}

// SmbProxy handles GET /api/synology/smb-proxy?path=. Share files are read
// through the same FileStation API the SMB backend writes through.
func (h *ProxyHandler) SmbProxy(c echo.Context) error {
	path := c.QueryParam(queryParamPath)
	if path == "" {
		return respondError(c, http.StatusBadRequest, errMissingPath)
	}

	body, contentType, err := h.fs.Download(c.Request().Context(), path)
	if err != nil {
		return h.upstreamError(c, err)
	}
	defer body.Close()

	return c.Stream(http.StatusOK, contentType, body)
}

// photoRenditionSize maps the proxy URL's type/size pair onto a photo-library
// rendition. An explicit size wins; otherwise thumbnails get the small
// rendition and every other type (photo, download) the full-size one.
func photoRenditionSize(typ, size string) string {
	if size != "" {
		return size
	}
	if typ == photoTypeThumbnail {
		return thumbnailPhotoSize
	}
	return defaultPhotoSize
}

func (h *ProxyHandler) upstreamError(c echo.Context, err error) error {
	if synology.IsNoSuchDirectory(err) {
		return respondError(c, http.StatusNotFound, "file not found")
	}
	return respondError(c, http.StatusBadGateway, errUpstreamFailed)
}
