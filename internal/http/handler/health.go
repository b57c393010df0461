package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"media-service/internal/synology"
)

const (
	jsonKeyStatus = "status"
	statusOK      = "ok"
)

// HealthHandler serves process liveness and NAS connectivity checks.
type HealthHandler struct {
	fsSessions    *synology.SessionManager
	photoSessions *synology.SessionManager
}

func NewHealthHandler(fsSessions, photoSessions *synology.SessionManager) *HealthHandler {
	return &HealthHandler{fsSessions: fsSessions, photoSessions: photoSessions}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{jsonKeyStatus: statusOK})
}

// SynologyHealth handles GET /api/synology/health: probes each NAS API flavor
// independently, 503 when neither answers.
func (h *HealthHandler) SynologyHealth(c echo.Context) error {
	ctx := c.Request().Context()

	fsUp := h.fsSessions != nil && h.fsSessions.Probe(ctx)
	photosUp := h.photoSessions != nil && h.photoSessions.Probe(ctx)

	status := http.StatusOK
	if !fsUp && !photosUp {
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, map[string]interface{}{
		"filestation": fsUp,
		"photos":      photosUp,
	})
}
