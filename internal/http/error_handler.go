package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "media-service/pkg/errors"
)

// CustomHTTPErrorHandler maps sentinel errors to HTTP status codes, sanitizes
// internal errors, and logs with request context.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	} else {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			code = http.StatusNotFound
			message = "Resource not found"
		case errors.Is(err, apperrors.ErrBadRequest),
			errors.Is(err, apperrors.ErrUnsupportedImageType),
			errors.Is(err, apperrors.ErrEmptyFile):
			code = http.StatusBadRequest
			message = "Bad request"
		case errors.Is(err, apperrors.ErrFileTooLarge):
			code = http.StatusRequestEntityTooLarge
			message = "File too large"
		case errors.Is(err, apperrors.ErrConflict):
			code = http.StatusConflict
			message = "Resource already exists"
		case errors.Is(err, apperrors.ErrNasAuth):
			code = http.StatusBadGateway
			message = "Storage authentication failed"
		case errors.Is(err, apperrors.ErrNasUnreachable):
			code = http.StatusServiceUnavailable
			message = "Storage unreachable"
		case errors.Is(err, apperrors.ErrTimeout):
			code = http.StatusGatewayTimeout
			message = "Operation timed out"
		}

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if code < 500 {
				message = appErr.Message
			}
		}
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = "unknown"
	}

	if code >= 500 {
		c.Logger().Errorf("request failed request_id=%s status=%d error=%v", requestID, code, err)
	} else {
		c.Logger().Warnf("client error request_id=%s status=%d error=%v", requestID, code, err)
	}

	if err := c.JSON(code, map[string]interface{}{
		"error":      message,
		"request_id": requestID,
	}); err != nil {
		c.Logger().Error(err)
	}
}
