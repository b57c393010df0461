package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"media-service/internal/domain/image"
	apperrors "media-service/pkg/errors"
)

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"
)

// batchResponse is the envelope every upload endpoint returns. Success means
// at least one file of the batch made it through.
type batchResponse struct {
	Success bool      `json:"success"`
	Data    batchData `json:"data"`
	Message string    `json:"message,omitempty"`
}

type batchData struct {
	Uploaded int                `json:"uploaded"`
	Images   []image.Record    `json:"images"`
	Errors   []image.FileError `json:"errors,omitempty"`
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyError: message})
}

// errorMessage extracts the client-safe message from an application error.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyMessage: message})
}

// respondBatch renders a BatchResult. A batch where every file failed is an
// error response; a partial failure is still a 200 with the failures listed.
func respondBatch(c echo.Context, result *image.BatchResult) error {
	resp := batchResponse{
		Success: len(result.Uploaded) > 0,
		Data: batchData{
			Uploaded: len(result.Uploaded),
			Images:   result.Uploaded,
			Errors:   result.Failed,
		},
	}
	if resp.Data.Images == nil {
		resp.Data.Images = []image.Record{}
	}

	if !resp.Success {
		resp.Message = "no files were uploaded"
		return c.JSON(http.StatusInternalServerError, resp)
	}

	if len(result.Failed) > 0 {
		resp.Message = "some files failed to upload"
	}
	return c.JSON(http.StatusOK, resp)
}
