package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrConflict             = errors.New("resource already exists")
	ErrInternalServer       = errors.New("internal server error")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrEmptyFile            = errors.New("empty file")
	ErrNasAuth              = errors.New("nas authentication failed")
	ErrNasUnreachable       = errors.New("nas unreachable")
	ErrStorage              = errors.New("storage operation failed")
	ErrPersistence          = errors.New("persistence failed after storage write")
	ErrTimeout              = errors.New("operation timed out")
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Err: ErrConflict}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

func UnsupportedImageType(msg string) *AppError {
	return &AppError{Code: "UNSUPPORTED_TYPE", Message: msg, Err: ErrUnsupportedImageType}
}

func FileTooLarge(msg string) *AppError {
	return &AppError{Code: "TOO_LARGE", Message: msg, Err: ErrFileTooLarge}
}

func EmptyFile(msg string) *AppError {
	return &AppError{Code: "EMPTY", Message: msg, Err: ErrEmptyFile}
}

func NasAuth(msg string, err error) *AppError {
	return &AppError{Code: "NAS_AUTH", Message: msg, Err: errors.Join(ErrNasAuth, err)}
}

func Storage(msg string, err error) *AppError {
	return &AppError{Code: "STORAGE", Message: msg, Err: errors.Join(ErrStorage, err)}
}

func Persistence(msg string, err error) *AppError {
	return &AppError{Code: "PERSISTENCE", Message: msg, Err: errors.Join(ErrPersistence, err)}
}

func Timeout(msg string) *AppError {
	return &AppError{Code: "TIMEOUT", Message: msg, Err: ErrTimeout}
}
