package imaging

import (
	"fmt"

	apperrors "media-service/pkg/errors"
)

const (
	magicPrefixLength = 12

	// DefaultMaxSize is the ceiling applied by most upload entry points.
	DefaultMaxSize = int64(5 * 1024 * 1024)

	errEmptyFileMsg       = "file is empty"
	errFileTooLargeMsgFmt = "file is %d bytes, limit is %d"
	errUnsupportedTypeMsg = "content is not a supported image (jpeg, png, webp)"
)

// Format is an image type detected from content, never from the declared MIME
// type or filename extension.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// MimeType returns the canonical MIME type for the detected format.
func (f Format) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// Extension returns the canonical filename extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	}
	return ""
}

// DetectFormat inspects the first 12 bytes and reports the true image format.
// Returns false when the signature matches none of the supported formats.
func DetectFormat(data []byte) (Format, bool) {
	if len(data) < magicPrefixLength {
		return "", false
	}

	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return FormatJPEG, true
	}

	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return FormatPNG, true
	}

	// WebP: "RIFF" at 0, "WEBP" at 8
	if data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return FormatWebP, true
	}

	return "", false
}

// Validate confirms the payload is a supported image within the size limit.
// Pure function of the bytes; the declared MIME type and filename play no part.
func Validate(data []byte, maxSize int64) (Format, error) {
	if len(data) == 0 {
		return "", apperrors.EmptyFile(errEmptyFileMsg)
	}

	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", apperrors.FileTooLarge(fmt.Sprintf(errFileTooLargeMsgFmt, len(data), maxSize))
	}

	format, ok := DetectFormat(data)
	if !ok {
		return "", apperrors.UnsupportedImageType(errUnsupportedTypeMsg)
	}

	return format, nil
}
