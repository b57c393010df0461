package synology

import (
	"errors"
	"fmt"
)

// NAS WebAPI error codes, from the DSM developer guide. Only the codes the
// upload pipeline reacts to are named; the rest surface through the message
// table for diagnostics.
const (
	CodeInvalidParameter    = 101
	CodeNoSuchAPI           = 102
	CodeNoSuchMethod        = 103
	CodeVersionNotSupported = 104
	CodeInsufficientPrivs   = 105
	CodeConnectionTimeout   = 106
	CodeMultipleLogin       = 107
	CodeSidNotFound         = 119
	CodeNoSuchFileOrDir     = 408
	CodeFileAlreadyExists   = 414
)

var codeMessages = map[int]string{
	101: "invalid parameter",
	102: "API does not exist",
	103: "method does not exist",
	104: "API version not supported",
	105: "insufficient user privilege",
	106: "connection timed out",
	107: "multiple login detected",
	119: "SID not found",
	400: "invalid parameter of file operation",
	401: "unknown error of file operation",
	402: "system is too busy",
	403: "invalid user for this file operation",
	404: "invalid group for this file operation",
	405: "invalid user and group for this file operation",
	406: "cannot get user/group information from the account server",
	407: "operation not permitted",
	408: "no such file or directory",
	409: "non-supported file system",
	410: "failed to connect internet-based file system",
	411: "read-only file system",
	412: "filename too long in the non-encrypted file system",
	413: "filename too long in the encrypted file system",
	414: "file already exists",
	415: "disk quota exceeded",
	416: "no space left on device",
	417: "input/output error",
	418: "illegal name or path",
	419: "illegal file name",
	421: "device or resource busy",
	599: "no such task of the file operation",
}

// APIError is a NAS-reported failure carrying the numeric code.
type APIError struct {
	Code int
}

func (e *APIError) Error() string {
	if msg, ok := codeMessages[e.Code]; ok {
		return fmt.Sprintf("synology error %d: %s", e.Code, msg)
	}
	return fmt.Sprintf("synology error %d", e.Code)
}

// IsNoSuchDirectory reports the "no such file or directory" family of codes
// that the SMB bridge collapses its destination path on.
func IsNoSuchDirectory(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeSidNotFound || apiErr.Code == CodeNoSuchFileOrDir
	}
	return false
}

// IsAlreadyExists reports the folder/file-already-exists code, which folder
// creation tolerates as success.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeFileAlreadyExists
}

// IsSessionRejected reports codes that mean the cached sid is no longer
// accepted; callers should invalidate the session and re-authenticate once.
func IsSessionRejected(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case CodeInsufficientPrivs, CodeConnectionTimeout, CodeMultipleLogin, CodeSidNotFound:
			return true
		}
	}
	return false
}
