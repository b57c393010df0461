// Package naming derives filesystem-safe filenames and destination paths for
// uploaded assets. The path convention is the de facto schema of the file
// store: the storage backends write with it and the proxy endpoints re-derive
// it at read time, so both sides must go through this package.
package naming

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"media-service/internal/domain/image"
)

const (
	fallbackFolderName = "album"
	fallbackFileStem   = "file"
	randomTokenLength  = 8
)

// Policy derives deterministic destination paths under a fixed storage root.
type Policy struct {
	// StorageRoot is the absolute NAS path all destinations live under,
	// e.g. "/marketing/thuvienanh".
	StorageRoot string
}

func NewPolicy(storageRoot string) *Policy {
	return &Policy{StorageRoot: strings.TrimRight(storageRoot, "/")}
}

// FileName builds a collision-resistant filename:
// {entityType}-{entityId}-{unixMillis}-{token}-{sanitizedOriginal}.
// The random token makes two calls unequal even within one millisecond.
func FileName(entityType image.EntityType, entityID, originalName string) string {
	return fileNameAt(entityType, entityID, originalName, time.Now(), randomToken())
}

func fileNameAt(entityType image.EntityType, entityID, originalName string, now time.Time, token string) string {
	return fmt.Sprintf("%s-%s-%d-%s-%s",
		entityType, entityID, now.UnixMilli(), token, Sanitize(originalName))
}

// Sanitize lowercases the name, collapses every non-alphanumeric run to a
// single dash and preserves the (lowercased) extension.
func Sanitize(name string) string {
	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))

	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(stem) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = fallbackFileStem
	}
	return out + ext
}

// FolderName derives a per-entity folder: {slug(name)}_{entityId}. An empty
// or fully-stripped name falls back to a fixed stem so the path stays valid.
func FolderName(entityName, entityID string) string {
	slug := strings.TrimSuffix(Sanitize(entityName+".x"), ".x")
	if slug == "" || slug == fallbackFileStem {
		slug = fallbackFolderName
	}
	return slug + "_" + entityID
}

// DestinationPath computes the NAS folder an entity's images live in:
// {root}/{entityFolder}/{subcategory} or {root}/{entityFolder}/{slug(name)_id}
// when no subcategory is supplied.
func (p *Policy) DestinationPath(entityType image.EntityType, entityID, entityName, subcategory string) (string, error) {
	route, err := image.RouteFor(entityType)
	if err != nil {
		return "", err
	}

	leaf := strings.Trim(subcategory, "/")
	if leaf == "" {
		leaf = FolderName(entityName, entityID)
	}

	return p.StorageRoot + "/" + route.Folder + "/" + leaf, nil
}

// FileProxyPath builds the application-relative read-side URL for a
// FileStation-stored file. The inverse of DestinationPath plus filename.
func FileProxyPath(nasPath string) string {
	return "/api/synology/file-proxy?path=" + url.QueryEscape(nasPath)
}

// FileProxyThumbnailPath is FileProxyPath with the thumbnail flag set.
func FileProxyThumbnailPath(nasPath string) string {
	return FileProxyPath(nasPath) + "&thumbnail=true"
}

// ImageProxyPath builds the read-side URL for a Photos-API-stored item. The
// NAS numeric id, not a path, is the retrieval key for this flavor.
func ImageProxyPath(remoteID int64, kind, size string) string {
	v := url.Values{}
	v.Set("id", fmt.Sprintf("%d", remoteID))
	v.Set("type", kind)
	v.Set("size", size)
	return "/api/synology/image-proxy?" + v.Encode()
}

// SmbProxyPath builds the read-side URL for a file on the SMB share.
func SmbProxyPath(nasPath string) string {
	return "/api/synology/smb-proxy?path=" + url.QueryEscape(nasPath)
}

func randomToken() string {
	return uuid.New().String()[:randomTokenLength]
}
