package image

import (
	"time"
)

// EntityType identifies the logical owner of an uploaded image. It selects
// both the destination folder convention and the database table the resulting
// reference is written to.
type EntityType string

const (
	EntityFabric     EntityType = "fabric"
	EntityCollection EntityType = "collection"
	EntityProject    EntityType = "project"
	EntityEvent      EntityType = "event"
	EntityStyle      EntityType = "style"
	EntityAccessory  EntityType = "accessory"
	EntityAlbum      EntityType = "album"
)

// StorageKind names a storage backend implementation.
type StorageKind string

const (
	KindFileStation StorageKind = "filestation"
	KindPhotos      StorageKind = "photos"
	KindSmb         StorageKind = "smb"
	KindLocal       StorageKind = "local"
	KindArchive     StorageKind = "archive"
)

// RawFile is one file as received from the request, before any validation.
// It is owned by the request and discarded after processing.
type RawFile struct {
	Name         string
	DeclaredMime string
	Size         int64
	Bytes        []byte
}

// UploadRequest describes one batch: the owning entity plus its files.
type UploadRequest struct {
	EntityType  EntityType
	EntityID    string
	EntityName  string
	Subcategory string
	// FolderID targets a specific numeric folder on id-addressed backends
	// (the photo library). Zero means the backend's configured default.
	FolderID int
	Files    []RawFile
}

// StoredAsset is the durable reference returned by a storage backend after a
// successful write. Immutable once created; overwrites on the NAS backends are
// modeled as delete+create.
type StoredAsset struct {
	Kind         StorageKind
	Path         string
	RemoteID     int64
	PublicURL    string
	ThumbnailURL string
	SizeBytes    int64
	CreatedAt    time.Time
}

// Record is one row of an entity image table (or the value written to a
// single-column cover field). ImageID doubles as the join key back to the
// backend: for Photos-backed entities it holds the NAS numeric id.
type Record struct {
	ID           string     `json:"id"`
	EntityType   EntityType `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	ImageID      string     `json:"image_id"`
	ImageURL     string     `json:"image_url"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	SortOrder    int        `json:"sort_order"`
	SizeBytes    int64      `json:"size_bytes"`
	AddedAt      time.Time  `json:"added_at"`
}

// FileError reports one failed file of a batch.
type FileError struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// BatchResult aggregates per-file outcomes of one upload batch.
type BatchResult struct {
	Uploaded []Record    `json:"images"`
	Failed   []FileError `json:"errors,omitempty"`
}
