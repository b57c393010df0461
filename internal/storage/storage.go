// Package storage defines the backend abstraction every upload flows through.
// A Backend turns processed bytes into a durable StoredAsset; which backend a
// batch uses is decided by the entity routing table, never by the caller.
package storage

import (
	"context"
	"fmt"

	"media-service/internal/domain/image"
	apperrors "media-service/pkg/errors"
)

// Object is one fully processed file ready to be written: validated,
// compressed and named. Thumbnail is optional and only consumed by backends
// that cannot derive renditions server-side.
type Object struct {
	Folder      string
	FileName    string
	ContentType string
	Data        []byte
	Thumbnail   []byte
	// FolderID overrides the default folder on id-addressed backends.
	FolderID int
}

// Path joins folder and file name with a single separator.
func (o Object) Path() string {
	return o.Folder + "/" + o.FileName
}

// Backend writes processed images to one storage target and removes them
// again. Implementations must be safe for concurrent use.
type Backend interface {
	Kind() image.StorageKind
	Store(ctx context.Context, obj Object) (*image.StoredAsset, error)
	Remove(ctx context.Context, asset *image.StoredAsset) error
}

// Registry holds the configured backends keyed by kind. Not every kind is
// configured in every deployment; routing validation runs against Available.
type Registry struct {
	backends map[image.StorageKind]Backend
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[image.StorageKind]Backend, len(backends))}
	for _, b := range backends {
		r.backends[b.Kind()] = b
	}
	return r
}

// Get returns the backend for kind.
func (r *Registry) Get(kind image.StorageKind) (Backend, error) {
	b, ok := r.backends[kind]
	if !ok {
		return nil, apperrors.InternalServer(fmt.Sprintf("storage backend %q not configured", kind), apperrors.ErrStorage)
	}
	return b, nil
}

// Resolve returns the route's primary backend, falling back to the route's
// fallback kind when the primary is not configured.
func (r *Registry) Resolve(route image.Route) (Backend, error) {
	if b, ok := r.backends[route.Backend]; ok {
		return b, nil
	}
	if route.Fallback != "" {
		if b, ok := r.backends[route.Fallback]; ok {
			return b, nil
		}
	}
	return nil, apperrors.InternalServer(fmt.Sprintf("no backend configured for route %q/%q", route.Backend, route.Fallback), apperrors.ErrStorage)
}

// Available reports which kinds are configured, in the shape the routing
// table's validation expects.
func (r *Registry) Available() map[image.StorageKind]bool {
	out := make(map[image.StorageKind]bool, len(r.backends))
	for kind := range r.backends {
		out[kind] = true
	}
	return out
}
