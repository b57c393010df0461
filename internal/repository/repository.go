// Package repository declares the persistence contracts the upload and HTTP
// layers depend on. The postgres subpackage provides the implementation.
package repository

import (
	"context"

	"media-service/internal/domain/image"
)

// Records persists image references for row-per-image entities and cover URLs
// for single-column entities. Which shape applies is carried by the route.
type Records interface {
	// Add inserts one image row into the route's table and returns the stored
	// record with id, sort order and timestamp filled in.
	Add(ctx context.Context, route image.Route, rec *image.Record) (*image.Record, error)

	// SetCover writes the image URL into the route's cover column.
	SetCover(ctx context.Context, route image.Route, entityID, imageURL string) error

	// List returns an entity's image rows in display order.
	List(ctx context.Context, route image.Route, entityID string) ([]image.Record, error)

	// Get returns one image row by its id.
	Get(ctx context.Context, route image.Route, id string) (*image.Record, error)

	// Delete removes one image row by its id.
	Delete(ctx context.Context, route image.Route, id string) error
}
