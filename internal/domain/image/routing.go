package image

import "fmt"

const errUnknownEntityTypeFmt = "no route configured for entity type %q"

// Route maps an entity type to its folder convention, persistence target and
// storage backend selection. The table replaces the per-call-site string
// checks the upload flows used to carry.
type Route struct {
	// Entity is the owning entity type, filled in by RouteFor.
	Entity EntityType
	// Folder is the per-entity base folder under the storage root.
	Folder string
	// Table is the entity image table, empty when the entity stores a single
	// cover column instead of rows.
	Table string
	// CoverColumn is set for single-column entities (collections, styles).
	CoverColumn string
	// CoverTable is the owning table for single-column entities.
	CoverTable string
	// Backend is the preferred storage backend for this entity.
	Backend StorageKind
	// Fallback, when set, is tried after the preferred backend reports an
	// authentication failure.
	Fallback StorageKind
}

var routes = map[EntityType]Route{
	EntityFabric:     {Folder: "fabrics", Table: "fabric_images", Backend: KindFileStation, Fallback: KindLocal},
	EntityCollection: {Folder: "collections", CoverTable: "collections", CoverColumn: "thumbnail_url", Backend: KindFileStation, Fallback: KindLocal},
	EntityProject:    {Folder: "projects", Table: "project_images", Backend: KindFileStation, Fallback: KindLocal},
	EntityEvent:      {Folder: "events", Table: "event_images", Backend: KindFileStation, Fallback: KindLocal},
	EntityStyle:      {Folder: "styles", CoverTable: "styles", CoverColumn: "cover_image_url", Backend: KindLocal},
	EntityAccessory:  {Folder: "accessories", Table: "accessory_images", Backend: KindFileStation, Fallback: KindLocal},
	EntityAlbum:      {Folder: "albums", Table: "album_images", Backend: KindFileStation, Fallback: KindLocal},
}

// RouteFor resolves the routing entry for an entity type.
func RouteFor(entityType EntityType) (Route, error) {
	r, ok := routes[entityType]
	if !ok {
		return Route{}, fmt.Errorf(errUnknownEntityTypeFmt, entityType)
	}
	r.Entity = entityType
	return r, nil
}

// ParseEntityType validates a request-supplied entity type string.
func ParseEntityType(s string) (EntityType, error) {
	et := EntityType(s)
	if _, ok := routes[et]; !ok {
		return "", fmt.Errorf(errUnknownEntityTypeFmt, s)
	}
	return et, nil
}

// EntityTypes lists every routable entity type.
func EntityTypes() []EntityType {
	types := make([]EntityType, 0, len(routes))
	for et := range routes {
		types = append(types, et)
	}
	return types
}

// ValidateRoutes checks the routing table is complete and coherent. Called at
// startup so a misconfigured entity fails the process, not a request.
func ValidateRoutes(available map[StorageKind]bool) error {
	for et, r := range routes {
		if r.Folder == "" {
			return fmt.Errorf("route for %q has no folder", et)
		}
		if r.Table == "" && r.CoverColumn == "" {
			return fmt.Errorf("route for %q has neither table nor cover column", et)
		}
		if r.CoverColumn != "" && r.CoverTable == "" {
			return fmt.Errorf("route for %q has a cover column without a table", et)
		}
		if !available[r.Backend] && (r.Fallback == "" || !available[r.Fallback]) {
			return fmt.Errorf("route for %q has no available backend (%q/%q)", et, r.Backend, r.Fallback)
		}
	}
	return nil
}
