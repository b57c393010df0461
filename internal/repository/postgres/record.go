package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"media-service/internal/domain/image"
	apperrors "media-service/pkg/errors"
)

// RecordRepository stores image references across the per-entity image tables.
// Table and column names are interpolated from the static routing table, never
// from request input, so the dynamic SQL stays injection-safe.
type RecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// thumbnail_url and caption are nullable in rows that predate this service.
const recordColumns = "id, entity_id, image_id, image_url, COALESCE(thumbnail_url, ''), COALESCE(caption, ''), sort_order, size_bytes, added_at"

func (r *RecordRepository) Add(ctx context.Context, route image.Route, rec *image.Record) (*image.Record, error) {
	if route.Table == "" {
		return nil, apperrors.BadRequest(errNoImageTable)
	}

	// sort_order is assigned inside the insert so two concurrent uploads to
	// the same entity cannot read the same MAX.
	query := fmt.Sprintf(`
		INSERT INTO %s (entity_id, image_id, image_url, thumbnail_url, caption, sort_order, size_bytes)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM %s WHERE entity_id = $1),
			$6)
		RETURNING id, sort_order, added_at
	`, route.Table, route.Table)

	stored := *rec
	err := r.db.Pool.QueryRow(ctx, query,
		rec.EntityID, rec.ImageID, rec.ImageURL, rec.ThumbnailURL, rec.Caption, rec.SizeBytes,
	).Scan(&stored.ID, &stored.SortOrder, &stored.AddedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("image already recorded for this entity")
		}
		return nil, errFailedInsertImage(err)
	}

	return &stored, nil
}

func (r *RecordRepository) SetCover(ctx context.Context, route image.Route, entityID, imageURL string) error {
	if route.CoverColumn == "" {
		return apperrors.BadRequest(errNoCoverColumn)
	}

	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = $2", route.CoverTable, route.CoverColumn)

	result, err := r.db.Pool.Exec(ctx, query, imageURL, entityID)
	if err != nil {
		return errFailedSetCover(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errEntityNotFound)
	}

	return nil
}

func (r *RecordRepository) List(ctx context.Context, route image.Route, entityID string) ([]image.Record, error) {
	if route.Table == "" {
		return nil, apperrors.BadRequest(errNoImageTable)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE entity_id = $1
		ORDER BY sort_order ASC, added_at ASC
	`, recordColumns, route.Table)

	rows, err := r.db.Pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, errFailedListImages(err)
	}
	defer rows.Close()

	var records []image.Record
	for rows.Next() {
		var rec image.Record
		if err := scanRecord(rows, route, &rec); err != nil {
			return nil, errFailedScanImage(err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *RecordRepository) Get(ctx context.Context, route image.Route, id string) (*image.Record, error) {
	if route.Table == "" {
		return nil, apperrors.BadRequest(errNoImageTable)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", recordColumns, route.Table)

	var rec image.Record
	err := scanRecord(r.db.Pool.QueryRow(ctx, query, id), route, &rec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errImageNotFound)
		}
		return nil, errFailedGetImage(err)
	}

	return &rec, nil
}

func (r *RecordRepository) Delete(ctx context.Context, route image.Route, id string) error {
	if route.Table == "" {
		return apperrors.BadRequest(errNoImageTable)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", route.Table)

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return errFailedDeleteImage(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errImageNotFound)
	}

	return nil
}

// scanRecord reads one row and stamps it with the route's entity type, which
// the per-entity tables do not store.
func scanRecord(row pgx.Row, route image.Route, rec *image.Record) error {
	err := row.Scan(
		&rec.ID, &rec.EntityID, &rec.ImageID, &rec.ImageURL, &rec.ThumbnailURL,
		&rec.Caption, &rec.SortOrder, &rec.SizeBytes, &rec.AddedAt,
	)
	if err != nil {
		return err
	}
	rec.EntityType = route.Entity
	return nil
}
