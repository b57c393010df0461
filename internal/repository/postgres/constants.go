package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	errImageNotFound  = "image not found"
	errEntityNotFound = "entity not found"
	errNoImageTable   = "entity stores a cover column, not image rows"
	errNoCoverColumn  = "entity stores image rows, not a cover column"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"

	errFailedInsertImageFmt = "failed to insert image record: %w"
	errFailedGetImageFmt    = "failed to get image record: %w"
	errFailedListImagesFmt  = "failed to list image records: %w"
	errFailedScanImageFmt   = "failed to scan image record: %w"
	errFailedDeleteImageFmt = "failed to delete image record: %w"
	errFailedSetCoverFmt    = "failed to set cover image: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }

	errFailedInsertImage = func(err error) error { return fmt.Errorf(errFailedInsertImageFmt, err) }
	errFailedGetImage    = func(err error) error { return fmt.Errorf(errFailedGetImageFmt, err) }
	errFailedListImages  = func(err error) error { return fmt.Errorf(errFailedListImagesFmt, err) }
	errFailedScanImage   = func(err error) error { return fmt.Errorf(errFailedScanImageFmt, err) }
	errFailedDeleteImage = func(err error) error { return fmt.Errorf(errFailedDeleteImageFmt, err) }
	errFailedSetCover    = func(err error) error { return fmt.Errorf(errFailedSetCoverFmt, err) }
)
