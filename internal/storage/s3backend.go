package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"media-service/internal/config"
	"media-service/internal/domain/image"
	"media-service/pkg/cache"
	apperrors "media-service/pkg/errors"
)

const (
	emptyAWSSessionToken = ""

	errFailedCreateAWSSessionFmt = "failed to create AWS session: %w"
	errFailedPutObjectFmt        = "failed to put object: %w"
	errFailedDeleteObjectFmt     = "failed to delete object: %w"
	errFailedGetObjectFmt        = "failed to get object: %w"
)

// ArchiveBackend mirrors originals into an S3 bucket. It is an off-site copy,
// not a serving tier: PublicURL points at the bucket key through the
// file-proxy only when no other backend holds the file.
type ArchiveBackend struct {
	svc    *s3.S3
	bucket string
	urls   *cache.URLCache
}

func NewArchiveBackend(cfg config.ArchiveConfig) (*ArchiveBackend, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		),
	})
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	return &ArchiveBackend{svc: s3.New(sess), bucket: cfg.Bucket, urls: cache.NewURLCache()}, nil
}

func (b *ArchiveBackend) Kind() image.StorageKind {
	return image.KindArchive
}

// objectKey flattens the NAS-style destination folder into a bucket key.
func objectKey(folder, fileName string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return fileName
	}
	return folder + "/" + fileName
}

func (b *ArchiveBackend) Store(ctx context.Context, obj Object) (*image.StoredAsset, error) {
	key := objectKey(obj.Folder, obj.FileName)

	_, err := b.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
	})
	if err != nil {
		return nil, apperrors.Storage("failed to archive object", fmt.Errorf(errFailedPutObjectFmt, err))
	}

	return &image.StoredAsset{
		Kind:      image.KindArchive,
		Path:      key,
		PublicURL: "s3://" + b.bucket + "/" + key,
		SizeBytes: int64(len(obj.Data)),
		CreatedAt: time.Now(),
	}, nil
}

func (b *ArchiveBackend) Remove(ctx context.Context, asset *image.StoredAsset) error {
	_, err := b.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(asset.Path),
	})
	if err != nil {
		return apperrors.Storage("failed to delete archived object", fmt.Errorf(errFailedDeleteObjectFmt, err))
	}
	return nil
}

// PresignedURL returns a short-lived download URL for an archived object,
// cached until shortly before it expires.
func (b *ArchiveBackend) PresignedURL(key string, expiry time.Duration) (string, error) {
	if url, ok := b.urls.Get(key); ok {
		return url, nil
	}

	req, _ := b.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})

	downloadURL, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf(errFailedGetObjectFmt, err)
	}

	// Cache for most of the validity window so a cached hit never hands out
	// a nearly-expired link.
	b.urls.Set(key, downloadURL, time.Now().Add(expiry*3/4))
	return downloadURL, nil
}
