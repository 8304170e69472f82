package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStorage keeps objects in a single S3-compatible bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects and creates the bucket if it is missing.
func NewMinioStorage(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	log := slogx.FromContext(ctx).With("endpoint", cfg.Endpoint, "bucket", cfg.Bucket)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: create minio client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("blob: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			// another instance may have won the race
			if ok, errExists := client.BucketExists(ctx, cfg.Bucket); errExists != nil || !ok {
				return nil, fmt.Errorf("blob: make bucket %s: %w", cfg.Bucket, err)
			}
		}
		log.Info("bucket created")
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, obj Object, r io.Reader) (Descriptor, error) {
	info, err := s.client.PutObject(ctx, s.bucket, obj.Key, r, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return Descriptor{}, fmt.Errorf("blob: put %s: %w", obj.Key, err)
	}

	slogx.FromContext(ctx).Debug("object stored", "key", info.Key, "size", info.Size)
	return Descriptor{Bucket: info.Bucket, Key: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

func (s *MinioStorage) SignedURL(ctx context.Context, d Descriptor, ttl time.Duration) (string, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, d.Key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrObjectNotFound
		}
		return "", fmt.Errorf("blob: stat %s: %w", d.Key, err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, d.Key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("blob: presign %s: %w", d.Key, err)
	}
	return u.String(), nil
}

// Delete is idempotent; removing a missing key is not an error.
func (s *MinioStorage) Delete(ctx context.Context, d Descriptor) error {
	if err := s.client.RemoveObject(ctx, s.bucket, d.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blob: remove %s: %w", d.Key, err)
	}
	return nil
}

// Ping checks the bucket is reachable.
func (s *MinioStorage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("blob: ping: %w", err)
	}
	return nil
}
