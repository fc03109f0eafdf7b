package storage

import (
	"context"
	"errors"
	"fmt"

	"upload-service/config"
)

// ContentTypeOctetStream is the content type every object is written with
const ContentTypeOctetStream = "application/octet-stream"

var (
	// ErrUploadFailed is the error kind every storage write failure matches
	ErrUploadFailed = errors.New("upload failed")

	// ErrCredentials signals absent or rejected storage credentials
	ErrCredentials = fmt.Errorf("%w: storage credentials not found", ErrUploadFailed)
)

// Storage interface for object storage operations
type Storage interface {
	// PutObject writes content under bucket/key and returns the object URL
	PutObject(ctx context.Context, bucket, key string, content []byte) (string, error)

	// DeleteObject removes bucket/key. Missing objects are not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// ObjectExists reports whether bucket/key is already stored
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
}

// NewStorage creates a storage instance based on configuration
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageType {
	case config.StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	case config.StorageTypeLocal:
		return NewLocalStorage(cfg.StorageLocalPath)
	case config.StorageTypeNone:
		return NoopStorage{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}

// ObjectURL returns the public S3 URL of bucket/key. The object is not checked for existence.
func ObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

func validateTarget(bucket, key string) error {
	if bucket == "" {
		return fmt.Errorf("%w: bucket must not be empty", ErrUploadFailed)
	}
	if key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrUploadFailed)
	}
	return nil
}

// NoopStorage records nothing and only computes object URLs.
// It keeps the service usable for metadata-only deployments.
type NoopStorage struct{}

// PutObject validates the target and returns its URL without writing bytes
func (NoopStorage) PutObject(_ context.Context, bucket, key string, _ []byte) (string, error) {
	if err := validateTarget(bucket, key); err != nil {
		return "", err
	}
	return ObjectURL(bucket, key), nil
}

// DeleteObject is a no-op
func (NoopStorage) DeleteObject(context.Context, string, string) error {
	return nil
}

// ObjectExists always reports false since nothing is ever written
func (NoopStorage) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	return false, validateTarget(bucket, key)
}
