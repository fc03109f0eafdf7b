package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage interface for local filesystem.
// Buckets map to subdirectories of basePath.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
	}, nil
}

// PutObject writes content to {basePath}/{bucket}/{key} and returns a file:// URL
func (s *LocalStorage) PutObject(_ context.Context, bucket, key string, content []byte) (string, error) {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return "", err
	}

	// Create directory structure
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create directory: %w", ErrUploadFailed, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create file: %w", ErrUploadFailed, err)
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		os.Remove(fullPath) // Clean up on error
		return "", fmt.Errorf("%w: failed to write file: %w", ErrUploadFailed, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("%w: failed to write file: %w", ErrUploadFailed, err)
	}

	return "file://" + filepath.ToSlash(fullPath), nil
}

// DeleteObject removes a file from local storage
func (s *LocalStorage) DeleteObject(_ context.Context, bucket, key string) error {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ObjectExists reports whether {basePath}/{bucket}/{key} is a regular file
func (s *LocalStorage) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// resolve maps bucket/key to a path and rejects keys escaping the bucket directory
func (s *LocalStorage) resolve(bucket, key string) (string, error) {
	if err := validateTarget(bucket, key); err != nil {
		return "", err
	}

	bucketDir := filepath.Join(s.basePath, filepath.Base(bucket))
	fullPath := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q escapes bucket", ErrUploadFailed, key)
	}
	return fullPath, nil
}
