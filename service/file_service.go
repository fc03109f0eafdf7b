package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"upload-service/config"
	"upload-service/models"
	"upload-service/repository"
	"upload-service/storage"
)

// ErrMissingFile is returned when an upload carries no file
var ErrMissingFile = errors.New("no file provided")

// cleanupTimeout bounds rollback and compensating deletes, which run
// on a context detached from the request
const cleanupTimeout = 5 * time.Second

// FileService handles uploads and metadata queries
type FileService struct {
	sessions repository.SessionFactory
	files    repository.Files
	storage  storage.Storage
	bucket   string
	logger   *slog.Logger
}

// FileServiceOption is a functional option for FileService
type FileServiceOption func(*FileService)

// WithSessionFactory sets the factory used to open one transaction per upload
func WithSessionFactory(sessions repository.SessionFactory) FileServiceOption {
	return func(s *FileService) {
		s.sessions = sessions
	}
}

// WithFiles sets the repository used for read queries
func WithFiles(files repository.Files) FileServiceOption {
	return func(s *FileService) {
		s.files = files
	}
}

// WithStorage sets the object storage client
func WithStorage(st storage.Storage) FileServiceOption {
	return func(s *FileService) {
		s.storage = st
	}
}

// WithBucket sets the destination bucket
func WithBucket(bucket string) FileServiceOption {
	return func(s *FileService) {
		s.bucket = bucket
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) FileServiceOption {
	return func(s *FileService) {
		s.logger = logger
	}
}

// NewFileService creates a new file service. Storage defaults to
// storage.NoopStorage and the bucket to config.DefaultBucket.
func NewFileService(opts ...FileServiceOption) *FileService {
	s := &FileService{
		storage: storage.NoopStorage{},
		bucket:  config.DefaultBucket,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadRequest represents one received file
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     []byte
}

// UploadResult represents the outcome of a successful upload
type UploadResult struct {
	File *models.UploadedFile
	URL  string
}

// ObjectKey returns the storage key for an uploaded filename
func ObjectKey(filename string) string {
	return "uploads/" + filename
}

// Upload writes the file to object storage and records its metadata in one transaction.
// On any failure the transaction is rolled back. The written object is removed again
// only when this upload created its key, since same-name uploads share one key.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if s.sessions == nil {
		return nil, errors.New("session factory not set")
	}
	if req.Filename == "" {
		return nil, ErrMissingFile
	}

	start := time.Now()
	key := ObjectKey(req.Filename)
	size := models.SizeInMegabytes(len(req.Content))

	created := s.keyIsFree(ctx, key)

	url, err := s.storage.PutObject(ctx, s.bucket, key, req.Content)
	if err != nil {
		observeUpload(outcomeStorageError, len(req.Content), start)
		return nil, err
	}

	sess, err := s.sessions.Begin(ctx)
	if err != nil {
		s.discardObject(ctx, key, created)
		observeUpload(outcomeDatabaseError, len(req.Content), start)
		return nil, err
	}

	file, err := sess.Files().Create(ctx, repository.CreateFileParams{
		Name:        req.Filename,
		Description: nil,
		FilePath:    key,
		FileSize:    size,
		FileType:    req.ContentType,
	})
	if err == nil {
		err = sess.Commit(ctx)
	}
	if err != nil {
		s.rollback(ctx, sess)
		s.discardObject(ctx, key, created)
		observeUpload(outcomeDatabaseError, len(req.Content), start)
		return nil, err
	}

	observeUpload(outcomeSuccess, len(req.Content), start)
	s.logger.InfoContext(ctx, "File uploaded",
		slog.Int64("id", file.ID),
		slog.String("name", file.Name),
		slog.String("path", file.FilePath),
		slog.Float64("size_mb", file.FileSize),
		slog.String("type", file.FileType),
	)

	return &UploadResult{File: file, URL: url}, nil
}

// ListFiles returns records in insertion order with limit/offset pagination
func (s *FileService) ListFiles(ctx context.Context, limit, offset int) ([]*models.UploadedFile, error) {
	if s.files == nil {
		return nil, errors.New("file repository not set")
	}
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("limit and offset must be non-negative, got %d and %d", limit, offset)
	}
	return s.files.ListAll(ctx, limit, offset)
}

// FilterFiles returns records matching every non-empty criterion
func (s *FileService) FilterFiles(ctx context.Context, filter repository.FileFilter) ([]*models.UploadedFile, error) {
	if s.files == nil {
		return nil, errors.New("file repository not set")
	}
	return s.files.Filter(ctx, filter)
}

func (s *FileService) rollback(ctx context.Context, sess repository.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := sess.Rollback(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Rollback failed", slog.String("error", err.Error()))
	}
}

// keyIsFree reports whether no object is stored under key yet.
// A failed lookup counts as taken so the object is never discarded.
func (s *FileService) keyIsFree(ctx context.Context, key string) bool {
	exists, err := s.storage.ObjectExists(ctx, s.bucket, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to check object existence",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return !exists
}

// discardObject removes an object whose metadata could not be recorded.
// Objects this upload did not create belong to earlier records and stay.
func (s *FileService) discardObject(ctx context.Context, key string, created bool) {
	if !created {
		s.logger.WarnContext(ctx, "Keeping object shared with an earlier upload",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.storage.DeleteObject(ctx, s.bucket, key); err != nil {
		s.logger.WarnContext(ctx, "Failed to remove orphaned object",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
