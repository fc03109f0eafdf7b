package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"upload-service/models"
	"upload-service/repository"
	"upload-service/storage"
)

// memStore holds committed rows. Sessions stage rows until Commit.
type memStore struct {
	mu     sync.Mutex
	rows   []*models.UploadedFile
	nextID int64

	beginErr  error
	createErr error
	commitErr error

	sessions []*fakeSession
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) Begin(context.Context) (repository.Session, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	sess := &fakeSession{store: m}
	m.sessions = append(m.sessions, sess)
	return sess, nil
}

func (m *memStore) committed() []*models.UploadedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.UploadedFile(nil), m.rows...)
}

func (m *memStore) ListAll(_ context.Context, limit, offset int) ([]*models.UploadedFile, error) {
	rows := m.committed()
	if offset >= len(rows) {
		return []*models.UploadedFile{}, nil
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end], nil
}

func (m *memStore) Filter(_ context.Context, f repository.FileFilter) ([]*models.UploadedFile, error) {
	out := []*models.UploadedFile{}
	for _, r := range m.committed() {
		if f.Name != "" && r.Name != f.Name {
			continue
		}
		if f.FileType != "" && r.FileType != f.FileType {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) Create(context.Context, repository.CreateFileParams) (*models.UploadedFile, error) {
	return nil, errors.New("create outside a session")
}

type fakeSession struct {
	store      *memStore
	pending    []*models.UploadedFile
	committed  bool
	rolledBack bool
}

func (s *fakeSession) Files() repository.Files { return s }

func (s *fakeSession) Create(_ context.Context, p repository.CreateFileParams) (*models.UploadedFile, error) {
	if s.store.createErr != nil {
		return nil, s.store.createErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	f := &models.UploadedFile{
		ID:          s.store.nextID,
		Name:        p.Name,
		Description: p.Description,
		FilePath:    p.FilePath,
		FileSize:    p.FileSize,
		FileType:    p.FileType,
		CreatedAt:   time.Now().UTC(),
	}
	s.store.nextID++
	s.pending = append(s.pending, f)
	return f, nil
}

func (s *fakeSession) ListAll(ctx context.Context, limit, offset int) ([]*models.UploadedFile, error) {
	return s.store.ListAll(ctx, limit, offset)
}

func (s *fakeSession) Filter(ctx context.Context, f repository.FileFilter) ([]*models.UploadedFile, error) {
	return s.store.Filter(ctx, f)
}

func (s *fakeSession) Commit(context.Context) error {
	if s.store.commitErr != nil {
		return s.store.commitErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.rows = append(s.store.rows, s.pending...)
	s.pending = nil
	s.committed = true
	return nil
}

func (s *fakeSession) Rollback(context.Context) error {
	s.pending = nil
	s.rolledBack = true
	return nil
}

type fakeStorage struct {
	puts      map[string][]byte
	deletes   []string
	putErr    error
	existsErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{puts: map[string][]byte{}}
}

func (f *fakeStorage) PutObject(_ context.Context, bucket, key string, content []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts[bucket+"/"+key] = content
	return storage.ObjectURL(bucket, key), nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, bucket, key string) error {
	f.deletes = append(f.deletes, bucket+"/"+key)
	delete(f.puts, bucket+"/"+key)
	return nil
}

func (f *fakeStorage) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.puts[bucket+"/"+key]
	return ok, nil
}

func newTestService(store *memStore, st storage.Storage) *FileService {
	return NewFileService(
		WithSessionFactory(store),
		WithFiles(store),
		WithStorage(st),
		WithBucket("test-bucket"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestUpload_Success(t *testing.T) {
	store := newMemStore()
	st := newFakeStorage()
	svc := newTestService(store, st)

	content := make([]byte, 2*1024*1024)
	res, err := svc.Upload(context.Background(), UploadRequest{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Content:     content,
	})
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if res.URL != "https://test-bucket.s3.amazonaws.com/uploads/report.pdf" {
		t.Errorf("URL = %q", res.URL)
	}
	if _, ok := st.puts["test-bucket/uploads/report.pdf"]; !ok {
		t.Errorf("object not stored, puts = %v", st.puts)
	}

	rows := store.committed()
	if len(rows) != 1 {
		t.Fatalf("committed rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Name != "report.pdf" || row.FileType != "application/pdf" || row.FilePath != "uploads/report.pdf" {
		t.Errorf("row = %+v", row)
	}
	if math.Abs(row.FileSize-2.0) > 1e-9 {
		t.Errorf("FileSize = %v, want 2.0", row.FileSize)
	}
	if row.Description != nil {
		t.Errorf("Description = %v, want nil", *row.Description)
	}
	if !store.sessions[0].committed {
		t.Error("session not committed")
	}
}

func TestUpload_ZeroBytes(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newFakeStorage())

	if _, err := svc.Upload(context.Background(), UploadRequest{Filename: "empty.txt", ContentType: "text/plain"}); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	rows := store.committed()
	if len(rows) != 1 || rows[0].FileSize != 0.0 {
		t.Errorf("rows = %+v, want one row of size 0", rows)
	}
}

func TestUpload_CommitFailure(t *testing.T) {
	store := newMemStore()
	store.commitErr = errors.New("connection reset by peer")
	st := newFakeStorage()
	svc := newTestService(store, st)

	_, err := svc.Upload(context.Background(), UploadRequest{Filename: "a.txt", ContentType: "text/plain", Content: []byte("abc")})
	if err == nil || err.Error() != "connection reset by peer" {
		t.Fatalf("error = %v, want the store error unchanged", err)
	}

	if len(store.committed()) != 0 {
		t.Error("row visible after failed commit")
	}
	if !store.sessions[0].rolledBack {
		t.Error("session not rolled back")
	}
	if len(st.deletes) != 1 || st.deletes[0] != "test-bucket/uploads/a.txt" {
		t.Errorf("deletes = %v, want the orphaned object removed", st.deletes)
	}
}

func TestUpload_FailedReuploadKeepsEarlierObject(t *testing.T) {
	store := newMemStore()
	st := newFakeStorage()
	svc := newTestService(store, st)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, UploadRequest{Filename: "a.txt", ContentType: "text/plain", Content: []byte("first")}); err != nil {
		t.Fatalf("first Upload error: %v", err)
	}

	store.commitErr = errors.New("connection reset by peer")
	if _, err := svc.Upload(ctx, UploadRequest{Filename: "a.txt", ContentType: "text/plain", Content: []byte("second")}); err == nil {
		t.Fatal("second Upload error = nil, want commit error")
	}

	rows := store.committed()
	if len(rows) != 1 || rows[0].FilePath != "uploads/a.txt" {
		t.Fatalf("committed rows = %+v, want the first a.txt only", rows)
	}
	if _, ok := st.puts["test-bucket/uploads/a.txt"]; !ok {
		t.Error("object behind the committed record was removed")
	}
	if len(st.deletes) != 0 {
		t.Errorf("deletes = %v, want none", st.deletes)
	}
}

func TestUpload_ExistenceCheckFailureKeepsObject(t *testing.T) {
	store := newMemStore()
	store.commitErr = errors.New("connection reset by peer")
	st := newFakeStorage()
	st.existsErr = errors.New("403 Forbidden")
	svc := newTestService(store, st)

	if _, err := svc.Upload(context.Background(), UploadRequest{Filename: "a.txt", Content: []byte("x")}); err == nil {
		t.Fatal("Upload error = nil, want commit error")
	}
	if len(st.deletes) != 0 {
		t.Errorf("deletes = %v, want none when the key could not be checked", st.deletes)
	}
}

func TestUpload_CreateFailure(t *testing.T) {
	store := newMemStore()
	store.createErr = errors.New("value too long for type character varying(200)")
	svc := newTestService(store, newFakeStorage())

	if _, err := svc.Upload(context.Background(), UploadRequest{Filename: "a.txt", Content: []byte("x")}); err == nil {
		t.Fatal("Upload error = nil, want error")
	}
	if !store.sessions[0].rolledBack {
		t.Error("session not rolled back")
	}
	if store.sessions[0].committed {
		t.Error("session committed after create failure")
	}
}

func TestUpload_BeginFailure(t *testing.T) {
	store := newMemStore()
	store.beginErr = errors.New("too many connections")
	st := newFakeStorage()
	svc := newTestService(store, st)

	if _, err := svc.Upload(context.Background(), UploadRequest{Filename: "a.txt", Content: []byte("x")}); err == nil {
		t.Fatal("Upload error = nil, want error")
	}
	if len(st.deletes) != 1 {
		t.Errorf("deletes = %v, want 1", st.deletes)
	}
}

func TestUpload_StorageFailure(t *testing.T) {
	store := newMemStore()
	st := newFakeStorage()
	st.putErr = storage.ErrCredentials
	svc := newTestService(store, st)

	_, err := svc.Upload(context.Background(), UploadRequest{Filename: "a.txt", Content: []byte("x")})
	if !errors.Is(err, storage.ErrUploadFailed) {
		t.Fatalf("error = %v, want ErrUploadFailed", err)
	}
	if len(store.sessions) != 0 {
		t.Errorf("sessions opened = %d, want 0", len(store.sessions))
	}
	if len(store.committed()) != 0 {
		t.Error("row recorded despite storage failure")
	}
}

func TestUpload_MissingFile(t *testing.T) {
	svc := newTestService(newMemStore(), newFakeStorage())

	if _, err := svc.Upload(context.Background(), UploadRequest{}); !errors.Is(err, ErrMissingFile) {
		t.Errorf("error = %v, want ErrMissingFile", err)
	}
}

func TestUpload_NoSessionFactory(t *testing.T) {
	svc := NewFileService()
	if _, err := svc.Upload(context.Background(), UploadRequest{Filename: "a.txt"}); err == nil {
		t.Error("Upload error = nil, want error")
	}
}

func TestListFiles(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newFakeStorage())
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		if _, err := svc.Upload(context.Background(), UploadRequest{Filename: name, ContentType: "text/plain"}); err != nil {
			t.Fatalf("Upload error: %v", err)
		}
	}

	first, err := svc.ListFiles(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("ListFiles error: %v", err)
	}
	second, err := svc.ListFiles(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("ListFiles error: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("page sizes = %d, %d", len(first), len(second))
	}
	for _, a := range first {
		for _, b := range second {
			if a.ID == b.ID {
				t.Errorf("record %d on both pages", a.ID)
			}
		}
	}

	if _, err := svc.ListFiles(context.Background(), -1, 0); err == nil {
		t.Error("negative limit accepted")
	}
	if _, err := svc.ListFiles(context.Background(), 1, -1); err == nil {
		t.Error("negative offset accepted")
	}
}

func TestFilterFiles(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newFakeStorage())
	uploads := []UploadRequest{
		{Filename: "a.txt", ContentType: "text/plain"},
		{Filename: "a.txt", ContentType: "application/octet-stream"},
		{Filename: "b.txt", ContentType: "text/plain"},
	}
	for _, u := range uploads {
		if _, err := svc.Upload(context.Background(), u); err != nil {
			t.Fatalf("Upload error: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter repository.FileFilter
		want   int
	}{
		{"name", repository.FileFilter{Name: "a.txt"}, 2},
		{"type", repository.FileFilter{FileType: "text/plain"}, 2},
		{"both", repository.FileFilter{Name: "a.txt", FileType: "text/plain"}, 1},
		{"none", repository.FileFilter{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FilterFiles(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("FilterFiles error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("FilterFiles(%+v) = %d, want %d", tt.filter, len(got), tt.want)
			}
		})
	}
}
