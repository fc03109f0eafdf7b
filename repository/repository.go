// Package repository is the PostgreSQL data access layer.
// All queries are plain SQL through pgx.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"upload-service/models"
)

// DBTX is implemented by both *pgxpool.Pool and pgx.Tx, so repositories
// work inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Files is the set of operations over uploaded file records
type Files interface {
	Create(ctx context.Context, params CreateFileParams) (*models.UploadedFile, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.UploadedFile, error)
	Filter(ctx context.Context, filter FileFilter) ([]*models.UploadedFile, error)
}

// Session is one unit of work. Writes through Files() become visible on Commit.
type Session interface {
	Files() Files
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SessionFactory opens sessions
type SessionFactory interface {
	Begin(ctx context.Context) (Session, error)
}

// PgSessionFactory opens sessions as pgx transactions on a pool
type PgSessionFactory struct {
	pool *pgxpool.Pool
}

// NewPgSessionFactory creates a session factory over the pool
func NewPgSessionFactory(pool *pgxpool.Pool) *PgSessionFactory {
	return &PgSessionFactory{pool: pool}
}

// Begin starts a transaction
func (f *PgSessionFactory) Begin(ctx context.Context) (Session, error) {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return NewTxSession(tx), nil
}

// TxSession binds a FileRepository to one pgx transaction
type TxSession struct {
	tx    pgx.Tx
	files *FileRepository
}

// NewTxSession wraps an open transaction
func NewTxSession(tx pgx.Tx) *TxSession {
	return &TxSession{tx: tx, files: NewFileRepository(tx)}
}

// Files returns the repository bound to the transaction
func (s *TxSession) Files() Files {
	return s.files
}

// Commit commits the transaction
func (s *TxSession) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

// Rollback rolls the transaction back. Rolling back a finished transaction is a no-op.
func (s *TxSession) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
