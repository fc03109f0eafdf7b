package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"upload-service/models"
)

const fileColumns = `id, name, description, file_path, file_size, file_type, created_at`

// FileRepository handles database operations for uploaded files
type FileRepository struct {
	db DBTX
}

// NewFileRepository creates a new file repository bound to db
func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

// CreateFileParams holds the attributes of a new uploaded file record
type CreateFileParams struct {
	Name        string
	Description *string
	FilePath    string
	FileSize    float64 // megabytes
	FileType    string
}

// FileFilter selects records by exact match. Empty fields are not applied.
type FileFilter struct {
	Name     string
	FileType string
}

// Create inserts a new file record stamped with the current UTC time.
// On a transaction-bound repository the row stays uncommitted.
func (r *FileRepository) Create(ctx context.Context, params CreateFileParams) (*models.UploadedFile, error) {
	file := &models.UploadedFile{
		Name:        params.Name,
		Description: params.Description,
		FilePath:    params.FilePath,
		FileSize:    params.FileSize,
		FileType:    params.FileType,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO uploaded_files (
			name, description, file_path, file_size, file_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(
		ctx, query,
		file.Name,
		file.Description,
		file.FilePath,
		file.FileSize,
		file.FileType,
		file.CreatedAt,
	).Scan(&file.ID)
	if err != nil {
		return nil, err
	}

	return file, nil
}

// ListAll retrieves records in insertion order with limit/offset pagination
func (r *FileRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.UploadedFile, error) {
	query := `SELECT ` + fileColumns + `
		FROM uploaded_files
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanFiles(rows)
}

// Filter retrieves records matching every non-empty criterion
func (r *FileRepository) Filter(ctx context.Context, filter FileFilter) ([]*models.UploadedFile, error) {
	where, args := buildFilterWhere(filter, 1)

	query := `SELECT ` + fileColumns + ` FROM uploaded_files`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanFiles(rows)
}

// buildFilterWhere builds an AND-joined WHERE clause (without the keyword)
// with placeholders numbered from startArg.
func buildFilterWhere(filter FileFilter, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argN := startArg

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name = $%d", argN))
		args = append(args, filter.Name)
		argN++
	}
	if filter.FileType != "" {
		conditions = append(conditions, fmt.Sprintf("file_type = $%d", argN))
		args = append(args, filter.FileType)
	}

	return strings.Join(conditions, " AND "), args
}

func scanFiles(rows pgx.Rows) ([]*models.UploadedFile, error) {
	defer rows.Close()

	files := []*models.UploadedFile{}
	for rows.Next() {
		file := &models.UploadedFile{}
		err := rows.Scan(
			&file.ID,
			&file.Name,
			&file.Description,
			&file.FilePath,
			&file.FileSize,
			&file.FileType,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}
