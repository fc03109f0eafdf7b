package models

import "time"

// UploadedFile represents the metadata of one uploaded file.
// The file bytes themselves live in object storage under FilePath.
type UploadedFile struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	FilePath    string    `json:"file_path"`
	FileSize    float64   `json:"file_size"` // megabytes
	FileType    string    `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Column limits of the uploaded_files table
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 500
	MaxFilePathLength    = 300
	MaxFileTypeLength    = 50
)

// BytesPerMegabyte converts byte counts to the megabyte unit stored in FileSize
const BytesPerMegabyte = 1024 * 1024

// SizeInMegabytes returns n bytes expressed in megabytes
func SizeInMegabytes(n int) float64 {
	return float64(n) / BytesPerMegabyte
}
