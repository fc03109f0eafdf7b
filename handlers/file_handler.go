package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"upload-service/repository"
	"upload-service/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 100
	uploadFormField  = "file"
)

// FileHandler handles HTTP requests for file operations
type FileHandler struct {
	files *service.FileService
}

// NewFileHandler creates a new file handler
func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// UploadFile handles POST /upload-file
func (h *FileHandler) UploadFile(c *gin.Context) {
	req, err := readUpload(c)
	if err != nil {
		uploadFailed(c, err)
		return
	}

	if _, err := h.files.Upload(c.Request.Context(), req); err != nil {
		uploadFailed(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "File uploaded and record created successfully",
	})
}

// ListFiles handles GET /files?limit=&offset=
func (h *FileHandler) ListFiles(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	files, err := h.files.ListFiles(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("Failed to list files: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// SearchFiles handles GET /files/search?name=&file_type=
func (h *FileHandler) SearchFiles(c *gin.Context) {
	files, err := h.files.FilterFiles(c.Request.Context(), repository.FileFilter{
		Name:     c.Query("name"),
		FileType: c.Query("file_type"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("Failed to list files: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// readUpload reads the whole file part along with its filename and declared content type
func readUpload(c *gin.Context) (service.UploadRequest, error) {
	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return service.UploadRequest{}, service.ErrMissingFile
		}
		return service.UploadRequest{}, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return service.UploadRequest{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return service.UploadRequest{}, err
	}

	return service.UploadRequest{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func uploadFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"detail": fmt.Sprintf("Failed to upload file: %v", err),
	})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
