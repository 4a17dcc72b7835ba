// internal/server/image_handler.go
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidFileType = errors.New("invalid file type")

const maxUploadSize = 5 << 20 // 5 MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// handleImageUpload stores an uploaded image under the data directory and
// returns its public URL. Files are named by content hash so re-uploading
// the same image is idempotent.
func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !s.csrf.Validate(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("File too large (max %d MB)", maxUploadSize/(1<<20)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}
	defer file.Close()

	if err := validateImage(file, header); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to process image")
		return
	}

	filename, err := s.saveImage(file, header)
	if err != nil {
		s.logger.Printf("Error saving uploaded image %s: %v", header.Filename, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{
		"filename": filename,
		"url":      "/static/images/" + filename,
	})
}

func validateImage(file multipart.File, header *multipart.FileHeader) error {
	if header.Size > maxUploadSize {
		return fmt.Errorf("file too large (max %d MB)", maxUploadSize/(1<<20))
	}
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for content type detection: %w", err)
	}
	if !allowedImageTypes[http.DetectContentType(buffer[:n])] {
		return ErrInvalidFileType
	}
	return nil
}

func (s *Server) saveImage(file multipart.File, header *multipart.FileHeader) (string, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("error reading file: %w", err)
	}

	hash := sha256.Sum256(content)
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".png"
	}
	filename := hex.EncodeToString(hash[:16]) + ext

	dir := filepath.Join(s.config.DataPath, "static", "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating image directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("error writing file to %s: %w", path, err)
	}

	if !s.config.ProductionMode {
		s.logger.Printf("Saved image %s to %s", header.Filename, path)
	}
	return filename, nil
}
