package utils

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MaxFileSize is 5MB in bytes
	MaxFileSize = 5 * 1024 * 1024
)

// AllowedImageTypes maps accepted image MIME types to the extension used in storage keys
var AllowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ImageFile is a validated upload held in memory
type ImageFile struct {
	Content     []byte
	ContentType string
	Extension   string
}

// ValidateImageFile checks the declared size of the upload
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return &FileUploadError{Code: "NO_FILE", Message: "No file was uploaded"}
	}
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	if fileHeader.Size == 0 {
		return &FileUploadError{Code: "EMPTY_FILE", Message: "Uploaded file is empty"}
	}
	return nil
}

// ReadImageFile validates the upload and sniffs its content. The file
// extension is ignored; only the bytes decide whether it is an image.
func ReadImageFile(fileHeader *multipart.FileHeader) (*ImageFile, error) {
	if err := ValidateImageFile(fileHeader); err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return DetectImage(content)
}

// DetectImage sniffs content and accepts only the allowed image types
func DetectImage(content []byte) (*ImageFile, error) {
	if len(content) > MaxFileSize {
		return nil, &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	detected := mimetype.Detect(content)
	for mime, ext := range AllowedImageTypes {
		if detected.Is(mime) {
			return &ImageFile{Content: content, ContentType: mime, Extension: ext}, nil
		}
	}
	return nil, &FileUploadError{
		Code:    "INVALID_FILE_FORMAT",
		Message: fmt.Sprintf("Only PNG, JPEG, WebP and GIF images are allowed, got %s", detected.String()),
	}
}

// Reader returns the image content as a seekable reader
func (f *ImageFile) Reader() *bytes.Reader {
	return bytes.NewReader(f.Content)
}
