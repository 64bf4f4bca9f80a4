package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"

	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/utils"
)

// Image folders in the bucket
const (
	ProductPhotoFolder = "products"
	DriverCarFolder    = "driver_cars"
	ClientHouseFolder  = "client_houses"
)

// ImageService handles all image-related operations including upload, retrieval, and deletion
type ImageService interface {
	// UploadImage validates and uploads an image file, returns the storage key
	UploadImage(ctx context.Context, folder string, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

// NewImageService creates an image service on top of an S3 backend
func NewImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

// UploadImage sniffs and size-checks the upload and stores it under
// folder/<uuid><ext>
func (s *S3ImageService) UploadImage(ctx context.Context, folder string, fileHeader *multipart.FileHeader) (string, error) {
	img, err := utils.ReadImageFile(fileHeader)
	if err != nil {
		return "", err
	}

	key := path.Join(folder, uuid.NewString()+img.Extension)
	if _, err := s.s3Service.UploadFile(ctx, key, img.Content, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// imageURL resolves an optional key to an optional URL. Reads never fail
// because of storage.
func imageURL(ctx context.Context, images ImageService, key *string) *string {
	if images == nil || key == nil || *key == "" {
		return nil
	}
	url, err := images.GetImageURL(ctx, *key)
	if err != nil || url == "" {
		return nil
	}
	return &url
}

// replaceImage uploads a new image, hands its key to store, and then deletes
// the previous image. The new upload is removed again if store fails.
func replaceImage(ctx context.Context, images ImageService, folder string, fileHeader *multipart.FileHeader, previous *string, store func(key *string) error) (string, error) {
	if images == nil {
		return "", invalid("STORAGE_DISABLED", "image storage is not configured")
	}
	key, err := images.UploadImage(ctx, folder, fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return "", invalid(uploadErr.Code, "%s", uploadErr.Message)
		}
		return "", remote("upload image", err)
	}
	if err := store(&key); err != nil {
		_ = images.DeleteImage(ctx, key)
		return "", err
	}
	if previous != nil && *previous != "" && *previous != key {
		_ = images.DeleteImage(ctx, *previous)
	}
	return key, nil
}

// removeImage clears the stored key and then deletes the object
func removeImage(ctx context.Context, images ImageService, previous *string, store func(key *string) error) error {
	if err := store(nil); err != nil {
		return err
	}
	if images != nil && previous != nil && *previous != "" {
		if err := images.DeleteImage(ctx, *previous); err != nil {
			return remote("delete image", err)
		}
	}
	return nil
}
