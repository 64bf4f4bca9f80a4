package controllers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

// ImageFormField is the multipart field carrying uploaded images
const ImageFormField = "image"

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		conflictErr   *services.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, validationErr.Code, validationErr.Message, nil)
	case errors.As(err, &notFoundErr):
		respondError(c, http.StatusNotFound, notFoundErr.Code, notFoundErr.Message, nil)
	case errors.As(err, &conflictErr):
		respondError(c, http.StatusConflict, conflictErr.Code, conflictErr.Message, nil)
	default:
		_ = c.Error(err)
		slog.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong, please try again", nil)
	}
}

// bindJSON decodes the request body, answering 400 on failure
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return false
	}
	return true
}

// uuidParam parses a path parameter, answering 400 on failure
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", name+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional query parameter
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", name+" must be a UUID", nil)
		return nil, false
	}
	return &id, true
}

// formImage returns the uploaded image file header
func formImage(c *gin.Context) (*multipart.FileHeader, bool) {
	fileHeader, err := c.FormFile(ImageFormField)
	if err != nil {
		respondError(c, http.StatusBadRequest, "NO_FILE", "No file was uploaded. Use form field '"+ImageFormField+"'", nil)
		return nil, false
	}
	return fileHeader, true
}
