package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ValidationError is returned when input is rejected before any mutation
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError is returned when a referenced record does not exist
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError signals a lost race or a state that no longer allows the
// operation. Callers may retry after re-reading.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// RemoteOperationError wraps a failure of the database or another backend
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

func invalid(code, format string, args ...interface{}) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFound(code, format string, args ...interface{}) error {
	return &NotFoundError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func conflict(code, format string, args ...interface{}) error {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// remote wraps err unless it already belongs to the taxonomy
func remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ne *NotFoundError
		ce *ConflictError
		re *RemoteOperationError
	)
	if errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &ce) || errors.As(err, &re) {
		return err
	}
	return &RemoteOperationError{Op: op, Err: err}
}

// IsRecordNotFound reports whether err is gorm's not-found error
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation detects duplicate key errors from PostgreSQL and SQLite
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// validate is shared by every service input struct
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput converts validator failures into a ValidationError
func validateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return invalid("VALIDATION_ERROR", "%s failed on the '%s' rule", fe.Namespace(), fe.Tag())
		}
		return invalid("VALIDATION_ERROR", "%v", err)
	}
	return nil
}

func isConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
