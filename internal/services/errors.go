// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error kinds returned by services. Handlers map them to HTTP codes with
// errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUnavailable  = errors.New("service unavailable")
)

// FieldError carries per-field validation messages.
type FieldError struct {
	Fields map[string]string
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Fields: map[string]string{field: message}}
}

func (e *FieldError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

func (e *FieldError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *FieldError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// validationError returns a plain ErrValidation with a user-facing message.
func validationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

func notFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// notFoundOr maps gorm.ErrRecordNotFound to ErrNotFound and wraps others.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource)
	}
	return fmt.Errorf("failed to load %s: %w", resource, err)
}
