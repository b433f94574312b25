package services

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound means no record exists with the requested identifier.
	ErrNotFound = errors.New("record not found")
	// ErrUnauthorized means a mutating operation was attempted without an identity.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means the caller is authenticated but does not own the record.
	ErrForbidden = errors.New("only the author may modify this record")
	// ErrConflict means a unique value such as a username is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials is returned by Authenticate for any username/password mismatch.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every rejected field of one request.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func invalidField(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
