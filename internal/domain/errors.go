package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for ids that no longer exist
var ErrNotFound = errors.New("event not found")

// ValidationError describes bad user input. It is shown inline next to the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SyncError is a recoverable failure talking to the backend
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSync reports whether err carries a SyncError
func IsSync(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
