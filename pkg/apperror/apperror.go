// Package apperror holds the error kinds shared by every service. Domain
// packages wrap these sentinels so callers can branch with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation_error")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrForbidden         = errors.New("forbidden")
	ErrNumberConflict    = errors.New("number_conflict")
	ErrNotFound          = errors.New("not_found")
)

// ValidationError names the offending field and why it was rejected.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFound wraps ErrNotFound with a domain-specific message, e.g.
// NotFound("invoice_not_found").
func NotFound(code string) error {
	return &kindError{kind: ErrNotFound, code: code}
}

// NumberConflict wraps ErrNumberConflict for numbering failures that a
// retry cannot fix, such as a month running out of sequence numbers.
func NumberConflict(code string) error {
	return &kindError{kind: ErrNumberConflict, code: code}
}

// Forbidden wraps ErrForbidden with a domain-specific message.
func Forbidden(code string) error {
	return &kindError{kind: ErrForbidden, code: code}
}

type kindError struct {
	kind error
	code string
}

func (e *kindError) Error() string { return e.code }

func (e *kindError) Unwrap() error { return e.kind }
