package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the review services. Callers match them with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAccessDenied      = errors.New("access denied")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("review was modified concurrently")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failure")
)

// Sentinel errors for entity lookups.
var (
	ErrReviewNotFound = fmt.Errorf("review %w", ErrNotFound)
	ErrCaseNotFound   = fmt.Errorf("case %w", ErrNotFound)
	ErrChangeNotFound = fmt.Errorf("change log entry %w", ErrNotFound)
)

// ErrReviewClosed is returned when edits are recorded against a completed review.
var ErrReviewClosed = &ValidationError{Field: "review_id", Message: "review is completed and accepts no further edits"}

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ValidationError describes malformed input on a single field.
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

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ErrMissingField returns a validation error for a required field.
func ErrMissingField(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("exceeds maximum length of %d", maxLen)}
}

// TransitionError reports a target status the actor's role cannot reach from
// the review's current status. Allowed is what the role could have requested.
type TransitionError struct {
	From    ReviewStatus
	To      ReviewStatus
	Role    Role
	Allowed []ReviewStatus
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}

	return fmt.Sprintf("invalid transition: %s cannot move review from %s to %s (allowed: [%s])",
		e.Role, e.From, e.To, strings.Join(allowed, ", "))
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IsDomainError reports whether err is one of the typed review errors rather
// than an unexpected storage failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrUnauthorized, ErrAccessDenied, ErrNotFound, ErrInvalidTransition,
		ErrConflict, ErrValidation, ErrPersistence, ErrDuplicateKey,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
