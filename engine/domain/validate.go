package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrMissingName      = errors.New("missing name")
	ErrMissingSource    = errors.New("missing source url")
	ErrMissingDate      = errors.New("missing date")
	ErrScheduledNoStart = errors.New("scheduled session without start time")
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// ValidationError wraps a sentinel with the offending field.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ValidateDraftEvent checks the invariants every emitted DraftEvent holds.
func ValidateDraftEvent(e DraftEvent) error {
	if strings.TrimSpace(e.Name) == "" {
		return NewValidationError("name", e.Name, ErrMissingName)
	}
	if e.SourceURL == "" {
		return NewValidationError("source_url", e.SourceURL, ErrMissingSource)
	}
	if e.StartDate == "" {
		return NewValidationError("start_date", e.Name, ErrMissingDate)
	}
	for _, s := range e.Sessions {
		if err := ValidateDraftSession(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDraftSession checks that a Scheduled session carries a start time.
func ValidateDraftSession(s DraftSession) error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("session.name", s.Name, ErrMissingName)
	}
	if s.Status == StatusScheduled && s.StartTime == "" {
		return NewValidationError("session."+s.Name+".start", "", ErrScheduledNoStart)
	}
	return nil
}

// Slugify lower-cases s and collapses every non-alphanumeric run to "_".
func Slugify(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
