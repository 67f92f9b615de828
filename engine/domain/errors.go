package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Only ErrConfiguration aborts a run; everything else is
// converted into a Warning where it happens.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrResourceExhausted = errors.New("render sessions exhausted")
	ErrFetch             = errors.New("fetch failed")
	ErrSearchProvider    = errors.New("search provider failed")
	ErrExtractionEmpty   = errors.New("no usable structure on page")
)

// ConfigurationError reports a disabled or misconfigured component.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(component, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Reason: reason}
}

// FetchError wraps the last cause of a failed page fetch.
type FetchError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Cause} }

// SearchProviderError wraps a failed search backend call.
type SearchProviderError struct {
	Provider string
	Query    string
	Cause    error
}

func (e *SearchProviderError) Error() string {
	return fmt.Sprintf("search %s %q: %v", e.Provider, e.Query, e.Cause)
}

func (e *SearchProviderError) Unwrap() []error { return []error{ErrSearchProvider, e.Cause} }

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
