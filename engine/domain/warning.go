package domain

import (
	"errors"
	"fmt"
)

// WarningKind groups warnings by the stage that raised them.
type WarningKind string

const (
	WarnFetch      WarningKind = "fetch"
	WarnSearch     WarningKind = "search"
	WarnExtraction WarningKind = "extraction"
	WarnTrust      WarningKind = "trust"
	WarnAssembly   WarningKind = "assembly"
)

// Severity of a warning.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Warning is a soft failure attached to the run output.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Severity  Severity    `json:"severity"`
	Field     string      `json:"field,omitempty"`
	Message   string      `json:"message"`
	SourceURL string      `json:"source_url,omitempty"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("[%s] %s", w.Severity, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Severity, w.Field, w.Message)
}

// WarningFromError converts a non-fatal error into a Warning of the matching kind.
func WarningFromError(field string, err error) Warning {
	w := Warning{Severity: SeverityWarning, Field: field, Message: err.Error()}
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		w.Kind = WarnFetch
		w.SourceURL = fe.URL
	case errors.Is(err, ErrSearchProvider):
		w.Kind = WarnSearch
	case errors.Is(err, ErrExtractionEmpty):
		w.Kind = WarnExtraction
		w.Severity = SeverityInfo
	default:
		w.Kind = WarnFetch
	}
	return w
}
