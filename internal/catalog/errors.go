package catalog

import (
	"errors"
	"fmt"
)

// Failure modes every caller of the catalog can rely on. Handlers map
// these to HTTP statuses; nothing below the handler layer knows about
// status codes. Test sentinels with errors.Is, ValidationError with
// errors.As.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("duplicate effective title")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError reports malformed or out-of-range input. It is
// raised before any write, so a validation failure is never partially
// applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Wrap attaches a sentinel to a descriptive message so callers can
// still test with errors.Is while logs keep the context.
func Wrap(marker error, msg string) error {
	return fmt.Errorf("%s: %w", msg, marker)
}
