package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for session resolution.
var (
	// ErrSessionNotFound is returned when continuing or finalizing an
	// unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCompleted is returned when a session has already been
	// finalized. Finalization happens at most once.
	ErrSessionCompleted = errors.New("session already completed")
)

// ValidationError reports an input rejected before any network call.
// No partial state is created when a ValidationError is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
