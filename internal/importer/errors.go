package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork wraps transport failures: connection refused, resets,
	// unreadable responses.
	ErrNetwork = errors.New("network failure")
	// ErrMalformedResponse is returned when the backend answers with a body
	// that cannot be classified as success, conflict or rejection.
	ErrMalformedResponse = errors.New("malformed backend response")
	// ErrRequestTimeout is returned when a single request exceeds the
	// per-request timeout of a batch run.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrResolutionCancelled is returned when the operator dismisses the
	// conflict prompt without choosing an action.
	ErrResolutionCancelled = errors.New("conflict resolution cancelled")
)

// RejectedError is a backend refusal carrying the backend's message.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Rejected builds a RejectedError from a backend message.
func Rejected(format string, args ...any) error {
	return &RejectedError{Message: fmt.Sprintf(format, args...)}
}

// IsRejected reports whether err is a backend rejection.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}
