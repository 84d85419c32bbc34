// Package trove implements the client for the Trove storage API.
//
// This file defines sentinel errors and error wrappers for classifying
// storage failures. These enable callers to use errors.Is/errors.As
// for typed assertions rather than string matching.
package trove

import (
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for storage failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrInvalid indicates the service rejected the request body (400, 422).
	ErrInvalid = errors.New("invalid request")

	// ErrAuth indicates authentication failure (401).
	ErrAuth = errors.New("authentication failed")

	// ErrAccessDenied indicates authorization failure (403).
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates the target record does not exist (404).
	ErrNotFound = errors.New("record not found")

	// ErrThrottled indicates rate limiting (429).
	ErrThrottled = errors.New("rate limited")

	// ErrServer indicates a service-side failure (5xx).
	ErrServer = errors.New("storage service error")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNetwork indicates a transport-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")
)

// StorageError wraps an underlying error with storage classification.
// It preserves the original error in the chain for inspection via errors.As.
type StorageError struct {
	// Kind is the sentinel error for classification (e.g., ErrThrottled).
	Kind error
	// Op is the operation that failed: "create", "update", or "lookup".
	Op string
	// RecordID is the record involved, if any.
	RecordID string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.RecordID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// StatusError is returned for non-2xx HTTP responses. Carrying the code
// lets callers distinguish retriable (5xx) from non-retriable (4xx)
// failures without string matching.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// wrapError classifies and wraps an operation error.
// Returns nil if err is nil.
func wrapError(op, recordID string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{
		Kind:     classify(err),
		Op:       op,
		RecordID: recordID,
		Err:      err,
	}
}

// classify determines the appropriate sentinel for the given error.
// HTTP responses classify by status code; transport errors by type.
func classify(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == 400 || statusErr.Code == 422:
			return ErrInvalid
		case statusErr.Code == 401:
			return ErrAuth
		case statusErr.Code == 403:
			return ErrAccessDenied
		case statusErr.Code == 404:
			return ErrNotFound
		case statusErr.Code == 429:
			return ErrThrottled
		case statusErr.Code >= 500:
			return ErrServer
		default:
			return ErrInvalid
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	return ErrNetwork
}
