package fetch

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for remote fetches.
//
// Callers use the category to decide between "the document is bad" and
// "the network is bad" without inspecting transport errors.
type ErrorCategory string

const (
	// ErrorTimeout indicates the remote host did not answer in time
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorNotFound indicates the document does not exist (404/410)
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorBadData indicates an unusable URI, status or body
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorOutage indicates the remote host is unreachable or failing (5xx)
	ErrorOutage ErrorCategory = "outage"

	// ErrorTooLarge indicates the body exceeded the configured size bound
	ErrorTooLarge ErrorCategory = "too_large"

	// ErrorRateLimited indicates the remote host asked us to back off (429)
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorCancelled indicates the caller cancelled the fetch
	ErrorCancelled ErrorCategory = "cancelled"

	// ErrorInternal indicates an unexpected local failure
	ErrorInternal ErrorCategory = "internal"
)

// FetchError wraps fetch failures with a normalized category.
type FetchError struct {
	Category   ErrorCategory
	URI        string
	Message    string
	Underlying error
	Retryable  bool // set from Category (timeout, outage, rate-limited)
}

func (e *FetchError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("fetch %s [%s]: %s: %v", e.URI, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("fetch %s [%s]: %s", e.URI, e.Category, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Underlying
}

// NewFetchError creates a fetch error with automatic retry classification.
func NewFetchError(category ErrorCategory, uri, message string, underlying error) *FetchError {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &FetchError{
		Category:   category,
		URI:        uri,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether err is a transient fetch failure.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// GetCategory extracts the fetch category from err, ErrorInternal if err is not a FetchError.
func GetCategory(err error) ErrorCategory {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ErrorInternal
}
