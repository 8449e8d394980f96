package transport

import (
	"errors"
	"fmt"
)

// ErrAuthMissing signals a programming-contract violation: a remote call was
// attempted without an auth token. Never retried.
var ErrAuthMissing = errors.New("auth token is required")

// TimeoutError reports that the hard request deadline elapsed. Distinct from
// a transport failure so callers can message it as "request timed out".
type TimeoutError struct {
	URL string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %s", e.URL)
}

// TransientError is a retryable remote failure (rate-limited, overloaded or
// an overwhelmed-body marker) that survived all retry attempts
type TransientError struct {
	StatusCode int
	Body       string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("remote service overloaded (status %d)", e.StatusCode)
}

// HTTPError is a non-retryable failure response from the remote service
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote request failed with status %d: %s", e.StatusCode, e.Body)
}

// IsTimeout reports whether err is (or wraps) a request timeout
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsTransient reports whether err is (or wraps) a transient-retryable failure
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
