package generation

import (
	"errors"
	"fmt"
)

// ErrQuotaExhausted signals that the generation backend rejected the run for
// plan/credit reasons. Callers show the upgrade message and refresh the
// user's entitlement state instead of a generic error.
var ErrQuotaExhausted = errors.New("generation quota exhausted")

// FormatError reports a response that parsed as JSON but does not match the
// expected array or {ideas:[...]} shape. Always a hard failure: no retry, no
// partial acceptance.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected generation response format: %s", e.Reason)
}

// IsFormatError reports whether err is (or wraps) a format mismatch
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Substrings in an error body that identify quota/credit exhaustion
var quotaMarkers = []string{"quota", "credit"}
