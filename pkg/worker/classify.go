package worker

import "strings"

// nonRetryableMarkers are error-text fragments that mean replaying the same
// message will fail the same way. Matching is case-insensitive.
var nonRetryableMarkers = []string{
	"timeout",
	"exceeded maximum duration",
	"deserialization",
	"invalid format",
	"bad request",
	"unauthorized",
	"forbidden",
	"not found",
	"conflict",
}

// RetryableError classifies an agent-reported error message. Unrecognized
// errors are retryable; the delivery-count ceiling caps how far that
// optimism goes.
func RetryableError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
