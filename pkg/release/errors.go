package release

import (
	"errors"
	"fmt"
	"time"
)

// Common discovery errors with structured information for handling

var (
	// ErrNoRelease indicates the repository has no published release.
	ErrNoRelease = errors.New("no release found")

	// ErrQueryFailed indicates discovery failed after exhausting retries.
	ErrQueryFailed = errors.New("release query failed")
)

// RateLimitError indicates the GitHub API rate limit was hit. It is kept
// distinct from ErrNoRelease so callers can tell "try again later" apart
// from "this repository has no releases".
type RateLimitError struct {
	// RetryAfter is when the rate limit resets (if provided by the API).
	// GitHub provides the X-RateLimit-Reset header with a Unix timestamp.
	RetryAfter time.Time

	// Limit is the rate limit that was exceeded (requests per hour)
	Limit int

	// Remaining is how many requests are left (should be 0 when this error occurs)
	Remaining int

	// Message is a human-readable explanation
	Message string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter.IsZero() {
		return fmt.Sprintf("github rate limit exceeded (%d/%d): %s", e.Remaining, e.Limit, e.Message)
	}

	wait := time.Until(e.RetryAfter)
	if wait < 0 {
		wait = 0
	}

	return fmt.Sprintf("github rate limit exceeded (%d/%d), retry after %v: %s",
		e.Remaining, e.Limit, wait.Round(time.Minute), e.Message)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// NetworkError indicates a network/transport error during discovery
type NetworkError struct {
	URL     string // URL that failed
	Wrapped error  // Underlying error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Wrapped)
}

func (e *NetworkError) Unwrap() error {
	return e.Wrapped
}

// ParseError indicates a response parsing/decoding error
type ParseError struct {
	Message string // What failed to parse
	Wrapped error  // Underlying error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Message, e.Wrapped)
}

func (e *ParseError) Unwrap() error {
	return e.Wrapped
}

// Retriable reports whether an error is worth another attempt: transient
// network failures and rate limits qualify, missing releases do not.
func Retriable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	return IsRateLimitError(err)
}
