package fetcher

import (
	"errors"
	"fmt"

	"github.com/dylan-130/FPLscraper/pkg/backoff"
)

// Common errors returned by the fetcher.
var (
	// ErrRetryExhausted is returned when every fetch attempt for a page failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Class categorizes a failed fetch attempt.
type Class string

const (
	// ClassRateLimit represents HTTP 429 responses.
	ClassRateLimit Class = "rate_limit"

	// ClassServer represents 5xx responses.
	ClassServer Class = "server"

	// ClassClient represents non-429 4xx responses.
	ClassClient Class = "client"

	// ClassNetwork represents connection-level failures: transport errors,
	// per-request timeouts, and 2xx bodies that are not JSON at all.
	ClassNetwork Class = "network"

	// ClassMalformed represents 2xx JSON bodies without standings.results.
	ClassMalformed Class = "malformed"
)

// FetchError describes one failed fetch attempt for a page.
type FetchError struct {
	Page       int
	StatusCode int
	Class      Class
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page %d: %s error (status %d): %v",
			e.Page, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("page %d: %s error (status %d)",
		e.Page, e.Class, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// shouldRetry determines whether a failure class is worth another attempt.
func shouldRetry(class Class) bool {
	switch class {
	case ClassRateLimit:
		// Throttled, the page itself is fine
		return true
	case ClassServer:
		return true
	case ClassClient:
		// Unexpected 4xx here is middleware trouble, not a bad request
		// (missing pages answer 200 with an error body)
		return true
	case ClassNetwork:
		return true
	case ClassMalformed:
		// The page does not exist; retrying cannot change the body
		return false
	default:
		return false
	}
}

// backoffKind maps a failure class onto its delay schedule.
func backoffKind(class Class) backoff.Kind {
	switch class {
	case ClassRateLimit:
		return backoff.KindRateLimit
	case ClassServer, ClassClient:
		return backoff.KindServer
	default:
		return backoff.KindGeneric
	}
}
