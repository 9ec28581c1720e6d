package repository

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStoreUnavailable is returned by a store that has no reachable or configured backend.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
	// ErrOutOfOrder is returned when an append is older than the current latest snapshot.
	ErrOutOfOrder = errors.New("snapshot is older than the latest stored snapshot")
	// ErrRateLimited marks responses that look like throttling or a login wall.
	ErrRateLimited = errors.New("likely rate-limited")
	// ErrThrottled is returned when the local pacing limiter refuses an outbound fetch.
	ErrThrottled = errors.New("fetch skipped: minimum interval between fetches not elapsed")
	// ErrCircuitOpen is returned while the fetch circuit breaker is open.
	ErrCircuitOpen = errors.New("fetch skipped: circuit breaker open")
)

// FetchError describes a non-successful response from the profile page.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.RateLimited() {
		return fmt.Sprintf("HTTP status %d (likely rate-limited)", e.StatusCode)
	}
	if e.StatusCode == 0 && e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("HTTP status %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether the status code indicates throttling or a login wall.
func (e *FetchError) RateLimited() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return errors.Is(e.Err, ErrRateLimited)
}
