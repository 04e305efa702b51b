package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable is returned when a read or write against the store fails.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMisconfiguredEndpoint is returned when no inference backend address is configured.
	ErrMisconfiguredEndpoint = errors.New("inference endpoint not configured")
	// ErrUpstreamUnavailable is returned when the inference backend cannot be reached in time.
	ErrUpstreamUnavailable = errors.New("inference backend unavailable")
	// ErrUpstreamRejected matches any *UpstreamRejectedError.
	ErrUpstreamRejected = errors.New("inference backend rejected request")
	// ErrSessionNotFoundOrEmpty is returned by history reads when a session has no messages,
	// whether or not the session exists.
	ErrSessionNotFoundOrEmpty = errors.New("session not found or empty")
	// ErrInvalidRequest is returned when a chat request carries no model or no messages.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRequestBlocked is returned when the admission policy blocks a chat request.
	ErrRequestBlocked = errors.New("request blocked by policy")
	// ErrRequestCanceled is returned when the caller gives up while the request waits its turn.
	ErrRequestCanceled = errors.New("request canceled")
	// ErrSweepInProgress is returned when a sweep is requested while another one is running.
	ErrSweepInProgress = errors.New("retention sweep already running")
)

// UpstreamRejectedError carries the status and body of a non-success backend reply.
type UpstreamRejectedError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamRejectedError) Error() string {
	return fmt.Sprintf("inference backend error [%d]: %s", e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUpstreamRejected) hold for any rejection.
func (e *UpstreamRejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}
