package pansou

import (
	"errors"
	"fmt"
)

// ErrNoToken indicates that no valid bearer token could be obtained for a
// search request.
var ErrNoToken = errors.New("unable to obtain a valid token")

// ErrMalformedResult indicates that the search service answered success but
// the payload is missing the grouped result data.
var ErrMalformedResult = errors.New("malformed search result payload")

// AuthError describes a failed login or token verification.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StatusError is returned when the search endpoint answers with a non-200
// HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search request failed with status %d", e.StatusCode)
}

// APIError is returned when the search endpoint answers 200 but the
// application envelope carries a non-zero code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search api error (code %d): %s", e.Code, e.Message)
}
