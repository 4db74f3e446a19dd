package marketplace

import (
	"errors"
	"fmt"
)

// ErrPollAttemptsExhausted is returned when a process did not finish within the polling budget
var ErrPollAttemptsExhausted = errors.New("process status polling attempts exhausted")

// APIError is returned for every non-2xx response of the retailer API
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// AuthError is returned when no access token could be obtained
type AuthError struct {
	Err error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("marketplace authentication failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
