package openboxes

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthenticated is returned when the upstream session is missing or expired.
var ErrUnauthenticated = errors.New("openboxes: not authenticated")

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("openboxes: not found")

// ErrMalformedResponse is returned when a 2xx reply lacks the expected page.
var ErrMalformedResponse = errors.New("openboxes: malformed response")

// APIError carries a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openboxes: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("openboxes: %s %s: %d", e.Method, e.Path, e.Status)
}

// Unwrap maps well-known statuses onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}
