package workast

import (
	"errors"
	"fmt"
)

// ErrMissingToken is returned before any upstream call when no API token is configured.
var ErrMissingToken = errors.New("WORKAST_API_TOKEN is not set")

// APIError is returned when the Workast API answers with a non-2xx status.
// Status and body are carried verbatim.
type APIError struct {
	// Method is the HTTP method of the failed request
	Method string

	// Path is the request path, without base URL or query
	Path string

	// StatusCode is the HTTP status returned by the API
	StatusCode int

	// Body is the raw response body
	Body string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("workast API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
