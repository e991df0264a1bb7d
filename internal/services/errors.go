package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/freshweekly/internal/shared"
)

// maxErrorBody bounds how much of a failed response body an [APIError] keeps.
const maxErrorBody = 512

// APIError is a non-2xx response from the catalog API.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("spotify API error: %s %s: status %d", e.Method, e.Endpoint, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is maps the response status onto the shared sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.Status == http.StatusUnauthorized
	case shared.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case shared.ErrPlaylistNotFound:
		return e.Status == http.StatusNotFound
	case shared.ErrServiceUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// StatusCode extracts the HTTP status from err when it wraps an [APIError].
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}
