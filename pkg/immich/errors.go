package immich

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is an error response from the Immich API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("immich: API error %d: %s", e.Status, e.Message)
}

func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Status: resp.StatusCode, Message: string(body)}
}

// IsAuthError reports whether err is an authentication or authorization
// failure. These are fatal: the whole run aborts rather than retrying.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a 404. The Verifier treats a missing
// loser as deleted.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}
