package ticktick

import (
	"errors"
	"fmt"
)

// ErrNoToken is returned by NewClient when no access token was supplied and
// none could be loaded.
var ErrNoToken = errors.New("no TickTick access token found. Run 'tickmcp auth' or set TICKMCP_ACCESS_TOKEN")

// APIError is the single error kind returned for failed API requests.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(format string, args ...interface{}) *APIError {
	return &APIError{Message: fmt.Sprintf(format, args...)}
}

// IsAPIError reports whether err is, or wraps, an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
