package catalog

import (
	"errors"
	"fmt"
)

// ErrThrottled is returned when the catalog answers 429 Too Many Requests
var ErrThrottled = errors.New("catalog throttled the request")

// StatusError reports a non-throttling HTTP failure. These are not retried.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned status %d for %s", e.StatusCode, e.URL)
}
