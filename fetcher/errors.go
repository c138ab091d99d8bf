package fetcher

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatusCode indicates an HTTP response with status >= 400.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

type Kind int

const (
	// Transport covers DNS, timeouts, refused connections, malformed URLs and
	// any error status other than 404.
	Transport Kind = iota
	NotFound
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	default:
		return "transport"
	}
}

type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a fetch error. Errors that did not come from a
// Fetcher are reported as Transport.
func KindOf(err error) Kind {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return Transport
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == NotFound
}
