package backoffice

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed API call.
type ErrorKind string

const (
	// KindTransport is a network-level failure; no response was received.
	KindTransport ErrorKind = "transport"
	// KindStatus is a response with a non-success HTTP status.
	KindStatus ErrorKind = "status"
	// KindDecode is a response body that could not be decoded.
	KindDecode ErrorKind = "decode"
)

// ErrMissingAPIKey is returned when a request is attempted without a key.
var ErrMissingAPIKey = errors.New("backoffice: missing API key")

// Error describes a failed API call.
type Error struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Body != "" {
			return fmt.Sprintf("%s: API error (status %d): %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: API error (status %d)", e.Op, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s: decoding response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of a KindStatus error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindStatus {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the API rejected the key.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == 401 || code == 403
}
