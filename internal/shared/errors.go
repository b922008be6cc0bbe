package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Remote service errors
	ErrTransport          = fmt.Errorf("transport failure")
	ErrHTTPStatus         = fmt.Errorf("unexpected HTTP status")
	ErrProtocol           = fmt.Errorf("protocol violation")
	ErrDecode             = fmt.Errorf("response decode failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// TransportError reports a network-level failure (connection refused, timeout, DNS, truncated body).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// HTTPError reports a non-success status that the client does not handle itself.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string // leading bytes of the response body, for diagnostics
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.URL, e.StatusCode)
}

func (e *HTTPError) Is(target error) bool { return target == ErrHTTPStatus }

// ProtocolError reports a server that broke its documented contract, e.g. a 429 without a usable Retry-After.
type ProtocolError struct {
	URL    string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Reason)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// DecodeError reports a response whose shape or field types violate the expected schema.
type DecodeError struct {
	Source string // service or endpoint being decoded
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("decode %s: %s: %v", e.Source, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("decode %s: %s", e.Source, e.Reason)
	}
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// StatusCode extracts the HTTP status from err, returning 0 when err is not an [HTTPError].
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
