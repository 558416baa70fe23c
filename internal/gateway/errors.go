package gateway

import "fmt"

// ErrorKind classifies a gateway failure for caller recovery decisions.
type ErrorKind int

const (
	// KindUnauthenticated means no usable credential: either no session was
	// held, or the backend refused the token (401/403).
	KindUnauthenticated ErrorKind = iota

	// KindRejected means the backend explicitly rejected the request as
	// invalid (a 4xx validation failure, e.g. a bad image).
	KindRejected

	// KindUnreachable means the backend could not be reached or failed
	// internally (network error or 5xx).
	KindUnreachable
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRejected:
		return "rejected"
	case KindUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// Error is the uniform failure type surfaced by the gateway. Detail carries
// the backend's machine-readable message when one was present; Message
// always yields user-facing text, never an empty string.
type Error struct {
	Kind       ErrorKind
	StatusCode int // 0 when the failure happened before a response arrived
	Detail     string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gateway %s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("gateway %s: request failed", e.Kind)
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-facing error text: the backend detail when
// present, otherwise a generic message. Errors are never swallowed silently.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Kind == KindUnauthenticated {
		return "authentication required"
	}
	return "request failed"
}
