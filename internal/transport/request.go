// Package transport provides the HTTP transport abstraction layer
// used by every outbound call to the analysis backend.
package transport

import "time"

// Request represents an HTTP request to be sent by the transport client.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, etc.).
	Method string

	// URL is the absolute target URL.
	URL string

	// Headers contains custom HTTP headers to include.
	Headers map[string]string

	// Body is the raw request body. May be binary (multipart uploads).
	Body []byte

	// ContentType is the Content-Type header value. For multipart bodies
	// this carries the boundary and must come from the multipart writer,
	// never from a caller-chosen constant.
	ContentType string

	// FollowRedirects overrides the client-level redirect setting
	// for this specific request. nil means use the client default.
	FollowRedirects *bool

	// Timeout overrides the client-level timeout for this specific
	// request. Zero means use the client default.
	Timeout time.Duration
}
