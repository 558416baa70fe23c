package transport

import (
	"net/http"
	"time"
)

// Response is what the transport hands back for one request. Body is fully
// read and the connection released before the Response is returned; callers
// never manage streams.
type Response struct {
	StatusCode int
	Headers    http.Header

	// Body is the raw response body, already drained.
	Body []byte

	// Duration is the round-trip time, measured around the underlying call.
	Duration time.Duration

	// URL is the final URL after any redirects.
	URL string

	// Protocol is the negotiated protocol version, e.g. "HTTP/2.0".
	Protocol string
}

// BodyString returns the body as text, for logging and error surfaces.
func (r *Response) BodyString() string {
	return string(r.Body)
}
