// Package gateway mediates every authenticated call to the analysis backend:
// credential injection, content-type negotiation, and uniform failure
// translation. It is the sole path for authenticated traffic; only the login
// and registration endpoints bypass it, because no credential exists yet.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/vegscan/vegscan/internal/session"
	"github.com/vegscan/vegscan/internal/transport"
)

// FilePayload is a binary upload destined for a multipart request body.
type FilePayload struct {
	Field    string // form field name, e.g. "image"
	Filename string
	Data     []byte
}

// CallOptions shapes a single gateway call. At most one of JSON and File may
// be set: JSON bodies get an application/json content type, file bodies get
// the multipart content type derived by mime/multipart (including the
// boundary). Setting a JSON content type on a multipart body is exactly the
// bug this branching exists to prevent; a Content-Type entry in Headers is
// ignored whenever a body is present, for the same reason.
type CallOptions struct {
	Method  string
	JSON    any
	File    *FilePayload
	Headers map[string]string

	// Timeout overrides the transport's default timeout for this call.
	// Zero keeps the default.
	Timeout time.Duration
}

// Gateway wraps the transport client with the current session's credential.
// It never retries: each call is at-most-once, and callers decide recovery.
type Gateway struct {
	client   transport.Client
	sessions *session.Manager
	baseURL  string
	logger   *slog.Logger
}

// New creates a Gateway reading credentials from the given session manager.
func New(client transport.Client, sessions *session.Manager, baseURL string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{
		client:   client,
		sessions: sessions,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Call sends an authenticated request to endpoint (a path like "/scan").
// With no live session it fails fast with an unauthenticated Error before
// any network I/O. A 401/403 response clears the session, mirroring token
// expiry handling in the screens this client replaces.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts CallOptions) (*transport.Response, error) {
	sess := g.sessions.Current()
	if sess == nil || sess.Token == "" {
		return nil, &Error{Kind: KindUnauthenticated, Detail: "authentication required"}
	}

	req, err := g.buildRequest(endpoint, sess.Token, opts)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		g.logger.Warn("backend unreachable", "endpoint", endpoint, "error", err)
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}

	g.logger.Debug("backend call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"protocol", resp.Protocol,
		"duration", resp.Duration,
	)

	if gwErr := g.translateStatus(ctx, endpoint, resp); gwErr != nil {
		return nil, gwErr
	}

	return resp, nil
}

// buildRequest assembles the transport request: credential header plus the
// body encoding negotiated from the body kind.
func (g *Gateway) buildRequest(endpoint, token string, opts CallOptions) (*transport.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	// Never follow redirects on authenticated calls: doing so would resend
	// the bearer token to a location the caller did not choose.
	noFollow := false

	req := &transport.Request{
		Method:          method,
		URL:             g.baseURL + endpoint,
		Headers:         map[string]string{"Authorization": "Bearer " + token},
		FollowRedirects: &noFollow,
		Timeout:         opts.Timeout,
	}
	hasBody := opts.File != nil || opts.JSON != nil
	for k, v := range opts.Headers {
		// The body kind owns the content type; a caller-supplied value
		// would clobber the multipart boundary.
		if hasBody && http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		req.Headers[k] = v
	}

	switch {
	case opts.File != nil:
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile(opts.File.Field, opts.File.Filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(opts.File.Data); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("close multipart writer: %w", err)
		}
		req.Body = body.Bytes()
		// The boundary lives in the writer's content type. No JSON content
		// type may ever reach a multipart body.
		req.ContentType = mw.FormDataContentType()

	case opts.JSON != nil:
		payload, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("marshal JSON body: %w", err)
		}
		req.Body = payload
		req.ContentType = "application/json"
	}

	return req, nil
}

// translateStatus maps a non-2xx response to the gateway error taxonomy.
// Returns nil for successful responses.
func (g *Gateway) translateStatus(ctx context.Context, endpoint string, resp *transport.Response) *Error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// The token is expired or revoked; holding it any longer would let
		// every later call fail the same way.
		if err := g.sessions.Clear(ctx); err != nil {
			g.logger.Warn("clearing session after auth failure", "error", err)
		}
		return &Error{
			Kind:       KindUnauthenticated,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Body),
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		g.logger.Debug("backend rejected request",
			"endpoint", endpoint, "status", resp.StatusCode, "body", resp.BodyString())
		return &Error{
			Kind:       KindRejected,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Body),
		}

	default:
		g.logger.Warn("backend server error", "endpoint", endpoint, "status", resp.StatusCode)
		return &Error{
			Kind:       KindUnreachable,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Body),
		}
	}
}

// errorDetail extracts the backend's {"detail": ...} message from an error
// body. Empty when the body carries none.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
