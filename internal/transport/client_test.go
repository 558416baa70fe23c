package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Helper: create a default test client
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T) *DefaultClient {
	t.Helper()
	c, err := NewClient(ClientOptions{
		Timeout:         5 * time.Second,
		FollowRedirects: true,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Basic GET
// ---------------------------------------------------------------------------

func TestBasicGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "hello world")
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), &Request{
		Method: "GET",
		URL:    srv.URL + "/test",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.BodyString() != "hello world" {
		t.Errorf("Body = %q, want %q", resp.BodyString(), "hello world")
	}
}

// ---------------------------------------------------------------------------
// POST with body and content type
// ---------------------------------------------------------------------------

func TestPOSTWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), &Request{
		Method:      "POST",
		URL:         srv.URL + "/submit",
		Body:        []byte(`{"key":"value"}`),
		ContentType: "application/json",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.BodyString() != `{"key":"value"}` {
		t.Errorf("Body = %q, want request body echoed", resp.BodyString())
	}
}

// ---------------------------------------------------------------------------
// No content type unless one was given
// ---------------------------------------------------------------------------

func TestNoImplicitContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("Content-Type = %q, want empty", ct)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t)
	if _, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Custom headers and user agent
// ---------------------------------------------------------------------------

func TestCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Custom"); got != "value" {
			t.Errorf("X-Custom = %q, want value", got)
		}
		if got := r.Header.Get("User-Agent"); got != "vegscan/test" {
			t.Errorf("User-Agent = %q, want vegscan/test", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOptions{Timeout: 5 * time.Second, UserAgent: "vegscan/test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Do(context.Background(), &Request{
		Method:  "GET",
		URL:     srv.URL,
		Headers: map[string]string{"X-Custom": "value"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Per-request timeout override
// ---------------------------------------------------------------------------

func TestPerRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, err := c.Do(context.Background(), &Request{
		Method:  "GET",
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)
	for i := 0; i < 3; i++ {
		if _, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL}); err != nil {
			t.Fatalf("Do #%d: %v", i, err)
		}
	}

	stats := c.Stats()
	if stats.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", stats.TotalRequests)
	}
	if stats.AvgDuration <= 0 {
		t.Errorf("AvgDuration = %v, want > 0", stats.AvgDuration)
	}
}

// ---------------------------------------------------------------------------
// Per-request redirect override
// ---------------------------------------------------------------------------

func TestPerRequestRedirectOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/target", http.StatusFound)
		case "/target":
			fmt.Fprint(w, "followed")
		}
	}))
	defer srv.Close()

	c := newTestClient(t) // client default follows redirects

	resp, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL + "/start"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 || resp.BodyString() != "followed" {
		t.Errorf("default policy: got %d %q, want the redirect followed", resp.StatusCode, resp.BodyString())
	}

	noFollow := false
	resp, err = c.Do(context.Background(), &Request{
		Method:          "GET",
		URL:             srv.URL + "/start",
		FollowRedirects: &noFollow,
	})
	if err != nil {
		t.Fatalf("Do with override: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("override: StatusCode = %d, want 302 unfollowed", resp.StatusCode)
	}
}
