package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vegscan/vegscan/internal/transport"
)

// Manager owns the live in-memory session and its lifecycle. It is the only
// writer of the session; the gateway and the access gate read it through
// Current. All lifecycle operations keep the persisted copy and the
// in-memory copy in step.
type Manager struct {
	client  transport.Client
	store   Store
	baseURL string
	logger  *slog.Logger

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a Manager over the given transport client and store.
func NewManager(client transport.Client, store Store, baseURL string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		client:  client,
		store:   store,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Current returns the live session, or nil when nobody is logged in.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Restore loads any previously persisted session into memory. Missing or
// malformed persisted data yields no session and no error.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	if sess != nil {
		m.logger.Debug("session restored", "user_id", sess.UserID, "role", string(sess.Role))
	}
	return sess, nil
}

// loginResponse is the wire shape of POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

// profileResponse is the subset of GET /users/me the session needs.
type profileResponse struct {
	IsAdmin bool `json:"is_admin"`
}

// Establish logs in as email/password and resolves the user's role. Two
// round trips are required: the login response carries only a token and an
// opaque user id, so the role comes from a follow-up profile fetch. The
// merged session is persisted and set as current only after both calls
// succeed; a profile failure leaves the user logged out with nothing
// persisted.
func (m *Manager) Establish(ctx context.Context, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, &AuthError{Op: "login", Err: err}
	}

	resp, err := m.client.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		URL:         m.baseURL + "/auth/login",
		Body:        payload,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, &AuthError{Op: "login", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Op: "login", Detail: errorDetail(resp.Body)}
	}

	var login loginResponse
	if err := json.Unmarshal(resp.Body, &login); err != nil {
		return nil, &AuthError{Op: "login", Err: fmt.Errorf("decode login response: %w", err)}
	}
	if login.AccessToken == "" {
		return nil, &AuthError{Op: "login", Detail: "login response carried no token"}
	}

	// Second round trip: resolve the role before the session exists.
	profResp, err := m.client.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    m.baseURL + "/users/me",
		Headers: map[string]string{
			"Authorization": "Bearer " + login.AccessToken,
		},
	})
	if err != nil {
		return nil, &AuthError{Op: "profile", Err: err}
	}
	if profResp.StatusCode != http.StatusOK {
		return nil, &AuthError{Op: "profile", Detail: errorDetail(profResp.Body)}
	}

	var profile profileResponse
	if err := json.Unmarshal(profResp.Body, &profile); err != nil {
		return nil, &AuthError{Op: "profile", Err: fmt.Errorf("decode profile response: %w", err)}
	}

	role := RoleConsumer
	if profile.IsAdmin {
		role = RoleAdmin
	}

	sess := &Session{
		UserID: login.UserID,
		Email:  email,
		Role:   role,
		Token:  login.AccessToken,
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.logger.Info("session established", "user_id", sess.UserID, "role", string(sess.Role))
	return sess, nil
}

// Register creates a new account. It does not log the new user in; the
// backend expects a separate login afterwards.
func (m *Manager) Register(ctx context.Context, email, username, password string, isAdmin bool) error {
	payload, err := json.Marshal(map[string]any{
		"email":    email,
		"username": username,
		"password": password,
		"is_admin": isAdmin,
	})
	if err != nil {
		return &AuthError{Op: "register", Err: err}
	}

	resp, err := m.client.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		URL:         m.baseURL + "/auth/register",
		Body:        payload,
		ContentType: "application/json",
	})
	if err != nil {
		return &AuthError{Op: "register", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthError{Op: "register", Detail: errorDetail(resp.Body)}
	}
	return nil
}

// Clear logs out: the persisted copy and the in-memory copy are dropped
// together. Clearing while logged out is a no-op.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.logger.Debug("session cleared")
	return nil
}

// errorDetail extracts the backend's machine-readable {"detail": ...}
// message from an error body. Empty when the body carries none.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
