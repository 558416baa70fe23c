// Package session owns the persisted authentication session: who is logged
// in, with which role, and under which bearer token. It is the single source
// of truth every other component reads.
package session

import "fmt"

// Role is the access role carried by a session.
type Role string

const (
	// RoleConsumer is the default role for registered users.
	RoleConsumer Role = "consumer"

	// RoleAdmin grants access to the administration endpoints.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleConsumer || r == RoleAdmin
}

// Session is one logical login: identity plus credential. A Session exists
// if and only if a token is held, and it never exists without a resolved
// role; Establish merges the role from the profile endpoint before anything
// is persisted.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Token  string `json:"token"`
}

// valid reports whether s can be trusted as a restored session.
func (s *Session) valid() bool {
	return s != nil && s.Token != "" && s.Role.Valid()
}

// AuthError is returned when login or registration fails. Detail carries the
// backend's machine-readable message when one was present.
type AuthError struct {
	Op     string // "login", "profile", "register"
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("auth %s: %s", e.Op, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("auth %s failed", e.Op)
}

// Unwrap returns the wrapped error, if any.
func (e *AuthError) Unwrap() error { return e.Err }

// Message returns user-facing error text: the backend detail when present,
// otherwise a generic message per operation.
func (e *AuthError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Op {
	case "register":
		return "Registration failed"
	default:
		return "Login failed"
	}
}
