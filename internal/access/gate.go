// Package access decides which screen set is reachable for the current
// session. It reads the session and nothing else; every decision is a pure
// function of role.
package access

import "github.com/vegscan/vegscan/internal/session"

// Screen paths, named after the screens of the service's web client.
const (
	ScreenLogin    = "/login"
	ScreenRegister = "/register"

	ScreenDashboard = "/dashboard"
	ScreenScan      = "/scan"
	ScreenHistory   = "/history"

	ScreenAdminDashboard = "/admin/dashboard"
	ScreenAdminUsers     = "/admin/users"
	ScreenAdminSystem    = "/admin/system"
)

// ScreenSet is an allow-list of reachable screens plus the screen unknown
// paths fall back to. Sets are disjoint: a role reaches its own set only.
type ScreenSet struct {
	Name    string
	Default string
	screens map[string]struct{}
}

// Contains reports whether path is in the set.
func (s *ScreenSet) Contains(path string) bool {
	_, ok := s.screens[path]
	return ok
}

// Screens returns the paths in the set, unordered.
func (s *ScreenSet) Screens() []string {
	out := make([]string, 0, len(s.screens))
	for p := range s.screens {
		out = append(out, p)
	}
	return out
}

func newScreenSet(name, def string, screens ...string) *ScreenSet {
	set := &ScreenSet{
		Name:    name,
		Default: def,
		screens: make(map[string]struct{}, len(screens)),
	}
	for _, s := range screens {
		set.screens[s] = struct{}{}
	}
	return set
}

var (
	anonymousSet = newScreenSet("anonymous", ScreenLogin,
		ScreenLogin, ScreenRegister)

	consumerSet = newScreenSet("consumer", ScreenDashboard,
		ScreenDashboard, ScreenScan, ScreenHistory)

	adminSet = newScreenSet("admin", ScreenAdminDashboard,
		ScreenAdminDashboard, ScreenAdminUsers, ScreenAdminSystem)
)

// ResolveScreenSet returns the single screen set reachable with the given
// session: anonymous without a session, the admin set for admins, the
// consumer set otherwise. Admin sessions cannot reach consumer screens and
// vice versa, even by asking for them directly.
func ResolveScreenSet(sess *session.Session) *ScreenSet {
	switch {
	case sess == nil:
		return anonymousSet
	case sess.Role == session.RoleAdmin:
		return adminSet
	default:
		return consumerSet
	}
}

// Resolve maps a requested path to the screen actually shown. Paths outside
// the active set redirect to the set's default screen; this is an
// allow-list, so an unknown path never surfaces an error screen. The second
// return value reports whether a redirect happened.
func Resolve(sess *session.Session, path string) (string, bool) {
	set := ResolveScreenSet(sess)
	if set.Contains(path) {
		return path, false
	}
	return set.Default, true
}
