package access

import (
	"testing"

	"github.com/vegscan/vegscan/internal/session"
)

func consumerSession() *session.Session {
	return &session.Session{UserID: "u-1", Email: "user@test.com", Role: session.RoleConsumer, Token: "tok"}
}

func adminSession() *session.Session {
	return &session.Session{UserID: "u-2", Email: "admin@test.com", Role: session.RoleAdmin, Token: "tok"}
}

func TestResolveScreenSet(t *testing.T) {
	if got := ResolveScreenSet(nil); got.Name != "anonymous" {
		t.Errorf("nil session → %q, want anonymous", got.Name)
	}
	if got := ResolveScreenSet(consumerSession()); got.Name != "consumer" {
		t.Errorf("consumer session → %q, want consumer", got.Name)
	}
	if got := ResolveScreenSet(adminSession()); got.Name != "admin" {
		t.Errorf("admin session → %q, want admin", got.Name)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		sess       *session.Session
		path       string
		want       string
		redirected bool
	}{
		{"anonymous login", nil, ScreenLogin, ScreenLogin, false},
		{"anonymous register", nil, ScreenRegister, ScreenRegister, false},
		{"anonymous blocked from scan", nil, ScreenScan, ScreenLogin, true},
		{"anonymous blocked from admin", nil, ScreenAdminUsers, ScreenLogin, true},
		{"anonymous unknown path", nil, "/no-such-screen", ScreenLogin, true},

		{"consumer dashboard", consumerSession(), ScreenDashboard, ScreenDashboard, false},
		{"consumer scan", consumerSession(), ScreenScan, ScreenScan, false},
		{"consumer history", consumerSession(), ScreenHistory, ScreenHistory, false},
		{"consumer blocked from login", consumerSession(), ScreenLogin, ScreenDashboard, true},
		{"consumer blocked from admin", consumerSession(), ScreenAdminDashboard, ScreenDashboard, true},
		{"consumer unknown path", consumerSession(), "/settings", ScreenDashboard, true},

		{"admin dashboard", adminSession(), ScreenAdminDashboard, ScreenAdminDashboard, false},
		{"admin users", adminSession(), ScreenAdminUsers, ScreenAdminUsers, false},
		{"admin system", adminSession(), ScreenAdminSystem, ScreenAdminSystem, false},
		{"admin blocked from consumer scan", adminSession(), ScreenScan, ScreenAdminDashboard, true},
		{"admin blocked from login", adminSession(), ScreenLogin, ScreenAdminDashboard, true},
		{"admin unknown path", adminSession(), "/whatever", ScreenAdminDashboard, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, redirected := Resolve(tt.sess, tt.path)
			if got != tt.want || redirected != tt.redirected {
				t.Errorf("Resolve() = (%q, %v), want (%q, %v)", got, redirected, tt.want, tt.redirected)
			}
		})
	}
}

func TestScreenSetsAreDisjoint(t *testing.T) {
	sets := []*ScreenSet{anonymousSet, consumerSet, adminSet}
	seen := map[string]string{}
	for _, set := range sets {
		for _, screen := range set.Screens() {
			if owner, ok := seen[screen]; ok {
				t.Errorf("screen %q appears in both %s and %s", screen, owner, set.Name)
			}
			seen[screen] = set.Name
		}
	}
}

func TestDefaultIsMemberOfItsSet(t *testing.T) {
	for _, set := range []*ScreenSet{anonymousSet, consumerSet, adminSet} {
		if !set.Contains(set.Default) {
			t.Errorf("%s default %q is not in the set", set.Name, set.Default)
		}
	}
}
