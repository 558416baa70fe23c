package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vegscan/vegscan/internal/testutil"
	"github.com/vegscan/vegscan/internal/workflow"
)

// cliEnv is one isolated command environment: a fresh mock backend plus a
// session database in a temp directory.
type cliEnv struct {
	backend *testutil.Backend
	session string
}

func newEnv(t *testing.T) *cliEnv {
	t.Helper()
	b := testutil.NewBackend()
	t.Cleanup(b.Close)
	return &cliEnv{
		backend: b,
		session: filepath.Join(t.TempDir(), "session.db"),
	}
}

// run executes a vegscan command against the env's backend and session.
// Later flags win, so tests may override the defaults set here.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{
		"--server", e.backend.URL(),
		"--session", e.session,
		"--format", "text",
	}, args...)

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(full)
	err := rootCmd.Execute()
	return out.String(), err
}

func (e *cliEnv) login(t *testing.T, email, password string) {
	t.Helper()
	out, err := e.run(t, "login", "--email", email, "--password", password)
	if err != nil {
		t.Fatalf("login: %v (output: %s)", err, out)
	}
}

// writeImage drops a fake image file into a temp dir and returns its path.
func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "vegscan dev") {
		t.Errorf("output = %q, want version line", out)
	}
}

func TestWhoamiWithoutSession(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("output = %q, want not-logged-in notice", out)
	}
}

func TestScanRequiresLogin(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "scan", "--image", writeImage(t, "tomato.jpg"))
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("error = %v, want not-logged-in failure", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "login", "--email", testutil.ConsumerEmail, "--password", "wrong")
	if err == nil || !strings.Contains(err.Error(), "Incorrect email or password") {
		t.Fatalf("error = %v, want the backend's credential message", err)
	}
}

func TestConsumerFlow(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	out, err := e.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, testutil.ConsumerEmail) || !strings.Contains(out, "consumer") {
		t.Errorf("whoami = %q, want email and role", out)
	}

	out, err = e.run(t, "scan", "--image", writeImage(t, "tomato.jpg"))
	if err != nil {
		t.Fatalf("scan: %v (output: %s)", err, out)
	}
	for _, want := range []string{"Tomato", "Safe to eat"} {
		if !strings.Contains(out, want) {
			t.Errorf("scan output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "DEGRADED") {
		t.Error("live scan rendered as degraded")
	}

	out, err = e.run(t, "dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !strings.Contains(out, "Total scans:       1") {
		t.Errorf("dashboard = %q, want one recorded scan", out)
	}

	out, err = e.run(t, "history", "--filter", "all")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "Total: 1  Safe: 1  Unsafe: 0") {
		t.Errorf("history = %q, want counts for one safe scan", out)
	}

	out, err = e.run(t, "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(out, "Logged out.") {
		t.Errorf("logout = %q", out)
	}
	out, err = e.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami after logout: %v", err)
	}
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("session survived logout: %q", out)
	}
}

func TestHistoryFilterValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "history", "--filter", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown filter") {
		t.Fatalf("error = %v, want filter validation failure", err)
	}
	// Leave the shared flag in a valid state for later executions.
	_ = historyCmd.Flags().Set("filter", "all")
}

func TestHistoryFilterUnsafe(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	for _, name := range []string{"tomato.jpg", "rotten.jpg"} {
		if out, err := e.run(t, "scan", "--image", writeImage(t, name)); err != nil {
			t.Fatalf("scan %s: %v (output: %s)", name, err, out)
		}
	}

	out, err := e.run(t, "history", "--filter", "unsafe")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "Total: 1") || !strings.Contains(out, "Bacterial Spot") {
		t.Errorf("filtered history = %q, want only the unsafe scan", out)
	}
}

func TestConsumerCannotUseAdminCommands(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	_, err := e.run(t, "admin", "users")
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Fatalf("error = %v, want role gate failure", err)
	}
}

func TestAdminCannotScan(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.AdminEmail, testutil.AdminPassword)

	_, err := e.run(t, "scan", "--image", writeImage(t, "tomato.jpg"))
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Fatalf("error = %v, want role gate failure", err)
	}
}

func TestAdminFlow(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.AdminEmail, testutil.AdminPassword)

	out, err := e.run(t, "admin", "users")
	if err != nil {
		t.Fatalf("admin users: %v", err)
	}
	for _, want := range []string{testutil.ConsumerEmail, testutil.AdminEmail, "Total: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("admin users missing %q:\n%s", want, out)
		}
	}

	out, err = e.run(t, "admin", "toggle-user", "u-1")
	if err != nil {
		t.Fatalf("admin toggle-user: %v", err)
	}
	if !strings.Contains(out, "Toggled status of user u-1.") {
		t.Errorf("toggle output = %q", out)
	}

	out, err = e.run(t, "admin", "system")
	if err != nil {
		t.Fatalf("admin system: %v", err)
	}
	for _, want := range []string{"online", "connected", "veg-safety-v2"} {
		if !strings.Contains(out, want) {
			t.Errorf("admin system missing %q:\n%s", want, out)
		}
	}

	out, err = e.run(t, "admin", "test-ai")
	if err != nil {
		t.Fatalf("admin test-ai: %v", err)
	}
	if !strings.Contains(out, "AI test: ok") {
		t.Errorf("test-ai output = %q", out)
	}

	if out, err = e.run(t, "admin", "clear-dataset"); err != nil {
		t.Fatalf("admin clear-dataset: %v (output: %s)", err, out)
	}

	out, err = e.run(t, "admin", "delete-user", "u-1")
	if err != nil {
		t.Fatalf("admin delete-user: %v", err)
	}
	if !strings.Contains(out, "Deleted user u-1.") {
		t.Errorf("delete output = %q", out)
	}
}

func TestScanDropIgnoresNonImage(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not an image"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, err := e.run(t, "scan", "--drop", "--image", path)
	if err != nil {
		t.Fatalf("scan --drop: %v", err)
	}
	if !strings.Contains(out, `Ignored "notes.txt": not an image.`) {
		t.Errorf("output = %q, want the ignore notice", out)
	}
	if e.backend.RequestCount() > 3 {
		t.Errorf("backend saw %d requests; the ignored file must not be uploaded", e.backend.RequestCount())
	}
	_ = scanCmd.Flags().Set("drop", "false")
}

func TestScanRejectedImage(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)
	e.backend.SetRejectImages(true)

	out, err := e.run(t, "scan", "--image", writeImage(t, "cat.jpg"))
	if err == nil || err.Error() != workflow.MsgInvalidImage {
		t.Fatalf("error = %v, want %q", err, workflow.MsgInvalidImage)
	}
	if !strings.Contains(out, workflow.MsgInvalidImage) {
		t.Errorf("output missing the invalid-image message:\n%s", out)
	}
}

func TestScanDegradedFallback(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)
	e.backend.SetFailScans(true)

	out, err := e.run(t, "scan", "--image", writeImage(t, "tomato.jpg"))
	if err != nil {
		t.Fatalf("scan with backend down: %v", err)
	}
	for _, want := range []string{"DEGRADED RESULT", workflow.MsgAnalysisFailed, "Tomato"} {
		if !strings.Contains(out, want) {
			t.Errorf("degraded output missing %q:\n%s", want, out)
		}
	}
}

func TestScanJSONOutput(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	out, err := e.run(t, "scan", "--image", writeImage(t, "lettuce.png"), "--format", "json")
	if err != nil {
		t.Fatalf("scan: %v (output: %s)", err, out)
	}

	var env struct {
		Phase  string `json:"phase"`
		Image  string `json:"image"`
		Origin string `json:"origin"`
		Result *struct {
			VegetableName string `json:"vegetable_name"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if env.Phase != "succeeded" || env.Origin != "live" {
		t.Errorf("envelope = %+v, want a live success", env)
	}
	if env.Result == nil || env.Result.VegetableName != "Lettuce" {
		t.Errorf("result = %+v, want Lettuce", env.Result)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "register",
		"--email", "fresh@test.com", "--username", "fresh", "--password", "pw12345")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "Registration successful") {
		t.Errorf("register output = %q", out)
	}

	e.login(t, "fresh@test.com", "pw12345")

	out, err = e.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "fresh@test.com") {
		t.Errorf("whoami = %q, want the new account", out)
	}
}

func TestVerboseTransportStats(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	out, err := e.run(t, "dashboard", "--verbose", "2")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !strings.Contains(out, "transport stats") || !strings.Contains(out, "requests=1") {
		t.Errorf("verbose output missing the transport summary:\n%s", out)
	}
	_ = rootCmd.PersistentFlags().Set("verbose", "0")
}

func TestOutputFileFlag(t *testing.T) {
	e := newEnv(t)
	e.login(t, testutil.ConsumerEmail, testutil.ConsumerPassword)

	outPath := filepath.Join(t.TempDir(), "dashboard.txt")
	if _, err := e.run(t, "dashboard", "--output", outPath); err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !strings.Contains(string(data), "Dashboard") {
		t.Errorf("output file = %q, want the dashboard view", data)
	}
	_ = rootCmd.PersistentFlags().Set("output", "")
}
