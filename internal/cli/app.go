package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vegscan/vegscan/internal/access"
	"github.com/vegscan/vegscan/internal/api"
	"github.com/vegscan/vegscan/internal/gateway"
	"github.com/vegscan/vegscan/internal/report"
	"github.com/vegscan/vegscan/internal/session"
	"github.com/vegscan/vegscan/internal/transport"
)

// app bundles the wired client stack for one command invocation:
// transport → session manager → gateway → typed API client, plus the
// reporter and output destination.
type app struct {
	client   transport.Client
	sessions *session.Manager
	api      *api.Client
	reporter report.Reporter
	out      io.Writer
	logger   *slog.Logger
	verbose  int

	closers []func() error
}

// newApp reads the persistent flags and wires the full stack. The returned
// app must be closed with close when the command finishes.
func newApp(cmd *cobra.Command) (*app, error) {
	server, _ := cmd.Flags().GetString("server")
	proxyURL, _ := cmd.Flags().GetString("proxy")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	maxRPS, _ := cmd.Flags().GetFloat64("max-rps")
	sessionPath, _ := cmd.Flags().GetString("session")
	verbose, _ := cmd.Flags().GetInt("verbose")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	if server == "" {
		server = os.Getenv("VEGSCAN_SERVER")
	}
	if server == "" {
		server = defaultServer
	}

	logger := newLogger(cmd.ErrOrStderr(), verbose)

	client, err := transport.NewClient(transport.ClientOptions{
		Timeout:         timeout,
		ProxyURL:        proxyURL,
		FollowRedirects: true,
		UserAgent:       "vegscan/" + version,
		MaxRPS:          maxRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	if sessionPath == "" {
		sessionPath, err = defaultSessionPath()
		if err != nil {
			return nil, err
		}
	}
	store, err := session.NewSQLiteStore(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database %q: %w", sessionPath, err)
	}

	sessions := session.NewManager(client, store, server, logger)
	gw := gateway.New(client, sessions, server, logger)

	reporter, err := report.New(format)
	if err != nil {
		return nil, fmt.Errorf("unknown report format %q: %w", format, err)
	}

	a := &app{
		client:   client,
		sessions: sessions,
		api:      api.NewClient(gw),
		reporter: reporter,
		out:      cmd.OutOrStdout(),
		logger:   logger,
		verbose:  verbose,
		closers:  []func() error{store.Close},
	}

	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %q: %w", outputPath, err)
		}
		a.out = f
		a.closers = append(a.closers, f.Close)
	}

	return a, nil
}

// close releases everything the app opened, last first, after summarizing
// the command's transport activity.
func (a *app) close() {
	if stats := a.client.Stats(); stats.TotalRequests > 0 {
		a.logger.Info("transport stats",
			"requests", stats.TotalRequests,
			"total_duration", stats.TotalDuration,
			"avg_duration", stats.AvgDuration,
		)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource", "error", err)
		}
	}
}

// requireScreen restores the session and resolves the requested screen
// through the access gate. Commands whose screen lies outside the current
// role's set fail with the redirect target instead of calling the backend.
func (a *app) requireScreen(ctx context.Context, screen string) (*session.Session, error) {
	sess, err := a.sessions.Restore(ctx)
	if err != nil {
		return nil, err
	}

	resolved, redirected := access.Resolve(sess, screen)
	if redirected {
		if sess == nil {
			return nil, fmt.Errorf("not logged in (redirected to %s); run 'vegscan login' first", resolved)
		}
		return nil, fmt.Errorf("%s is not reachable with role %s (redirected to %s)",
			screen, sess.Role, resolved)
	}
	return sess, nil
}

// newLogger maps the verbosity flag to slog levels the way the rest of the
// stack expects.
func newLogger(w io.Writer, verbose int) *slog.Logger {
	level := slog.LevelError
	switch {
	case verbose >= 3:
		level = slog.LevelDebug
	case verbose >= 2:
		level = slog.LevelInfo
	case verbose >= 1:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// defaultSessionPath places the session database under the user's home
// directory, creating the directory on first use.
func defaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".vegscan")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	return filepath.Join(dir, "session.db"), nil
}
