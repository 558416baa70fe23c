// Package report provides formatters for command output.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vegscan/vegscan/internal/api"
	"github.com/vegscan/vegscan/internal/workflow"
)

// Reporter renders command results in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "text", "json").
	Format() string

	// ScanOutcome writes a finished scan attempt, including degraded
	// fallback results, which must always be visibly flagged.
	ScanOutcome(ctx context.Context, attempt workflow.Attempt, w io.Writer) error

	// Dashboard writes the aggregate stats view.
	Dashboard(ctx context.Context, stats *api.DashboardStats, w io.Writer) error

	// History writes the scan history listing.
	History(ctx context.Context, records []api.ScanRecord, w io.Writer) error

	// Users writes the admin user listing.
	Users(ctx context.Context, users []api.User, w io.Writer) error

	// SystemStatus writes the admin system snapshot.
	SystemStatus(ctx context.Context, status *api.SystemStatus, w io.Writer) error
}

// New creates a reporter by format name ("text" or "json").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}
