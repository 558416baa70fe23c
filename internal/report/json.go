package report

import (
	"context"
	"encoding/json"
	"io"

	"github.com/vegscan/vegscan/internal/api"
	"github.com/vegscan/vegscan/internal/workflow"
)

// JSONReporter outputs machine-readable JSON.
type JSONReporter struct{}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

// scanOutcomeEnvelope makes the attempt phase, error, and result origin
// explicit in the JSON output. The origin is serialized here on purpose:
// downstream consumers must be able to tell a fabricated verdict apart from
// a real one.
type scanOutcomeEnvelope struct {
	Phase  string          `json:"phase"`
	Image  string          `json:"image,omitempty"`
	Error  string          `json:"error,omitempty"`
	Origin string          `json:"origin,omitempty"`
	Result *api.ScanResult `json:"result,omitempty"`
}

// ScanOutcome writes the attempt as a JSON document.
func (r *JSONReporter) ScanOutcome(ctx context.Context, attempt workflow.Attempt, w io.Writer) error {
	env := scanOutcomeEnvelope{
		Phase:  attempt.Phase.String(),
		Error:  attempt.ErrorMsg,
		Result: attempt.Result,
	}
	if attempt.Image != nil {
		env.Image = attempt.Image.Name
	}
	if attempt.Result != nil {
		env.Origin = string(attempt.Result.Origin)
	}
	return r.write(ctx, env, w)
}

// Dashboard writes the aggregate stats as JSON.
func (r *JSONReporter) Dashboard(ctx context.Context, stats *api.DashboardStats, w io.Writer) error {
	return r.write(ctx, stats, w)
}

// History writes the scan history as JSON.
func (r *JSONReporter) History(ctx context.Context, records []api.ScanRecord, w io.Writer) error {
	if records == nil {
		records = []api.ScanRecord{}
	}
	return r.write(ctx, records, w)
}

// Users writes the admin user listing as JSON.
func (r *JSONReporter) Users(ctx context.Context, users []api.User, w io.Writer) error {
	if users == nil {
		users = []api.User{}
	}
	return r.write(ctx, users, w)
}

// SystemStatus writes the admin system snapshot as JSON.
func (r *JSONReporter) SystemStatus(ctx context.Context, status *api.SystemStatus, w io.Writer) error {
	return r.write(ctx, status, w)
}

// write marshals v with indentation and a trailing newline.
func (r *JSONReporter) write(ctx context.Context, v any, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
