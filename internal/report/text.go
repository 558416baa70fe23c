package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vegscan/vegscan/internal/api"
	"github.com/vegscan/vegscan/internal/workflow"
)

const (
	doubleLine = "═" // ═
	singleLine = "─" // ─
	lineWidth  = 50
)

// TextReporter outputs plain terminal text.
type TextReporter struct{}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

// ScanOutcome writes a finished attempt. Fabricated fallback results carry a
// DEGRADED banner so they can never pass for real analysis.
func (r *TextReporter) ScanOutcome(ctx context.Context, attempt workflow.Attempt, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}
	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, "vegscan - Vegetable Safety Analysis")
	fmt.Fprintln(b, doubleBar)

	if attempt.Image != nil {
		fmt.Fprintf(b, "Image:  %s\n", attempt.Image.Name)
	}
	fmt.Fprintf(b, "Status: %s\n", attempt.Phase)

	if attempt.ErrorMsg != "" {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintf(b, "Error: %s\n", attempt.ErrorMsg)
	}

	if res := attempt.Result; res != nil {
		fmt.Fprintln(b, singleBar)
		if res.Origin == api.OriginDegraded {
			fmt.Fprintln(b, "!! DEGRADED RESULT - backend unreachable !!")
			fmt.Fprintln(b, "!! This verdict is locally fabricated and NOT a real analysis. !!")
			fmt.Fprintln(b, singleBar)
		}
		fmt.Fprintf(b, "Vegetable:  %s\n", res.VegetableName)
		verdict := "NOT SAFE to eat"
		if res.SafeToEat {
			verdict = "Safe to eat"
		}
		fmt.Fprintf(b, "Safety:     %s\n", verdict)
		if res.DiseaseName != "" && res.DiseaseName != "None detected" {
			fmt.Fprintf(b, "Issues:     %s\n", res.DiseaseName)
		}
		fmt.Fprintf(b, "Confidence: %d%%\n", res.Confidence)
		fmt.Fprintf(b, "Analyzed:   %s\n", res.AnalysisDate.Local().Format(time.RFC1123))

		if !res.SafeToEat {
			fmt.Fprintln(b, singleBar)
			fmt.Fprintln(b, "Warning: this vegetable may not be safe for consumption.")
			fmt.Fprintln(b, "Consider discarding it to avoid potential health risks.")
		}
	}

	fmt.Fprintln(b, doubleBar)
	_, err := io.WriteString(w, b.String())
	return err
}

// Dashboard writes the aggregate stats view.
func (r *TextReporter) Dashboard(ctx context.Context, stats *api.DashboardStats, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, "Dashboard")
	fmt.Fprintln(b, singleBar)
	fmt.Fprintf(b, "Total scans:       %d\n", stats.TotalScans())
	fmt.Fprintf(b, "Safe vegetables:   %d\n", stats.TotalGood)
	fmt.Fprintf(b, "Unsafe vegetables: %d\n", stats.TotalBad)
	fmt.Fprintf(b, "Safety rate:       %d%%\n", stats.SafetyRate())

	if len(stats.RecentScans) > 0 {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "Recent scans:")
		for _, rec := range stats.RecentScans {
			fmt.Fprintf(b, "  %s  %-20s %s\n",
				rec.ScanDate.Local().Format("2006-01-02"),
				rec.VegetableName,
				safetyLabel(rec.SafeToEat),
			)
		}
	} else {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "No scans yet. Start by scanning your first vegetable!")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// History writes the scan history listing with safe/unsafe counts.
func (r *TextReporter) History(ctx context.Context, records []api.ScanRecord, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}
	singleBar := strings.Repeat(singleLine, lineWidth)

	safe := 0
	for _, rec := range records {
		if rec.SafeToEat {
			safe++
		}
	}

	fmt.Fprintln(b, "Scan History")
	fmt.Fprintln(b, singleBar)
	fmt.Fprintf(b, "Total: %d  Safe: %d  Unsafe: %d\n", len(records), safe, len(records)-safe)
	fmt.Fprintln(b, singleBar)

	if len(records) == 0 {
		fmt.Fprintln(b, "No scans recorded.")
	}
	for _, rec := range records {
		fmt.Fprintf(b, "%s  %-20s %-8s %3d%%  %s\n",
			rec.ScanDate.Local().Format("2006-01-02 15:04"),
			rec.VegetableName,
			safetyLabel(rec.SafeToEat),
			rec.Confidence,
			rec.DiseaseName,
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Users writes the admin user listing.
func (r *TextReporter) Users(ctx context.Context, users []api.User, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}
	singleBar := strings.Repeat(singleLine, lineWidth)

	admins := 0
	active := 0
	for _, u := range users {
		if u.IsAdmin {
			admins++
		}
		if u.IsActive {
			active++
		}
	}

	fmt.Fprintln(b, "Users")
	fmt.Fprintln(b, singleBar)
	fmt.Fprintf(b, "Total: %d  Admins: %d  Active: %d\n", len(users), admins, active)
	fmt.Fprintln(b, singleBar)

	for _, u := range users {
		role := "consumer"
		if u.IsAdmin {
			role = "admin"
		}
		state := "active"
		if !u.IsActive {
			state = "disabled"
		}
		fmt.Fprintf(b, "%-12s %-28s %-8s %-8s scans:%d\n",
			u.ID, u.Email, role, state, u.ScanCount)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// SystemStatus writes the admin system snapshot.
func (r *TextReporter) SystemStatus(ctx context.Context, status *api.SystemStatus, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, "System Status")
	fmt.Fprintln(b, singleBar)
	fmt.Fprintf(b, "API:          %s\n", status.APIStatus)
	fmt.Fprintf(b, "Database:     %s\n", status.DatabaseStatus)
	fmt.Fprintf(b, "LM Studio:    %s\n", status.LMStudioStatus)
	fmt.Fprintf(b, "Storage used: %d%%\n", status.TotalStorageUsed)
	fmt.Fprintf(b, "Dataset size: %d entries\n", status.DatasetSize)
	fmt.Fprintf(b, "Model:        %s (%s)\n", status.ModelInfo.Name, status.ModelInfo.Endpoint)

	_, err := io.WriteString(w, b.String())
	return err
}

// safetyLabel renders the verdict column for listings.
func safetyLabel(safe bool) string {
	if safe {
		return "safe"
	}
	return "unsafe"
}
