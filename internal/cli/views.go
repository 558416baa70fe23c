package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegscan/vegscan/internal/access"
	"github.com/vegscan/vegscan/internal/api"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show aggregate scan counts and recent scans",
	RunE:  runDashboard,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the scan history",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(dashboardCmd, historyCmd)

	historyCmd.Flags().String("filter", "all", "Filter records (all, safe, unsafe)")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	if _, err := a.requireScreen(ctx, access.ScreenDashboard); err != nil {
		return err
	}

	stats, err := a.api.Dashboard(ctx)
	if err != nil {
		return err
	}
	return a.reporter.Dashboard(ctx, stats, a.out)
}

func runHistory(cmd *cobra.Command, args []string) error {
	filter, _ := cmd.Flags().GetString("filter")
	switch filter {
	case "all", "safe", "unsafe":
		// ok
	default:
		return fmt.Errorf("unknown filter %q (expected all, safe, or unsafe)", filter)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	if _, err := a.requireScreen(ctx, access.ScreenHistory); err != nil {
		return err
	}

	records, err := a.api.History(ctx)
	if err != nil {
		return err
	}
	return a.reporter.History(ctx, filterRecords(records, filter), a.out)
}

// filterRecords applies the safe/unsafe filter client-side, the way the
// history screen does.
func filterRecords(records []api.ScanRecord, filter string) []api.ScanRecord {
	if filter == "all" {
		return records
	}
	wantSafe := filter == "safe"
	out := make([]api.ScanRecord, 0, len(records))
	for _, rec := range records {
		if rec.SafeToEat == wantSafe {
			out = append(out, rec)
		}
	}
	return out
}
