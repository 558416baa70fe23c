package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vegscan/vegscan/internal/access"
	"github.com/vegscan/vegscan/internal/api"
	"github.com/vegscan/vegscan/internal/workflow"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Upload a vegetable photo for a safety verdict",
	Long: `Scan uploads an image to the analysis backend and reports the verdict.

Progress shown during the upload is synthetic feedback, not a measurement;
only the final value reflects the real outcome. When the backend is
unreachable the command falls back to a locally fabricated verdict that is
clearly flagged DEGRADED and must not be trusted as a real analysis.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("image", "i", "", "Path to the image file")
	scanCmd.Flags().Bool("drop", false, "Stage the file via the drop path, which ignores non-image files")
}

// runScan drives one scan attempt end to end: stage image → submit →
// render outcome.
func runScan(cmd *cobra.Command, args []string) error {
	imagePath, _ := cmd.Flags().GetString("image")
	if imagePath == "" {
		return fmt.Errorf("image path is required (use --image or -i)")
	}
	useDrop, _ := cmd.Flags().GetBool("drop")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	if _, err := a.requireScreen(ctx, access.ScreenScan); err != nil {
		return err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image %q: %w", imagePath, err)
	}
	name := filepath.Base(imagePath)
	contentType := mime.TypeByExtension(filepath.Ext(name))

	// ------------------------------------------------------------------ //
	// Build the workflow and stage the image
	// ------------------------------------------------------------------ //
	opts := []workflow.Option{workflow.WithLogger(a.logger)}
	if a.verbose > 0 {
		opts = append(opts, workflow.WithProgressCallback(func(percent int) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[*] %3d%% %s\n", percent, progressLabel(percent))
		}))
	}
	wf := workflow.New(a.api, opts...)

	if useDrop {
		if !wf.DropFile(name, data, contentType) {
			// The drop path ignores non-image files without raising an error.
			fmt.Fprintf(a.out, "Ignored %q: not an image.\n", name)
			return nil
		}
	} else if err := wf.SelectFile(name, data, contentType); err != nil {
		return err
	}

	// ------------------------------------------------------------------ //
	// Submit and render
	// ------------------------------------------------------------------ //
	attempt, err := wf.Submit(ctx)
	if err != nil {
		return err
	}

	if err := a.reporter.ScanOutcome(ctx, attempt, a.out); err != nil {
		return fmt.Errorf("failed to render scan outcome: %w", err)
	}

	if attempt.Phase == workflow.PhaseFailed && (attempt.Result == nil || attempt.Result.Origin != api.OriginDegraded) {
		return fmt.Errorf("%s", attempt.ErrorMsg)
	}
	return nil
}

// progressLabel mirrors the staged feedback of the scan screen this command
// replaces.
func progressLabel(percent int) string {
	switch {
	case percent < 30:
		return "Processing image..."
	case percent < 60:
		return "Running AI analysis..."
	case percent < 90:
		return "Generating results..."
	default:
		return "Almost done..."
	}
}
