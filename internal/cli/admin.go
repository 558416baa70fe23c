package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegscan/vegscan/internal/access"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administration commands (admin role required)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all user accounts",
	RunE:  runAdminUsers,
}

var adminToggleUserCmd = &cobra.Command{
	Use:   "toggle-user <id>",
	Short: "Enable or disable a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminToggleUser,
}

var adminDeleteUserCmd = &cobra.Command{
	Use:   "delete-user <id>",
	Short: "Delete a user account permanently",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDeleteUser,
}

var adminSystemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show the backend's system status",
	RunE:  runAdminSystem,
}

var adminTestAICmd = &cobra.Command{
	Use:   "test-ai",
	Short: "Probe the inference backend's connectivity",
	RunE:  runAdminTestAI,
}

var adminClearDatasetCmd = &cobra.Command{
	Use:   "clear-dataset",
	Short: "Wipe the collected training dataset",
	RunE:  runAdminClearDataset,
}

var adminExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the raw dataset export",
	RunE:  runAdminExport,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(
		adminUsersCmd,
		adminToggleUserCmd,
		adminDeleteUserCmd,
		adminSystemCmd,
		adminTestAICmd,
		adminClearDatasetCmd,
		adminExportCmd,
	)
}

// adminApp wires the stack and enforces the admin screen set.
func adminApp(cmd *cobra.Command, screen string) (*app, func(), error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := commandContext()
	if _, err := a.requireScreen(ctx, screen); err != nil {
		cancel()
		a.close()
		return nil, nil, err
	}

	cleanup := func() {
		cancel()
		a.close()
	}
	return a, cleanup, nil
}

func runAdminUsers(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminUsers)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	users, err := a.api.Users(ctx)
	if err != nil {
		return err
	}
	return a.reporter.Users(ctx, users, a.out)
}

func runAdminToggleUser(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminUsers)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	if err := a.api.ToggleUserStatus(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Toggled status of user %s.\n", args[0])
	return nil
}

func runAdminDeleteUser(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminUsers)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	if err := a.api.DeleteUser(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted user %s.\n", args[0])
	return nil
}

func runAdminSystem(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminSystem)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	status, err := a.api.SystemStatus(ctx)
	if err != nil {
		return err
	}
	return a.reporter.SystemStatus(ctx, status, a.out)
}

func runAdminTestAI(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminSystem)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	result, err := a.api.TestAI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "AI test: %s (%s)\n", result.Status, result.Message)
	return nil
}

func runAdminClearDataset(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminSystem)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	if err := a.api.ClearDataset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Dataset cleared.")
	return nil
}

func runAdminExport(cmd *cobra.Command, args []string) error {
	a, cleanup, err := adminApp(cmd, access.ScreenAdminSystem)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	data, err := a.api.ExportData(ctx)
	if err != nil {
		return err
	}
	if _, err := a.out.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
