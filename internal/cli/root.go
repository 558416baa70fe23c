// Package cli wires the vegscan commands: session lifecycle, scan workflow,
// dashboard and history views, and the admin surface.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// defaultServer is the backend base URL when neither the flag nor the
// VEGSCAN_SERVER environment variable is set.
const defaultServer = "http://localhost:8000"

var rootCmd = &cobra.Command{
	Use:   "vegscan",
	Short: "Client for the vegetable-safety analysis service",
	Long: `vegscan - client for the vegetable-safety analysis service

Upload a vegetable photo, receive an AI-derived safety verdict, and review
your scan history. Administrators additionally manage users and system
configuration. All commands talk to the backend configured via --server or
the VEGSCAN_SERVER environment variable.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Connection flags. The server default is resolved at run time so a
	// .env file loaded by the entrypoint can still supply VEGSCAN_SERVER.
	rootCmd.PersistentFlags().StringP("server", "s", "", "Backend base URL (default $VEGSCAN_SERVER, then "+defaultServer+")")
	rootCmd.PersistentFlags().String("proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().Float64("max-rps", 0, "Maximum requests per second (0 = unlimited)")

	// Session flags
	rootCmd.PersistentFlags().String("session", "", "Session database path (default ~/.vegscan/session.db)")

	// Output flags
	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level (0-3)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format (text, json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vegscan %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
