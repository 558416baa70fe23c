package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vegscan/vegscan/internal/access"
	"github.com/vegscan/vegscan/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the analysis service",
	Long: `Login authenticates against the backend and stores the session locally.
The role (consumer or admin) is resolved during login and decides which
commands become reachable.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the currently logged-in user",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, whoamiCmd)

	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password")

	registerCmd.Flags().String("email", "", "Account email")
	registerCmd.Flags().String("username", "", "Display name")
	registerCmd.Flags().String("password", "", "Account password")
	registerCmd.Flags().Bool("admin", false, "Request an administrator account")
}

// commandContext returns a context cancelled by CTRL+C.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required (use --email and --password)")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := a.sessions.Establish(ctx, email, password)
	if err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("%s", authErr.Message())
		}
		return err
	}

	home, _ := access.Resolve(sess, "")
	fmt.Fprintf(a.out, "Logged in as %s (%s). Home screen: %s\n", sess.Email, sess.Role, home)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := a.sessions.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	isAdmin, _ := cmd.Flags().GetBool("admin")

	if email == "" || password == "" {
		return fmt.Errorf("email and password are required (use --email and --password)")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := a.sessions.Register(ctx, email, username, password, isAdmin); err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("%s", authErr.Message())
		}
		return err
	}

	fmt.Fprintln(a.out, "Registration successful. Run 'vegscan login' to sign in.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext()
	defer cancel()

	sess, err := a.sessions.Restore(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s, user id %s)\n", sess.Email, sess.Role, sess.UserID)
	return nil
}
