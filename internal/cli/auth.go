package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// addAuthCommands adds authentication commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newSignupCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newWhoamiCmd(app))
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in to your portfolio account",
		Long: `Sign in to your portfolio account.

The password is read from the --password flag, or prompted on stdin when
the flag is omitted. The session token is stored locally so subsequent
commands do not require signing in again.`,
		Example: `  stocks login me@example.com
  stocks login me@example.com --password secret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Backend == nil {
				output.Error("Backend not configured: %v", app.backendErr)
				return fmt.Errorf("backend not configured")
			}

			email := strings.TrimSpace(args[0])
			password, err := resolvePassword(cmd, output)
			if err != nil {
				return err
			}

			user, err := app.Backend.SignIn(cmd.Context(), email, password)
			if err != nil {
				output.Error("Login failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(user)
			}
			output.Success("✓ Signed in as %s", user.Email)
			return nil
		},
	}

	cmd.Flags().String("password", "", "account password (prompted if omitted)")

	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create a new portfolio account",
		Long: `Create a new portfolio account.

Depending on backend settings, the account may require email confirmation
before the first login succeeds.`,
		Example: `  stocks signup me@example.com`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Backend == nil {
				output.Error("Backend not configured: %v", app.backendErr)
				return fmt.Errorf("backend not configured")
			}

			email := strings.TrimSpace(args[0])
			password, err := resolvePassword(cmd, output)
			if err != nil {
				return err
			}

			user, err := app.Backend.SignUp(cmd.Context(), email, password)
			if err != nil {
				output.Error("Signup failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(user)
			}
			if app.Backend.IsAuthenticated() {
				output.Success("✓ Account created, signed in as %s", user.Email)
			} else {
				output.Success("✓ Account created for %s", user.Email)
				output.Info("Check your inbox to confirm the address, then run 'stocks login'")
			}
			return nil
		},
	}

	cmd.Flags().String("password", "", "account password (prompted if omitted)")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Sign out and clear the stored session",
		Example: `  stocks logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Backend == nil {
				output.Warning("No active session found.")
				return nil
			}
			if !app.Backend.IsAuthenticated() {
				output.Warning("Not currently signed in.")
				return nil
			}

			if err := app.Backend.SignOut(cmd.Context()); err != nil {
				// Local state is cleared even when the remote call fails.
				output.Warning("Remote sign-out failed: %v", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"success":   true,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			output.Success("✓ Signed out")
			output.Dim("Session token has been cleared.")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Backend == nil {
				output.Error("Backend not configured: %v", app.backendErr)
				return nil
			}

			user, err := app.Backend.CurrentUser()
			if err != nil {
				output.Warning("Not signed in")
				output.Info("Run 'stocks login <email>' to sign in")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(user)
			}
			output.Printf("%s\n", user.Email)
			output.Dim("User ID: %s", user.ID)
			return nil
		},
	}
}

// resolvePassword reads the password flag, falling back to a stdin prompt.
func resolvePassword(cmd *cobra.Command, output *Output) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}

	output.Bold("Password:")
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("> ")
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		output.Error("No password provided")
		return "", fmt.Errorf("no password provided")
	}
	return line, nil
}
