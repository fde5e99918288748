// ABOUTME: CLI commands for accounts: sign up, sign in, Google sign-in, and recovery.
// ABOUTME: Successful sign-ins are saved to the session file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/healthcal/internal/config"
	"github.com/harperreed/healthcal/internal/gcal"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/spf13/cobra"
)

var authPassword string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your healthcal account",
	Long: `Create an account, sign in, and recover access.

Passwords are read from --password or, when omitted, from the first line
of standard input.

EXAMPLES:

  healthcal auth signup you@example.com
  healthcal auth signin you@example.com --password hunter22
  healthcal auth google                     # Sign in with Google
  healthcal auth whoami
  healthcal auth reset-password you@example.com
  healthcal auth recover <token> --password newpass
  healthcal auth signout`,
}

var authSignUpCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		sess, err := app.auth.SignUp(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		return signedIn(cmd, sess, "Created account")
	},
}

var authSignInCmd = &cobra.Command{
	Use:     "signin <email>",
	Aliases: []string{"login"},
	Short:   "Sign in with email and password",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		sess, err := app.auth.SignIn(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		return signedIn(cmd, sess, "Signed in")
	},
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Sign in with your Google account",
	Long: `Sign in with Google. Requires google_client_id and google_client_secret
in the config (or HEALTHCAL_GOOGLE_CLIENT_ID / HEALTHCAL_GOOGLE_CLIENT_SECRET).

Open the printed URL in a browser; healthcal listens on the redirect URL
for the response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		authURL, err := app.auth.SignInWithOAuth(ctx, gcal.Source)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Open this URL to sign in:")
		fmt.Fprintln(cmd.OutOrStdout(), "  "+authURL)

		res, err := gcal.AwaitCallback(ctx, app.cfg.GetGoogleRedirectURL())
		if err != nil {
			return err
		}
		sess, err := app.auth.CompleteOAuth(ctx, gcal.Source, res.State, res.Code)
		if err != nil {
			return err
		}
		return signedIn(cmd, sess, "Signed in with Google")
	},
}

var authSignOutCmd = &cobra.Command{
	Use:     "signout",
	Aliases: []string{"logout"},
	Short:   "Sign out and forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.auth.SignOut(cmd.Context()); err != nil {
			return err
		}
		if err := config.ClearSession(config.SessionPath()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✓ Signed out"))
		return nil
	},
}

var authWhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := app.auth.CurrentUser(cmd.Context())
		if err != nil {
			return err
		}
		if user == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", user.Email, faint.Sprintf("(%s, %s)", user.Provider, shortID(user.ID)))
		return nil
	},
}

var authResetCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Issue a password recovery token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := app.auth.ResetPassword(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Recovery token issued"))
		fmt.Fprintf(cmd.OutOrStdout(), "  healthcal auth recover %s --password <new password>\n", token)
		return nil
	},
}

var authRecoverCmd = &cobra.Command{
	Use:   "recover <token>",
	Short: "Sign in with a recovery token and set a new password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		sess, err := app.auth.VerifyRecovery(ctx, args[0])
		if err != nil {
			return err
		}
		if err := app.auth.UpdatePassword(ctx, password); err != nil {
			return err
		}
		return signedIn(cmd, sess, "Password updated")
	},
}

var authPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the signed-in account's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		if err := app.auth.UpdatePassword(cmd.Context(), password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Password updated"))
		return nil
	},
}

func signedIn(cmd *cobra.Command, sess *models.Session, msg string) error {
	if err := app.saveSession(sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ %s as %s", msg, sess.User.Email))
	return nil
}

// readPassword returns --password, or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	return readLine(cmd.InOrStdin())
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	for _, c := range []*cobra.Command{authSignUpCmd, authSignInCmd, authRecoverCmd, authPasswdCmd} {
		c.Flags().StringVarP(&authPassword, "password", "p", "", "password (read from stdin when omitted)")
	}
	authCmd.AddCommand(authSignUpCmd, authSignInCmd, authGoogleCmd, authSignOutCmd,
		authWhoAmICmd, authResetCmd, authRecoverCmd, authPasswdCmd)
	rootCmd.AddCommand(authCmd)
}
