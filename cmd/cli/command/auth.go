package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"learnhub/cmd/cli/authentication"
	"learnhub/cmd/cli/command/client"
	"learnhub/internal/inbox"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// auth.go handles the session commands. Sign-in happens in the LearnHub web app;
// the CLI stores the session token it is given.

// authCmd represents the auth command for authentication related subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Store, inspect and remove the LearnHub session token used by the other commands.`,
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the session token given with --token in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if token == "" {
			return errors.New(`login needs a token: learnhub auth login --token <token>`)
		}
		creds, err := authentication.InspectToken(token)
		if err != nil {
			return fmt.Errorf("login process failed: %w", err)
		}
		if creds.Expired(time.Now()) {
			return errors.New("login process failed: token has expired")
		}

		if err := authentication.StoreTokens(creds); err != nil {
			return fmt.Errorf("could not save token: %w", err)
		}

		color.Green("✓ Logged in as %s", displayName(creds))
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteTokens(); err != nil {
			return fmt.Errorf("could not remove token: %w", err)
		}
		color.Green("✓ Successfully logged out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who the CLI is acting as",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := currentCredentials()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "User:    %s\n", displayName(creds))
		fmt.Fprintf(out, "API:     %s\n", apiURL)
		expired := creds.Expired(time.Now())
		if creds.ExpiresAt != 0 {
			expires := time.Unix(creds.ExpiresAt, 0)
			state := color.GreenString("valid")
			if expired {
				state = color.RedString("expired")
			}
			fmt.Fprintf(out, "Expires: %s (%s)\n", expires.Format(time.RFC1123), state)
		}
		if expired {
			return nil
		}
		fmt.Fprintf(out, "Unread:  %s\n", unreadBadge(cmd.Context(), creds))
		return nil
	},
}

// unreadBadge asks the server for the unread count; status still succeeds when it is unreachable.
func unreadBadge(ctx context.Context, creds *authentication.StoredCredentials) string {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	n, err := client.NewHTTPClient(apiURL).UnreadCount(ctx, inbox.Session{UserID: creds.UserID, Token: creds.AccessToken})
	if err != nil {
		return color.YellowString("unavailable (%v)", err)
	}
	return strconv.Itoa(n)
}

// init function to add auth commands to root command
func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

// currentCredentials resolves the identity: --token / LEARNHUB_TOKEN first, then the keyring.
func currentCredentials() (*authentication.StoredCredentials, error) {
	if token != "" {
		return authentication.InspectToken(token)
	}
	creds, err := authentication.GetTokens()
	if errors.Is(err, authentication.ErrNotLoggedIn) {
		return nil, errors.New(`not logged in: run "learnhub auth login --token <token>" or set LEARNHUB_TOKEN`)
	}
	return creds, err
}

func currentSession() (inbox.Session, error) {
	creds, err := currentCredentials()
	if err != nil {
		return inbox.Session{}, err
	}
	if creds.Expired(time.Now()) {
		return inbox.Session{}, errors.New("session token has expired, log in again")
	}
	return inbox.Session{UserID: creds.UserID, Token: creds.AccessToken}, nil
}

func displayName(creds *authentication.StoredCredentials) string {
	if creds.Email != "" {
		return fmt.Sprintf("%s (%s)", creds.Email, creds.UserID)
	}
	return creds.UserID
}
