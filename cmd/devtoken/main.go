// devtoken mints session tokens signed with JWT_SECRET for local development,
// so the API and the CLI can be exercised without the hosted sign-in.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"learnhub/internal/config"
	"learnhub/internal/microservices/http-api/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a development session token",
		Long: `Mint a session token signed with JWT_SECRET (read from the environment or .env).
Use --role service_role for producer tokens accepted by POST /api/internal/notifications.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			if userID == "" {
				if role != service.RoleAuthenticated {
					return errors.New("--user is required for non-user roles")
				}
				userID = uuid.New().String()
			}

			token, err := service.NewAuthService(cfg.JWTSecret).IssueToken(userID, email, role, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "user:", userID)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (sub claim); random uuid when empty")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email claim")
	cmd.Flags().StringVarP(&role, "role", "r", service.RoleAuthenticated, "authenticated or service_role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
