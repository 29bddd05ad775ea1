// notify sends notifications through the internal producer endpoint.
// It is what scheduled jobs and operators use to reach users' inboxes.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"learnhub/internal/config"
	"learnhub/internal/microservices/http-api/service"
	"learnhub/internal/producer"

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
		apiURL  string
		token   string
		users   []string
		notice  producer.Notice
		workers int
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification to one or more users",
		Example: `  notify --user 3f0c... --title "Quiz graded" --message "You scored 9/10" --type success
  notify --user a,b,c --title "Maintenance" --message "Tonight 22:00 UTC" --type warning`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(users) == 0 {
				return errors.New("at least one --user is required")
			}
			if strings.TrimSpace(notice.Title) == "" || strings.TrimSpace(notice.Message) == "" {
				return errors.New("--title and --message are required")
			}

			logger := (&config.Config{LogLevel: "info", LogFormat: "text"}).NewLogger(cmd.ErrOrStderr())

			if token == "" {
				var err error
				if token, err = mintServiceToken(); err != nil {
					return err
				}
			}

			n := producer.NewNotifier(apiURL, token, logger).WithWorkers(workers)

			if len(users) == 1 {
				created, err := n.Notify(cmd.Context(), users[0], notice)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			}

			res := n.Broadcast(cmd.Context(), users, notice)
			for _, c := range res.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.UserID, c.ID)
			}
			for userID, err := range res.Failed {
				logger.Error("notification_send_failed", slog.String("user_id", userID), slog.Any("error", err))
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d of %d notifications failed", len(res.Failed), len(users))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", envOr("LEARNHUB_API_URL", "http://localhost:8080"), "API base URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("LEARNHUB_SERVICE_TOKEN"), "service_role token; minted from JWT_SECRET when empty")
	cmd.Flags().StringSliceVarP(&users, "user", "u", nil, "recipient user id (repeatable or comma separated)")
	cmd.Flags().StringVarP(&notice.Title, "title", "t", "", "notification title")
	cmd.Flags().StringVarP(&notice.Message, "message", "m", "", "notification body")
	cmd.Flags().StringVar(&notice.Type, "type", "info", "info, success, warning or error")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent requests when sending to several users")
	return cmd
}

// mintServiceToken signs a short lived service_role token with the local JWT_SECRET.
func mintServiceToken() (string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", fmt.Errorf("no --token given and JWT_SECRET unavailable: %w", err)
	}
	return service.NewAuthService(cfg.JWTSecret).IssueToken("notify-cli", "", service.RoleService, 5*time.Minute)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
