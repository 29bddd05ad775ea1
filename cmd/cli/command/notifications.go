package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub/cmd/cli/command/client"
	"learnhub/internal/inbox"
	"learnhub/internal/shared"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// notifications.go = inbox commands. Every command mounts an inbox, so what is printed
// is always the freshly fetched state after the action.

const commandTimeout = 30 * time.Second

var filterFlag string

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif", "n"},
	Short:   "List and manage your notifications",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications (--filter all|unread|read)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithInbox(cmd, func(ctx context.Context, ib *inbox.Inbox) error { return nil })
	},
}

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithInbox(cmd, func(ctx context.Context, ib *inbox.Inbox) error {
			if err := ib.MarkAsRead(ctx, args[0]); err != nil {
				return err
			}
			color.Green("✓ Marked as read")
			return nil
		})
	},
}

var readAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithInbox(cmd, func(ctx context.Context, ib *inbox.Inbox) error {
			if err := ib.MarkAllAsRead(ctx); err != nil {
				return err
			}
			color.Green("✓ All notifications marked as read")
			return nil
		})
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss one notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithInbox(cmd, func(ctx context.Context, ib *inbox.Inbox) error {
			if err := ib.Dismiss(ctx, args[0]); err != nil {
				return err
			}
			color.Green("✓ Dismissed")
			return nil
		})
	},
}

var dismissReadCmd = &cobra.Command{
	Use:   "dismiss-read",
	Short: "Dismiss every notification already read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithInbox(cmd, func(ctx context.Context, ib *inbox.Inbox) error {
			if err := ib.DismissAllRead(ctx); err != nil {
				return err
			}
			color.Green("✓ Read notifications dismissed")
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the inbox and redraw it whenever it changes (Ctrl+C to stop)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := shared.ParseNotificationFilter(filterFlag)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ib, err := openInbox(ctx, true)
		if err != nil {
			return err
		}
		defer ib.Close()
		ib.SetFilter(filter)

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(out, "\nStopped watching.")
				return nil
			case <-ib.Changes():
				fmt.Fprintf(out, "\n%s\n", color.HiBlackString("── %s ──", time.Now().Format("15:04:05")))
				renderInbox(out, ib.Filter(), ib.Visible(), ib.UnreadCount())
			}
		}
	},
}

func init() {
	notificationsCmd.AddCommand(listCmd, readCmd, readAllCmd, dismissCmd, dismissReadCmd, watchCmd)
	notificationsCmd.PersistentFlags().StringVarP(&filterFlag, "filter", "f", string(shared.FilterAll), "view filter: all, unread or read")
}

// runWithInbox mounts an inbox without a live feed, runs action and prints the resulting view.
func runWithInbox(cmd *cobra.Command, action func(ctx context.Context, ib *inbox.Inbox) error) error {
	filter, err := shared.ParseNotificationFilter(filterFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	ib, err := openInbox(ctx, false)
	if err != nil {
		return err
	}
	defer ib.Close()
	ib.SetFilter(filter)

	if err := action(ctx, ib); err != nil {
		return err
	}
	renderInbox(cmd.OutOrStdout(), ib.Filter(), ib.Visible(), ib.UnreadCount())
	return nil
}

func openInbox(ctx context.Context, live bool) (*inbox.Inbox, error) {
	session, err := currentSession()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	var feed inbox.Feed
	if live {
		wsFeed, err := client.NewWSFeed(apiURL, logger)
		if err != nil {
			return nil, err
		}
		feed = wsFeed
	}

	ib := inbox.New(client.NewHTTPClient(apiURL), feed, logger)
	if err := ib.Open(ctx, session); err != nil {
		ib.Close()
		return nil, fmt.Errorf("could not load notifications: %w", err)
	}
	return ib, nil
}
