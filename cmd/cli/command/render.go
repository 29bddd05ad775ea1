package command

import (
	"fmt"
	"io"

	"learnhub/internal/inbox"
	"learnhub/internal/shared"

	"github.com/fatih/color"
)

var typeColors = map[string]*color.Color{
	"info":    color.New(color.FgBlue),
	"success": color.New(color.FgGreen),
	"warning": color.New(color.FgYellow),
	"error":   color.New(color.FgRed),
}

var (
	unreadTitle = color.New(color.Bold)
	dim         = color.New(color.FgHiBlack)
)

func renderInbox(w io.Writer, filter shared.NotificationFilter, visible []inbox.Notification, unread int) {
	fmt.Fprintf(w, "Notifications · %d unread · filter: %s\n", unread, filter)

	if len(visible) == 0 {
		switch filter {
		case shared.FilterUnread:
			fmt.Fprintln(w, dim.Sprint("  You're all caught up."))
		case shared.FilterRead:
			fmt.Fprintln(w, dim.Sprint("  No read notifications."))
		default:
			fmt.Fprintln(w, dim.Sprint("  No notifications."))
		}
		return
	}

	for _, n := range visible {
		marker := "○"
		title := n.Title
		if !n.IsRead() {
			marker = "●"
			title = unreadTitle.Sprint(n.Title)
		}

		typeColor, ok := typeColors[n.Type]
		if !ok {
			typeColor = typeColors["info"]
		}

		fmt.Fprintf(w, "%s %s %s  %s\n", marker, typeColor.Sprintf("[%s]", n.Type), title, dim.Sprint(n.CreatedAt.Local().Format("Jan 2 15:04")))
		if n.Message != "" {
			fmt.Fprintf(w, "    %s\n", n.Message)
		}
		fmt.Fprintf(w, "    %s\n", dim.Sprintf("id: %s", n.ID))
	}
}
