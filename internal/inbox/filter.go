package inbox

import (
	"sort"

	"learnhub/internal/shared"
)

// Apply returns the notifications selected by filter, in the input order.
// The input is never modified.
func Apply(list []Notification, filter shared.NotificationFilter) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		switch filter {
		case shared.FilterUnread:
			if n.IsRead() {
				continue
			}
		case shared.FilterRead:
			if !n.IsRead() {
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

// CountUnread counts notifications without a read time.
func CountUnread(list []Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead() {
			count++
		}
	}
	return count
}

// normalize drops soft-deleted rows and orders newest first.
func normalize(list []Notification) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if n.DeletedAt != nil {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}
