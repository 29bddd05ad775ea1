package shared

import (
	"encoding/json"
	"fmt"
	"time"
)

// shared types across the application
// 1st: change event carried by the realtime feed (server -> websocket -> inbox)
// 2nd: filter selector understood by both the REST API and the inbox

// ChangeType is the row-level operation reported by the change feed.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// NotificationsTable is the only table published on the feed.
const NotificationsTable = "notifications"

// ChangeEvent is a generic "something changed" signal for one row.
// Consumers never diff it, they refetch.
type ChangeEvent struct {
	Table    string     `json:"table"`
	Type     ChangeType `json:"type"`
	RecordID string     `json:"record_id"`
	UserID   string     `json:"user_id"`
	At       time.Time  `json:"at"`
}

// NewChangeEvent builds a notifications-table event stamped with the current time.
func NewChangeEvent(changeType ChangeType, recordID, userID string) ChangeEvent {
	return ChangeEvent{
		Table:    NotificationsTable,
		Type:     changeType,
		RecordID: recordID,
		UserID:   userID,
		At:       time.Now().UTC(),
	}
}

// DecodeChangeEvent parses a JSON payload (pg_notify body, redis message) into a ChangeEvent.
// The payload must name the owning user, otherwise it cannot be routed.
func DecodeChangeEvent(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.UserID == "" {
		return ChangeEvent{}, fmt.Errorf("decode change event: missing user_id")
	}
	if ev.Table == "" {
		ev.Table = NotificationsTable
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev, nil
}

// NotificationFilter selects which notifications a view displays.
type NotificationFilter string

const (
	FilterAll    NotificationFilter = "all"
	FilterUnread NotificationFilter = "unread"
	FilterRead   NotificationFilter = "read"
)

// ParseNotificationFilter maps user input to a filter; empty input means FilterAll.
func ParseNotificationFilter(s string) (NotificationFilter, error) {
	switch NotificationFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnread:
		return FilterUnread, nil
	case FilterRead:
		return FilterRead, nil
	default:
		return "", fmt.Errorf("unknown notification filter %q (want all, unread or read)", s)
	}
}
