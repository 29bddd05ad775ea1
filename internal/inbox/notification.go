package inbox

import (
	"context"
	"time"

	"learnhub/internal/shared"
)

// Notification is one row of the user's notifications as the inbox sees it.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	ReadAt    *time.Time `json:"read_at"`
	DeletedAt *time.Time `json:"deleted_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n Notification) IsRead() bool { return n.ReadAt != nil }

// Session identifies the signed-in user. An empty UserID means signed out.
type Session struct {
	UserID string
	Token  string
}

func (s Session) Valid() bool { return s.UserID != "" }

// Remote is the data store the inbox reads from and writes to.
// Implementations scope every call to s.UserID.
type Remote interface {
	FetchNotifications(ctx context.Context, s Session) ([]Notification, error)
	MarkAsRead(ctx context.Context, s Session, id string) error
	MarkAllAsRead(ctx context.Context, s Session) error
	Dismiss(ctx context.Context, s Session, id string) error
	DismissAllRead(ctx context.Context, s Session) error
}

// Subscription delivers change events until Close is called or the transport ends,
// at which point Events is closed.
type Subscription interface {
	Events() <-chan shared.ChangeEvent
	Close() error
}

// Feed opens realtime subscriptions to the notifications of one user.
type Feed interface {
	Subscribe(ctx context.Context, s Session) (Subscription, error)
}
