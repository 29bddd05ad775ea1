// Package inbox keeps an in-memory copy of the signed-in user's notifications,
// refetched in full whenever the realtime feed reports a change, and exposes
// the filtered views and the read/dismiss actions over it.
package inbox

import (
	"context"
	"log/slog"
	"sync"

	"learnhub/internal/shared"
)

type Inbox struct {
	remote Remote
	feed   Feed
	logger *slog.Logger

	mu            sync.RWMutex
	session       Session
	generation    uint64 // bumped on every session change; stale fetches are dropped
	notifications []Notification
	filter        shared.NotificationFilter
	sub           *watcher

	changes chan struct{}
}

// watcher is the live subscription of one session.
type watcher struct {
	sub    Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func New(remote Remote, feed Feed, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		remote:        remote,
		feed:          feed,
		logger:        logger,
		notifications: []Notification{},
		filter:        shared.FilterAll,
		changes:       make(chan struct{}, 1),
	}
}

// Open binds s, subscribes to its changes and performs the initial fetch.
func (i *Inbox) Open(ctx context.Context, s Session) error {
	return i.SetSession(ctx, s)
}

// SetSession switches the inbox to another identity. The previous subscription is
// torn down and the cache cleared before anything is fetched for the new user.
// A token refresh for the same user only swaps the credentials.
// An empty session leaves the inbox empty and unsubscribed.
func (i *Inbox) SetSession(ctx context.Context, s Session) error {
	i.mu.Lock()
	if s.Valid() && s.UserID == i.session.UserID && i.sub != nil {
		i.session = s
		i.mu.Unlock()
		return nil
	}
	i.generation++
	gen := i.generation
	old := i.sub
	i.sub = nil
	i.session = s
	i.notifications = []Notification{}
	i.mu.Unlock()

	i.stop(old)
	i.signal()

	if !s.Valid() {
		return nil
	}

	// subscribe before fetching so a change landing between the two still triggers a refetch
	if err := i.subscribe(ctx, s, gen); err != nil {
		i.logger.Error("notification_subscribe_failed", "user_id", s.UserID, "error", err)
	}
	return i.refresh(ctx, gen)
}

// Session returns the bound session.
func (i *Inbox) Session() Session {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.session
}

func (i *Inbox) subscribe(ctx context.Context, s Session, gen uint64) error {
	if i.feed == nil {
		return nil
	}
	sub, err := i.feed.Subscribe(ctx, s)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &watcher{sub: sub, cancel: cancel, done: make(chan struct{})}

	i.mu.Lock()
	if i.generation != gen {
		// the session changed while we were subscribing
		i.mu.Unlock()
		cancel()
		_ = sub.Close()
		return nil
	}
	i.sub = w
	i.mu.Unlock()

	go i.watch(wctx, gen, s.UserID, w)
	return nil
}

// watch refetches on every event. Payloads are not inspected beyond logging.
func (i *Inbox) watch(ctx context.Context, gen uint64, userID string, w *watcher) {
	defer close(w.done)
	events := w.sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				i.logger.Warn("notification_feed_closed", "user_id", userID)
				return
			}
			i.logger.Debug("notification_change_received",
				"user_id", userID,
				"type", string(ev.Type),
				"record_id", ev.RecordID,
			)
			_ = i.refresh(ctx, gen)
		}
	}
}

func (i *Inbox) stop(w *watcher) {
	if w == nil {
		return
	}
	w.cancel()
	if err := w.sub.Close(); err != nil {
		i.logger.Debug("notification_unsubscribe_failed", "error", err)
	}
	<-w.done
}

// Refresh replaces the cache with a full fetch of the user's active notifications.
// On failure the cache becomes empty and a *FetchError is returned.
func (i *Inbox) Refresh(ctx context.Context) error {
	i.mu.RLock()
	gen := i.generation
	i.mu.RUnlock()
	return i.refresh(ctx, gen)
}

func (i *Inbox) refresh(ctx context.Context, gen uint64) error {
	i.mu.RLock()
	s := i.session
	current := i.generation
	i.mu.RUnlock()

	if gen != current {
		return nil
	}
	if !s.Valid() {
		return ErrNoSession
	}

	list, err := i.remote.FetchNotifications(ctx, s)
	if err != nil {
		if i.replace(gen, []Notification{}) {
			i.logger.Error("notification_fetch_failed", "user_id", s.UserID, "error", err)
		}
		return &FetchError{UserID: s.UserID, Err: err}
	}

	i.replace(gen, normalize(list))
	return nil
}

// replace installs list if gen is still the current session and reports whether it did.
func (i *Inbox) replace(gen uint64, list []Notification) bool {
	i.mu.Lock()
	if i.generation != gen {
		i.mu.Unlock()
		return false
	}
	i.notifications = list
	i.mu.Unlock()

	i.signal()
	return true
}

func (i *Inbox) signal() {
	select {
	case i.changes <- struct{}{}:
	default:
	}
}

// Changes is signalled after the cache is replaced. Signals coalesce.
func (i *Inbox) Changes() <-chan struct{} {
	return i.changes
}

// Notifications returns a copy of the cached list, newest first.
func (i *Inbox) Notifications() []Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Notification, len(i.notifications))
	copy(out, i.notifications)
	return out
}

func (i *Inbox) Filter() shared.NotificationFilter {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.filter
}

func (i *Inbox) SetFilter(f shared.NotificationFilter) {
	i.mu.Lock()
	i.filter = f
	i.mu.Unlock()
	i.signal()
}

// Visible is the cache narrowed by the current filter.
func (i *Inbox) Visible() []Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Apply(i.notifications, i.filter)
}

// UnreadCount is independent of the filter.
func (i *Inbox) UnreadCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return CountUnread(i.notifications)
}

func (i *Inbox) MarkAsRead(ctx context.Context, id string) error {
	return i.mutate(ctx, "mark as read", id, func(s Session) error {
		return i.remote.MarkAsRead(ctx, s, id)
	})
}

func (i *Inbox) MarkAllAsRead(ctx context.Context) error {
	return i.mutate(ctx, "mark all as read", "", func(s Session) error {
		return i.remote.MarkAllAsRead(ctx, s)
	})
}

// Dismiss hides a notification for good. The row is soft deleted remotely.
func (i *Inbox) Dismiss(ctx context.Context, id string) error {
	return i.mutate(ctx, "dismiss", id, func(s Session) error {
		return i.remote.Dismiss(ctx, s, id)
	})
}

func (i *Inbox) DismissAllRead(ctx context.Context) error {
	return i.mutate(ctx, "dismiss all read", "", func(s Session) error {
		return i.remote.DismissAllRead(ctx, s)
	})
}

// mutate runs one remote update and then refetches. A failed update skips the
// refetch; a failed refetch after a successful update is only logged.
func (i *Inbox) mutate(ctx context.Context, op, id string, update func(Session) error) error {
	i.mu.RLock()
	s := i.session
	gen := i.generation
	i.mu.RUnlock()

	if !s.Valid() {
		return ErrNoSession
	}
	if err := update(s); err != nil {
		i.logger.Warn("notification_update_failed", "op", op, "id", id, "user_id", s.UserID, "error", err)
		return &MutationError{Op: op, ID: id, Err: err}
	}

	_ = i.refresh(ctx, gen)
	return nil
}

// Close tears down the subscription. The cache is kept but no longer updated.
func (i *Inbox) Close() error {
	i.mu.Lock()
	i.generation++
	old := i.sub
	i.sub = nil
	i.mu.Unlock()

	i.stop(old)
	return nil
}
