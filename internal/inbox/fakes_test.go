package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"learnhub/internal/shared"
)

var errStore = errors.New("store unavailable")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote behaves like the REST store: rows are scoped per user and
// dismissed rows are hidden from fetches.
type fakeRemote struct {
	mu          sync.Mutex
	rows        map[string][]Notification
	fetches     map[string]int
	fetchErr    error
	updateErr   error
	leakDeleted bool
	gates       map[string]chan struct{}
	tokens      []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:    make(map[string][]Notification),
		fetches: make(map[string]int),
		gates:   make(map[string]chan struct{}),
	}
}

func (r *fakeRemote) add(userID string, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.UserID = userID
	r.rows[userID] = append(r.rows[userID], n)
}

func (r *fakeRemote) fetchCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches[userID]
}

// block makes fetches for userID wait until the returned function is called.
func (r *fakeRemote) block(userID string) func() {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gates[userID] = gate
	r.mu.Unlock()
	return func() { close(gate) }
}

func (r *fakeRemote) FetchNotifications(ctx context.Context, s Session) ([]Notification, error) {
	r.mu.Lock()
	r.fetches[s.UserID]++
	r.tokens = append(r.tokens, s.Token)
	gate := r.gates[s.UserID]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := []Notification{}
	for _, n := range r.rows[s.UserID] {
		if n.DeletedAt != nil && !r.leakDeleted {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeRemote) update(s Session, match func(*Notification) bool, apply func(*Notification)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	rows := r.rows[s.UserID]
	for idx := range rows {
		if rows[idx].DeletedAt == nil && match(&rows[idx]) {
			apply(&rows[idx])
		}
	}
	return nil
}

func now() *time.Time {
	t := time.Now().UTC()
	return &t
}

func (r *fakeRemote) MarkAsRead(_ context.Context, s Session, id string) error {
	return r.update(s,
		func(n *Notification) bool { return n.ID == id && n.ReadAt == nil },
		func(n *Notification) { n.ReadAt = now() })
}

func (r *fakeRemote) MarkAllAsRead(_ context.Context, s Session) error {
	return r.update(s,
		func(n *Notification) bool { return n.ReadAt == nil },
		func(n *Notification) { n.ReadAt = now() })
}

func (r *fakeRemote) Dismiss(_ context.Context, s Session, id string) error {
	return r.update(s,
		func(n *Notification) bool { return n.ID == id },
		func(n *Notification) { n.DeletedAt = now() })
}

func (r *fakeRemote) DismissAllRead(_ context.Context, s Session) error {
	return r.update(s,
		func(n *Notification) bool { return n.ReadAt != nil },
		func(n *Notification) { n.DeletedAt = now() })
}

type fakeSub struct {
	mu      sync.Mutex
	ch      chan shared.ChangeEvent
	closed  bool
	session Session
}

func (s *fakeSub) Events() <-chan shared.ChangeEvent { return s.ch }

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSub) push(ev shared.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.ch <- ev
	}
}

type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
	err  error
}

func (f *fakeFeed) Subscribe(_ context.Context, s Session) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSub{ch: make(chan shared.ChangeEvent, 8), session: s}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) all() []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSub(nil), f.subs...)
}

func (f *fakeFeed) last() *fakeSub {
	subs := f.all()
	if len(subs) == 0 {
		return nil
	}
	return subs[len(subs)-1]
}
