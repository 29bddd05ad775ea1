package client

// ws_client.go = websocket subscription to the notification change feed.

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"learnhub/internal/inbox"
	"learnhub/internal/shared"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

type feedMessage struct {
	Type  string              `json:"type"`
	Event *shared.ChangeEvent `json:"event,omitempty"`
}

// WSFeed opens one websocket per subscription. It does not reconnect:
// when the connection drops the subscription's events channel closes.
type WSFeed struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewWSFeed(apiURL string, logger *slog.Logger) (*WSFeed, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("invalid api url scheme %q", u.Scheme)
	}
	u.Path += "/ws/notifications"

	return &WSFeed{
		wsURL:  u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: logger,
	}, nil
}

// Subscribe dials the feed and waits for the server to confirm the subscription.
func (f *WSFeed) Subscribe(ctx context.Context, s inbox.Session) (inbox.Subscription, error) {
	header := http.Header{}
	header.Add("Authorization", "Bearer "+s.Token)

	conn, resp, err := f.dialer.DialContext(ctx, f.wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: "websocket handshake rejected"}
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var first feedMessage
	if err := conn.ReadJSON(&first); err != nil || first.Type != "subscribed" {
		conn.Close()
		if err == nil {
			err = fmt.Errorf("unexpected first message %q", first.Type)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	sub := &wsSubscription{
		conn:   conn,
		events: make(chan shared.ChangeEvent, 16),
		done:   make(chan struct{}),
		logger: f.logger,
	}
	go sub.readLoop()
	return sub, nil
}

type wsSubscription struct {
	conn      *websocket.Conn
	events    chan shared.ChangeEvent
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func (s *wsSubscription) Events() <-chan shared.ChangeEvent { return s.events }

// readLoop is the only reader; gorilla answers server pings while it reads.
func (s *wsSubscription) readLoop() {
	defer close(s.events)
	for {
		var msg feedMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("notification_feed_read_failed", "error", err)
			}
			return
		}
		if msg.Type != "change" || msg.Event == nil {
			continue
		}
		select {
		case s.events <- *msg.Event:
		default:
			// a refetch is already pending, it will see this change too
		}
	}
}

func (s *wsSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
