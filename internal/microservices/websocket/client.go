package websocket

import (
	"log/slog"
	"sync"
	"time"

	"learnhub/internal/shared"

	"github.com/gorilla/websocket"
)

// Individual client connection handler: one per websocket, bound to one user's feed.

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // send pings before pong wait expires, 10% slack for network delay
	MaxMessageSize = 512                 // maximum message size allowed from peer
)

type Client struct {
	ID     string          // unique connection ID
	UserID string          // user ID get from auth token(JWT.claims)
	Conn   *websocket.Conn // WebSocket connection

	events      <-chan shared.ChangeEvent // hub subscription of UserID
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
	logger      *slog.Logger
}

// constructor new client
func NewClient(id, userID string, conn *websocket.Conn, events <-chan shared.ChangeEvent, unsubscribe func(), logger *slog.Logger) *Client {
	return &Client{
		ID:          id,
		UserID:      userID,
		Conn:        conn,
		events:      events,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// ReadPump keeps the read deadline fresh via pongs and detects disconnects.
// The feed is one-way, so anything the peer sends is discarded.
func (c *Client) ReadPump() {
	defer c.Close()

	c.Conn.SetReadLimit(MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ws_unexpected_close", "client_id", c.ID, "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump is the only writer on the connection: it sends the subscribed
// greeting, then change events and pings until the client is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	if err := c.SendMessage(NewSubscribedMessage()); err != nil {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.events:
			if !ok {
				_ = c.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(WriteWait))
				return
			}
			if err := c.SendMessage(NewChangeMessage(ev)); err != nil {
				c.logger.Debug("ws_write_failed", "client_id", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage writes one JSON frame. Only WritePump calls it.
func (c *Client) SendMessage(msg *Message) error {
	data, err := msg.ToJSON()
	if err != nil {
		return err
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Close unsubscribes from the hub and closes the connection; safe to call twice.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.unsubscribe()
		err = c.Conn.Close()
		c.logger.Debug("ws_client_closed", "client_id", c.ID, "user_id", c.UserID)
	})
	return err
}
