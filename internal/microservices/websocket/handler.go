package websocket

import (
	"log/slog"
	"net/http"

	"learnhub/internal/feed"
	"learnhub/internal/microservices/http-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket connections

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the token is the access control; origin is not checked so the CLI and browsers can connect
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades an authenticated request and streams the user's change events.
func WSHandler(hub *feed.Hub, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// get user info from JWT middleware
		userID := c.GetString(middleware.ContextUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: user ID not found"})
			return
		}

		// upgrade HTTP connection to WebSocket; on failure the upgrader already replied
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", "user_id", userID, "error", err)
			return
		}

		// subscribe before the greeting so no change after it can be missed
		events, unsubscribe := hub.Subscribe(userID)
		client := NewClient(uuid.New().String(), userID, conn, events, unsubscribe, logger)
		logger.Info("ws_client_subscribed", "client_id", client.ID, "user_id", userID, "subscribers", hub.Count(userID))

		// start goroutines for read and write pumps
		go client.ReadPump()
		go client.WritePump()
	}
}
