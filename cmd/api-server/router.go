package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"learnhub/internal/feed"
	"learnhub/internal/microservices/http-api/handler"
	"learnhub/internal/microservices/http-api/middleware"
	"learnhub/internal/microservices/http-api/service"
	"learnhub/internal/microservices/websocket"

	"github.com/gin-gonic/gin"
)

type routerDeps struct {
	auth           service.AuthService
	notifications  service.NotificationService
	hub            *feed.Hub
	limiter        *middleware.RateLimiter
	requestTimeout time.Duration
	healthCheck    func(ctx context.Context) error
	logger         *slog.Logger
	requestLogging bool
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.requestLogging {
		r.Use(gin.Logger())
	}

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if d.healthCheck != nil {
			if err := d.healthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.NewNotificationHandler(d.notifications, d.requestTimeout, d.logger)

	var limit gin.HandlerFunc
	if d.limiter != nil {
		limit = d.limiter.Middleware()
	}

	api := r.Group("/api")
	user := api.Group("/notifications", middleware.AuthMiddleware(d.auth), middleware.RequireUser())
	h.RegisterRoutes(user, limit)

	internal := api.Group("/internal/notifications", middleware.AuthMiddleware(d.auth), middleware.RequireRole(service.RoleService))
	h.RegisterInternalRoutes(internal)

	r.GET("/ws/notifications", middleware.WSAuthMiddleware(d.auth), middleware.RequireUser(), websocket.WSHandler(d.hub, d.logger))

	return r
}
