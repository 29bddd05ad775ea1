package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"learnhub/internal/microservices/http-api/dto"
	"learnhub/internal/microservices/http-api/middleware"
	"learnhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc     service.NotificationService
	timeout time.Duration
	logger  *slog.Logger
}

func NewNotificationHandler(svc service.NotificationService, timeout time.Duration, logger *slog.Logger) *NotificationHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationHandler{svc: svc, timeout: timeout, logger: logger}
}

// RegisterRoutes mounts the user routes. Mutations go through the limiter when one is given.
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup, limiter gin.HandlerFunc) {
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}
	rg.GET("", h.List)
	rg.GET("/unread-count", h.UnreadCount)
	rg.PUT("/read-all", limiter, h.MarkAllAsRead)
	rg.PUT("/:id/read", limiter, h.MarkAsRead)
	rg.DELETE("/read", limiter, h.DismissAllRead)
	rg.DELETE("/:id", limiter, h.Dismiss)
}

// RegisterInternalRoutes mounts the producer endpoint; callers guard it with RequireRole.
func (h *NotificationHandler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
}

// List returns the active notifications of the authenticated user, newest first
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.svc.List(ctx, userID, c.Query("filter"))
	if err != nil {
		h.writeError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	count, err := h.svc.UnreadCount(ctx, userID)
	if err != nil {
		h.writeError(c, "unread_count", err)
		return
	}
	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

// MarkAsRead marks a specific notification as read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	h.mutateOne(c, "mark_read", h.svc.MarkAsRead)
}

// MarkAllAsRead marks all notifications as read for the user
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	h.mutateAll(c, "mark_all_read", h.svc.MarkAllAsRead)
}

// Dismiss hides one notification (soft delete)
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	h.mutateOne(c, "dismiss", h.svc.Dismiss)
}

// DismissAllRead hides every notification the user has already read
func (h *NotificationHandler) DismissAllRead(c *gin.Context) {
	h.mutateAll(c, "dismiss_all_read", h.svc.DismissAllRead)
}

func (h *NotificationHandler) Create(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	n, err := h.svc.Create(ctx, req)
	if err != nil {
		h.writeError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *NotificationHandler) mutateOne(c *gin.Context, op string, fn func(ctx context.Context, userID, id string) (int64, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	affected, err := fn(ctx, userID, c.Param("id"))
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) mutateAll(c *gin.Context, op string, fn func(ctx context.Context, userID string) (int64, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	affected, err := fn(ctx, userID)
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, dto.AffectedResponse{Affected: affected})
}

func (h *NotificationHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidNotificationID),
		errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrInvalidNotification):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		h.logger.Error("notification_request_failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return userID, true
}
