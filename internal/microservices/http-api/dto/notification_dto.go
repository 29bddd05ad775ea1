package dto

import "learnhub/internal/microservices/http-api/models"

// DTOs for notification endpoints

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// AffectedResponse is returned by every mutation; zero means nothing needed changing.
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

// CreateNotificationRequest is posted by producers (service_role only).
type CreateNotificationRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid"`
	Title   string `json:"title" binding:"required,max=200"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type" binding:"omitempty,max=32"`
}
