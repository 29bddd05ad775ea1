package repository

import (
	"context"
	"time"

	"learnhub/internal/microservices/http-api/models"
	"learnhub/internal/shared"

	"gorm.io/gorm"
)

// NotificationRepository reads and updates a user's notifications.
// Soft-deleted rows are excluded from every query by gorm's DeletedAt scope.
// Update methods return the number of rows they changed; zero is not an error.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListActiveByUser(ctx context.Context, userID string, filter shared.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (int64, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	Dismiss(ctx context.Context, userID, notificationID string) (int64, error)
	DismissAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListActiveByUser(ctx context.Context, userID string, filter shared.NotificationFilter) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	switch filter {
	case shared.FilterUnread:
		query = query.Where("read_at IS NULL")
	case shared.FilterRead:
		query = query.Where("read_at IS NOT NULL")
	}

	notifications := []models.Notification{}
	err := query.Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// MarkAsRead keeps the first read time: already-read rows are left untouched.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, notificationID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", r.now())
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", r.now())
	return res.RowsAffected, res.Error
}

// Dismiss soft deletes one notification (sets deleted_at).
func (r *notificationRepository) Dismiss(ctx context.Context, userID, notificationID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// DismissAllRead soft deletes every read notification of the user.
func (r *notificationRepository) DismissAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND read_at IS NOT NULL", userID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
