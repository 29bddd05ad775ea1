package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"learnhub/internal/feed"
	"learnhub/internal/microservices/http-api/dto"
	"learnhub/internal/microservices/http-api/models"
	"learnhub/internal/microservices/http-api/repository"
	"learnhub/internal/shared"

	"github.com/google/uuid"
)

var (
	ErrInvalidNotificationID = errors.New("invalid notification id")
	ErrInvalidFilter         = errors.New("invalid notification filter")
	ErrInvalidNotification   = errors.New("invalid notification")
)

type NotificationService interface {
	List(ctx context.Context, userID, filter string) (*dto.NotificationListResponse, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (int64, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	Dismiss(ctx context.Context, userID, notificationID string) (int64, error)
	DismissAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	publisher feed.Publisher
	logger    *slog.Logger
}

// NewNotificationService wires the store to a change publisher. When the database
// trigger feeds the hub, pass feed.NopPublisher.
func NewNotificationService(repo repository.NotificationRepository, publisher feed.Publisher, logger *slog.Logger) NotificationService {
	if publisher == nil {
		publisher = feed.NopPublisher{}
	}
	return &notificationService{repo: repo, publisher: publisher, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID, filter string) (*dto.NotificationListResponse, error) {
	f, err := shared.ParseNotificationFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	notifications, err := s.repo.ListActiveByUser(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	return &dto.NotificationListResponse{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (s *notificationService) Create(ctx context.Context, req dto.CreateNotificationRequest) (*models.Notification, error) {
	if _, err := uuid.Parse(req.UserID); err != nil {
		return nil, fmt.Errorf("%w: user_id must be a uuid", ErrInvalidNotification)
	}
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" || message == "" {
		return nil, fmt.Errorf("%w: title and message are required", ErrInvalidNotification)
	}

	n := &models.Notification{
		UserID:  req.UserID,
		Title:   title,
		Message: message,
		Type:    strings.ToLower(strings.TrimSpace(req.Type)),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	s.publish(ctx, shared.ChangeInsert, n.ID, n.UserID, 1)
	return n, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (int64, error) {
	if err := validateID(notificationID); err != nil {
		return 0, err
	}
	affected, err := s.repo.MarkAsRead(ctx, userID, notificationID)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	s.publish(ctx, shared.ChangeUpdate, notificationID, userID, affected)
	return affected, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	s.publish(ctx, shared.ChangeUpdate, "", userID, affected)
	return affected, nil
}

// Dismiss is a soft delete, so it is reported as an UPDATE like the row trigger does.
func (s *notificationService) Dismiss(ctx context.Context, userID, notificationID string) (int64, error) {
	if err := validateID(notificationID); err != nil {
		return 0, err
	}
	affected, err := s.repo.Dismiss(ctx, userID, notificationID)
	if err != nil {
		return 0, fmt.Errorf("dismiss notification: %w", err)
	}
	s.publish(ctx, shared.ChangeUpdate, notificationID, userID, affected)
	return affected, nil
}

func (s *notificationService) DismissAllRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.repo.DismissAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("dismiss read notifications: %w", err)
	}
	s.publish(ctx, shared.ChangeUpdate, "", userID, affected)
	return affected, nil
}

// publish reports a committed write. A failure here is logged only: the row
// already changed and subscribers catch up on their next refetch.
func (s *notificationService) publish(ctx context.Context, changeType shared.ChangeType, recordID, userID string, affected int64) {
	if affected == 0 {
		return
	}
	ev := shared.NewChangeEvent(changeType, recordID, userID)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("notification_change_publish_failed",
			"user_id", userID,
			"record_id", recordID,
			"type", string(changeType),
			"error", err,
		)
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidNotificationID
	}
	return nil
}
