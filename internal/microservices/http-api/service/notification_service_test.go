package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"learnhub/internal/microservices/http-api/dto"
	"learnhub/internal/microservices/http-api/models"
	"learnhub/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	userID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	notifID = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

// MockNotificationRepository mocks the NotificationRepository interface
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListActiveByUser(ctx context.Context, userID string, filter shared.NotificationFilter) ([]models.Notification, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, userID, id string) (int64, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Dismiss(ctx context.Context, userID, id string) (int64, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) DismissAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher mocks feed.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev shared.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func newTestService(repo *MockNotificationRepository, pub *MockPublisher) NotificationService {
	return NewNotificationService(repo, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func eventFor(changeType shared.ChangeType, recordID string) interface{} {
	return mock.MatchedBy(func(ev shared.ChangeEvent) bool {
		return ev.Type == changeType && ev.RecordID == recordID && ev.UserID == userID && ev.Table == shared.NotificationsTable
	})
}

func TestList_AppliesFilterAndCount(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := newTestService(repo, new(MockPublisher))

	rows := []models.Notification{{ID: notifID, UserID: userID, Title: "Quiz graded"}}
	repo.On("ListActiveByUser", mock.Anything, userID, shared.FilterUnread).Return(rows, nil)
	repo.On("CountUnread", mock.Anything, userID).Return(int64(1), nil)

	resp, err := svc.List(context.Background(), userID, "unread")

	require.NoError(t, err)
	assert.Len(t, resp.Notifications, 1)
	assert.Equal(t, int64(1), resp.UnreadCount)
	repo.AssertExpectations(t)
}

func TestList_DefaultsToAll(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := newTestService(repo, new(MockPublisher))

	repo.On("ListActiveByUser", mock.Anything, userID, shared.FilterAll).Return([]models.Notification{}, nil)
	repo.On("CountUnread", mock.Anything, userID).Return(int64(0), nil)

	_, err := svc.List(context.Background(), userID, "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestList_InvalidFilter(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := newTestService(repo, new(MockPublisher))

	_, err := svc.List(context.Background(), userID, "archived")

	assert.ErrorIs(t, err, ErrInvalidFilter)
	repo.AssertNotCalled(t, "ListActiveByUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_RepositoryError(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := newTestService(repo, new(MockPublisher))

	dbErr := errors.New("connection refused")
	repo.On("ListActiveByUser", mock.Anything, userID, shared.FilterAll).Return(nil, dbErr)

	_, err := svc.List(context.Background(), userID, "all")
	assert.ErrorIs(t, err, dbErr)
}

func TestMarkAsRead_PublishesWhenChanged(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	repo.On("MarkAsRead", mock.Anything, userID, notifID).Return(int64(1), nil)
	pub.On("Publish", mock.Anything, eventFor(shared.ChangeUpdate, notifID)).Return(nil)

	affected, err := svc.MarkAsRead(context.Background(), userID, notifID)

	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	pub.AssertExpectations(t)
}

func TestMarkAsRead_AlreadyReadIsNoop(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	repo.On("MarkAsRead", mock.Anything, userID, notifID).Return(int64(0), nil)

	affected, err := svc.MarkAsRead(context.Background(), userID, notifID)

	require.NoError(t, err)
	assert.Zero(t, affected)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMarkAsRead_InvalidID(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := newTestService(repo, new(MockPublisher))

	_, err := svc.MarkAsRead(context.Background(), userID, "42")

	assert.ErrorIs(t, err, ErrInvalidNotificationID)
	repo.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAllAsRead_Idempotent(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	repo.On("MarkAllAsRead", mock.Anything, userID).Return(int64(3), nil).Once()
	repo.On("MarkAllAsRead", mock.Anything, userID).Return(int64(0), nil).Once()
	pub.On("Publish", mock.Anything, eventFor(shared.ChangeUpdate, "")).Return(nil).Once()

	first, err := svc.MarkAllAsRead(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.MarkAllAsRead(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), first)
	assert.Zero(t, second)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestDismiss_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	repo.On("Dismiss", mock.Anything, userID, notifID).Return(int64(1), nil)
	pub.On("Publish", mock.Anything, eventFor(shared.ChangeUpdate, notifID)).Return(errors.New("redis down"))

	affected, err := svc.Dismiss(context.Background(), userID, notifID)

	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestDismiss_StoreError(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	dbErr := errors.New("deadlock")
	repo.On("Dismiss", mock.Anything, userID, notifID).Return(int64(0), dbErr)

	_, err := svc.Dismiss(context.Background(), userID, notifID)

	assert.ErrorIs(t, err, dbErr)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestDismissAllRead(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	repo.On("DismissAllRead", mock.Anything, userID).Return(int64(2), nil)
	pub.On("Publish", mock.Anything, eventFor(shared.ChangeUpdate, "")).Return(nil)

	affected, err := svc.DismissAllRead(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	pub.AssertExpectations(t)
}

func TestCreate(t *testing.T) {
	repo := new(MockNotificationRepository)
	pub := new(MockPublisher)
	svc := newTestService(repo, pub)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Notification).ID = notifID
		}).
		Return(nil)
	pub.On("Publish", mock.Anything, eventFor(shared.ChangeInsert, notifID)).Return(nil)

	n, err := svc.Create(context.Background(), dto.CreateNotificationRequest{
		UserID:  userID,
		Title:   "  Assignment due ",
		Message: "Essay due Friday",
		Type:    "Warning",
	})

	require.NoError(t, err)
	assert.Equal(t, "Assignment due", n.Title)
	assert.Equal(t, "warning", n.Type)
	assert.Nil(t, n.ReadAt)
	pub.AssertExpectations(t)
}

func TestCreate_Invalid(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := newTestService(repo, new(MockPublisher))

	_, err := svc.Create(context.Background(), dto.CreateNotificationRequest{UserID: "bob", Title: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrInvalidNotification)

	_, err = svc.Create(context.Background(), dto.CreateNotificationRequest{UserID: userID, Title: "   ", Message: "m"})
	assert.ErrorIs(t, err, ErrInvalidNotification)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
