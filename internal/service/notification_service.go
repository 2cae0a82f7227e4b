package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/store"
)

// NotificationService exposes the read side of notifications. Creation
// happens exclusively through queue jobs; see the jobs package.
type NotificationService struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifications store.NotificationStore, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_service")),
	}
}

// GetUserNotifications returns a page of the user's notifications, newest
// first. When onlyUnread is set, read notifications are excluded.
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID uuid.UUID, page store.Pagination, onlyUnread bool) (*store.NotificationPage, error) {
	result, err := s.notifications.FindByUser(ctx, userID, page.Normalize(), onlyUnread)
	if err != nil {
		return nil, newServiceError("get notifications", "failed to query notifications", err)
	}
	return result, nil
}

// MarkAsRead flags a single notification as read. Returns
// ErrNotificationNotFound when no such notification exists.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	if err := s.notifications.MarkAsRead(ctx, id); err != nil {
		if store.IsNotFoundError(err) {
			return ErrNotificationNotFound
		}
		return newServiceError("mark notification read", "failed to update notification", err)
	}
	return nil
}

// MarkAllAsRead flags every unread notification of the user as read and
// returns how many were flagged.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.notifications.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, newServiceError("mark all notifications read", "failed to update notifications", err)
	}
	s.logger.DebugContext(ctx, "notifications marked read",
		slog.String("user_id", userID.String()),
		slog.Int64("count", count))
	return count, nil
}
