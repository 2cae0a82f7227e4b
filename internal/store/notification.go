package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
)

// NotificationPage is one page of a user's notifications.
type NotificationPage struct {
	Data       []*domain.Notification `json:"data"`
	Pagination PageInfo               `json:"pagination"`
}

// NotificationStore defines the interface for notification persistence.
type NotificationStore interface {
	// Create saves a new notification.
	Create(ctx context.Context, notification *domain.Notification) error

	// FindByUser returns the user's notifications, newest first, paginated.
	// When onlyUnread is set, read notifications are excluded.
	FindByUser(
		ctx context.Context,
		userID uuid.UUID,
		pagination Pagination,
		onlyUnread bool,
	) (*NotificationPage, error)

	// MarkAsRead flags a single notification as read.
	// Returns ErrNotificationNotFound if the notification does not exist.
	MarkAsRead(ctx context.Context, id uuid.UUID) error

	// MarkAllAsRead flags all of a user's unread notifications as read and
	// reports how many were flagged.
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}
