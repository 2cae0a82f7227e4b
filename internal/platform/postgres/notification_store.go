package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/store"
)

// PostgresNotificationStore implements the store.NotificationStore
// interface using PostgreSQL.
type PostgresNotificationStore struct {
	db store.DBTX
}

// NewPostgresNotificationStore creates a new PostgresNotificationStore
func NewPostgresNotificationStore(db store.DBTX) *PostgresNotificationStore {
	return &PostgresNotificationStore{
		db: db,
	}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create saves a new notification.
func (s *PostgresNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO notifications (id, user_id, type, content, related_model, related_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Content,
		notification.RelatedTo.Kind,
		notification.RelatedTo.ID,
		notification.IsRead,
		notification.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save notification",
			"user_id", notification.UserID,
			"type", notification.Type,
			"error", err)
		return fmt.Errorf("failed to save notification: %w", MapError(err))
	}

	return nil
}

// FindByUser returns the user's notifications, newest first, paginated.
func (s *PostgresNotificationStore) FindByUser(ctx context.Context, userID uuid.UUID, pagination store.Pagination, onlyUnread bool) (*store.NotificationPage, error) {
	pagination = pagination.Normalize()

	where := `user_id = $1`
	if onlyUnread {
		where += ` AND is_read = FALSE`
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM notifications WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, userID).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", MapError(err))
	}

	query := `
		SELECT id, user_id, type, content, related_model, related_id, is_read, created_at
		FROM notifications
		WHERE ` + where + `
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, pagination.Limit, pagination.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	notifications := []*domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Content,
			&n.RelatedTo.Kind,
			&n.RelatedTo.ID,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return &store.NotificationPage{
		Data:       notifications,
		Pagination: store.NewPageInfo(pagination, totalCount),
	}, nil
}

// MarkAsRead flags a single notification as read. Re-marking a read
// notification succeeds.
func (s *PostgresNotificationStore) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkAllAsRead flags all of the user's unread notifications as read.
func (s *PostgresNotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", MapError(err))
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return updated, nil
}
