// Package jobs holds the queue processors that execute deferred work:
// notification fan-out and post-deletion cascade cleanup. Processors are
// pure translation layers; their errors propagate to the queue's retry
// mechanism.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/store"
)

// CreateNotificationJob is the payload of a createNotification queue job.
type CreateNotificationJob struct {
	UserID    uuid.UUID               `json:"userId"`
	Type      domain.NotificationType `json:"type"`
	Content   string                  `json:"content"`
	RelatedTo domain.RelatedRef       `json:"relatedTo"`
}

// CreateNotificationsJob is the multi-recipient variant.
type CreateNotificationsJob struct {
	UserIDs   []uuid.UUID             `json:"userIds"`
	Type      domain.NotificationType `json:"type"`
	Content   string                  `json:"content"`
	RelatedTo domain.RelatedRef       `json:"relatedTo"`
}

// NotificationProcessor turns notification job payloads into persisted
// notification rows, one per recipient.
type NotificationProcessor struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewNotificationProcessor creates a new NotificationProcessor.
func NewNotificationProcessor(
	notifications store.NotificationStore,
	logger *slog.Logger,
) *NotificationProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationProcessor{
		notifications: notifications,
		logger:        logger.With("component", "notification_processor"),
	}
}

// ProcessCreateNotification handles a single-recipient job.
func (p *NotificationProcessor) ProcessCreateNotification(ctx context.Context, payload []byte) error {
	var job CreateNotificationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to unmarshal notification job: %w", err)
	}

	notification, err := domain.NewNotification(job.UserID, job.Type, job.Content, job.RelatedTo)
	if err != nil {
		return fmt.Errorf("invalid notification job: %w", err)
	}

	if err := p.notifications.Create(ctx, notification); err != nil {
		p.logger.Error("failed to create notification",
			"error", err,
			"user_id", job.UserID,
			"type", job.Type)
		return err
	}

	return nil
}

// ProcessCreateNotifications handles a multi-recipient job, persisting one
// notification per recipient in parallel. Recipients fail independently;
// the first error is returned so the queue retries the job as a whole
// (duplicate notifications for already-persisted recipients are accepted).
func (p *NotificationProcessor) ProcessCreateNotifications(ctx context.Context, payload []byte) error {
	var job CreateNotificationsJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to unmarshal notifications job: %w", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(job.UserIDs))
	for i, userID := range job.UserIDs {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			notification, err := domain.NewNotification(userID, job.Type, job.Content, job.RelatedTo)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = p.notifications.Create(ctx, notification)
		}(i, userID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to create notifications: %w", err)
		}
	}
	return nil
}
