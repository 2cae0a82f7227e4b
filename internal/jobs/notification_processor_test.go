package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/store"
)

type fakeNotificationStore struct {
	store.NotificationStore
	mu      sync.Mutex
	created []*domain.Notification
	err     error
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessCreateNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("persists one row", func(t *testing.T) {
		notifications := &fakeNotificationStore{}
		p := NewNotificationProcessor(notifications, testLogger())

		userID := uuid.New()
		payload, err := json.Marshal(CreateNotificationJob{
			UserID:    userID,
			Type:      domain.NotificationTaskAssigned,
			Content:   "You have been assigned to task \"Ship\"",
			RelatedTo: domain.RelatedRef{Kind: domain.RelatedKindTask, ID: uuid.New()},
		})
		require.NoError(t, err)

		require.NoError(t, p.ProcessCreateNotification(ctx, payload))
		require.Len(t, notifications.created, 1)
		n := notifications.created[0]
		assert.Equal(t, userID, n.UserID)
		assert.False(t, n.IsRead)
	})

	t.Run("invalid job payload fails without writes", func(t *testing.T) {
		notifications := &fakeNotificationStore{}
		p := NewNotificationProcessor(notifications, testLogger())

		assert.Error(t, p.ProcessCreateNotification(ctx, []byte("{broken")))
		assert.Empty(t, notifications.created)
	})

	t.Run("invalid notification fields fail validation", func(t *testing.T) {
		notifications := &fakeNotificationStore{}
		p := NewNotificationProcessor(notifications, testLogger())

		payload, err := json.Marshal(CreateNotificationJob{
			UserID: uuid.New(),
			Type:   "bogus",
		})
		require.NoError(t, err)

		assert.Error(t, p.ProcessCreateNotification(ctx, payload))
		assert.Empty(t, notifications.created)
	})

	t.Run("store failure surfaces for retry", func(t *testing.T) {
		notifications := &fakeNotificationStore{err: errors.New("insert failed")}
		p := NewNotificationProcessor(notifications, testLogger())

		payload, err := json.Marshal(CreateNotificationJob{
			UserID:    uuid.New(),
			Type:      domain.NotificationTaskUpdated,
			Content:   "Task updated",
			RelatedTo: domain.RelatedRef{Kind: domain.RelatedKindTask, ID: uuid.New()},
		})
		require.NoError(t, err)

		assert.Error(t, p.ProcessCreateNotification(ctx, payload))
	})
}

func TestProcessCreateNotifications(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out one row per recipient", func(t *testing.T) {
		notifications := &fakeNotificationStore{}
		p := NewNotificationProcessor(notifications, testLogger())

		recipients := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		payload, err := json.Marshal(CreateNotificationsJob{
			UserIDs:   recipients,
			Type:      domain.NotificationCommentAdded,
			Content:   "New comment on task \"Ship\"",
			RelatedTo: domain.RelatedRef{Kind: domain.RelatedKindComment, ID: uuid.New()},
		})
		require.NoError(t, err)

		require.NoError(t, p.ProcessCreateNotifications(ctx, payload))
		require.Len(t, notifications.created, 3)

		seen := make(map[uuid.UUID]bool)
		for _, n := range notifications.created {
			seen[n.UserID] = true
		}
		for _, id := range recipients {
			assert.True(t, seen[id])
		}
	})

	t.Run("empty recipient list is a no-op", func(t *testing.T) {
		notifications := &fakeNotificationStore{}
		p := NewNotificationProcessor(notifications, testLogger())

		payload, err := json.Marshal(CreateNotificationsJob{
			Type:      domain.NotificationCommentAdded,
			Content:   "comment",
			RelatedTo: domain.RelatedRef{Kind: domain.RelatedKindComment, ID: uuid.New()},
		})
		require.NoError(t, err)

		require.NoError(t, p.ProcessCreateNotifications(ctx, payload))
		assert.Empty(t, notifications.created)
	})
}
