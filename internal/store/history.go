package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
)

// HistoryStore defines the interface for the append-only task audit log.
// Records are never updated; deletion happens only through DeleteByTask
// when the owning task has been removed.
type HistoryStore interface {
	// Create appends a new history record.
	Create(ctx context.Context, record *domain.TaskHistory) error

	// FindByTask returns all history records for the task, newest first.
	FindByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskHistory, error)

	// DeleteByTask removes every history record for the task and reports
	// how many were removed. Used by the cleanup job after task deletion.
	DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}
