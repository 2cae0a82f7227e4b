package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
)

// AssignmentStore defines the interface for the user-task join relation.
// The (user, task) pair is unique; implementations back the invariant with
// a unique index.
type AssignmentStore interface {
	// Create saves a new assignment. Returns ErrAssignmentExists if a row
	// for the (user, task) pair is already present.
	Create(ctx context.Context, assignment *domain.Assignment) error

	// GetByTaskAndUser retrieves the assignment for the (task, user) pair.
	// Returns ErrAssignmentNotFound if no such assignment exists.
	GetByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (*domain.Assignment, error)

	// Delete removes the assignment for the (task, user) pair.
	// Returns ErrAssignmentNotFound if no such assignment exists.
	Delete(ctx context.Context, taskID, userID uuid.UUID) error

	// UserIDsByTask returns the ids of all users assigned to the task.
	UserIDsByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)

	// DeleteByTask removes every assignment row for the task and reports
	// how many were removed. Used by the cleanup job after task deletion.
	DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}
