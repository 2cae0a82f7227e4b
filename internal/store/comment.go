package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
)

// CommentPage is one page of a task's comments.
type CommentPage struct {
	Data       []*domain.TaskComment `json:"data"`
	Pagination PageInfo              `json:"pagination"`
}

// CommentStore defines the interface for task comment persistence.
type CommentStore interface {
	// Create saves a new comment.
	Create(ctx context.Context, comment *domain.TaskComment) error

	// FindByTask returns the task's comments, newest first, paginated.
	FindByTask(ctx context.Context, taskID uuid.UUID, pagination Pagination) (*CommentPage, error)

	// DeleteByTask removes every comment for the task and reports how many
	// were removed. Used by the cleanup job after task deletion.
	DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}
