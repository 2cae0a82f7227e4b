package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
)

// TaskFilter restricts a user-task list query. Zero/nil fields are ignored.
type TaskFilter struct {
	// Status, when set, must match exactly.
	Status *domain.TaskStatus `json:"status,omitempty"`

	// DueFrom/DueTo bound the due date inclusively on both ends.
	DueFrom *time.Time `json:"due_from,omitempty"`
	DueTo   *time.Time `json:"due_to,omitempty"`

	// Search matches title OR description, case-insensitive substring.
	Search string `json:"search,omitempty"`
}

// TaskPage is one page of a filtered task list query.
type TaskPage struct {
	Data       []*domain.Task `json:"data"`
	Pagination PageInfo       `json:"pagination"`
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update applies the patch's non-nil entity fields to the stored task
	// and returns the updated row. Assignees on the patch are ignored here;
	// assignment membership is reconciled by the service through the
	// AssignmentStore. Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, id uuid.UUID, patch *domain.TaskPatch) (*domain.Task, error)

	// Delete removes a task by its ID. Related assignment, history, and
	// comment rows are NOT removed here; the cleanup job owns that cascade.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindForUser returns the page of tasks the user is assigned to,
	// restricted by the filter and ordered/paginated per the pagination
	// parameters (default sort: due date ascending).
	FindForUser(
		ctx context.Context,
		userID uuid.UUID,
		filter TaskFilter,
		pagination Pagination,
	) (*TaskPage, error)

	// CountByStatus aggregates the user's assigned tasks per status.
	// Every enumerated status appears in the result, absent ones as zero.
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error)
}
