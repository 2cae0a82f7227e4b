package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Assignment-specific validation errors
var (
	// ErrAssignmentTaskIDEmpty is returned when an assignment's task ID is empty.
	ErrAssignmentTaskIDEmpty = errors.New("assignment task ID cannot be empty")

	// ErrAssignmentUserIDEmpty is returned when an assignment's user ID is empty.
	ErrAssignmentUserIDEmpty = errors.New("assignment user ID cannot be empty")

	// ErrAssignmentAssignerEmpty is returned when an assignment's assigner ID is empty.
	ErrAssignmentAssignerEmpty = errors.New("assignment assigner ID cannot be empty")
)

// Assignment is the join relation between a user and a task. At most one
// row may exist per (user, task) pair at any time; the store backs this
// with a unique index and the service checks before inserting.
type Assignment struct {
	ID         uuid.UUID `json:"id"`
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	AssignedBy uuid.UUID `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// NewAssignment creates a new Assignment for the given (task, user) pair.
// Returns an error if validation fails.
func NewAssignment(taskID, userID, assignedBy uuid.UUID) (*Assignment, error) {
	a := &Assignment{
		ID:         uuid.New(),
		TaskID:     taskID,
		UserID:     userID,
		AssignedBy: assignedBy,
		AssignedAt: time.Now().UTC(),
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks if the Assignment has valid data.
func (a *Assignment) Validate() error {
	if a.TaskID == uuid.Nil {
		return ErrAssignmentTaskIDEmpty
	}
	if a.UserID == uuid.Nil {
		return ErrAssignmentUserIDEmpty
	}
	if a.AssignedBy == uuid.Nil {
		return ErrAssignmentAssignerEmpty
	}
	return nil
}
