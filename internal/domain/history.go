package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// History-specific validation errors
var (
	// ErrHistoryTaskIDEmpty is returned when a history record's task ID is empty.
	ErrHistoryTaskIDEmpty = errors.New("history task ID cannot be empty")

	// ErrHistoryUserIDEmpty is returned when a history record's acting user ID is empty.
	ErrHistoryUserIDEmpty = errors.New("history user ID cannot be empty")

	// ErrHistoryActionInvalid is returned when a history action is not one of
	// the enumerated values.
	ErrHistoryActionInvalid = errors.New("invalid history action")
)

// HistoryAction identifies the kind of mutation a history record describes.
type HistoryAction string

// Possible history action values
const (
	HistoryActionCreated       HistoryAction = "created"
	HistoryActionUpdated       HistoryAction = "updated"
	HistoryActionStatusChanged HistoryAction = "status_changed"
	HistoryActionAssigned      HistoryAction = "assigned"
	HistoryActionUnassigned    HistoryAction = "unassigned"
	HistoryActionDeleted       HistoryAction = "deleted"
)

// IsValid reports whether a is one of the enumerated action values.
func (a HistoryAction) IsValid() bool {
	switch a {
	case HistoryActionCreated, HistoryActionUpdated, HistoryActionStatusChanged,
		HistoryActionAssigned, HistoryActionUnassigned, HistoryActionDeleted:
		return true
	}
	return false
}

// TaskHistory is an append-only audit record of a single task mutation.
// Records are immutable once created and are removed only by the cleanup
// job after the owning task is deleted.
type TaskHistory struct {
	ID            uuid.UUID     `json:"id"`
	TaskID        uuid.UUID     `json:"task_id"`
	UserID        uuid.UUID     `json:"user_id"`
	Action        HistoryAction `json:"action"`
	PreviousValue string        `json:"previous_value,omitempty"`
	NewValue      string        `json:"new_value,omitempty"`
	UpdatedFields []string      `json:"updated_fields,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewTaskHistory creates a new TaskHistory record for the given task and
// acting user. Returns an error if validation fails.
func NewTaskHistory(taskID, userID uuid.UUID, action HistoryAction) (*TaskHistory, error) {
	h := &TaskHistory{
		ID:        uuid.New(),
		TaskID:    taskID,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	return h, nil
}

// Validate checks if the TaskHistory has valid data.
func (h *TaskHistory) Validate() error {
	if h.TaskID == uuid.Nil {
		return ErrHistoryTaskIDEmpty
	}
	if h.UserID == uuid.Nil {
		return ErrHistoryUserIDEmpty
	}
	if !h.Action.IsValid() {
		return ErrHistoryActionInvalid
	}
	return nil
}
