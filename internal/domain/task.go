package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskCreatorEmpty is returned when a task's creator ID is empty or nil.
	ErrTaskCreatorEmpty = errors.New("task creator ID cannot be empty")

	// ErrTaskDueDateZero is returned when a task has no due date set.
	ErrTaskDueDateZero = errors.New("task due date cannot be zero")
)

// TaskStatus represents the workflow state of a task.
// Transitions are unconstrained: any status may follow any other.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// AllTaskStatuses lists every valid status in a stable order. Used for
// status-count aggregation so absent statuses still report zero.
var AllTaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
}

// IsValid reports whether s is one of the enumerated status values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// IsValid reports whether p is one of the enumerated priority values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// Task represents a work item owned by the persistent store and mutated
// only through the task service. Assignees are deliberately NOT stored on
// the task itself; they exist only as Assignment rows so the many-to-many
// relation never races on an embedded array.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     time.Time    `json:"due_date"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TaskWithAssignees is the composite read view of a task together with the
// ids of the users currently assigned to it, resolved via the Assignment
// relation at read time.
type TaskWithAssignees struct {
	Task
	Assignees []uuid.UUID `json:"assignees"`
}

// NewTask creates a new Task with the given fields, generating a new UUID
// and setting creation/update timestamps. Status defaults to todo and
// priority to medium when left empty. Returns an error if validation fails.
func NewTask(
	title, description string,
	status TaskStatus,
	priority TaskPriority,
	dueDate time.Time,
	createdBy uuid.UUID,
) (*Task, error) {
	if status == "" {
		status = TaskStatusTodo
	}
	if priority == "" {
		priority = TaskPriorityMedium
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}
	if t.Title == "" {
		return ErrTaskTitleEmpty
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if t.DueDate.IsZero() {
		return ErrTaskDueDateZero
	}
	if t.CreatedBy == uuid.Nil {
		return ErrTaskCreatorEmpty
	}
	return nil
}

// TaskPatch carries the mutable fields of a task update. Nil fields are
// left untouched. Assignees, when non-nil, requests assignment
// reconciliation against the current Assignment rows.
type TaskPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Assignees   []uuid.UUID   `json:"assignees,omitempty"`
}

// Fields returns the names of the entity fields the patch touches, in a
// stable order. Assignees are excluded: assignment membership is not a
// task field.
func (p *TaskPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.DueDate != nil {
		fields = append(fields, "dueDate")
	}
	return fields
}

// Apply copies the patch's non-nil fields onto the task and bumps the
// update timestamp.
func (p *TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	t.UpdatedAt = time.Now().UTC()
}
