package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Comment-specific validation errors
var (
	// ErrCommentTaskIDEmpty is returned when a comment's task ID is empty.
	ErrCommentTaskIDEmpty = errors.New("comment task ID cannot be empty")

	// ErrCommentAuthorEmpty is returned when a comment's author ID is empty.
	ErrCommentAuthorEmpty = errors.New("comment author ID cannot be empty")

	// ErrCommentTextEmpty is returned when a comment has no text.
	ErrCommentTextEmpty = errors.New("comment text cannot be empty")
)

// TaskComment is a free-form comment attached to a task. Comments have an
// independent lifecycle from the task except for cascade cleanup on task
// deletion.
type TaskComment struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTaskComment creates a new TaskComment on the given task.
// Returns an error if validation fails.
func NewTaskComment(taskID, authorID uuid.UUID, text string) (*TaskComment, error) {
	now := time.Now().UTC()
	c := &TaskComment{
		ID:        uuid.New(),
		TaskID:    taskID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks if the TaskComment has valid data.
func (c *TaskComment) Validate() error {
	if c.TaskID == uuid.Nil {
		return ErrCommentTaskIDEmpty
	}
	if c.AuthorID == uuid.Nil {
		return ErrCommentAuthorEmpty
	}
	if c.Text == "" {
		return ErrCommentTextEmpty
	}
	return nil
}
