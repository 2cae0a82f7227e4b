package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
)

// CreateTaskRequest is the request body for creating a task. Status and
// priority are optional and default on the server.
type CreateTaskRequest struct {
	Title       string      `json:"title"       validate:"required,max=200"`
	Description string      `json:"description" validate:"max=2000"`
	Status      string      `json:"status"      validate:"omitempty,oneof=todo in_progress review done"`
	Priority    string      `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	DueDate     time.Time   `json:"dueDate"     validate:"required"`
	Assignees   []uuid.UUID `json:"assignees"`
}

// UpdateTaskRequest is the request body for a partial task update. Only
// the fields present in the body are applied; an assignees list replaces
// the current assignee set.
type UpdateTaskRequest struct {
	Title       *string     `json:"title"       validate:"omitempty,max=200"`
	Description *string     `json:"description" validate:"omitempty,max=2000"`
	Status      *string     `json:"status"      validate:"omitempty,oneof=todo in_progress review done"`
	Priority    *string     `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time  `json:"dueDate"`
	Assignees   []uuid.UUID `json:"assignees"`
}

// Patch converts the request into a domain patch.
func (r *UpdateTaskRequest) Patch() *domain.TaskPatch {
	patch := &domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Assignees:   r.Assignees,
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		patch.Status = &status
	}
	if r.Priority != nil {
		priority := domain.TaskPriority(*r.Priority)
		patch.Priority = &priority
	}
	return patch
}

// AddCommentRequest is the request body for commenting on a task.
type AddCommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// TaskResponse is the response shape for a single task, with the current
// assignee list resolved.
type TaskResponse struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	DueDate     time.Time   `json:"dueDate"`
	CreatedBy   uuid.UUID   `json:"createdBy"`
	Assignees   []uuid.UUID `json:"assignees"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func taskToResponse(task *domain.Task, assignees []uuid.UUID) TaskResponse {
	if assignees == nil {
		assignees = []uuid.UUID{}
	}
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		CreatedBy:   task.CreatedBy,
		Assignees:   assignees,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// RegisterRequest is the request body for /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the request body for /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the request body for /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is the response body for successful register/login calls.
type AuthResponse struct {
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

// TokenResponse is the response body for /auth/refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}
