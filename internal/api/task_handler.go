// Package api provides HTTP handlers for the API.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/taskboard/taskboard-api/internal/api/shared"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/service"
	"github.com/taskboard/taskboard-api/internal/store"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService *service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		Priority:    domain.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
		Assignees:   req.Assignees,
	}

	task, err := h.taskService.CreateTask(r.Context(), input, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task, req.Assignees))
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.taskService.GetTaskByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(&task.Task, task.Assignees))
}

// UpdateTask handles PATCH /tasks/{id} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), taskID, req.Patch(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Re-resolve the assignee list so the response reflects reconciliation.
	full, err := h.taskService.GetTaskByID(r.Context(), taskID)
	if err != nil {
		shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task, nil))
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(&full.Task, full.Assignees))
}

// DeleteTask handles DELETE /tasks/{id} requests.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	deleted, err := h.taskService.DeleteTask(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !deleted {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /tasks requests. Filters, sorting, and pagination
// come from query parameters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	filter, pagination, err := parseTaskListQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.taskService.GetUserTasks(r.Context(), userID, filter, pagination)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// GetStatusCounts handles GET /tasks/status-counts requests.
func (h *TaskHandler) GetStatusCounts(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	counts, err := h.taskService.GetTaskStatusCounts(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}

// AssignUser handles POST /tasks/{id}/assignees/{userId} requests.
func (h *TaskHandler) AssignUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actingUserID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	assigneeID, err := getPathUUID(r, "userId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.taskService.AssignTaskToUser(r.Context(), taskID, assigneeID, actingUserID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnassignUser handles DELETE /tasks/{id}/assignees/{userId} requests.
// Unassigning a user who is not assigned succeeds; removal is idempotent.
func (h *TaskHandler) UnassignUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actingUserID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	assigneeID, err := getPathUUID(r, "userId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := h.taskService.RemoveTaskFromUser(r.Context(), taskID, assigneeID, actingUserID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment handles POST /tasks/{id}/comments requests.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	comment, err := h.taskService.AddComment(r.Context(), taskID, userID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, comment)
}

// ListComments handles GET /tasks/{id}/comments requests.
func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	page, err := h.taskService.GetTaskComments(r.Context(), taskID, parsePagination(r))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// GetHistory handles GET /tasks/{id}/history requests.
func (h *TaskHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	records, err := h.taskService.GetTaskHistory(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// parseTaskListQuery extracts the filter and pagination parameters of a
// task list request.
func parseTaskListQuery(r *http.Request) (store.TaskFilter, store.Pagination, error) {
	var filter store.TaskFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.IsValid() {
			return filter, store.Pagination{}, domain.NewValidationError("status", "is not a valid task status", domain.ErrValidation)
		}
		filter.Status = &status
	}
	if raw := q.Get("due_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, store.Pagination{}, domain.NewValidationError("due_from", "must be an RFC3339 timestamp", domain.ErrValidation)
		}
		filter.DueFrom = &t
	}
	if raw := q.Get("due_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, store.Pagination{}, domain.NewValidationError("due_to", "must be an RFC3339 timestamp", domain.ErrValidation)
		}
		filter.DueTo = &t
	}
	filter.Search = q.Get("search")

	return filter, parsePagination(r), nil
}

// parsePagination reads page/limit/sort/desc query parameters, falling
// back to the store defaults for anything missing or malformed.
func parsePagination(r *http.Request) store.Pagination {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	desc, _ := strconv.ParseBool(q.Get("desc"))
	return store.Pagination{
		Page:  page,
		Limit: limit,
		Sort:  q.Get("sort"),
		Desc:  desc,
	}.Normalize()
}
