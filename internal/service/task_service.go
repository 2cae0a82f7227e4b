package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/bus"
	"github.com/taskboard/taskboard-api/internal/cache"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/events"
	"github.com/taskboard/taskboard-api/internal/jobs"
	"github.com/taskboard/taskboard-api/internal/queue"
	"github.com/taskboard/taskboard-api/internal/store"
)

// CreateTaskInput carries the caller-supplied fields for a new task.
// Assignees are reconciled after the task row is written.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	DueDate     time.Time
	Assignees   []uuid.UUID
}

// TaskService orchestrates task mutations and their side effects: history
// records, assignment reconciliation, cache invalidation, notification
// enqueueing, and event publishing.
//
// Every mutation writes its primary entity first. Side effects run only
// after that write succeeds, so a failed mutation leaves no trace. A side
// effect failing after the primary write propagates to the caller even
// though the write is durable; callers retrying on such errors must
// tolerate duplicate history records and notifications.
type TaskService struct {
	tasks         store.TaskStore
	assignments   store.AssignmentStore
	history       store.HistoryStore
	comments      store.CommentStore
	notifications store.NotificationStore
	cache         cache.Cache
	queue         queue.Queue
	bus           bus.Bus
	logger        *slog.Logger
	now           func() time.Time
}

// NewTaskService creates a TaskService with the given dependencies.
func NewTaskService(
	tasks store.TaskStore,
	assignments store.AssignmentStore,
	history store.HistoryStore,
	comments store.CommentStore,
	notifications store.NotificationStore,
	c cache.Cache,
	q queue.Queue,
	b bus.Bus,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		tasks:         tasks,
		assignments:   assignments,
		history:       history,
		comments:      comments,
		notifications: notifications,
		cache:         c,
		queue:         q,
		bus:           b,
		logger:        logger.With(slog.String("component", "task_service")),
		now:           time.Now,
	}
}

// CreateTask persists a new task, records its creation in history, assigns
// the requested users, and publishes a task.created event.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput, createdBy uuid.UUID) (*domain.Task, error) {
	task, err := domain.NewTask(input.Title, input.Description, input.Status, input.Priority, input.DueDate, createdBy)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, newServiceError("create task", "failed to save task", err)
	}

	record, err := domain.NewTaskHistory(task.ID, createdBy, domain.HistoryActionCreated)
	if err != nil {
		return nil, newServiceError("create task", "failed to build history record", err)
	}
	record.NewValue = historyValue(task)
	if err := s.history.Create(ctx, record); err != nil {
		return nil, newServiceError("create task", "failed to record history", err)
	}

	if len(input.Assignees) > 0 {
		err := forEachUser(input.Assignees, func(userID uuid.UUID) error {
			return s.AssignTaskToUser(ctx, task.ID, userID, createdBy)
		})
		if err != nil {
			return nil, newServiceError("create task", "failed to assign users", err)
		}
	}

	event := events.TaskCreatedEvent{
		TaskID:      task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate.UTC().Format(time.RFC3339),
		CreatedBy:   createdBy.String(),
		Assignees:   uuidStrings(input.Assignees),
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}
	if err := s.bus.Publish(ctx, events.TopicTaskCreated, event); err != nil {
		return nil, newServiceError("create task", "failed to publish event", err)
	}

	s.logger.InfoContext(ctx, "task created",
		slog.String("task_id", task.ID.String()),
		slog.Int("assignees", len(input.Assignees)))
	return task, nil
}

// GetTaskByID returns the task with its current assignee list, or
// ErrTaskNotFound when no such task exists.
func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.TaskWithAssignees, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("get task", "failed to load task", err)
	}
	assignees, err := s.assignments.UserIDsByTask(ctx, id)
	if err != nil {
		return nil, newServiceError("get task", "failed to load assignees", err)
	}
	return &domain.TaskWithAssignees{Task: *task, Assignees: assignees}, nil
}

// UpdateTask applies a partial update to a task and performs the full
// side-effect fan-out: exactly one history record (status_changed when the
// status actually changed, updated otherwise), assignment reconciliation
// when the patch carries an assignee list, per-assignee update
// notifications, cache invalidation, and event publishing.
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, patch *domain.TaskPatch, actingUserID uuid.UUID) (*domain.Task, error) {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("update task", "failed to load task", err)
	}

	statusChanged := patch.Status != nil && *patch.Status != current.Status
	previousStatus := current.Status

	updated, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, newServiceError("update task", "failed to save task", err)
	}

	if err := s.recordUpdateHistory(ctx, current, updated, patch, actingUserID, statusChanged); err != nil {
		return nil, newServiceError("update task", "failed to record history", err)
	}

	if patch.Assignees != nil {
		if err := s.reconcileAssignments(ctx, id, patch.Assignees, actingUserID); err != nil {
			return nil, newServiceError("update task", "failed to reconcile assignments", err)
		}
	}

	assignees, err := s.assignments.UserIDsByTask(ctx, id)
	if err != nil {
		return nil, newServiceError("update task", "failed to load assignees", err)
	}

	if err := s.notifyAssignees(ctx, assignees, domain.NotificationTaskUpdated,
		fmt.Sprintf("Task %q has been updated", updated.Title),
		domain.RelatedRef{Kind: domain.RelatedKindTask, ID: updated.ID},
	); err != nil {
		return nil, newServiceError("update task", "failed to enqueue notifications", err)
	}

	s.invalidateUserCaches(ctx, assignees)

	timestamp := s.now().UTC().Format(time.RFC3339)
	updatedEvent := events.TaskUpdatedEvent{
		TaskID:        updated.ID.String(),
		Title:         updated.Title,
		Description:   updated.Description,
		Status:        string(updated.Status),
		DueDate:       updated.DueDate.UTC().Format(time.RFC3339),
		UpdatedBy:     actingUserID.String(),
		UpdatedFields: patch.Fields(),
		Assignees:     uuidStrings(assignees),
		Timestamp:     timestamp,
	}
	if statusChanged {
		updatedEvent.PreviousStatus = string(previousStatus)
	}
	if err := s.bus.Publish(ctx, events.TopicTaskUpdated, updatedEvent); err != nil {
		return nil, newServiceError("update task", "failed to publish event", err)
	}

	if statusChanged {
		statusEvent := events.TaskStatusChangedEvent{
			TaskID:         updated.ID.String(),
			Title:          updated.Title,
			PreviousStatus: string(previousStatus),
			NewStatus:      string(updated.Status),
			UpdatedBy:      actingUserID.String(),
			Timestamp:      timestamp,
		}
		if err := s.bus.Publish(ctx, events.TopicTaskStatusChanged, statusEvent); err != nil {
			return nil, newServiceError("update task", "failed to publish status event", err)
		}
	}

	s.logger.InfoContext(ctx, "task updated",
		slog.String("task_id", id.String()),
		slog.Any("fields", patch.Fields()),
		slog.Bool("status_changed", statusChanged))
	return updated, nil
}

// DeleteTask removes a task and enqueues asynchronous cleanup of its
// assignments, history, and comments. Returns false when the task does
// not exist; deletion of an absent task is a no-op, not an error.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID) (bool, error) {
	// Capture the assignee list before the row disappears so their cached
	// task lists can still be invalidated.
	assignees, err := s.assignments.UserIDsByTask(ctx, id)
	if err != nil {
		return false, newServiceError("delete task", "failed to load assignees", err)
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, newServiceError("delete task", "failed to delete task", err)
	}

	job := jobs.CleanupJob{TaskID: id}
	if err := s.queue.Enqueue(ctx, queue.QueueTaskCleanup, job, queue.WithAttempts(queue.DefaultAttempts)); err != nil {
		return false, newServiceError("delete task", "failed to enqueue cleanup", err)
	}

	s.invalidateUserCaches(ctx, assignees)

	s.logger.InfoContext(ctx, "task deleted",
		slog.String("task_id", id.String()),
		slog.String("deleted_by", actingUserID.String()))
	return true, nil
}

// GetUserTasks returns a page of the tasks the user is assigned to,
// serving from cache when a fresh entry exists.
func (s *TaskService) GetUserTasks(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, page store.Pagination) (*store.TaskPage, error) {
	page = page.Normalize()
	key := cache.UserTasksKey(userID, filter, page)

	var cached store.TaskPage
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "task list cache read failed",
			slog.String("key", key), slog.Any("error", err))
	} else if hit {
		return &cached, nil
	}

	result, err := s.tasks.FindForUser(ctx, userID, filter, page)
	if err != nil {
		return nil, newServiceError("get user tasks", "failed to query tasks", err)
	}

	if err := s.cache.Set(ctx, key, result, cache.DefaultTTL); err != nil {
		s.logger.WarnContext(ctx, "task list cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
	return result, nil
}

// GetTaskStatusCounts returns the number of the user's tasks in each
// status, cached under a per-user key.
func (s *TaskService) GetTaskStatusCounts(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error) {
	key := cache.StatusCountsKey(userID)

	var cached map[domain.TaskStatus]int
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "status counts cache read failed",
			slog.String("key", key), slog.Any("error", err))
	} else if hit {
		return cached, nil
	}

	counts, err := s.tasks.CountByStatus(ctx, userID)
	if err != nil {
		return nil, newServiceError("get status counts", "failed to count tasks", err)
	}

	if err := s.cache.Set(ctx, key, counts, cache.DefaultTTL); err != nil {
		s.logger.WarnContext(ctx, "status counts cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
	return counts, nil
}

// AssignTaskToUser links a user to a task. The link itself is idempotent:
// assigning an already-assigned user creates no second assignment, but the
// history record and notification are produced on every call.
func (s *TaskService) AssignTaskToUser(ctx context.Context, taskID, userID, assignedBy uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return newServiceError("assign task", "failed to load task", err)
	}

	_, err = s.assignments.GetByTaskAndUser(ctx, taskID, userID)
	switch {
	case err == nil:
		// Already assigned; fall through to the side effects.
	case store.IsNotFoundError(err):
		assignment, err := domain.NewAssignment(taskID, userID, assignedBy)
		if err != nil {
			return newServiceError("assign task", "invalid assignment", err)
		}
		if err := s.assignments.Create(ctx, assignment); err != nil && !store.IsDuplicateError(err) {
			return newServiceError("assign task", "failed to save assignment", err)
		}
	default:
		return newServiceError("assign task", "failed to check assignment", err)
	}

	record, err := domain.NewTaskHistory(taskID, assignedBy, domain.HistoryActionAssigned)
	if err != nil {
		return newServiceError("assign task", "failed to build history record", err)
	}
	record.NewValue = historyValue(map[string]string{"userId": userID.String()})
	if err := s.history.Create(ctx, record); err != nil {
		return newServiceError("assign task", "failed to record history", err)
	}

	job := jobs.CreateNotificationJob{
		UserID:    userID,
		Type:      domain.NotificationTaskAssigned,
		Content:   fmt.Sprintf("You have been assigned to task %q", task.Title),
		RelatedTo: domain.RelatedRef{Kind: domain.RelatedKindTask, ID: taskID},
	}
	if err := s.queue.Enqueue(ctx, queue.QueueCreateNotification, job, queue.WithAttempts(queue.DefaultAttempts)); err != nil {
		return newServiceError("assign task", "failed to enqueue notification", err)
	}

	s.invalidateUserCaches(ctx, []uuid.UUID{userID})
	return nil
}

// RemoveTaskFromUser unlinks a user from a task. Returns false when no
// assignment existed; removal is idempotent.
func (s *TaskService) RemoveTaskFromUser(ctx context.Context, taskID, userID, removedBy uuid.UUID) (bool, error) {
	if err := s.assignments.Delete(ctx, taskID, userID); err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, newServiceError("unassign task", "failed to delete assignment", err)
	}

	record, err := domain.NewTaskHistory(taskID, removedBy, domain.HistoryActionUnassigned)
	if err != nil {
		return false, newServiceError("unassign task", "failed to build history record", err)
	}
	record.PreviousValue = historyValue(map[string]string{"userId": userID.String()})
	if err := s.history.Create(ctx, record); err != nil {
		return false, newServiceError("unassign task", "failed to record history", err)
	}

	s.invalidateUserCaches(ctx, []uuid.UUID{userID})
	return true, nil
}

// AddComment appends a comment to a task and fans out comment_added
// notifications to every assignee except the author.
func (s *TaskService) AddComment(ctx context.Context, taskID, authorID uuid.UUID, text string) (*domain.TaskComment, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, newServiceError("add comment", "failed to load task", err)
	}

	comment, err := domain.NewTaskComment(taskID, authorID, text)
	if err != nil {
		return nil, err
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, newServiceError("add comment", "failed to save comment", err)
	}

	assignees, err := s.assignments.UserIDsByTask(ctx, taskID)
	if err != nil {
		return nil, newServiceError("add comment", "failed to load assignees", err)
	}

	recipients := make([]uuid.UUID, 0, len(assignees))
	for _, id := range assignees {
		if id != authorID {
			recipients = append(recipients, id)
		}
	}
	if err := s.notifyAssignees(ctx, recipients, domain.NotificationCommentAdded,
		fmt.Sprintf("New comment on task %q", task.Title),
		domain.RelatedRef{Kind: domain.RelatedKindComment, ID: comment.ID},
	); err != nil {
		return nil, newServiceError("add comment", "failed to enqueue notifications", err)
	}

	s.logger.InfoContext(ctx, "comment added",
		slog.String("task_id", taskID.String()),
		slog.String("comment_id", comment.ID.String()),
		slog.Int("recipients", len(recipients)))
	return comment, nil
}

// GetTaskComments returns a page of a task's comments, newest first.
func (s *TaskService) GetTaskComments(ctx context.Context, taskID uuid.UUID, page store.Pagination) (*store.CommentPage, error) {
	result, err := s.comments.FindByTask(ctx, taskID, page.Normalize())
	if err != nil {
		return nil, newServiceError("get comments", "failed to query comments", err)
	}
	return result, nil
}

// GetTaskHistory returns a task's full audit trail, newest first.
func (s *TaskService) GetTaskHistory(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskHistory, error) {
	records, err := s.history.FindByTask(ctx, taskID)
	if err != nil {
		return nil, newServiceError("get history", "failed to query history", err)
	}
	return records, nil
}

// recordUpdateHistory writes the single history record for an update:
// status_changed when the status actually changed, updated otherwise.
func (s *TaskService) recordUpdateHistory(ctx context.Context, previous, updated *domain.Task, patch *domain.TaskPatch, actingUserID uuid.UUID, statusChanged bool) error {
	action := domain.HistoryActionUpdated
	if statusChanged {
		action = domain.HistoryActionStatusChanged
	}
	record, err := domain.NewTaskHistory(updated.ID, actingUserID, action)
	if err != nil {
		return err
	}
	if statusChanged {
		record.PreviousValue = historyValue(map[string]string{"status": string(previous.Status)})
		record.NewValue = historyValue(map[string]string{"status": string(updated.Status)})
	} else {
		record.UpdatedFields = patch.Fields()
	}
	return s.history.Create(ctx, record)
}

// reconcileAssignments diffs the requested assignee set against the
// current one and executes the additions and removals concurrently.
func (s *TaskService) reconcileAssignments(ctx context.Context, taskID uuid.UUID, requested []uuid.UUID, actingUserID uuid.UUID) error {
	current, err := s.assignments.UserIDsByTask(ctx, taskID)
	if err != nil {
		return err
	}

	currentSet := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	requestedSet := make(map[uuid.UUID]struct{}, len(requested))
	for _, id := range requested {
		requestedSet[id] = struct{}{}
	}

	var toAdd, toRemove []uuid.UUID
	for _, id := range requested {
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if _, ok := requestedSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = forEachUser(toAdd, func(userID uuid.UUID) error {
			return s.AssignTaskToUser(ctx, taskID, userID, actingUserID)
		})
	}()
	go func() {
		defer wg.Done()
		errs[1] = forEachUser(toRemove, func(userID uuid.UUID) error {
			_, err := s.RemoveTaskFromUser(ctx, taskID, userID, actingUserID)
			return err
		})
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// notifyAssignees enqueues one notification job per recipient, in parallel.
func (s *TaskService) notifyAssignees(ctx context.Context, recipients []uuid.UUID, kind domain.NotificationType, content string, related domain.RelatedRef) error {
	return forEachUser(recipients, func(userID uuid.UUID) error {
		job := jobs.CreateNotificationJob{
			UserID:    userID,
			Type:      kind,
			Content:   content,
			RelatedTo: related,
		}
		return s.queue.Enqueue(ctx, queue.QueueCreateNotification, job, queue.WithAttempts(queue.DefaultAttempts))
	})
}

// invalidateUserCaches drops every cached task list and the status-count
// entry for each user. Cache invalidation never fails a mutation; errors
// are logged and swallowed, the stale entries expire by TTL.
func (s *TaskService) invalidateUserCaches(ctx context.Context, userIDs []uuid.UUID) {
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			if err := s.cache.DeletePattern(ctx, cache.UserTasksPattern(userID)); err != nil {
				s.logger.WarnContext(ctx, "task list cache invalidation failed",
					slog.String("user_id", userID.String()), slog.Any("error", err))
			}
			if err := s.cache.Delete(ctx, cache.StatusCountsKey(userID)); err != nil {
				s.logger.WarnContext(ctx, "status counts cache invalidation failed",
					slog.String("user_id", userID.String()), slog.Any("error", err))
			}
		}(userID)
	}
	wg.Wait()
}

// forEachUser runs fn for each id concurrently and returns the first error.
func forEachUser(ids []uuid.UUID, fn func(uuid.UUID) error) error {
	if len(ids) == 0 {
		return nil
	}
	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			errs[i] = fn(id)
		}(i, id)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// historyValue serializes a snapshot for a history record's value columns.
func historyValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
