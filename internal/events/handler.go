package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/bus"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/queue"
	"github.com/taskboard/taskboard-api/internal/store"
)

// ReminderLead is how far before the due date the reminder fires. Due
// dates closer than the lead (or already past) get an immediate reminder
// rather than none.
const ReminderLead = 24 * time.Hour

// TaskEventHandler consumes task.created and task.updated events to
// schedule deferred due-date reminder jobs, and is itself the queue
// processor that materializes those reminders into notifications.
//
// Rescheduling after a due-date change enqueues a fresh delayed job
// without cancelling the previous one, so a task whose due date moves
// more than once can produce multiple reminders. Known limitation of the
// fire-and-forget scheduling model.
type TaskEventHandler struct {
	tasks         store.TaskStore
	assignments   store.AssignmentStore
	notifications store.NotificationStore
	queue         queue.Queue
	logger        *slog.Logger
	now           func() time.Time
}

// NewTaskEventHandler creates a new TaskEventHandler.
func NewTaskEventHandler(
	tasks store.TaskStore,
	assignments store.AssignmentStore,
	notifications store.NotificationStore,
	q queue.Queue,
	logger *slog.Logger,
) *TaskEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskEventHandler{
		tasks:         tasks,
		assignments:   assignments,
		notifications: notifications,
		queue:         q,
		logger:        logger.With("component", "task_event_handler"),
		now:           time.Now,
	}
}

// Register subscribes the handler to the task event topics.
func (h *TaskEventHandler) Register(b bus.Bus) {
	b.Subscribe(TopicTaskCreated, h.HandleTaskCreated)
	b.Subscribe(TopicTaskUpdated, h.HandleTaskUpdated)
}

// RegisterProcessors binds the reminder job processor on the queue.
func (h *TaskEventHandler) RegisterProcessors(q queue.Queue) {
	q.RegisterProcessor(queue.QueueDueDateReminder, h.ProcessDueDateReminder)
}

// HandleTaskCreated schedules a due-date reminder for the new task.
// Scheduling failures are logged, not propagated: reminder scheduling is
// best-effort and must never fail the publishing operation.
func (h *TaskEventHandler) HandleTaskCreated(ctx context.Context, payload []byte) error {
	var event TaskCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to unmarshal task.created event", "error", err)
		return nil
	}

	if err := h.scheduleReminder(ctx, event.TaskID, event.DueDate); err != nil {
		h.logger.Error("failed to schedule due date reminder",
			"error", err,
			"task_id", event.TaskID)
	}
	return nil
}

// HandleTaskUpdated re-schedules the reminder when the update touched the
// due date; any other update is a no-op.
func (h *TaskEventHandler) HandleTaskUpdated(ctx context.Context, payload []byte) error {
	var event TaskUpdatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to unmarshal task.updated event", "error", err)
		return nil
	}

	if !slices.Contains(event.UpdatedFields, FieldDueDate) {
		return nil
	}

	if err := h.scheduleReminder(ctx, event.TaskID, event.DueDate); err != nil {
		h.logger.Error("failed to reschedule due date reminder",
			"error", err,
			"task_id", event.TaskID)
	}
	return nil
}

// scheduleReminder enqueues a delayed, retryable reminder job one lead
// interval before the due date. A due date inside the lead window (or in
// the past) yields a zero delay: the reminder fires immediately.
func (h *TaskEventHandler) scheduleReminder(ctx context.Context, taskID, dueDate string) error {
	due, err := time.Parse(time.RFC3339, dueDate)
	if err != nil {
		return fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}

	reminderAt := due.Add(-ReminderLead)
	delay := reminderAt.Sub(h.now())
	if delay < 0 {
		delay = 0
	}

	err = h.queue.Enqueue(ctx, queue.QueueDueDateReminder,
		ReminderJob{TaskID: taskID},
		queue.WithDelay(delay),
		queue.WithAttempts(3),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder job: %w", err)
	}

	h.logger.Info("scheduled due date reminder",
		"task_id", taskID,
		"reminder_at", reminderAt,
		"delay", delay)
	return nil
}

// ProcessDueDateReminder is the sendDueDateReminder queue processor. It
// loads the task and its current assignees and creates one deadline
// reminder notification per assignee, in parallel. A task deleted since
// scheduling, or one with no assignees left, is a tolerated race: the
// processor warns and succeeds.
func (h *TaskEventHandler) ProcessDueDateReminder(ctx context.Context, payload []byte) error {
	var job ReminderJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to unmarshal reminder job: %w", err)
	}

	taskID, err := uuid.Parse(job.TaskID)
	if err != nil {
		return fmt.Errorf("invalid task ID %q: %w", job.TaskID, err)
	}

	task, err := h.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			h.logger.Warn("task not found for reminder, skipping", "task_id", taskID)
			return nil
		}
		return fmt.Errorf("failed to load task for reminder: %w", err)
	}

	assignees, err := h.assignments.UserIDsByTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load assignees for reminder: %w", err)
	}
	if len(assignees) == 0 {
		h.logger.Warn("no assignees for reminder, skipping", "task_id", taskID)
		return nil
	}

	content := fmt.Sprintf("Reminder: Task %q is due tomorrow", task.Title)
	relatedTo := domain.RelatedRef{Kind: domain.RelatedKindTask, ID: taskID}

	var wg sync.WaitGroup
	errs := make([]error, len(assignees))
	for i, userID := range assignees {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			notification, err := domain.NewNotification(
				userID, domain.NotificationDeadlineReminder, content, relatedTo)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = h.notifications.Create(ctx, notification)
		}(i, userID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to create reminder notification: %w", err)
		}
	}

	h.logger.Info("sent due date reminders",
		"task_id", taskID,
		"assignee_count", len(assignees))
	return nil
}
