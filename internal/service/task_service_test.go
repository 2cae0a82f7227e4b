package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-api/internal/cache"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/events"
	"github.com/taskboard/taskboard-api/internal/jobs"
	"github.com/taskboard/taskboard-api/internal/queue"
	"github.com/taskboard/taskboard-api/internal/store"
)

type taskServiceFixture struct {
	service       *TaskService
	tasks         *mockTaskStore
	assignments   *mockAssignmentStore
	history       *mockHistoryStore
	comments      *mockCommentStore
	notifications *mockNotificationStore
	cache         *mockCache
	queue         *mockQueue
	bus           *mockBus
}

func newTaskServiceFixture(t *testing.T) *taskServiceFixture {
	t.Helper()
	f := &taskServiceFixture{
		tasks:         new(mockTaskStore),
		assignments:   new(mockAssignmentStore),
		history:       new(mockHistoryStore),
		comments:      new(mockCommentStore),
		notifications: new(mockNotificationStore),
		cache:         new(mockCache),
		queue:         new(mockQueue),
		bus:           new(mockBus),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewTaskService(
		f.tasks, f.assignments, f.history, f.comments, f.notifications,
		f.cache, f.queue, f.bus, logger,
	)
	return f
}

// expectCacheInvalidation wires the cache mock to accept invalidation for
// any user. Invalidation errors are swallowed, so tests that exercise other
// paths only need the calls to be allowed.
func (f *taskServiceFixture) expectCacheInvalidation() {
	f.cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func newTestTask(t *testing.T, createdBy uuid.UUID) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(
		"Ship release", "cut and tag",
		domain.TaskStatusTodo, domain.TaskPriorityHigh,
		time.Now().Add(72*time.Hour).UTC(), createdBy,
	)
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	creator := uuid.New()

	t.Run("records history and publishes event", func(t *testing.T) {
		f := newTaskServiceFixture(t)

		f.tasks.On("Create", mock.Anything, mock.AnythingOfType("*domain.Task")).Return(nil)
		f.history.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.TaskHistory) bool {
			return r.Action == domain.HistoryActionCreated && r.UserID == creator && r.NewValue != ""
		})).Return(nil)
		f.bus.On("Publish", mock.Anything, events.TopicTaskCreated, mock.Anything).Return(nil)

		task, err := f.service.CreateTask(ctx, CreateTaskInput{
			Title:   "Ship release",
			DueDate: time.Now().Add(24 * time.Hour),
		}, creator)

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusTodo, task.Status)
		assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
		f.tasks.AssertExpectations(t)
		f.history.AssertExpectations(t)
		f.bus.AssertExpectations(t)
	})

	t.Run("history failure after save propagates", func(t *testing.T) {
		f := newTaskServiceFixture(t)

		f.tasks.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.history.On("Create", mock.Anything, mock.Anything).Return(errors.New("history down"))

		_, err := f.service.CreateTask(ctx, CreateTaskInput{
			Title:   "Ship release",
			DueDate: time.Now().Add(24 * time.Hour),
		}, creator)

		require.Error(t, err)
		f.tasks.AssertCalled(t, "Create", mock.Anything, mock.Anything)
		f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid input writes nothing", func(t *testing.T) {
		f := newTaskServiceFixture(t)

		_, err := f.service.CreateTask(ctx, CreateTaskInput{Title: ""}, creator)

		require.Error(t, err)
		f.tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("status change records a single status_changed entry and both events", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		current := newTestTask(t, actor)
		updated := *current
		updated.Status = domain.TaskStatusInProgress
		assignee := uuid.New()
		status := domain.TaskStatusInProgress
		patch := &domain.TaskPatch{Status: &status}

		f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
		f.tasks.On("Update", mock.Anything, current.ID, patch).Return(&updated, nil)
		f.history.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.TaskHistory) bool {
			return r.Action == domain.HistoryActionStatusChanged &&
				r.PreviousValue == `{"status":"todo"}` &&
				r.NewValue == `{"status":"in_progress"}`
		})).Return(nil)
		f.assignments.On("UserIDsByTask", mock.Anything, current.ID).Return([]uuid.UUID{assignee}, nil)
		f.queue.On("Enqueue", mock.Anything, queue.QueueCreateNotification, mock.Anything, mock.Anything).Return(nil)
		f.expectCacheInvalidation()
		f.bus.On("Publish", mock.Anything, events.TopicTaskUpdated, mock.MatchedBy(func(e events.TaskUpdatedEvent) bool {
			return e.PreviousStatus == "todo" && e.Status == "in_progress"
		})).Return(nil)
		f.bus.On("Publish", mock.Anything, events.TopicTaskStatusChanged, mock.Anything).Return(nil)

		got, err := f.service.UpdateTask(ctx, current.ID, patch, actor)

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, got.Status)
		f.history.AssertNumberOfCalls(t, "Create", 1)
		f.bus.AssertExpectations(t)
	})

	t.Run("plain field update records updated entry only", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		current := newTestTask(t, actor)
		title := "Ship release v2"
		patch := &domain.TaskPatch{Title: &title}
		updated := *current
		updated.Title = title

		f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
		f.tasks.On("Update", mock.Anything, current.ID, patch).Return(&updated, nil)
		f.history.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.TaskHistory) bool {
			return r.Action == domain.HistoryActionUpdated &&
				len(r.UpdatedFields) == 1 && r.UpdatedFields[0] == "title"
		})).Return(nil)
		f.assignments.On("UserIDsByTask", mock.Anything, current.ID).Return(nil, nil)
		f.expectCacheInvalidation()
		f.bus.On("Publish", mock.Anything, events.TopicTaskUpdated, mock.Anything).Return(nil)

		_, err := f.service.UpdateTask(ctx, current.ID, patch, actor)

		require.NoError(t, err)
		f.history.AssertNumberOfCalls(t, "Create", 1)
		f.bus.AssertNotCalled(t, "Publish", mock.Anything, events.TopicTaskStatusChanged, mock.Anything)
	})

	t.Run("assignee reconciliation adds and removes the diff only", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		current := newTestTask(t, actor)
		a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
		patch := &domain.TaskPatch{Assignees: []uuid.UUID{b, c, d}}

		f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
		f.tasks.On("Update", mock.Anything, current.ID, patch).Return(current, nil)
		f.history.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.assignments.On("UserIDsByTask", mock.Anything, current.ID).Return([]uuid.UUID{a, b, c}, nil)
		f.assignments.On("GetByTaskAndUser", mock.Anything, current.ID, d).Return(nil, store.ErrAssignmentNotFound)
		f.assignments.On("Create", mock.Anything, mock.MatchedBy(func(as *domain.Assignment) bool {
			return as.UserID == d
		})).Return(nil)
		f.assignments.On("Delete", mock.Anything, current.ID, a).Return(nil)
		f.queue.On("Enqueue", mock.Anything, queue.QueueCreateNotification, mock.Anything, mock.Anything).Return(nil)
		f.expectCacheInvalidation()
		f.bus.On("Publish", mock.Anything, events.TopicTaskUpdated, mock.Anything).Return(nil)

		_, err := f.service.UpdateTask(ctx, current.ID, patch, actor)

		require.NoError(t, err)
		f.assignments.AssertNumberOfCalls(t, "Create", 1)
		f.assignments.AssertNumberOfCalls(t, "Delete", 1)
	})
}

func TestAssignTaskToUser(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("existing assignment still fires history and notification", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		task := newTestTask(t, actor)
		user := uuid.New()
		existing, err := domain.NewAssignment(task.ID, user, actor)
		require.NoError(t, err)

		f.tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		f.assignments.On("GetByTaskAndUser", mock.Anything, task.ID, user).Return(existing, nil)
		f.history.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.TaskHistory) bool {
			return r.Action == domain.HistoryActionAssigned
		})).Return(nil)
		f.queue.On("Enqueue", mock.Anything, queue.QueueCreateNotification, mock.MatchedBy(func(j jobs.CreateNotificationJob) bool {
			return j.UserID == user && j.Type == domain.NotificationTaskAssigned
		}), mock.Anything).Return(nil)
		f.expectCacheInvalidation()

		require.NoError(t, f.service.AssignTaskToUser(ctx, task.ID, user, actor))
		f.assignments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.history.AssertExpectations(t)
		f.queue.AssertExpectations(t)
	})

	t.Run("concurrent duplicate insert is tolerated", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		task := newTestTask(t, actor)
		user := uuid.New()

		f.tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		f.assignments.On("GetByTaskAndUser", mock.Anything, task.ID, user).Return(nil, store.ErrAssignmentNotFound)
		f.assignments.On("Create", mock.Anything, mock.Anything).Return(store.ErrAssignmentExists)
		f.history.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.queue.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.expectCacheInvalidation()

		require.NoError(t, f.service.AssignTaskToUser(ctx, task.ID, user, actor))
	})

	t.Run("missing task assigns nothing", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		id := uuid.New()

		f.tasks.On("GetByID", mock.Anything, id).Return(nil, store.ErrTaskNotFound)

		err := f.service.AssignTaskToUser(ctx, id, uuid.New(), actor)
		require.ErrorIs(t, err, ErrTaskNotFound)
		f.assignments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRemoveTaskFromUser(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("removes and records unassignment", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		taskID, user := uuid.New(), uuid.New()

		f.assignments.On("Delete", mock.Anything, taskID, user).Return(nil)
		f.history.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.TaskHistory) bool {
			return r.Action == domain.HistoryActionUnassigned && r.PreviousValue != ""
		})).Return(nil)
		f.expectCacheInvalidation()

		removed, err := f.service.RemoveTaskFromUser(ctx, taskID, user, actor)
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("absent assignment is a quiet no-op", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		taskID, user := uuid.New(), uuid.New()

		f.assignments.On("Delete", mock.Anything, taskID, user).Return(store.ErrAssignmentNotFound)

		removed, err := f.service.RemoveTaskFromUser(ctx, taskID, user, actor)
		require.NoError(t, err)
		assert.False(t, removed)
		f.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("enqueues cleanup and invalidates caches", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		taskID := uuid.New()
		assignee := uuid.New()

		f.assignments.On("UserIDsByTask", mock.Anything, taskID).Return([]uuid.UUID{assignee}, nil)
		f.tasks.On("Delete", mock.Anything, taskID).Return(nil)
		f.queue.On("Enqueue", mock.Anything, queue.QueueTaskCleanup, mock.MatchedBy(func(j jobs.CleanupJob) bool {
			return j.TaskID == taskID
		}), mock.Anything).Return(nil)
		f.cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil)
		f.cache.On("Delete", mock.Anything, mock.Anything).Return(nil)

		deleted, err := f.service.DeleteTask(ctx, taskID, actor)
		require.NoError(t, err)
		assert.True(t, deleted)
		f.queue.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})

	t.Run("absent task reports false without error", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		taskID := uuid.New()

		f.assignments.On("UserIDsByTask", mock.Anything, taskID).Return(nil, nil)
		f.tasks.On("Delete", mock.Anything, taskID).Return(store.ErrTaskNotFound)

		deleted, err := f.service.DeleteTask(ctx, taskID, actor)
		require.NoError(t, err)
		assert.False(t, deleted)
		f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetUserTasks(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("cache hit skips the store", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		cached := &store.TaskPage{Pagination: store.PageInfo{Page: 1, Limit: 20, TotalCount: 3}}

		f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				*args.Get(2).(*store.TaskPage) = *cached
			}).Return(true, nil)

		page, err := f.service.GetUserTasks(ctx, userID, store.TaskFilter{}, store.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Pagination.TotalCount)
		f.tasks.AssertNotCalled(t, "FindForUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache read failure falls through to the store", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		result := &store.TaskPage{Pagination: store.PageInfo{Page: 1, Limit: 20}}

		f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		f.tasks.On("FindForUser", mock.Anything, userID, mock.Anything, mock.Anything).Return(result, nil)
		f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		page, err := f.service.GetUserTasks(ctx, userID, store.TaskFilter{}, store.Pagination{})
		require.NoError(t, err)
		assert.Same(t, result, page)
	})

	t.Run("miss populates the cache", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		result := &store.TaskPage{}

		f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		f.tasks.On("FindForUser", mock.Anything, userID, mock.Anything, mock.Anything).Return(result, nil)
		f.cache.On("Set", mock.Anything, mock.Anything, result, mock.Anything).Return(nil)

		_, err := f.service.GetUserTasks(ctx, userID, store.TaskFilter{}, store.Pagination{})
		require.NoError(t, err)
		f.cache.AssertExpectations(t)
	})
}

func TestGetTaskStatusCounts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	f := newTaskServiceFixture(t)
	counts := map[domain.TaskStatus]int{
		domain.TaskStatusTodo:       2,
		domain.TaskStatusInProgress: 0,
		domain.TaskStatusReview:     0,
		domain.TaskStatusDone:       1,
	}

	f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	f.tasks.On("CountByStatus", mock.Anything, userID).Return(counts, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := f.service.GetTaskStatusCounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, counts, got)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies assignees except the author", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		author := uuid.New()
		other := uuid.New()
		task := newTestTask(t, author)

		f.tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
		f.comments.On("Create", mock.Anything, mock.AnythingOfType("*domain.TaskComment")).Return(nil)
		f.assignments.On("UserIDsByTask", mock.Anything, task.ID).Return([]uuid.UUID{author, other}, nil)
		f.queue.On("Enqueue", mock.Anything, queue.QueueCreateNotification, mock.MatchedBy(func(j jobs.CreateNotificationJob) bool {
			return j.UserID == other && j.Type == domain.NotificationCommentAdded &&
				j.RelatedTo.Kind == domain.RelatedKindComment
		}), mock.Anything).Return(nil)

		comment, err := f.service.AddComment(ctx, task.ID, author, "looks good")
		require.NoError(t, err)
		assert.Equal(t, "looks good", comment.Text)
		f.queue.AssertNumberOfCalls(t, "Enqueue", 1)
	})

	t.Run("missing task rejects the comment", func(t *testing.T) {
		f := newTaskServiceFixture(t)
		id := uuid.New()

		f.tasks.On("GetByID", mock.Anything, id).Return(nil, store.ErrTaskNotFound)

		_, err := f.service.AddComment(ctx, id, uuid.New(), "orphan")
		require.ErrorIs(t, err, ErrTaskNotFound)
		f.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetTaskByID(t *testing.T) {
	ctx := context.Background()

	f := newTaskServiceFixture(t)
	task := newTestTask(t, uuid.New())
	assignees := []uuid.UUID{uuid.New(), uuid.New()}

	f.tasks.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	f.assignments.On("UserIDsByTask", mock.Anything, task.ID).Return(assignees, nil)

	got, err := f.service.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, assignees, got.Assignees)
}

// Status changes must drop every affected user's cached list and
// status-count entries before the operation returns; a page cached just
// before the update must not be served afterwards.
func TestUpdateTaskEvictsAffectedUserCaches(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()
	assignee := uuid.New()
	bystander := uuid.New()

	f := newTaskServiceFixture(t)
	memCache := cache.NewMemoryCache()
	svc := NewTaskService(
		f.tasks, f.assignments, f.history, f.comments, f.notifications,
		memCache, f.queue, f.bus, slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	current := newTestTask(t, actor)
	updated := *current
	updated.Status = domain.TaskStatusDone
	status := domain.TaskStatusDone
	patch := &domain.TaskPatch{Status: &status}

	listKey := cache.UserTasksKey(assignee, store.TaskFilter{}, store.Pagination{}.Normalize())
	countsKey := cache.StatusCountsKey(assignee)
	bystanderKey := cache.UserTasksKey(bystander, store.TaskFilter{}, store.Pagination{}.Normalize())
	require.NoError(t, memCache.Set(ctx, listKey, &store.TaskPage{}, time.Minute))
	require.NoError(t, memCache.Set(ctx, countsKey, map[string]int{"todo": 1}, time.Minute))
	require.NoError(t, memCache.Set(ctx, bystanderKey, &store.TaskPage{}, time.Minute))

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.tasks.On("Update", mock.Anything, current.ID, patch).Return(&updated, nil)
	f.history.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.assignments.On("UserIDsByTask", mock.Anything, current.ID).Return([]uuid.UUID{assignee}, nil)
	f.queue.On("Enqueue", mock.Anything, queue.QueueCreateNotification, mock.Anything, mock.Anything).Return(nil)
	f.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.UpdateTask(ctx, current.ID, patch, actor)
	require.NoError(t, err)

	var page store.TaskPage
	found, err := memCache.Get(ctx, listKey, &page)
	require.NoError(t, err)
	assert.False(t, found, "stale task list must not survive a status change")

	var counts map[string]int
	found, err = memCache.Get(ctx, countsKey, &counts)
	require.NoError(t, err)
	assert.False(t, found, "stale status counts must not survive a status change")

	found, err = memCache.Get(ctx, bystanderKey, &page)
	require.NoError(t, err)
	assert.True(t, found, "users outside the assignee set keep their cached pages")
}
