package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/taskboard/taskboard-api/internal/bus"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/queue"
	"github.com/taskboard/taskboard-api/internal/store"
)

type mockTaskStore struct {
	mock.Mock
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskStore) Update(ctx context.Context, id uuid.UUID, patch *domain.TaskPatch) (*domain.Task, error) {
	args := m.Called(ctx, id, patch)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTaskStore) FindForUser(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, pagination store.Pagination) (*store.TaskPage, error) {
	args := m.Called(ctx, userID, filter, pagination)
	page, _ := args.Get(0).(*store.TaskPage)
	return page, args.Error(1)
}

func (m *mockTaskStore) CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error) {
	args := m.Called(ctx, userID)
	counts, _ := args.Get(0).(map[domain.TaskStatus]int)
	return counts, args.Error(1)
}

type mockAssignmentStore struct {
	mock.Mock
}

func (m *mockAssignmentStore) Create(ctx context.Context, assignment *domain.Assignment) error {
	return m.Called(ctx, assignment).Error(0)
}

func (m *mockAssignmentStore) GetByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (*domain.Assignment, error) {
	args := m.Called(ctx, taskID, userID)
	assignment, _ := args.Get(0).(*domain.Assignment)
	return assignment, args.Error(1)
}

func (m *mockAssignmentStore) Delete(ctx context.Context, taskID, userID uuid.UUID) error {
	return m.Called(ctx, taskID, userID).Error(0)
}

func (m *mockAssignmentStore) UserIDsByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, taskID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

func (m *mockAssignmentStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) Create(ctx context.Context, record *domain.TaskHistory) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockHistoryStore) FindByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskHistory, error) {
	args := m.Called(ctx, taskID)
	records, _ := args.Get(0).([]*domain.TaskHistory)
	return records, args.Error(1)
}

func (m *mockHistoryStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

type mockCommentStore struct {
	mock.Mock
}

func (m *mockCommentStore) Create(ctx context.Context, comment *domain.TaskComment) error {
	return m.Called(ctx, comment).Error(0)
}

func (m *mockCommentStore) FindByTask(ctx context.Context, taskID uuid.UUID, pagination store.Pagination) (*store.CommentPage, error) {
	args := m.Called(ctx, taskID, pagination)
	page, _ := args.Get(0).(*store.CommentPage)
	return page, args.Error(1)
}

func (m *mockCommentStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	return m.Called(ctx, notification).Error(0)
}

func (m *mockNotificationStore) FindByUser(ctx context.Context, userID uuid.UUID, pagination store.Pagination, onlyUnread bool) (*store.NotificationPage, error) {
	args := m.Called(ctx, userID, pagination, onlyUnread)
	page, _ := args.Get(0).(*store.NotificationPage)
	return page, args.Error(1)
}

func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockCache) DeletePattern(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, queueName string, payload any, opts ...queue.JobOption) error {
	return m.Called(ctx, queueName, payload, opts).Error(0)
}

func (m *mockQueue) RegisterProcessor(queueName string, fn queue.ProcessorFunc) {
	m.Called(queueName, fn)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) Publish(ctx context.Context, topic string, message any) error {
	return m.Called(ctx, topic, message).Error(0)
}

func (m *mockBus) Subscribe(topic string, handler bus.HandlerFunc) {
	m.Called(topic, handler)
}
