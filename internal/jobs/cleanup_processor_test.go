package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-api/internal/store"
)

// sweepRecorder backs the per-relation fakes below.
type sweepRecorder struct {
	mu    sync.Mutex
	swept []uuid.UUID
	count int64
	err   error
}

func (s *sweepRecorder) sweep(taskID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.swept = append(s.swept, taskID)
	return s.count, nil
}

func (s *sweepRecorder) sweptTasks() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.swept...)
}

type fakeAssignmentSweeper struct {
	store.AssignmentStore
	sweepRecorder
}

func (s *fakeAssignmentSweeper) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	return s.sweep(taskID)
}

type fakeHistorySweeper struct {
	store.HistoryStore
	sweepRecorder
}

func (s *fakeHistorySweeper) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	return s.sweep(taskID)
}

type fakeCommentSweeper struct {
	store.CommentStore
	sweepRecorder
}

func (s *fakeCommentSweeper) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	return s.sweep(taskID)
}

func TestProcessCleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps all three relations", func(t *testing.T) {
		assignments := &fakeAssignmentSweeper{sweepRecorder: sweepRecorder{count: 2}}
		history := &fakeHistorySweeper{sweepRecorder: sweepRecorder{count: 5}}
		comments := &fakeCommentSweeper{}
		p := NewCleanupProcessor(assignments, history, comments, testLogger())

		taskID := uuid.New()
		payload, err := json.Marshal(CleanupJob{TaskID: taskID})
		require.NoError(t, err)

		require.NoError(t, p.ProcessCleanup(ctx, payload))
		assert.Equal(t, []uuid.UUID{taskID}, assignments.sweptTasks())
		assert.Equal(t, []uuid.UUID{taskID}, history.sweptTasks())
		assert.Equal(t, []uuid.UUID{taskID}, comments.sweptTasks())
	})

	t.Run("one failing relation fails the job, others still run", func(t *testing.T) {
		assignments := &fakeAssignmentSweeper{}
		history := &fakeHistorySweeper{sweepRecorder: sweepRecorder{err: errors.New("history table locked")}}
		comments := &fakeCommentSweeper{}
		p := NewCleanupProcessor(assignments, history, comments, testLogger())

		payload, err := json.Marshal(CleanupJob{TaskID: uuid.New()})
		require.NoError(t, err)

		assert.Error(t, p.ProcessCleanup(ctx, payload))
		assert.Len(t, assignments.sweptTasks(), 1)
		assert.Len(t, comments.sweptTasks(), 1)
	})

	t.Run("malformed payload fails", func(t *testing.T) {
		p := NewCleanupProcessor(&fakeAssignmentSweeper{}, &fakeHistorySweeper{}, &fakeCommentSweeper{}, testLogger())
		assert.Error(t, p.ProcessCleanup(ctx, []byte("nope")))
	})
}
