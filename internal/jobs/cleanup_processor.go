package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/store"
)

// CleanupJob is the payload of a cleanupTaskResources queue job.
type CleanupJob struct {
	TaskID uuid.UUID `json:"taskId"`
}

// CleanupProcessor removes the assignment, history, and comment rows left
// behind by a deleted task. The cascade runs asynchronously because its
// volume is unbounded; each relation is cleaned independently and the job
// as a whole is retried on failure.
type CleanupProcessor struct {
	assignments store.AssignmentStore
	history     store.HistoryStore
	comments    store.CommentStore
	logger      *slog.Logger
}

// NewCleanupProcessor creates a new CleanupProcessor.
func NewCleanupProcessor(
	assignments store.AssignmentStore,
	history store.HistoryStore,
	comments store.CommentStore,
	logger *slog.Logger,
) *CleanupProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupProcessor{
		assignments: assignments,
		history:     history,
		comments:    comments,
		logger:      logger.With("component", "cleanup_processor"),
	}
}

// ProcessCleanup handles one cleanup job. The three relation sweeps run
// in parallel; already-clean relations delete zero rows, which keeps the
// job idempotent across retries.
func (p *CleanupProcessor) ProcessCleanup(ctx context.Context, payload []byte) error {
	var job CleanupJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to unmarshal cleanup job: %w", err)
	}

	type sweep struct {
		name string
		fn   func(context.Context, uuid.UUID) (int64, error)
	}
	sweeps := []sweep{
		{"assignments", p.assignments.DeleteByTask},
		{"history", p.history.DeleteByTask},
		{"comments", p.comments.DeleteByTask},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(sweeps))
	for i, s := range sweeps {
		wg.Add(1)
		go func(i int, s sweep) {
			defer wg.Done()
			deleted, err := s.fn(ctx, job.TaskID)
			if err != nil {
				errs[i] = fmt.Errorf("failed to clean up %s: %w", s.name, err)
				return
			}
			if deleted > 0 {
				p.logger.Info("cleaned up task relation",
					"task_id", job.TaskID,
					"relation", s.name,
					"deleted", deleted)
			}
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	p.logger.Info("task resources cleaned up", "task_id", job.TaskID)
	return nil
}
