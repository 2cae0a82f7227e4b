package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/store"
)

// PostgresAssignmentStore implements the store.AssignmentStore interface
// using PostgreSQL. The unique index on (user_id, task_id) backs the
// one-assignment-per-pair invariant.
type PostgresAssignmentStore struct {
	db store.DBTX
}

// NewPostgresAssignmentStore creates a new PostgresAssignmentStore
func NewPostgresAssignmentStore(db store.DBTX) *PostgresAssignmentStore {
	return &PostgresAssignmentStore{
		db: db,
	}
}

var _ store.AssignmentStore = (*PostgresAssignmentStore)(nil)

// Create saves a new assignment. The unique index turns a duplicate
// (user, task) pair into ErrAssignmentExists.
func (s *PostgresAssignmentStore) Create(ctx context.Context, assignment *domain.Assignment) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO task_assignments (id, task_id, user_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.TaskID,
		assignment.UserID,
		assignment.AssignedBy,
		assignment.AssignedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrAssignmentExists
		}
		log.Error("failed to save assignment",
			"task_id", assignment.TaskID,
			"user_id", assignment.UserID,
			"error", err)
		return fmt.Errorf("failed to save assignment: %w", MapError(err))
	}

	return nil
}

// GetByTaskAndUser retrieves the assignment for the (task, user) pair.
func (s *PostgresAssignmentStore) GetByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (*domain.Assignment, error) {
	query := `
		SELECT id, task_id, user_id, assigned_by, assigned_at
		FROM task_assignments
		WHERE task_id = $1 AND user_id = $2
	`

	var assignment domain.Assignment
	err := s.db.QueryRowContext(ctx, query, taskID, userID).Scan(
		&assignment.ID,
		&assignment.TaskID,
		&assignment.UserID,
		&assignment.AssignedBy,
		&assignment.AssignedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", MapError(err))
	}
	return &assignment, nil
}

// Delete removes the assignment for the (task, user) pair.
func (s *PostgresAssignmentStore) Delete(ctx context.Context, taskID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM task_assignments WHERE task_id = $1 AND user_id = $2`,
		taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrAssignmentNotFound)
}

// UserIDsByTask returns the ids of all users assigned to the task.
func (s *PostgresAssignmentStore) UserIDsByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	return s.queryIDs(ctx,
		`SELECT user_id FROM task_assignments WHERE task_id = $1 ORDER BY assigned_at`,
		taskID)
}

// DeleteByTask removes every assignment row for the task.
func (s *PostgresAssignmentStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM task_assignments WHERE task_id = $1`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments: %w", MapError(err))
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func (s *PostgresAssignmentStore) queryIDs(ctx context.Context, query string, arg any) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment rows: %w", err)
	}
	return ids, nil
}
