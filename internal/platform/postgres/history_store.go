package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/store"
)

// PostgresHistoryStore implements the store.HistoryStore interface using
// PostgreSQL. The table is append-only; rows leave it only through the
// cleanup sweep after the owning task is deleted.
type PostgresHistoryStore struct {
	db store.DBTX
}

// NewPostgresHistoryStore creates a new PostgresHistoryStore
func NewPostgresHistoryStore(db store.DBTX) *PostgresHistoryStore {
	return &PostgresHistoryStore{
		db: db,
	}
}

var _ store.HistoryStore = (*PostgresHistoryStore)(nil)

// Create appends a new history record.
func (s *PostgresHistoryStore) Create(ctx context.Context, record *domain.TaskHistory) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO task_history (id, task_id, user_id, action, previous_value, new_value, updated_fields, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// updated_fields is a jsonb column; NULL when the record has none.
	var updatedFields []byte
	if record.UpdatedFields != nil {
		var err error
		updatedFields, err = json.Marshal(record.UpdatedFields)
		if err != nil {
			return fmt.Errorf("failed to marshal updated fields: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.TaskID,
		record.UserID,
		record.Action,
		record.PreviousValue,
		record.NewValue,
		updatedFields,
		record.Timestamp,
	)
	if err != nil {
		log.Error("failed to save history record",
			"task_id", record.TaskID,
			"action", record.Action,
			"error", err)
		return fmt.Errorf("failed to save history record: %w", MapError(err))
	}

	return nil
}

// FindByTask returns all history records for the task, newest first.
func (s *PostgresHistoryStore) FindByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskHistory, error) {
	query := `
		SELECT id, task_id, user_id, action, previous_value, new_value, updated_fields, timestamp
		FROM task_history
		WHERE task_id = $1
		ORDER BY timestamp DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := []*domain.TaskHistory{}
	for rows.Next() {
		var record domain.TaskHistory
		var updatedFields []byte
		err := rows.Scan(
			&record.ID,
			&record.TaskID,
			&record.UserID,
			&record.Action,
			&record.PreviousValue,
			&record.NewValue,
			&updatedFields,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if len(updatedFields) > 0 {
			if err := json.Unmarshal(updatedFields, &record.UpdatedFields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal updated fields: %w", err)
			}
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return records, nil
}

// DeleteByTask removes every history record for the task.
func (s *PostgresHistoryStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM task_history WHERE task_id = $1`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history records: %w", MapError(err))
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
