package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/store"
)

// PostgresCommentStore implements the store.CommentStore interface using PostgreSQL
type PostgresCommentStore struct {
	db store.DBTX
}

// NewPostgresCommentStore creates a new PostgresCommentStore
func NewPostgresCommentStore(db store.DBTX) *PostgresCommentStore {
	return &PostgresCommentStore{
		db: db,
	}
}

var _ store.CommentStore = (*PostgresCommentStore)(nil)

// Create saves a new comment.
func (s *PostgresCommentStore) Create(ctx context.Context, comment *domain.TaskComment) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO task_comments (id, task_id, author_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		comment.ID,
		comment.TaskID,
		comment.AuthorID,
		comment.Text,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save comment",
			"task_id", comment.TaskID,
			"error", err)
		return fmt.Errorf("failed to save comment: %w", MapError(err))
	}

	return nil
}

// FindByTask returns the task's comments, newest first, paginated.
func (s *PostgresCommentStore) FindByTask(ctx context.Context, taskID uuid.UUID, pagination store.Pagination) (*store.CommentPage, error) {
	pagination = pagination.Normalize()

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM task_comments WHERE task_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, taskID).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", MapError(err))
	}

	query := `
		SELECT id, task_id, author_id, text, created_at, updated_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, taskID, pagination.Limit, pagination.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	comments := []*domain.TaskComment{}
	for rows.Next() {
		var comment domain.TaskComment
		err := rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.AuthorID,
			&comment.Text,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}

	return &store.CommentPage{
		Data:       comments,
		Pagination: store.NewPageInfo(pagination, totalCount),
	}, nil
}

// DeleteByTask removes every comment for the task.
func (s *PostgresCommentStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM task_comments WHERE task_id = $1`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments: %w", MapError(err))
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
