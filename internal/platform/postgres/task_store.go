package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = "id, title, description, status, priority, due_date, created_by, created_at, updated_at"

// sortableTaskColumns whitelists the columns a caller may sort by.
var sortableTaskColumns = map[string]string{
	"due_date":   "due_date",
	"dueDate":    "due_date",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
}

// Create persists a task to the database
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_date, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CreatedBy,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"error", err)
		return fmt.Errorf("failed to save task: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves a task by its unique ID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return task, nil
}

// Update applies the patch's non-nil entity fields and returns the updated
// row. A patch with no entity fields still bumps updated_at.
func (s *PostgresTaskStore) Update(ctx context.Context, id uuid.UUID, patch *domain.TaskPatch) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	set := []string{}
	args := []any{}
	arg := 1
	add := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, arg))
		args = append(args, value)
		arg++
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), arg, taskColumns,
	)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			"task_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to update task: %w", MapError(err))
	}
	return task, nil
}

// Delete removes a task row. Related rows are swept by the cleanup job.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// FindForUser returns the page of tasks the user is assigned to,
// restricted by the filter. Visibility follows assignment rows only;
// creating a task does not by itself put it in the creator's list.
func (s *PostgresTaskStore) FindForUser(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, pagination store.Pagination) (*store.TaskPage, error) {
	log := logger.FromContext(ctx)
	pagination = pagination.Normalize()

	where := []string{
		`EXISTS (
			SELECT 1 FROM task_assignments a
			WHERE a.task_id = t.id AND a.user_id = $1
		)`,
	}
	args := []any{userID}
	arg := 2

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("t.status = $%d", arg))
		args = append(args, *filter.Status)
		arg++
	}
	if filter.DueFrom != nil {
		where = append(where, fmt.Sprintf("t.due_date >= $%d", arg))
		args = append(args, *filter.DueFrom)
		arg++
	}
	if filter.DueTo != nil {
		where = append(where, fmt.Sprintf("t.due_date <= $%d", arg))
		args = append(args, *filter.DueTo)
		arg++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(t.title ILIKE $%d OR t.description ILIKE $%d)", arg, arg))
		args = append(args, "%"+filter.Search+"%")
		arg++
	}

	whereClause := strings.Join(where, " AND ")

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM tasks t WHERE ` + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		log.Error("failed to count tasks",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}

	sortColumn, ok := sortableTaskColumns[pagination.Sort]
	if !ok {
		sortColumn = "due_date"
	}
	direction := "ASC"
	if pagination.Desc {
		direction = "DESC"
	}

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM tasks t WHERE %s ORDER BY t.%s %s, t.id LIMIT $%d OFFSET $%d`,
		prefixColumns("t", taskColumns), whereClause, sortColumn, direction, arg, arg+1,
	)
	args = append(args, pagination.Limit, pagination.Offset())

	rows, err := s.db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		log.Error("failed to query tasks",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return &store.TaskPage{
		Data:       tasks,
		Pagination: store.NewPageInfo(pagination, totalCount),
	}, nil
}

// CountByStatus aggregates the user's assigned tasks per status. Every
// enumerated status appears in the result, absent ones as zero.
func (s *PostgresTaskStore) CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error) {
	query := `
		SELECT t.status, COUNT(*)
		FROM tasks t
		WHERE EXISTS (
			SELECT 1 FROM task_assignments a
			WHERE a.task_id = t.id AND a.user_id = $1
		)
		GROUP BY t.status
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.TaskStatus]int, len(domain.AllTaskStatuses))
	for _, status := range domain.AllTaskStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status count rows: %w", err)
	}

	return counts, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// prefixColumns qualifies a comma-separated column list with an alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}
