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

// PostgresUserStore implements the store.UserStore interface using PostgreSQL
type PostgresUserStore struct {
	db store.DBTX
}

// NewPostgresUserStore creates a new PostgresUserStore
func NewPostgresUserStore(db store.DBTX) *PostgresUserStore {
	return &PostgresUserStore{
		db: db,
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// Create saves a new user. The unique index on email turns a duplicate
// registration into ErrEmailExists.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO users (id, email, name, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrEmailExists
		}
		log.Error("failed to save user",
			"user_id", user.ID,
			"error", err)
		return fmt.Errorf("failed to save user: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves a user by ID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getBy(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getBy(ctx, `WHERE email = $1`, email)
}

func (s *PostgresUserStore) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `
		SELECT id, email, name, hashed_password, created_at, updated_at
		FROM users
	` + where

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", MapError(err))
	}
	return &user, nil
}
