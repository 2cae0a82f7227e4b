package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/service/auth"
	"github.com/taskboard/taskboard-api/internal/store"
)

// TokenPair is an access/refresh token pair issued at registration,
// login, and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService handles registration, login, and refresh-token rotation.
type UserService struct {
	users           store.UserStore
	jwt             auth.JWTService
	hasher          auth.PasswordHasher
	tokens          auth.TokenStore
	refreshLifetime time.Duration
	logger          *slog.Logger
}

// NewUserService creates a UserService. refreshLifetime bounds how long a
// registered refresh token stays valid in the token store.
func NewUserService(
	users store.UserStore,
	jwt auth.JWTService,
	hasher auth.PasswordHasher,
	tokens auth.TokenStore,
	refreshLifetime time.Duration,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:           users,
		jwt:             jwt,
		hasher:          hasher,
		tokens:          tokens,
		refreshLifetime: refreshLifetime,
		logger:          logger.With("component", "user_service"),
	}
}

// Register creates a new user account and issues its first token pair.
// Returns store.ErrEmailExists when the email is already registered.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*domain.User, *TokenPair, error) {
	user, err := domain.NewUser(email, name, password)
	if err != nil {
		return nil, nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to register existing email", "email", email)
			return nil, nil, store.ErrEmailExists
		}
		s.logger.Error("failed to save user", "error", err, "email", email)
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, pair, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password both return ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to load user for login", "error", err)
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return user, pair, nil
}

// Refresh exchanges a valid, registered refresh token for a new token
// pair, rotating the old refresh token out of the store.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	registered, err := s.tokens.Exists(ctx, claims.UserID, refreshToken)
	if err != nil {
		s.logger.Error("failed to check refresh token", "error", err, "user_id", claims.UserID)
		return nil, fmt.Errorf("failed to check refresh token: %w", err)
	}
	if !registered {
		return nil, auth.ErrRevokedToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.tokens.Delete(ctx, claims.UserID, refreshToken); err != nil {
		s.logger.Warn("failed to rotate out old refresh token", "error", err, "user_id", claims.UserID)
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token. Logging out with an
// already-revoked or expired token succeeds silently.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil
	}
	if err := s.tokens.Delete(ctx, claims.UserID, refreshToken); err != nil {
		s.logger.Warn("failed to revoke refresh token", "error", err, "user_id", claims.UserID)
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}


func (s *UserService) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to generate access token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to generate refresh token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.tokens.Save(ctx, user.ID, refresh, s.refreshLifetime); err != nil {
		s.logger.Error("failed to register refresh token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to register refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
