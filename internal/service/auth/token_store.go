package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenStore tracks which refresh tokens are currently valid for each
// user. A refresh token that validates cryptographically but is absent
// from the store has been rotated out or revoked.
type TokenStore interface {
	// Save registers a refresh token for the user with the given lifetime.
	Save(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error

	// Exists reports whether the refresh token is registered for the user.
	Exists(ctx context.Context, userID uuid.UUID, token string) (bool, error)

	// Delete revokes a single refresh token for the user. Deleting an
	// unknown token is not an error.
	Delete(ctx context.Context, userID uuid.UUID, token string) error
}
