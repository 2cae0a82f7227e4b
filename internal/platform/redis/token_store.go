package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskboard/taskboard-api/internal/service/auth"
)

// RedisTokenStore implements the auth.TokenStore interface. Each refresh
// token gets its own key carrying the token's remaining lifetime, so
// revocation state expires together with the token itself.
type RedisTokenStore struct {
	client redis.Cmdable
}

// NewRedisTokenStore creates a RedisTokenStore.
func NewRedisTokenStore(client redis.Cmdable) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

var _ auth.TokenStore = (*RedisTokenStore)(nil)

// Save registers a refresh token for the user with the given lifetime.
func (s *RedisTokenStore) Save(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, tokenKey(userID, token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// Exists reports whether the refresh token is registered for the user.
func (s *RedisTokenStore) Exists(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	n, err := s.client.Exists(ctx, tokenKey(userID, token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return n > 0, nil
}

// Delete revokes a single refresh token for the user.
func (s *RedisTokenStore) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.client.Del(ctx, tokenKey(userID, token)).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// tokenKey hashes the token so raw JWTs never land in redis.
func tokenKey(userID uuid.UUID, token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("refresh-tokens:%s:%s", userID, hex.EncodeToString(sum[:]))
}
