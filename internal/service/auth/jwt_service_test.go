package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-api/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func newTestJWTService(t *testing.T) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"
	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)
	userID := uuid.New()

	token, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestTokenTypeIsEnforced(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)
	userID := uuid.New()

	access, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	issued := time.Now()
	svc.timeFunc = func() time.Time { return issued }

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// Past the lifetime plus the clock skew allowance.
	svc.timeFunc = func() time.Time { return issued.Add(20 * time.Minute) }

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestClockSkewIsTolerated(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	issued := time.Now()
	svc.timeFunc = func() time.Time { return issued }

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// One minute past expiry is inside the two-minute leeway.
	svc.timeFunc = func() time.Time { return issued.Add(16 * time.Minute) }

	_, err = svc.ValidateToken(ctx, token)
	assert.NoError(t, err)
}

func TestTamperedTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "ffffffffffffffffffffffffffffffff"
	other, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	_, err = other.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	_, err := svc.ValidateToken(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
