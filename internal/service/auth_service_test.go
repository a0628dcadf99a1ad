package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/config"
	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository/memory"
)

func newAuthService() *AuthService {
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4, // keep hashing cheap in tests
		},
	}
	return NewAuthService(cfg, memory.NewUserRepository())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleEndUser, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	logged, _, _, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "Imposter", "ada@example.com", "hunter23")
	require.Error(t, err)
	assert.Equal(t, 409, httpStatus(err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, 401, httpStatus(err))

	_, _, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	require.Error(t, err)
	assert.Equal(t, 401, httpStatus(err))
}
