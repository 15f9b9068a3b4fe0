package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func newAuthService(users *memory.UserStore) *AuthService {
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 10, BcryptCost: 4}}
	return NewAuthService(cfg, AuthDependencies{UserRepo: users})
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	svc := newAuthService(users)

	user, token, _, err := svc.Register(ctx, RegisterInput{
		Name: "Asha", Email: "Asha@Campus.edu", Password: "pw123456", Department: "cse",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, user.Role)
	assert.Equal(t, "asha@campus.edu", user.Email)
	assert.Equal(t, 100, user.AccountabilityScore)
	assert.NotEqual(t, "pw123456", user.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())

	_, _, _, err = svc.Register(ctx, RegisterInput{Name: "Dup", Email: "asha@campus.edu", Password: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	logged, _, _, err := svc.Login(ctx, "asha@campus.edu", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, _, err = svc.Login(ctx, "asha@campus.edu", "nope")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
	_, _, _, err = svc.Login(ctx, "nobody@campus.edu", "pw123456")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(memory.NewUserStore())

	_, _, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, _, _, err = svc.Register(ctx, RegisterInput{Name: "a", Email: "not-an-email", Password: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, _, _, err = svc.Register(ctx, RegisterInput{Name: "a", Email: "a@b.c", Password: "x", Role: "janitor"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, _, _, err = svc.Register(ctx, RegisterInput{Name: "a", Email: "a@b.c", Password: "x", Role: "admin"})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	warden, _, _, err := svc.Register(ctx, RegisterInput{Name: "w", Email: "w@b.c", Password: "x", Role: "Warden"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWarden, warden.Role)
}

func TestAuthService_SeedAdminOnce(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	svc := newAuthService(users)

	_, _, err := svc.SeedAdmin(ctx, "admin@campus.local", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	admin, created, err := svc.SeedAdmin(ctx, "admin@campus.local", "s3cret")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	again, created, err := svc.SeedAdmin(ctx, "other@campus.local", "s3cret")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	_, _, _, err = svc.Login(ctx, "admin@campus.local", "s3cret")
	assert.NoError(t, err)
}
