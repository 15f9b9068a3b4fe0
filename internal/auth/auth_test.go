package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("user-1", domain.RoleHOD)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, domain.RoleHOD, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken("user-1", domain.RoleStudent)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "wrong"))

	_, err = HashPassword("", 4)
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.ErrorIs(t, ComparePassword("", "hunter22"), ErrEmptyPassword)
	assert.ErrorIs(t, ComparePassword(hash, ""), ErrEmptyPassword)
}

func TestHashCostClamped(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, HashCost(0))
	assert.Equal(t, bcrypt.MinCost, HashCost(-3))
	assert.Equal(t, bcrypt.MinCost, HashCost(2))
	assert.Equal(t, 12, HashCost(12))
	assert.Equal(t, bcrypt.MaxCost, HashCost(99))

	hash, err := HashPassword("hunter22", 2)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestMiddlewareAndRoleGuards(t *testing.T) {
	users := memory.NewUserStore()
	hod := &domain.User{Name: "hod", Email: "hod@campus.test", Role: domain.RoleHOD, Department: "cse"}
	student := &domain.User{Name: "s", Email: "s@campus.test", Role: domain.RoleStudent}
	require.NoError(t, users.Create(context.Background(), hod))
	require.NoError(t, users.Create(context.Background(), student))

	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, users)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Get("/authority", mw.Handle, RequireAuthority(), func(c *fiber.Ctx) error {
		user, _ := UserFromContext(c)
		return c.SendString(user.Department)
	})
	app.Get("/any", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	hodToken, _, err := tm.GenerateToken(hod.ID, hod.Role)
	require.NoError(t, err)
	studentToken, _, err := tm.GenerateToken(student.ID, student.Role)
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken("ghost", domain.RoleAdmin)
	require.NoError(t, err)

	cases := []struct {
		path   string
		header string
		want   int
	}{
		{"/authority", "Bearer " + hodToken, http.StatusOK},
		{"/authority", "Bearer " + studentToken, http.StatusForbidden},
		{"/any", "Bearer " + studentToken, http.StatusNoContent},
		{"/any", "", http.StatusUnauthorized},
		{"/any", "Token " + studentToken, http.StatusUnauthorized},
		{"/any", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"/any", "Bearer garbage", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, "%s %q", tc.path, tc.header)
	}
}
