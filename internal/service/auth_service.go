package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	Department string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Register creates an account and returns a session token. Admins cannot self-register.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := domain.Role(strings.ToLower(strings.TrimSpace(input.Role)))
	if role == "" {
		role = domain.RoleStudent
	}

	if name == "" || email == "" || input.Password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	if !role.Valid() {
		return nil, "", time.Time{}, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	if role == domain.RoleAdmin {
		return nil, "", time.Time{}, apperrors.NewForbidden("admin accounts cannot be self-registered")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("user already exists", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Role:                role,
		Department:          strings.TrimSpace(input.Department),
		AccountabilityScore: domain.DefaultAccountabilityScore,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, token, exp, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// SeedAdmin creates the bootstrap admin when no admin exists yet. It reports whether a user
// was created.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (*domain.User, bool, error) {
	admins, err := s.users.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAdmin}, Limit: 1})
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}
	if len(admins) > 0 {
		return &admins[0], false, nil
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, false, apperrors.NewValidationError("seed admin email and password are required", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	admin := &domain.User{
		Name:                "Administrator",
		Email:               strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:        hash,
		Role:                domain.RoleAdmin,
		Department:          "Administration",
		AccountabilityScore: domain.DefaultAccountabilityScore,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, false, apperrors.MapError(err)
	}
	s.logger.Info("seeded admin user", zap.String("email", admin.Email))
	return admin, true, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
