package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/repository"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// AuthService coordinates signup and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
	signupTTL  time.Duration
	loginTTL   time.Duration
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, dispatcher events.Dispatcher) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret),
		dispatcher: dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		signupTTL:  cfg.Auth.SignupTokenTTL(),
		loginTTL:   cfg.Auth.LoginTokenTTL(),
	}
}

// Signup creates a new account and issues a long-lived token. The password is
// stored as a bcrypt hash; it never appears in the returned user.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}

	token, exp, err := s.tokenMgr.Issue(user.Public(), s.signupTTL)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRegistered,
			Timestamp: time.Now(),
			Payload:   events.UserRegisteredPayload{UserID: user.ID, Email: user.Email},
		})
	}

	return user, token, exp, nil
}

// Login authenticates by email and password and issues a short-lived token.
// Unknown email and wrong password are indistinguishable to the caller; both
// report the user as not found, matching the API contract.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewNotFound("user", nil)
		}
		return nil, "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewNotFound("user", nil)
	}

	token, exp, err := s.tokenMgr.Issue(user.Public(), s.loginTTL)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
