package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"plcvisualizer/models"
)

const minPasswordLength = 8

// Authenticator issues and resolves login sessions
type Authenticator interface {
	SignIn(ctx context.Context, username, password string) (*models.Session, error)
	Profile(ctx context.Context, token string) (*models.UserProfile, error)
	SignOut(ctx context.Context, token string) error
}

// UserAdmin is the admin-only user management surface
type UserAdmin interface {
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
	CreateUser(ctx context.Context, username, password string, role models.Role) (*models.UserProfile, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error
}

// AuthService authenticates against a UserStore with bcrypt hashes and
// opaque session tokens.
type AuthService struct {
	store  UserStore
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates a local authenticator
func NewAuthService(store UserStore, ttl time.Duration, logger *zap.Logger) *AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// SignIn verifies credentials and opens a session
func (a *AuthService) SignIn(ctx context.Context, username, password string) (*models.Session, error) {
	user, hash, err := a.store.GetUserCredentials(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", models.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		a.logger.Info("Rejected sign-in", zap.String("username", username))
		return nil, fmt.Errorf("%w: invalid username or password", models.ErrUnauthorized)
	}

	session := &models.Session{
		Token:     uuid.NewString(),
		ExpiresAt: a.now().Add(a.ttl),
		User:      *user,
	}
	if err := a.store.CreateSession(ctx, session.Token, user.ID, session.ExpiresAt); err != nil {
		return nil, err
	}

	a.logger.Info("User signed in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return session, nil
}

// Profile resolves a session token to its user
func (a *AuthService) Profile(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", models.ErrUnauthorized)
	}
	session, err := a.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: session expired or unknown", models.ErrUnauthorized)
		}
		return nil, err
	}
	return &session.User, nil
}

// SignOut ends a session
func (a *AuthService) SignOut(ctx context.Context, token string) error {
	return a.store.DeleteSession(ctx, token)
}

// ListUsers returns all users
func (a *AuthService) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	return a.store.ListUsers(ctx)
}

// CreateUser hashes the password and stores a new user
func (a *AuthService) CreateUser(ctx context.Context, username, password string, role models.Role) (*models.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", models.ErrValidation, minPasswordLength)
	}
	if role == "" {
		role = models.RoleOperator
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.store.CreateUser(ctx, username, string(hash), role)
	if err != nil {
		return nil, err
	}
	a.logger.Info("User created", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}

// UpdateUserRole changes a user's role
func (a *AuthService) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}
	return a.store.UpdateUserRole(ctx, id, role)
}

// DeleteUser removes a user
func (a *AuthService) DeleteUser(ctx context.Context, id string) error {
	return a.store.DeleteUser(ctx, id)
}

// EnsureAdmin creates an admin account unless username already exists
func (a *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, _, err := a.store.GetUserCredentials(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}
	if _, err := a.CreateUser(ctx, username, password, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
