package hosted

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"plcvisualizer/models"
)

func notFound(op string) error {
	return fmt.Errorf("failed to %s: %w", op, models.ErrNotFound)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignIn exchanges a username and password for an access token.
// The username is the account email on the hosted side.
func (c *Client) SignIn(ctx context.Context, username, password string) (*models.Session, error) {
	var token tokenResponse
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{
			"email":    strings.TrimSpace(username),
			"password": password,
		}).
		SetResult(&token).
		Post("/auth/v1/token")
	if err := check("sign in", resp, err); err != nil {
		// the token endpoint answers bad credentials with 400
		if errors.Is(err, models.ErrValidation) {
			c.logger.Info("Rejected sign-in", zap.String("username", username))
			return nil, fmt.Errorf("%w: invalid username or password", models.ErrUnauthorized)
		}
		return nil, err
	}

	profile, err := c.profileByID(ctx, token.User.ID)
	if err != nil {
		return nil, err
	}

	return &models.Session{
		Token:     token.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(token.ExpiresIn) * time.Second),
		User:      *profile,
	}, nil
}

// Profile resolves an access token to its user profile
func (c *Client) Profile(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", models.ErrUnauthorized)
	}

	var user authUser
	resp, err := c.request(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/auth/v1/user")
	if err := check("resolve session", resp, err); err != nil {
		// some deployments answer a rejected token with 403
		if errors.Is(err, models.ErrForbidden) {
			return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
		}
		return nil, err
	}
	return c.profileByID(ctx, user.ID)
}

func (c *Client) profileByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var profiles []models.UserProfile
	resp, err := c.request(ctx).
		SetQueryParam("select", "id,username,role,created_at").
		SetQueryParam("id", eq(id)).
		SetResult(&profiles).
		Get("/rest/v1/profiles")
	if err := check("get profile", resp, err); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no profile for user %s", models.ErrUnauthorized, id)
	}
	return &profiles[0], nil
}

// SignOut revokes the access token
func (c *Client) SignOut(ctx context.Context, token string) error {
	resp, err := c.request(ctx).
		SetAuthToken(token).
		Post("/auth/v1/logout")
	return check("sign out", resp, err)
}

// ListUsers returns all profiles
func (c *Client) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	profiles := []models.UserProfile{}
	resp, err := c.request(ctx).
		SetQueryParam("select", "id,username,role,created_at").
		SetQueryParam("order", "username.asc").
		SetResult(&profiles).
		Get("/rest/v1/profiles")
	if err := check("list users", resp, err); err != nil {
		return nil, err
	}
	return profiles, nil
}

// CreateUser registers an auth account and its profile row
func (c *Client) CreateUser(ctx context.Context, username, password string, role models.Role) (*models.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if role == "" {
		role = models.RoleOperator
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	var user authUser
	resp, err := c.request(ctx).
		SetBody(map[string]interface{}{
			"email":         username,
			"password":      password,
			"email_confirm": true,
		}).
		SetResult(&user).
		Post("/auth/v1/admin/users")
	if err := check("create user "+username, resp, err); err != nil {
		return nil, err
	}

	var profiles []models.UserProfile
	resp, err = c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(models.UserProfile{ID: user.ID, Username: username, Role: role, CreatedAt: c.now()}).
		SetResult(&profiles).
		Post("/rest/v1/profiles")
	if err := check("create profile "+username, resp, err); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, notFound("create profile " + username)
	}

	c.logger.Info("User created", zap.String("username", username), zap.String("role", string(role)))
	return &profiles[0], nil
}

// UpdateUserRole changes a user's role
func (c *Client) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	var profiles []models.UserProfile
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", eq(id)).
		SetBody(map[string]models.Role{"role": role}).
		SetResult(&profiles).
		Patch("/rest/v1/profiles")
	if err := check("update user role "+id, resp, err); err != nil {
		return err
	}
	if len(profiles) == 0 {
		return notFound("update user role " + id)
	}
	return nil
}

// DeleteUser removes the auth account; the profile row cascades
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		Delete("/auth/v1/admin/users/{id}")
	return check("delete user "+id, resp, err)
}
