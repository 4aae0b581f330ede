package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"plcvisualizer/models"
)

// GetUserCredentials returns the profile and password hash for username
func (db *DB) GetUserCredentials(ctx context.Context, username string) (*models.UserProfile, string, error) {
	query := `SELECT id, username, role, created_at, password_hash FROM users WHERE username = $1`

	var u models.UserProfile
	var hash string
	err := db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt, &hash)
	if err != nil {
		return nil, "", wrap("get user "+username, err)
	}
	return &u, hash, nil
}

// CreateUser inserts a user with an already hashed password
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.UserProfile, error) {
	query := `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, role, created_at
	`

	var u models.UserProfile
	err := db.QueryRowContext(ctx, query, uuid.NewString(), username, passwordHash, role).
		Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, wrap("create user "+username, err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by username
func (db *DB) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, username, role, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, wrap("query users", err)
	}
	defer rows.Close()

	users := []models.UserProfile{}
	for rows.Next() {
		var u models.UserProfile
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
			return nil, wrap("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate users", err)
	}
	return users, nil
}

// UpdateUserRole changes a user's role
func (db *DB) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return wrap("update role of "+id, err)
	}
	return requireAffected(res, "update role of "+id)
}

// DeleteUser removes a user and, by cascade, their sessions
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrap("delete user "+id, err)
	}
	return requireAffected(res, "delete user "+id)
}

// CreateSession stores a login session
func (db *DB) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	query := `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := db.ExecContext(ctx, query, token, userID, expiresAt); err != nil {
		return wrap("create session", err)
	}
	return nil
}

// GetSession returns an unexpired session with its user
func (db *DB) GetSession(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT s.token, s.expires_at, u.id, u.username, u.role, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW()
	`

	var s models.Session
	err := db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.ExpiresAt,
		&s.User.ID, &s.User.Username, &s.User.Role, &s.User.CreatedAt)
	if err != nil {
		return nil, wrap("get session", err)
	}
	return &s, nil
}

// DeleteSession removes a session; deleting an unknown token is not an error
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return wrap("delete session", err)
	}
	return nil
}

// PruneSessions deletes expired sessions
func (db *DB) PruneSessions(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, wrap("prune sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("prune sessions", err)
	}
	return n, nil
}
