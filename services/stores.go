package services

import (
	"context"
	"time"

	"plcvisualizer/models"
)

// ParameterStore is the data-access contract the monitor consumes.
// Implementations wrap connectivity failures with models.ErrUnavailable.
type ParameterStore interface {
	FetchParameters(ctx context.Context) ([]models.Parameter, error)
	CreateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error)
	UpdateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error)
	DeleteParameter(ctx context.Context, id string) error
}

// AlertStore persists alerts
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *models.Alert) error
	ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id, username string) (*models.Alert, error)
	MarkAlertNotified(ctx context.Context, id string) error
	ClearAlerts(ctx context.Context) (int64, error)
}

// HistoryStore persists readings
type HistoryStore interface {
	InsertReadings(ctx context.Context, readings []models.Reading) error
	GetReadings(ctx context.Context, parameterID string, from, to time.Time, limit int) ([]models.Reading, error)
	PruneReadings(ctx context.Context, before time.Time) (int64, error)
}

// PolicyStore persists the admin managed collection policy
type PolicyStore interface {
	GetCollectionPolicy(ctx context.Context) (*models.CollectionPolicy, error)
	SaveCollectionPolicy(ctx context.Context, policy models.CollectionPolicy) error
}

// UserStore backs the local authenticator and admin user management
type UserStore interface {
	GetUserCredentials(ctx context.Context, username string) (*models.UserProfile, string, error)
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.UserProfile, error)
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Backend bundles every store the server needs
type Backend interface {
	ParameterStore
	AlertStore
	HistoryStore
	PolicyStore
	Ping(ctx context.Context) error
	Close() error
}

// OfflineCache is the local copy used while the backend is unreachable
type OfflineCache interface {
	SaveSnapshot(ctx context.Context, params []models.Parameter) error
	LoadSnapshot(ctx context.Context) ([]models.Parameter, error)
	QueueWrite(ctx context.Context, op PendingWrite) error
	PendingWrites(ctx context.Context) ([]PendingWrite, error)
	DropPendingWrites(ctx context.Context, n int) error
	GetConnectionSettings(ctx context.Context) (*models.PLCConnectionSettings, error)
	SaveConnectionSettings(ctx context.Context, s models.PLCConnectionSettings) error
}

// WriteOp names a queued offline write
type WriteOp string

const (
	WriteCreate WriteOp = "create"
	WriteUpdate WriteOp = "update"
	WriteDelete WriteOp = "delete"
)

// PendingWrite is a parameter change made while offline
type PendingWrite struct {
	Op        WriteOp           `json:"op"`
	Parameter *models.Parameter `json:"parameter,omitempty"`
	ID        string            `json:"id,omitempty"`
	QueuedAt  time.Time         `json:"queued_at"`
}

// Broadcaster pushes state to connected dashboards
type Broadcaster interface {
	BroadcastParameters(params []models.Parameter)
	BroadcastParameterUpdate(param models.Parameter)
	BroadcastAlert(alert *models.Alert) bool
	BroadcastStatus(state models.ConnectionState)
}
