package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"plcvisualizer/models"
)

type memBackend struct {
	mu       sync.Mutex
	params   map[string]models.Parameter
	alerts   []models.Alert
	readings []models.Reading
	policy   *models.CollectionPolicy
}

func newMemBackend(params ...models.Parameter) *memBackend {
	b := &memBackend{params: make(map[string]models.Parameter)}
	for _, p := range params {
		b.params[p.ID] = p
	}
	return b
}

func (b *memBackend) FetchParameters(ctx context.Context) ([]models.Parameter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Parameter, 0, len(b.params))
	for _, p := range b.params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *memBackend) CreateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.params[p.ID] = *p
	out := *p
	return &out, nil
}

func (b *memBackend) UpdateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.params[p.ID]; !ok {
		return nil, fmt.Errorf("parameter %s: %w", p.ID, models.ErrNotFound)
	}
	b.params[p.ID] = *p
	out := *p
	return &out, nil
}

func (b *memBackend) DeleteParameter(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.params[id]; !ok {
		return fmt.Errorf("parameter %s: %w", id, models.ErrNotFound)
	}
	delete(b.params, id)
	return nil
}

func (b *memBackend) InsertAlert(ctx context.Context, alert *models.Alert) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, *alert)
	return nil
}

func (b *memBackend) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Alert{}
	for _, a := range b.alerts {
		if filter.UnacknowledgedOnly && a.Acknowledged {
			continue
		}
		if filter.ParameterID != "" && a.ParameterID != filter.ParameterID {
			continue
		}
		out = append(out, a)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (b *memBackend) AcknowledgeAlert(ctx context.Context, id, username string) (*models.Alert, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.alerts {
		if b.alerts[i].ID != id {
			continue
		}
		if !b.alerts[i].Acknowledged {
			now := time.Now()
			b.alerts[i].Acknowledged = true
			b.alerts[i].AcknowledgedBy = &username
			b.alerts[i].AcknowledgedAt = &now
		}
		out := b.alerts[i]
		return &out, nil
	}
	return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
}

func (b *memBackend) MarkAlertNotified(ctx context.Context, id string) error {
	return nil
}

func (b *memBackend) ClearAlerts(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := int64(len(b.alerts))
	b.alerts = nil
	return n, nil
}

func (b *memBackend) InsertReadings(ctx context.Context, readings []models.Reading) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readings = append(b.readings, readings...)
	return nil
}

func (b *memBackend) GetReadings(ctx context.Context, parameterID string, from, to time.Time, limit int) ([]models.Reading, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Reading{}
	for _, r := range b.readings {
		if r.ParameterID == parameterID && !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (b *memBackend) PruneReadings(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (b *memBackend) GetCollectionPolicy(ctx context.Context) (*models.CollectionPolicy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.policy == nil {
		p := models.DefaultCollectionPolicy()
		return &p, nil
	}
	p := *b.policy
	return &p, nil
}

func (b *memBackend) SaveCollectionPolicy(ctx context.Context, policy models.CollectionPolicy) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.policy = &policy
	return nil
}

func (b *memBackend) Ping(ctx context.Context) error { return nil }

func (b *memBackend) Close() error { return nil }

type memAuth struct {
	mu     sync.Mutex
	tokens map[string]models.UserProfile
	users  map[string]models.UserProfile
}

var (
	adminUser    = models.UserProfile{ID: "u-admin", Username: "admin", Role: models.RoleAdmin}
	operatorUser = models.UserProfile{ID: "u-op", Username: "operator", Role: models.RoleOperator}
)

func newMemAuth() *memAuth {
	return &memAuth{
		tokens: map[string]models.UserProfile{
			"admin-token": adminUser,
			"op-token":    operatorUser,
		},
		users: map[string]models.UserProfile{
			adminUser.ID:    adminUser,
			operatorUser.ID: operatorUser,
		},
	}
}

func (a *memAuth) SignIn(ctx context.Context, username, password string) (*models.Session, error) {
	if username != "admin" || password != "correct-horse" {
		return nil, fmt.Errorf("%w: invalid username or password", models.ErrUnauthorized)
	}
	return &models.Session{Token: "admin-token", ExpiresAt: time.Now().Add(time.Hour), User: adminUser}, nil
}

func (a *memAuth) Profile(ctx context.Context, token string) (*models.UserProfile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: session expired or unknown", models.ErrUnauthorized)
	}
	return &u, nil
}

func (a *memAuth) SignOut(ctx context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, token)
	return nil
}

func (a *memAuth) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.UserProfile, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (a *memAuth) CreateUser(ctx context.Context, username, password string, role models.Role) (*models.UserProfile, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password too short", models.ErrValidation)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	u := models.UserProfile{ID: "u-" + username, Username: username, Role: role}
	a.users[u.ID] = u
	return &u, nil
}

func (a *memAuth) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	u.Role = role
	a.users[id] = u
	return nil
}

func (a *memAuth) DeleteUser(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	delete(a.users, id)
	return nil
}
