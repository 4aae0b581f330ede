package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"plcvisualizer/models"
)

var errDown = fmt.Errorf("dial tcp: connection refused: %w", models.ErrUnavailable)

type fakeStore struct {
	mu          sync.Mutex
	params      []models.Parameter
	unavailable bool
	fetches     int

	alerts   []models.Alert
	notified map[string]bool

	readings  []models.Reading
	insertErr error
	pruned    time.Time

	created []models.Parameter
	updated []models.Parameter
	deleted []string

	onCreate  func()
	updateErr error
}

func newFakeStore(params ...models.Parameter) *fakeStore {
	return &fakeStore{params: params, notified: make(map[string]bool)}
}

func (s *fakeStore) setUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

func (s *fakeStore) FetchParameters(ctx context.Context) ([]models.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.unavailable {
		return nil, errDown
	}
	return append([]models.Parameter(nil), s.params...), nil
}

func (s *fakeStore) CreateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	if s.onCreate != nil {
		s.onCreate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, errDown
	}
	for _, existing := range s.params {
		if existing.ID == p.ID {
			return nil, fmt.Errorf("%w: duplicate id", models.ErrValidation)
		}
	}
	s.params = append(s.params, *p)
	s.created = append(s.created, *p)
	out := *p
	return &out, nil
}

func (s *fakeStore) UpdateParameter(ctx context.Context, p *models.Parameter) (*models.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, errDown
	}
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	for i := range s.params {
		if s.params[i].ID == p.ID {
			s.params[i] = *p
			s.updated = append(s.updated, *p)
			out := *p
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeStore) DeleteParameter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return errDown
	}
	for i := range s.params {
		if s.params[i].ID == id {
			s.params = append(s.params[:i], s.params[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *fakeStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return errDown
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *fakeStore) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alert
	for _, a := range s.alerts {
		if filter.UnacknowledgedOnly && a.Acknowledged {
			continue
		}
		if filter.ParameterID != "" && a.ParameterID != filter.ParameterID {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) AcknowledgeAlert(ctx context.Context, id, username string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if !s.alerts[i].Acknowledged {
			now := time.Now()
			s.alerts[i].Acknowledged = true
			s.alerts[i].AcknowledgedBy = &username
			s.alerts[i].AcknowledgedAt = &now
		}
		out := s.alerts[i]
		return &out, nil
	}
	return nil, models.ErrNotFound
}

func (s *fakeStore) MarkAlertNotified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[id] = true
	return nil
}

func (s *fakeStore) ClearAlerts(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.alerts))
	s.alerts = nil
	return n, nil
}

func (s *fakeStore) InsertReadings(ctx context.Context, readings []models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.readings = append(s.readings, readings...)
	return nil
}

func (s *fakeStore) GetReadings(ctx context.Context, parameterID string, from, to time.Time, limit int) ([]models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reading
	for _, r := range s.readings {
		if r.ParameterID == parameterID && !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) PruneReadings(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned = before
	kept := s.readings[:0]
	var n int64
	for _, r := range s.readings {
		if r.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.readings = kept
	return n, nil
}

func (s *fakeStore) alertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

type fakeCache struct {
	mu       sync.Mutex
	snapshot []models.Parameter
	hasSnap  bool
	pending  []PendingWrite
	settings *models.PLCConnectionSettings
}

func (c *fakeCache) SaveSnapshot(ctx context.Context, params []models.Parameter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = append([]models.Parameter(nil), params...)
	c.hasSnap = true
	return nil
}

func (c *fakeCache) LoadSnapshot(ctx context.Context) ([]models.Parameter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSnap {
		return nil, models.ErrNotFound
	}
	return append([]models.Parameter(nil), c.snapshot...), nil
}

func (c *fakeCache) QueueWrite(ctx context.Context, op PendingWrite) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, op)
	return nil
}

func (c *fakeCache) PendingWrites(ctx context.Context) ([]PendingWrite, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PendingWrite(nil), c.pending...), nil
}

func (c *fakeCache) DropPendingWrites(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n >= len(c.pending) {
		c.pending = nil
		return nil
	}
	c.pending = c.pending[n:]
	return nil
}

func (c *fakeCache) GetConnectionSettings(ctx context.Context) (*models.PLCConnectionSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settings == nil {
		return nil, models.ErrNotFound
	}
	s := *c.settings
	return &s, nil
}

func (c *fakeCache) SaveConnectionSettings(ctx context.Context, s models.PLCConnectionSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = &s
	return nil
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	listeners bool
	lists     [][]models.Parameter
	updates   []models.Parameter
	alerts    []*models.Alert
	states    []models.ConnectionState
}

func (b *fakeBroadcaster) BroadcastParameters(params []models.Parameter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists = append(b.lists, params)
}

func (b *fakeBroadcaster) BroadcastParameterUpdate(p models.Parameter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, p)
}

func (b *fakeBroadcaster) BroadcastAlert(alert *models.Alert) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, alert)
	return b.listeners
}

func (b *fakeBroadcaster) BroadcastStatus(state models.ConnectionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, state)
}

func (b *fakeBroadcaster) lastStatus() models.ConnectionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		return ""
	}
	return b.states[len(b.states)-1].Status
}

func (b *fakeBroadcaster) sawStatus(status models.ConnectionStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.states {
		if s.Status == status {
			return true
		}
	}
	return false
}

func (b *fakeBroadcaster) updateCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.updates)
}

// chanFeed is a feed driven by the test
type chanFeed struct {
	ch     chan models.ValueUpdate
	once   sync.Once
	closed chan struct{}
}

func newChanFeed() *chanFeed {
	return &chanFeed{ch: make(chan models.ValueUpdate, 16), closed: make(chan struct{})}
}

func (f *chanFeed) Updates() <-chan models.ValueUpdate { return f.ch }

func (f *chanFeed) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func tempParameter(id string, value float64) models.Parameter {
	p := models.Parameter{
		ID:         id,
		Name:       "Temp " + id,
		Unit:       "°C",
		Value:      value,
		Thresholds: tempThresholds,
		Timestamp:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Category:   "thermal",
	}
	p.Status = EvaluateStatus(value, p.Thresholds)
	return p
}
