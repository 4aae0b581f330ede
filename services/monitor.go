package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plcvisualizer/metrics"
	"plcvisualizer/models"
)

// MonitorDeps are the collaborators of a Monitor
type MonitorDeps struct {
	Store       ParameterStore
	Cache       OfflineCache
	Alerts      *AlertService
	History     *HistoryRecorder
	Trends      *TrendTracker
	Broadcaster Broadcaster
	Metrics     metrics.Collector
	Simulator   *Simulator
	Logger      *zap.Logger
}

// MonitorOptions tune timing
type MonitorOptions struct {
	DebounceDelay time.Duration
	SyncInterval  time.Duration
}

// Monitor holds the live parameter list and the connection state. It
// evaluates threshold status on every mutation, drives the selected feed,
// debounces change notifications into refetches and falls back to the
// offline cache while the backend is unreachable.
type Monitor struct {
	store       ParameterStore
	cache       OfflineCache
	alerts      *AlertService
	history     *HistoryRecorder
	trends      *TrendTracker
	broadcaster Broadcaster
	metrics     metrics.Collector
	sim         *Simulator
	logger      *zap.Logger
	opts        MonitorOptions
	now         func() time.Time

	openersMu sync.RWMutex
	openers   map[models.Protocol]FeedOpener

	mu       sync.RWMutex
	params   map[string]*models.Parameter
	order    []string
	state    models.ConnectionState
	settings models.PLCConnectionSettings

	feedMu     sync.Mutex
	feedCancel context.CancelFunc
	feedDone   chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	debouncer *Debouncer
	syncMu    sync.Mutex
	wg        sync.WaitGroup
}

// NewMonitor creates a monitor; call Start to load parameters and connect
func NewMonitor(deps MonitorDeps, opts MonitorOptions) *Monitor {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop()
	}
	if deps.Simulator == nil {
		deps.Simulator = NewSimulator(0)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Trends == nil {
		deps.Trends = NewTrendTracker(0)
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = 300 * time.Millisecond
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 10 * time.Second
	}

	settings := models.DefaultConnectionSettings()
	return &Monitor{
		store:       deps.Store,
		cache:       deps.Cache,
		alerts:      deps.Alerts,
		history:     deps.History,
		trends:      deps.Trends,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		sim:         deps.Simulator,
		logger:      deps.Logger,
		opts:        opts,
		now:         time.Now,
		openers:     make(map[models.Protocol]FeedOpener),
		params:      make(map[string]*models.Parameter),
		settings:    settings,
		state: models.ConnectionState{
			Status:   models.ConnectionDisconnected,
			Protocol: settings.Protocol,
		},
	}
}

// RegisterFeed installs the opener used for a non-simulated protocol
func (m *Monitor) RegisterFeed(protocol models.Protocol, opener FeedOpener) {
	m.openersMu.Lock()
	defer m.openersMu.Unlock()
	m.openers[protocol] = opener
}

// Start loads parameters, falling back to the cached snapshot when the
// backend is unreachable, then connects the feed and starts the sync loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.runCtx, m.runCancel = context.WithCancel(ctx)
	m.debouncer = NewDebouncer(m.opts.DebounceDelay, m.debouncedRefresh)

	if saved, err := m.cache.GetConnectionSettings(ctx); err == nil && saved != nil {
		m.mu.Lock()
		m.settings = *saved
		m.state.Protocol = saved.Protocol
		m.mu.Unlock()
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		m.logger.Warn("Failed to read cached connection settings", zap.Error(err))
	}

	if err := m.Refresh(ctx); err != nil {
		if !errors.Is(err, models.ErrUnavailable) {
			return fmt.Errorf("load parameters: %w", err)
		}
		snapshot, cerr := m.cache.LoadSnapshot(ctx)
		if cerr != nil {
			return fmt.Errorf("load parameters: %w (offline snapshot: %v)", err, cerr)
		}
		m.replaceParams(snapshot, false)
		m.logger.Warn("Backend unreachable, serving cached snapshot", zap.Int("parameters", len(snapshot)))
	}

	m.startFeed(m.Settings())

	m.wg.Add(1)
	go m.syncLoop()

	return nil
}

// Stop disconnects the feed and stops background loops
func (m *Monitor) Stop() {
	if m.debouncer != nil {
		m.debouncer.Stop()
	}
	m.stopFeed()
	if m.runCancel != nil {
		m.runCancel()
	}
	m.wg.Wait()
}

// NotifyChanged schedules a debounced refetch
func (m *Monitor) NotifyChanged() {
	if m.debouncer != nil {
		m.debouncer.Trigger()
	}
}

func (m *Monitor) debouncedRefresh() {
	ctx, cancel := context.WithTimeout(m.runCtx, 10*time.Second)
	defer cancel()
	if err := m.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("Debounced refresh failed", zap.Error(err))
	}
}

// Refresh replays queued offline writes if any, then refetches parameters.
// The queue outlives the process, so it is drained whether or not this
// monitor saw the outage.
func (m *Monitor) Refresh(ctx context.Context) error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	if err := m.replayPending(ctx); err != nil {
		return err
	}

	params, err := m.store.FetchParameters(ctx)
	if err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			m.goOffline(err)
		}
		return err
	}

	m.replaceParams(params, true)
	m.setOffline(false, m.pendingCount(ctx))

	snapshot := m.Parameters()
	if err := m.cache.SaveSnapshot(ctx, snapshot); err != nil {
		m.logger.Warn("Failed to cache parameter snapshot", zap.Error(err))
	}
	if m.broadcaster != nil {
		m.broadcaster.BroadcastParameters(snapshot)
	}
	return nil
}

// Sync is one tick of the sync loop: while offline or with writes still
// queued it reconnects and replays, otherwise it refreshes the cached snapshot.
func (m *Monitor) Sync(ctx context.Context) error {
	if m.State().Offline {
		return m.Refresh(ctx)
	}
	if pending, err := m.cache.PendingWrites(ctx); err == nil && len(pending) > 0 {
		return m.Refresh(ctx)
	}
	return m.cache.SaveSnapshot(ctx, m.Parameters())
}

func (m *Monitor) syncLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.runCtx.Done():
			return
		case <-ticker.C:
			if err := m.Sync(m.runCtx); err != nil && !errors.Is(err, models.ErrUnavailable) && m.runCtx.Err() == nil {
				m.logger.Warn("Sync failed", zap.Error(err))
			}
		}
	}
}

// replayPending sends queued writes to the store in order. Writes the store
// rejects are dropped; an unreachable store stops the replay and keeps the rest.
// Only the handled prefix is removed so writes queued meanwhile survive.
func (m *Monitor) replayPending(ctx context.Context) error {
	pending, err := m.cache.PendingWrites(ctx)
	if err != nil {
		return fmt.Errorf("read pending writes: %w", err)
	}

	for i, op := range pending {
		err := m.applyPendingWrite(ctx, op)
		if err == nil {
			continue
		}
		if errors.Is(err, models.ErrUnavailable) {
			if derr := m.cache.DropPendingWrites(ctx, i); derr != nil {
				m.logger.Error("Failed to drop replayed writes", zap.Error(derr))
			}
			m.goOffline(err)
			return err
		}
		m.logger.Warn("Dropping rejected offline write",
			zap.String("op", string(op.Op)),
			zap.String("id", op.targetID()),
			zap.Error(err),
		)
	}

	if len(pending) > 0 {
		if err := m.cache.DropPendingWrites(ctx, len(pending)); err != nil {
			return fmt.Errorf("drop replayed writes: %w", err)
		}
		m.logger.Info("Replayed offline writes", zap.Int("count", len(pending)))
	}
	return nil
}

func (op PendingWrite) targetID() string {
	if op.Parameter != nil {
		return op.Parameter.ID
	}
	return op.ID
}

func (m *Monitor) applyPendingWrite(ctx context.Context, op PendingWrite) error {
	switch op.Op {
	case WriteCreate:
		if op.Parameter == nil {
			return fmt.Errorf("%w: create without parameter", models.ErrValidation)
		}
		_, err := m.store.CreateParameter(ctx, op.Parameter)
		return err
	case WriteUpdate:
		if op.Parameter == nil {
			return fmt.Errorf("%w: update without parameter", models.ErrValidation)
		}
		_, err := m.store.UpdateParameter(ctx, op.Parameter)
		return err
	case WriteDelete:
		return m.store.DeleteParameter(ctx, op.ID)
	}
	return fmt.Errorf("%w: unknown write op %q", models.ErrValidation, op.Op)
}

func (m *Monitor) queue(ctx context.Context, op PendingWrite) error {
	op.QueuedAt = m.now()
	if err := m.cache.QueueWrite(ctx, op); err != nil {
		return fmt.Errorf("queue offline write: %w", err)
	}
	return nil
}

func (m *Monitor) goOffline(cause error) {
	if !m.State().Offline {
		m.logger.Warn("Backend unreachable, switching to offline mode", zap.Error(cause))
	}
	m.setOffline(true, m.pendingCount(context.Background()))
}

func (m *Monitor) pendingCount(ctx context.Context) int {
	writes, err := m.cache.PendingWrites(ctx)
	if err != nil {
		return 0
	}
	return len(writes)
}

func (m *Monitor) setOffline(offline bool, pending int) {
	m.mu.Lock()
	changed := m.state.Offline != offline || m.state.PendingWrites != pending
	m.state.Offline = offline
	m.state.PendingWrites = pending
	state := m.state
	m.mu.Unlock()

	m.metrics.SetOffline(offline)
	m.metrics.SetPendingWrites(pending)
	if changed && m.broadcaster != nil {
		m.broadcaster.BroadcastStatus(state)
	}
}

func (m *Monitor) setStatus(status models.ConnectionStatus, lastErr string) {
	m.mu.Lock()
	m.state.Status = status
	m.state.LastError = lastErr
	state := m.state
	m.mu.Unlock()

	m.metrics.SetConnectionStatus(status)
	if m.broadcaster != nil {
		m.broadcaster.BroadcastStatus(state)
	}
}

// replaceParams installs a fresh list. With keepLive, parameters whose
// local timestamp is newer than the fetched one keep their live value.
func (m *Monitor) replaceParams(params []models.Parameter, keepLive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]*models.Parameter, len(params))
	order := make([]string, 0, len(params))
	for i := range params {
		p := params[i]
		if old, ok := m.params[p.ID]; ok && keepLive && old.Timestamp.After(p.Timestamp) {
			p.Value = old.Value
			p.Timestamp = old.Timestamp
		}
		Reevaluate(&p)
		next[p.ID] = &p
		order = append(order, p.ID)
	}
	m.params = next
	m.order = order
}

func (m *Monitor) upsertLocal(p models.Parameter) (prev models.Status, existed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.params[p.ID]; ok {
		prev, existed = old.Status, true
	} else {
		m.order = append(m.order, p.ID)
	}
	m.params[p.ID] = &p
	return prev, existed
}

func (m *Monitor) removeLocal(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.params[id]; !ok {
		return false
	}
	delete(m.params, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Parameters returns a copy of the current list in stable order
func (m *Monitor) Parameters() []models.Parameter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Parameter, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.params[id])
	}
	return out
}

// Parameter returns one parameter by id
func (m *Monitor) Parameter(id string) (models.Parameter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.params[id]
	if !ok {
		return models.Parameter{}, false
	}
	return *p, true
}

// Snapshot is the dashboard view of the monitor
type Snapshot struct {
	Parameters []models.Parameter     `json:"parameters"`
	Connection models.ConnectionState `json:"connection"`
}

// Snapshot returns parameters in stable order with the connection state
func (m *Monitor) Snapshot() Snapshot {
	return Snapshot{Parameters: m.Parameters(), Connection: m.State()}
}

// StatsReport is pushed to dashboards periodically
type StatsReport struct {
	Connection models.ConnectionState `json:"connection"`
	ByStatus   map[models.Status]int  `json:"by_status"`
	Trends     []TrendStats           `json:"trends"`
}

// Stats counts parameters per status and collects trend statistics
func (m *Monitor) Stats() StatsReport {
	report := StatsReport{
		Connection: m.State(),
		ByStatus: map[models.Status]int{
			models.StatusNormal:  0,
			models.StatusWarning: 0,
			models.StatusAlarm:   0,
		},
		Trends: m.trends.All(),
	}
	for _, p := range m.Parameters() {
		report.ByStatus[p.Status]++
	}
	return report
}

// Trend returns the sliding-window statistics of one parameter
func (m *Monitor) Trend(id string) (TrendStats, bool) {
	return m.trends.Stats(id)
}

// State returns the connection state
func (m *Monitor) State() models.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Settings returns the active connection settings
func (m *Monitor) Settings() models.PLCConnectionSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// ValidateSettings checks connection settings before they are applied
func ValidateSettings(s models.PLCConnectionSettings) error {
	switch s.Protocol {
	case models.ProtocolSimulated:
	case models.ProtocolWebSocket, models.ProtocolMQTT:
		if s.IP == "" {
			return fmt.Errorf("%w: ip is required for %s", models.ErrValidation, s.Protocol)
		}
		if s.Port <= 0 || s.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", models.ErrValidation, s.Port)
		}
	case models.ProtocolKafka:
	default:
		return fmt.Errorf("%w: unknown protocol %q", models.ErrValidation, s.Protocol)
	}
	if s.ReconnectDelayMs < 0 || s.UpdateIntervalMs < 0 {
		return fmt.Errorf("%w: intervals must not be negative", models.ErrValidation)
	}
	return nil
}

// ApplySettings stores new connection settings and restarts the feed
func (m *Monitor) ApplySettings(ctx context.Context, s models.PLCConnectionSettings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}
	if err := m.cache.SaveConnectionSettings(ctx, s); err != nil {
		return fmt.Errorf("save connection settings: %w", err)
	}

	m.mu.Lock()
	m.settings = s
	m.state.Protocol = s.Protocol
	m.mu.Unlock()

	m.logger.Info("Connection settings applied",
		zap.String("protocol", string(s.Protocol)),
		zap.String("ip", s.IP),
		zap.Int("port", s.Port),
	)
	m.startFeed(s)
	return nil
}

// Reconnect restarts the feed with the current settings
func (m *Monitor) Reconnect() {
	m.startFeed(m.Settings())
}

// startFeed replaces the running feed. feedMu is held across stop and start
// so concurrent restarts leave exactly one feed.
func (m *Monitor) startFeed(settings models.PLCConnectionSettings) {
	m.feedMu.Lock()
	defer m.feedMu.Unlock()

	m.stopFeedLocked()

	ctx, cancel := context.WithCancel(m.runCtx)
	done := make(chan struct{})
	m.feedCancel = cancel
	m.feedDone = done

	go func() {
		defer close(done)
		m.runFeed(ctx, settings)
	}()
}

func (m *Monitor) stopFeed() {
	m.feedMu.Lock()
	defer m.feedMu.Unlock()
	m.stopFeedLocked()
}

// stopFeedLocked cancels the running feed and waits for it; feedMu must be held
func (m *Monitor) stopFeedLocked() {
	cancel, done := m.feedCancel, m.feedDone
	m.feedCancel, m.feedDone = nil, nil

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.setStatus(models.ConnectionDisconnected, "")
}

// runFeed is the connect/consume/reconnect loop for one settings value
func (m *Monitor) runFeed(ctx context.Context, settings models.PLCConnectionSettings) {
	for {
		m.setStatus(models.ConnectionConnecting, "")

		feed, err := m.openFeed(ctx, settings)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("Feed connection failed",
				zap.String("protocol", string(settings.Protocol)),
				zap.Error(err),
			)
			m.setStatus(models.ConnectionError, err.Error())
		} else {
			m.setStatus(models.ConnectionConnected, "")
			m.logger.Info("Feed connected", zap.String("protocol", string(settings.Protocol)))
			m.consume(ctx, feed, settings.Protocol)
			if cerr := feed.Close(); cerr != nil {
				m.logger.Debug("Feed close failed", zap.Error(cerr))
			}
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("Feed ended", zap.String("protocol", string(settings.Protocol)))
			m.setStatus(models.ConnectionDisconnected, "feed closed")
		}

		if !settings.AutoReconnect {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(settings.ReconnectDelay()):
		}
	}
}

func (m *Monitor) openFeed(ctx context.Context, settings models.PLCConnectionSettings) (Feed, error) {
	if settings.Protocol == models.ProtocolSimulated || settings.Protocol == "" {
		return newSimulatedFeed(ctx, m.sim, settings.UpdateInterval(), m.Parameters), nil
	}

	m.openersMu.RLock()
	opener, ok := m.openers[settings.Protocol]
	m.openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no feed registered for protocol %q", settings.Protocol)
	}
	return opener(ctx, settings)
}

func (m *Monitor) consume(ctx context.Context, feed Feed, protocol models.Protocol) {
	updates := feed.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			m.ApplyUpdate(ctx, u, protocol)
		}
	}
}

// ApplyUpdate applies one inbound value: status is recomputed, transitions
// raise alerts, history is recorded per policy and the change is broadcast.
// Updates for unknown parameters are ignored.
func (m *Monitor) ApplyUpdate(ctx context.Context, u models.ValueUpdate, protocol models.Protocol) bool {
	ts := u.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}

	m.mu.Lock()
	p := m.lookupLocked(u)
	if p == nil {
		m.mu.Unlock()
		m.logger.Debug("Ignoring update for unknown parameter",
			zap.String("parameter_id", u.ParameterID),
			zap.String("name", u.Name),
		)
		return false
	}
	previousValue := p.Value
	p.Value = u.Value
	p.Timestamp = ts
	previousStatus := Reevaluate(p)
	updated := *p
	m.state.LastUpdate = ts
	m.mu.Unlock()

	m.metrics.IncReadings(protocol)
	m.trends.Add(models.Reading{
		ParameterID: updated.ID,
		Value:       updated.Value,
		Status:      updated.Status,
		Timestamp:   ts,
	})

	if m.history != nil && m.history.Record(updated, previousValue) {
		go func() {
			if err := m.history.Flush(ctx); err != nil {
				m.logger.Warn("History flush failed", zap.Error(err))
			}
		}()
	}
	if m.alerts != nil {
		m.alerts.OnTransition(ctx, updated, previousStatus)
	}
	if m.broadcaster != nil {
		m.broadcaster.BroadcastParameterUpdate(updated)
	}
	return true
}

func (m *Monitor) lookupLocked(u models.ValueUpdate) *models.Parameter {
	if u.ParameterID != "" {
		return m.params[u.ParameterID]
	}
	if u.Name == "" {
		return nil
	}
	for _, id := range m.order {
		if p := m.params[id]; p.Name == u.Name {
			return p
		}
	}
	return nil
}

// CreateParameter validates p, writes it through the store and adds it
// locally. While the store is unreachable the write is queued.
func (m *Monitor) CreateParameter(ctx context.Context, p models.Parameter) (*models.Parameter, error) {
	if err := ValidateParameter(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = m.now()
	}
	Reevaluate(&p)

	created, err := m.store.CreateParameter(ctx, &p)
	if err != nil {
		if !errors.Is(err, models.ErrUnavailable) {
			return nil, err
		}
		if qerr := m.queue(ctx, PendingWrite{Op: WriteCreate, Parameter: &p}); qerr != nil {
			return nil, qerr
		}
		m.goOffline(err)
		created = &p
	} else {
		m.NotifyChanged()
	}

	_, _ = m.upsertLocal(*created)
	m.afterLocalChange(ctx, *created, models.StatusNormal)
	return created, nil
}

// UpdateParameter replaces an existing parameter
func (m *Monitor) UpdateParameter(ctx context.Context, p models.Parameter) (*models.Parameter, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is required", models.ErrValidation)
	}
	if err := ValidateParameter(&p); err != nil {
		return nil, err
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = m.now()
	}
	Reevaluate(&p)

	updated, err := m.store.UpdateParameter(ctx, &p)
	if err != nil {
		if !errors.Is(err, models.ErrUnavailable) {
			return nil, err
		}
		if _, ok := m.Parameter(p.ID); !ok {
			return nil, fmt.Errorf("parameter %s: %w", p.ID, models.ErrNotFound)
		}
		if qerr := m.queue(ctx, PendingWrite{Op: WriteUpdate, Parameter: &p}); qerr != nil {
			return nil, qerr
		}
		m.goOffline(err)
		updated = &p
	} else {
		m.NotifyChanged()
	}

	prev, existed := m.upsertLocal(*updated)
	if !existed {
		prev = models.StatusNormal
	}
	m.afterLocalChange(ctx, *updated, prev)
	return updated, nil
}

// DeleteParameter removes a parameter
func (m *Monitor) DeleteParameter(ctx context.Context, id string) error {
	if err := m.store.DeleteParameter(ctx, id); err != nil {
		if !errors.Is(err, models.ErrUnavailable) {
			return err
		}
		if _, ok := m.Parameter(id); !ok {
			return fmt.Errorf("parameter %s: %w", id, models.ErrNotFound)
		}
		if qerr := m.queue(ctx, PendingWrite{Op: WriteDelete, ID: id}); qerr != nil {
			return qerr
		}
		m.goOffline(err)
	} else {
		m.NotifyChanged()
	}

	m.removeLocal(id)
	m.trends.Forget(id)
	if m.history != nil {
		m.history.Forget(id)
	}

	snapshot := m.Parameters()
	if err := m.cache.SaveSnapshot(ctx, snapshot); err != nil {
		m.logger.Warn("Failed to cache parameter snapshot", zap.Error(err))
	}
	if m.broadcaster != nil {
		m.broadcaster.BroadcastParameters(snapshot)
	}
	return nil
}

func (m *Monitor) afterLocalChange(ctx context.Context, p models.Parameter, prev models.Status) {
	if m.alerts != nil {
		m.alerts.OnTransition(ctx, p, prev)
	}
	snapshot := m.Parameters()
	if err := m.cache.SaveSnapshot(ctx, snapshot); err != nil {
		m.logger.Warn("Failed to cache parameter snapshot", zap.Error(err))
	}
	if m.broadcaster != nil {
		m.broadcaster.BroadcastParameters(snapshot)
	}
}
