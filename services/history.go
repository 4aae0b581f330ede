package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"plcvisualizer/models"
)

// maxBufferedBatches bounds the buffer while the history store is unreachable
const maxBufferedBatches = 10

// HistoryRecorder buffers readings allowed by the collection policy and
// writes them to the history store in batches.
type HistoryRecorder struct {
	store     HistoryStore
	logger    *zap.Logger
	batchSize int
	now       func() time.Time

	mu           sync.Mutex
	policy       *CompiledPolicy
	lastRecorded map[string]time.Time
	buffer       []models.Reading
	dropped      int
}

// NewHistoryRecorder creates a recorder with the default policy
func NewHistoryRecorder(store HistoryStore, batchSize int, logger *zap.Logger) *HistoryRecorder {
	if batchSize <= 0 {
		batchSize = 100
	}
	policy, _ := CompilePolicy(models.DefaultCollectionPolicy())
	return &HistoryRecorder{
		store:        store,
		logger:       logger,
		batchSize:    batchSize,
		now:          time.Now,
		policy:       policy,
		lastRecorded: make(map[string]time.Time),
	}
}

// SetPolicy compiles and installs a collection policy
func (h *HistoryRecorder) SetPolicy(policy models.CollectionPolicy) error {
	compiled, err := CompilePolicy(policy)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.policy = compiled
	h.mu.Unlock()
	return nil
}

// Policy returns the active policy
func (h *HistoryRecorder) Policy() models.CollectionPolicy {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.policy.CollectionPolicy
}

// Record buffers a reading of p if the policy allows it.
// It reports whether the buffer reached a full batch.
func (h *HistoryRecorder) Record(p models.Parameter, previous float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.policy.Enabled {
		return false
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = h.now()
	}
	if last, ok := h.lastRecorded[p.ID]; ok && ts.Sub(last) < h.policy.SampleInterval() {
		return false
	}

	matched, err := h.policy.Matches(p, previous)
	if err != nil {
		h.logger.Warn("Collection filter failed", zap.String("parameter_id", p.ID), zap.Error(err))
		return false
	}
	if !matched {
		return false
	}

	h.lastRecorded[p.ID] = ts
	h.buffer = append(h.buffer, models.Reading{
		ParameterID: p.ID,
		Value:       p.Value,
		Status:      p.Status,
		Timestamp:   ts,
	})

	if limit := h.batchSize * maxBufferedBatches; len(h.buffer) > limit {
		over := len(h.buffer) - limit
		h.buffer = h.buffer[over:]
		h.dropped += over
	}

	return len(h.buffer) >= h.batchSize
}

// Forget drops the sampling state of a deleted parameter
func (h *HistoryRecorder) Forget(parameterID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastRecorded, parameterID)
}

// Buffered returns how many readings wait for the next flush
func (h *HistoryRecorder) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buffer)
}

// Flush writes buffered readings in batches. Readings that fail to write
// go back to the front of the buffer.
func (h *HistoryRecorder) Flush(ctx context.Context) error {
	h.mu.Lock()
	pending := h.buffer
	h.buffer = nil
	dropped := h.dropped
	h.dropped = 0
	h.mu.Unlock()

	if dropped > 0 {
		h.logger.Warn("History buffer overflowed, oldest readings dropped", zap.Int("dropped", dropped))
	}

	for start := 0; start < len(pending); start += h.batchSize {
		end := start + h.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := h.store.InsertReadings(ctx, pending[start:end]); err != nil {
			h.mu.Lock()
			h.buffer = append(append([]models.Reading{}, pending[start:]...), h.buffer...)
			h.mu.Unlock()
			return err
		}
	}
	return nil
}

// Prune deletes readings older than the retention window
func (h *HistoryRecorder) Prune(ctx context.Context) (int64, error) {
	h.mu.Lock()
	retention := h.policy.Retention()
	h.mu.Unlock()

	if retention <= 0 {
		return 0, nil
	}
	return h.store.PruneReadings(ctx, h.now().Add(-retention))
}

// Run flushes and prunes periodically until ctx is done, then flushes once more
func (h *HistoryRecorder) Run(ctx context.Context, flushInterval, pruneInterval time.Duration) {
	flush := time.NewTicker(flushInterval)
	defer flush.Stop()
	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := h.Flush(shutdownCtx); err != nil {
				h.logger.Error("Final history flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-flush.C:
			if err := h.Flush(ctx); err != nil {
				h.logger.Warn("History flush failed", zap.Error(err), zap.Int("buffered", h.Buffered()))
			}
		case <-prune.C:
			n, err := h.Prune(ctx)
			if err != nil {
				h.logger.Warn("History prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				h.logger.Info("Pruned history readings", zap.Int64("deleted", n))
			}
		}
	}
}
