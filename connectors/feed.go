// Package connectors dials the live value feeds selected in the connection
// settings and decodes their JSON payloads into value updates.
package connectors

import (
	"sync"

	"go.uber.org/zap"

	"plcvisualizer/metrics"
	"plcvisualizer/models"
)

const feedBuffer = 100

// Feed is a services.Feed fed by a transport callback. Push may be called
// concurrently with Close; payloads pushed after the feed ended are dropped.
type Feed struct {
	source    string
	updates   chan models.ValueUpdate
	mu        sync.Mutex
	ended     bool
	closeOnce sync.Once
	closeFn   func() error
	logger    *zap.Logger
	metrics   metrics.Collector
}

// NewFeed creates a feed. closeFn releases the underlying transport.
func NewFeed(source string, closeFn func() error, logger *zap.Logger, collector metrics.Collector) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.Noop()
	}
	return &Feed{
		source:  source,
		updates: make(chan models.ValueUpdate, feedBuffer),
		closeFn: closeFn,
		logger:  logger.With(zap.String("feed", source)),
		metrics: collector,
	}
}

// Updates returns the update channel, closed when the feed ends
func (f *Feed) Updates() <-chan models.ValueUpdate {
	return f.updates
}

// Push decodes payload and queues its updates
func (f *Feed) Push(payload []byte) {
	updates, err := Decode(payload)
	if err != nil {
		f.metrics.IncDropped(f.source + "_malformed")
		f.logger.Debug("Dropping malformed payload", zap.Error(err), zap.Int("bytes", len(payload)))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended {
		return
	}
	for _, u := range updates {
		select {
		case f.updates <- u:
		default:
			f.metrics.IncDropped(f.source + "_overflow")
			f.logger.Warn("Feed buffer full, dropping update",
				zap.String("parameter_id", u.ParameterID),
				zap.String("name", u.Name),
			)
		}
	}
}

// End closes the update channel without releasing the transport. The
// monitor sees a closed channel as a lost connection.
func (f *Feed) End() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ended {
		f.ended = true
		close(f.updates)
	}
}

// Close releases the transport and ends the feed
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.closeFn != nil {
			err = f.closeFn()
		}
	})
	f.End()
	return err
}
