package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"plcvisualizer/models"
)

const (
	defaultVariation = 0.02
	// overshoot lets the walk leave the alarm band so alarm states stay reachable
	overshoot = 0.10
)

// Simulator nudges parameter values with a bounded random walk
type Simulator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	variation float64
	now       func() time.Time
}

// NewSimulator creates a simulator. A zero seed uses the current time.
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rng:       rand.New(rand.NewSource(seed)),
		variation: defaultVariation,
		now:       time.Now,
	}
}

// SetVariation changes the maximum step as a fraction of the alarm span
func (s *Simulator) SetVariation(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > 0 {
		s.variation = v
	}
}

// Next returns the next walked value for p
func (s *Simulator) Next(p models.Parameter) float64 {
	span := p.Thresholds.Alarm.Max - p.Thresholds.Alarm.Min
	if span <= 0 {
		span = 1
	}

	s.mu.Lock()
	delta := (s.rng.Float64()*2 - 1) * s.variation * span
	s.mu.Unlock()

	lo := p.Thresholds.Alarm.Min - overshoot*span
	hi := p.Thresholds.Alarm.Max + overshoot*span
	return round2(clamp(p.Value+delta, lo, hi))
}

// Step produces one update per parameter
func (s *Simulator) Step(params []models.Parameter) []models.ValueUpdate {
	now := s.now()
	updates := make([]models.ValueUpdate, 0, len(params))
	for _, p := range params {
		updates = append(updates, models.ValueUpdate{
			ParameterID: p.ID,
			Name:        p.Name,
			Value:       s.Next(p),
			Timestamp:   now,
		})
	}
	return updates
}

// simulatedFeed ticks the simulator over the monitor's current snapshot
type simulatedFeed struct {
	updates chan models.ValueUpdate
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSimulatedFeed(ctx context.Context, sim *Simulator, interval time.Duration, snapshot func() []models.Parameter) *simulatedFeed {
	ctx, cancel := context.WithCancel(ctx)
	f := &simulatedFeed{
		updates: make(chan models.ValueUpdate, 64),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		defer close(f.updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, u := range sim.Step(snapshot()) {
					select {
					case f.updates <- u:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return f
}

func (f *simulatedFeed) Updates() <-chan models.ValueUpdate { return f.updates }

func (f *simulatedFeed) Close() error {
	f.cancel()
	<-f.done
	return nil
}

// clamp constrains a value between min and max
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
