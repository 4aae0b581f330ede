package services

import (
	"math"
	"sort"
	"sync"
	"time"

	"plcvisualizer/models"
)

const (
	defaultWindowSize = 100
	// readings the change rate is measured over
	rateWindow = 5
)

// SlidingWindow keeps the most recent readings of one parameter
type SlidingWindow struct {
	readings []models.Reading
	maxSize  int
	position int
	full     bool
}

// NewSlidingWindow creates a new sliding window
func NewSlidingWindow(maxSize int) *SlidingWindow {
	if maxSize <= 0 {
		maxSize = defaultWindowSize
	}
	return &SlidingWindow{
		readings: make([]models.Reading, maxSize),
		maxSize:  maxSize,
	}
}

// Add adds a reading to the window, overwriting the oldest when full
func (sw *SlidingWindow) Add(r models.Reading) {
	sw.readings[sw.position] = r
	sw.position = (sw.position + 1) % sw.maxSize
	if !sw.full && sw.position == 0 {
		sw.full = true
	}
}

// Readings returns the window oldest first
func (sw *SlidingWindow) Readings() []models.Reading {
	if !sw.full {
		return append([]models.Reading(nil), sw.readings[:sw.position]...)
	}

	result := make([]models.Reading, sw.maxSize)
	for i := 0; i < sw.maxSize; i++ {
		result[i] = sw.readings[(sw.position+i)%sw.maxSize]
	}
	return result
}

// Recent returns the n most recent readings
func (sw *SlidingWindow) Recent(n int) []models.Reading {
	readings := sw.Readings()
	if n >= len(readings) {
		return readings
	}
	return readings[len(readings)-n:]
}

// TrendStats summarises the recent readings of a parameter
type TrendStats struct {
	ParameterID   string    `json:"parameter_id"`
	Count         int       `json:"count"`
	Min           float64   `json:"min"`
	Max           float64   `json:"max"`
	Avg           float64   `json:"avg"`
	StdDev        float64   `json:"std_dev"`
	RatePerSecond float64   `json:"rate_per_second"`
	NonNormalRate float64   `json:"non_normal_rate"`
	LastReading   time.Time `json:"last_reading"`
}

// TrendTracker keeps a sliding window per parameter for dashboard statistics
type TrendTracker struct {
	mu      sync.RWMutex
	size    int
	windows map[string]*SlidingWindow
}

// NewTrendTracker creates a tracker holding size readings per parameter
func NewTrendTracker(size int) *TrendTracker {
	if size <= 0 {
		size = defaultWindowSize
	}
	return &TrendTracker{size: size, windows: make(map[string]*SlidingWindow)}
}

// Add records a reading
func (t *TrendTracker) Add(r models.Reading) {
	t.mu.Lock()
	defer t.mu.Unlock()

	window, ok := t.windows[r.ParameterID]
	if !ok {
		window = NewSlidingWindow(t.size)
		t.windows[r.ParameterID] = window
	}
	window.Add(r)
}

// Forget drops the window of a deleted parameter
func (t *TrendTracker) Forget(parameterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, parameterID)
}

// Stats returns statistics for one parameter
func (t *TrendTracker) Stats(parameterID string) (TrendStats, bool) {
	t.mu.RLock()
	window, ok := t.windows[parameterID]
	var readings, recent []models.Reading
	if ok {
		readings = window.Readings()
		recent = window.Recent(rateWindow)
	}
	t.mu.RUnlock()

	if len(readings) == 0 {
		return TrendStats{}, false
	}
	stats := summarize(parameterID, readings)
	stats.RatePerSecond = round2(changeRate(recent))
	return stats, true
}

// All returns statistics for every tracked parameter ordered by id
func (t *TrendTracker) All() []TrendStats {
	t.mu.RLock()
	ids := make([]string, 0, len(t.windows))
	for id := range t.windows {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)

	out := make([]TrendStats, 0, len(ids))
	for _, id := range ids {
		if s, ok := t.Stats(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func summarize(parameterID string, readings []models.Reading) TrendStats {
	stats := TrendStats{
		ParameterID: parameterID,
		Count:       len(readings),
		Min:         math.Inf(1),
		Max:         math.Inf(-1),
		LastReading: readings[len(readings)-1].Timestamp,
	}

	var sum, sumSquares float64
	nonNormal := 0
	for _, r := range readings {
		sum += r.Value
		sumSquares += r.Value * r.Value
		stats.Min = math.Min(stats.Min, r.Value)
		stats.Max = math.Max(stats.Max, r.Value)
		if r.Status != models.StatusNormal {
			nonNormal++
		}
	}

	n := float64(len(readings))
	mean := sum / n
	variance := sumSquares/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	stats.Avg = round2(mean)
	stats.StdDev = round2(math.Sqrt(variance))
	stats.NonNormalRate = round2(float64(nonNormal) / n)
	return stats
}

// changeRate is the value change per second from the first to the last reading
func changeRate(readings []models.Reading) float64 {
	if len(readings) < 2 {
		return 0
	}
	first, last := readings[0], readings[len(readings)-1]
	span := last.Timestamp.Sub(first.Timestamp).Seconds()
	if span <= 0 {
		return 0
	}
	return (last.Value - first.Value) / span
}
