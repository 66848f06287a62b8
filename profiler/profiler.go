// Package profiler - Operation timing for inference and request handling.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxSamples is the sliding window kept per operation.
const DefaultMaxSamples = 600

// TimeTracker tracks operation timing statistics.
//
// Count, Min and Max cover every recorded duration. Mean covers the most
// recent maxSamples durations.
type TimeTracker struct {
	mu         sync.Mutex
	name       string
	durations  []time.Duration
	totalTime  time.Duration
	minTime    time.Duration
	maxTime    time.Duration
	count      int64
	maxSamples int
}

// NewTimeTracker creates a tracker keeping at most maxSamples durations.
// A non-positive maxSamples uses DefaultMaxSamples.
func NewTimeTracker(name string, maxSamples int) *TimeTracker {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &TimeTracker{name: name, maxSamples: maxSamples}
}

// Record adds one duration.
func (t *TimeTracker) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 || d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
	t.count++

	t.durations = append(t.durations, d)
	t.totalTime += d
	if len(t.durations) > t.maxSamples {
		// Remove oldest sample
		t.totalTime -= t.durations[0]
		t.durations = t.durations[1:]
	}
}

// Time runs fn and records how long it took.
func (t *TimeTracker) Time(fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	t.Record(d)
	return d
}

// Count returns how many durations were recorded.
func (t *TimeTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Mean returns the mean of the retained durations, or 0 when empty.
func (t *TimeTracker) Mean() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.durations) == 0 {
		return 0
	}
	return t.totalTime / time.Duration(len(t.durations))
}

// Min returns the shortest recorded duration.
func (t *TimeTracker) Min() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.minTime
}

// Max returns the longest recorded duration.
func (t *TimeTracker) Max() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxTime
}

// OperationStats is a point-in-time view of a tracker.
type OperationStats struct {
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// Stats returns the current statistics.
func (t *TimeTracker) Stats() OperationStats {
	return OperationStats{
		Name:   t.name,
		Count:  t.Count(),
		MeanMS: ms(t.Mean()),
		MinMS:  ms(t.Min()),
		MaxMS:  ms(t.Max()),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// Profiler groups named trackers.
type Profiler struct {
	mu         sync.RWMutex
	startTime  time.Time
	maxSamples int
	operations map[string]*TimeTracker
}

// New creates an empty profiler.
func New(maxSamples int) *Profiler {
	return &Profiler{
		startTime:  time.Now(),
		maxSamples: maxSamples,
		operations: make(map[string]*TimeTracker),
	}
}

// Tracker returns the tracker for name, creating it on first use.
func (p *Profiler) Tracker(name string) *TimeTracker {
	p.mu.RLock()
	t, ok := p.operations[name]
	p.mu.RUnlock()
	if ok {
		return t
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok = p.operations[name]; !ok {
		t = NewTimeTracker(name, p.maxSamples)
		p.operations[name] = t
	}
	return t
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
//
// @example
// done := p.StartOperation("detect")
// defer done()
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Tracker(name).Record(time.Since(start))
	}
}

// Snapshot returns the statistics of every operation sorted by name.
func (p *Profiler) Snapshot() []OperationStats {
	p.mu.RLock()
	trackers := make([]*TimeTracker, 0, len(p.operations))
	for _, t := range p.operations {
		trackers = append(trackers, t)
	}
	p.mu.RUnlock()

	out := make([]OperationStats, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, t.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report logs uptime, memory and per-operation timings.
func (p *Profiler) Report(log *logrus.Entry) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	log.WithFields(logrus.Fields{
		"uptime":     time.Since(p.startTime).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": formatBytes(mem.HeapAlloc),
		"gc_cycles":  mem.NumGC,
	}).Info("runtime status")

	for _, s := range p.Snapshot() {
		log.WithFields(logrus.Fields{
			"operation": s.Name,
			"count":     s.Count,
			"mean_ms":   fmt.Sprintf("%.2f", s.MeanMS),
			"min_ms":    fmt.Sprintf("%.2f", s.MinMS),
			"max_ms":    fmt.Sprintf("%.2f", s.MaxMS),
		}).Info("operation timing")
	}
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
