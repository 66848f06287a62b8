package benchmark

import (
	"runtime"
	"sort"
	"time"

	"github.com/nvr-ai/horti-vision/evaluation"
)

// Phase names the two evaluations a run performs.
type Phase string

const (
	// PhaseTestSet is the labeled test split.
	PhaseTestSet Phase = "test_set"
	// PhaseTimeSeries is the unlabeled time-series capture.
	PhaseTimeSeries Phase = "timeseries"
)

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// RunStats describes how one model performed as a workload during a phase.
type RunStats struct {
	Model           string        `json:"model"`
	Phase           Phase         `json:"phase"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	ImagesPerSecond float64       `json:"images_per_second"`
	ErrorRate       float64       `json:"error_rate"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
}

// memorySnapshot reads the runtime memory statistics after a collection.
func memorySnapshot() runtime.MemStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return m
}

func memoryDelta(start, end runtime.MemStats) MemoryMetrics {
	return MemoryMetrics{
		AllocBytes:      end.Alloc,
		TotalAllocBytes: end.TotalAlloc - start.TotalAlloc,
		SysBytes:        end.Sys,
		NumGC:           end.NumGC - start.NumGC,
		HeapAllocBytes:  end.HeapAlloc,
		HeapSysBytes:    end.HeapSys,
	}
}

// Results holds everything a baseline run produced.
type Results struct {
	Timestamp  time.Time                               `json:"timestamp"`
	Config     *Config                                 `json:"config"`
	TestSet    map[string]evaluation.ModelMetrics      `json:"test_set,omitempty"`
	TimeSeries map[string]evaluation.TimeSeriesMetrics `json:"timeseries,omitempty"`
	Failures   map[string][]evaluation.Failure         `json:"failures,omitempty"`
	Runs       []RunStats                              `json:"runs"`
	Dataset    *DatasetInfo                            `json:"dataset,omitempty"`
}

// NewResults creates empty results for cfg.
func NewResults(cfg *Config) *Results {
	return &Results{
		Timestamp:  time.Now(),
		Config:     cfg,
		TestSet:    make(map[string]evaluation.ModelMetrics),
		TimeSeries: make(map[string]evaluation.TimeSeriesMetrics),
		Failures:   make(map[string][]evaluation.Failure),
	}
}

// Models returns every model that has test-set or time-series results,
// sorted by name.
func (r *Results) Models() []string {
	seen := make(map[string]bool)
	for name := range r.TestSet {
		seen[name] = true
	}
	for name := range r.TimeSeries {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BestModel returns the model with the highest test-set F1. Ties go to the
// name that sorts first.
//
// Returns:
//   - The model name and its metrics, or false when no test-set results exist.
func (r *Results) BestModel() (string, evaluation.ModelMetrics, bool) {
	var (
		best    string
		metrics evaluation.ModelMetrics
		found   bool
	)
	names := make([]string, 0, len(r.TestSet))
	for name := range r.TestSet {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := r.TestSet[name]
		if !found || m.F1Score > metrics.F1Score {
			best, metrics, found = name, m, true
		}
	}
	return best, metrics, found
}

// SummaryRow is one line of the CSV summary.
type SummaryRow struct {
	Model                string
	HasTestSet           bool
	Precision            float64
	Recall               float64
	F1Score              float64
	AvgIoU               float64
	InferenceTimeMS      float64
	HasTimeSeries        bool
	AvgDetections        float64
	DetectionStd         float64
	TimeSeriesConfidence float64
}

// Summary flattens the results into one row per model.
func (r *Results) Summary() []SummaryRow {
	rows := make([]SummaryRow, 0, len(r.TestSet))
	for _, name := range r.Models() {
		row := SummaryRow{Model: name}
		if m, ok := r.TestSet[name]; ok {
			row.HasTestSet = true
			row.Precision = m.Precision
			row.Recall = m.Recall
			row.F1Score = m.F1Score
			row.AvgIoU = m.AvgIoU
			row.InferenceTimeMS = m.AvgInferenceTime
		}
		if ts, ok := r.TimeSeries[name]; ok {
			row.HasTimeSeries = true
			row.AvgDetections = ts.AvgDetections
			row.DetectionStd = ts.StdDetections
			row.TimeSeriesConfidence = ts.AvgConfidence
		}
		rows = append(rows, row)
	}
	return rows
}
