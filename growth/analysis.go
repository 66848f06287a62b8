// Package growth - Crop growth analysis over stored detection results.
package growth

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// ErrNoData is returned when no samples remain for a greenhouse.
var ErrNoData = errors.New("no data found for greenhouse")

// Recommendation messages.
const (
	LowCountRecommendation   = "Low tomato count detected. Check plant health and growing conditions."
	SmallFruitRecommendation = "Many small tomatoes detected. Consider adjusting nutrients or pruning."
)

// Config contains the thresholds used by Analyze.
type Config struct {
	// SmallArea is the box area in pixels below which a head is small.
	SmallArea float64 `json:"small_area" yaml:"small_area"`
	// LargeArea is the box area in pixels from which a head is large.
	LargeArea float64 `json:"large_area" yaml:"large_area"`
	// TargetCount is the average head count that scores 100.
	TargetCount float64 `json:"target_count" yaml:"target_count"`
	// LowCountThreshold triggers the low count recommendation.
	LowCountThreshold float64 `json:"low_count_threshold" yaml:"low_count_threshold"`
}

// DefaultConfig returns the thresholds used by the greenhouse service.
func DefaultConfig() Config {
	return Config{
		SmallArea:         1000,
		LargeArea:         3000,
		TargetCount:       20,
		LowCountThreshold: 10,
	}
}

// Sample is one stored detection result reduced to what the analysis needs.
type Sample struct {
	// Timestamp is when the detection ran.
	Timestamp time.Time `json:"timestamp"`
	// Count is the number of heads detected.
	Count int `json:"count"`
	// Areas holds width*height of every detected box, in pixels.
	Areas []float64 `json:"areas"`
}

// SizeDistribution counts detected heads per size bucket.
type SizeDistribution struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// Analysis is the growth report for one greenhouse.
type Analysis struct {
	GreenhouseID       string           `json:"greenhouse_id"`
	AnalysisDate       time.Time        `json:"analysis_date"`
	TotalHeadsDetected int              `json:"total_heads_detected"`
	AverageSize        float64          `json:"average_size"`
	SizeDistribution   SizeDistribution `json:"size_distribution"`
	// GrowthRate is nil when fewer than two samples exist.
	GrowthRate      *float64 `json:"growth_rate"`
	HealthScore     float64  `json:"health_score"`
	Recommendations []string `json:"recommendations"`
}

// Window keeps the samples taken within the last days before now. A
// non-positive days keeps everything.
func Window(samples []Sample, days int, now time.Time) []Sample {
	if days <= 0 {
		return samples
	}
	cutoff := now.AddDate(0, 0, -days)
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Analyze builds the growth report for a greenhouse.
//
// Arguments:
//   - greenhouseID: The greenhouse the samples belong to.
//   - samples: The detection results, in any order.
//   - cfg: The analysis thresholds.
//
// Returns:
//   - The report dated now.
//   - error: ErrNoData when samples is empty.
//
// @example
// report, err := Analyze("gh-1", samples, DefaultConfig())
func Analyze(greenhouseID string, samples []Sample, cfg Config) (*Analysis, error) {
	if len(samples) == 0 {
		return nil, errors.Wrap(ErrNoData, greenhouseID)
	}

	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	counts := make([]float64, len(ordered))
	var areas []float64
	for i, s := range ordered {
		counts[i] = float64(s.Count)
		areas = append(areas, s.Areas...)
	}
	avg := stat.Mean(counts, nil)

	out := &Analysis{
		GreenhouseID:       greenhouseID,
		AnalysisDate:       time.Now(),
		TotalHeadsDetected: int(avg),
		SizeDistribution:   Distribution(areas, cfg),
		HealthScore:        HealthScore(avg, cfg.TargetCount),
		Recommendations:    []string{},
	}
	if len(areas) > 0 {
		out.AverageSize = stat.Mean(areas, nil)
	}
	if n := len(ordered); n >= 2 {
		rate := (counts[n-1] - counts[0]) / float64(n)
		out.GrowthRate = &rate
	}

	if avg < cfg.LowCountThreshold {
		out.Recommendations = append(out.Recommendations, LowCountRecommendation)
	}
	if out.SizeDistribution.Small > out.SizeDistribution.Large {
		out.Recommendations = append(out.Recommendations, SmallFruitRecommendation)
	}
	return out, nil
}

// Distribution buckets box areas into small, medium and large.
func Distribution(areas []float64, cfg Config) SizeDistribution {
	var d SizeDistribution
	for _, a := range areas {
		switch {
		case a < cfg.SmallArea:
			d.Small++
		case a < cfg.LargeArea:
			d.Medium++
		default:
			d.Large++
		}
	}
	return d
}

// HealthScore maps an average head count onto 0..100, saturating at target.
func HealthScore(avg, target float64) float64 {
	if target <= 0 {
		return 0
	}
	score := avg / target * 100
	if score > 100 {
		return 100
	}
	return score
}
