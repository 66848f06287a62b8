package evaluation

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// ModelMetrics is the aggregate over all images evaluated for one model.
//
// It is the record consumed by reporting: field names follow the report
// columns. Values are not rounded.
type ModelMetrics struct {
	Model            string  `json:"model"             yaml:"model"`
	Precision        float64 `json:"precision"         yaml:"precision"`
	Recall           float64 `json:"recall"            yaml:"recall"`
	F1Score          float64 `json:"f1_score"          yaml:"f1_score"`
	AvgIoU           float64 `json:"avg_iou"           yaml:"avg_iou"`
	AvgInferenceTime float64 `json:"avg_inference_time" yaml:"avg_inference_time"`
	AvgConfidence    float64 `json:"avg_confidence"    yaml:"avg_confidence"`
	AvgDetections    float64 `json:"avg_detections"    yaml:"avg_detections"`
	TotalImages      int     `json:"total_images"      yaml:"total_images"`
	FailedImages     int     `json:"failed_images"     yaml:"failed_images"`
	TruePositives    int     `json:"true_positives"    yaml:"true_positives"`
	FalsePositives   int     `json:"false_positives"   yaml:"false_positives"`
	FalseNegatives   int     `json:"false_negatives"   yaml:"false_negatives"`
}

// Precision returns tp/(tp+fp), or 0 when nothing was predicted.
func Precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall returns tp/(tp+fn), or 0 when there was nothing to find.
func Recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1 returns the harmonic mean of precision and recall, or 0 when both are 0.
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// Aggregator folds per-image results for a single model.
//
// It is not safe for concurrent use; give each goroutine its own aggregator
// and combine them with Merge.
type Aggregator struct {
	model string

	truePositives  int
	falsePositives int
	falseNegatives int
	iouSum         float64

	inferenceTimes  []float64
	detectionCounts []float64
	confidences     []float64

	failures []Failure
}

// Failure records an image that could not be evaluated.
type Failure struct {
	Image string `json:"image"`
	Error string `json:"error"`
}

// NewAggregator creates an empty aggregator for the named model.
func NewAggregator(model string) *Aggregator {
	return &Aggregator{model: model}
}

// Model returns the model name.
func (a *Aggregator) Model() string {
	return a.model
}

// Add folds one image result into the running totals.
func (a *Aggregator) Add(r ImageResult) {
	a.truePositives += r.TruePositives
	a.falsePositives += r.FalsePositives
	a.falseNegatives += r.FalseNegatives
	a.iouSum += r.IoUSum

	a.inferenceTimes = append(a.inferenceTimes, milliseconds(r.InferenceTime))
	a.detectionCounts = append(a.detectionCounts, float64(r.Detections()))
	a.confidences = append(a.confidences, r.Confidences...)
}

// AddFailure counts an image whose detection failed. Failed images do not
// contribute to any mean.
func (a *Aggregator) AddFailure(image string, err error) {
	f := Failure{Image: image}
	if err != nil {
		f.Error = err.Error()
	}
	a.failures = append(a.failures, f)
}

// Failures returns the images that could not be evaluated.
func (a *Aggregator) Failures() []Failure {
	out := make([]Failure, len(a.failures))
	copy(out, a.failures)
	return out
}

// Images returns the number of successfully processed images.
func (a *Aggregator) Images() int {
	return len(a.detectionCounts)
}

// Merge adds the totals of other into a.
func (a *Aggregator) Merge(other *Aggregator) {
	a.truePositives += other.truePositives
	a.falsePositives += other.falsePositives
	a.falseNegatives += other.falseNegatives
	a.iouSum += other.iouSum
	a.inferenceTimes = append(a.inferenceTimes, other.inferenceTimes...)
	a.detectionCounts = append(a.detectionCounts, other.detectionCounts...)
	a.confidences = append(a.confidences, other.confidences...)
	a.failures = append(a.failures, other.failures...)
}

// Metrics derives the model metrics from the running totals.
func (a *Aggregator) Metrics() ModelMetrics {
	precision := Precision(a.truePositives, a.falsePositives)
	recall := Recall(a.truePositives, a.falseNegatives)

	avgIoU := 0.0
	if a.truePositives > 0 {
		avgIoU = a.iouSum / float64(a.truePositives)
	}

	return ModelMetrics{
		Model:            a.model,
		Precision:        precision,
		Recall:           recall,
		F1Score:          F1(precision, recall),
		AvgIoU:           avgIoU,
		AvgInferenceTime: mean(a.inferenceTimes),
		AvgConfidence:    mean(a.confidences),
		AvgDetections:    mean(a.detectionCounts),
		TotalImages:      a.Images(),
		FailedImages:     len(a.failures),
		TruePositives:    a.truePositives,
		FalsePositives:   a.falsePositives,
		FalseNegatives:   a.falseNegatives,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
