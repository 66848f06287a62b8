package evaluation

import (
	"time"

	"github.com/nvr-ai/horti-vision/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TimelinePoint is the detection count observed at one capture time.
type TimelinePoint struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// TimeSeriesMetrics summarizes detections over unlabeled, time-ordered images.
type TimeSeriesMetrics struct {
	Model            string          `json:"model"`
	AvgDetections    float64         `json:"avg_detections"`
	StdDetections    float64         `json:"std_detections"`
	MinDetections    int             `json:"min_detections"`
	MaxDetections    int             `json:"max_detections"`
	AvgConfidence    float64         `json:"avg_confidence"`
	AvgInferenceTime float64         `json:"avg_inference_time"`
	AvgDetectionSize float64         `json:"avg_detection_size"`
	TotalImages      int             `json:"total_images"`
	FailedImages     int             `json:"failed_images"`
	Timeline         []TimelinePoint `json:"detections_timeline"`
}

// TimeSeriesAggregator accumulates detection statistics per captured frame.
type TimeSeriesAggregator struct {
	model          string
	counts         []float64
	confidences    []float64
	sizes          []float64
	inferenceTimes []float64
	timeline       []TimelinePoint
	failed         int
}

// NewTimeSeriesAggregator creates an empty aggregator for the named model.
func NewTimeSeriesAggregator(model string) *TimeSeriesAggregator {
	return &TimeSeriesAggregator{model: model}
}

// Add records the pixel-space detections of one frame.
//
// Arguments:
//   - timestamp: The capture time label of the frame.
//   - boxes: The detections for the frame.
//   - inference: How long the detector took.
func (t *TimeSeriesAggregator) Add(timestamp string, boxes []common.BoundingBox, inference time.Duration) {
	t.counts = append(t.counts, float64(len(boxes)))
	t.inferenceTimes = append(t.inferenceTimes, milliseconds(inference))
	t.timeline = append(t.timeline, TimelinePoint{Timestamp: timestamp, Count: len(boxes)})

	for i := range boxes {
		t.confidences = append(t.confidences, float64(boxes[i].Confidence))
		t.sizes = append(t.sizes, float64(boxes[i].Width()*boxes[i].Height()))
	}
}

// AddFailure counts a frame whose detection failed.
func (t *TimeSeriesAggregator) AddFailure() {
	t.failed++
}

// Metrics returns the summary statistics. The standard deviation is the
// population one.
func (t *TimeSeriesAggregator) Metrics() TimeSeriesMetrics {
	m := TimeSeriesMetrics{
		Model:            t.model,
		AvgConfidence:    mean(t.confidences),
		AvgInferenceTime: mean(t.inferenceTimes),
		AvgDetectionSize: mean(t.sizes),
		TotalImages:      len(t.counts),
		FailedImages:     t.failed,
		Timeline:         append([]TimelinePoint(nil), t.timeline...),
	}

	if len(t.counts) > 0 {
		m.AvgDetections, m.StdDetections = stat.PopMeanStdDev(t.counts, nil)
		m.MinDetections = int(floats.Min(t.counts))
		m.MaxDetections = int(floats.Max(t.counts))
	}

	return m
}
