package evaluation

import (
	"testing"
	"time"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/stretchr/testify/assert"
)

func TestTimeSeriesMetrics(t *testing.T) {
	agg := NewTimeSeriesAggregator("yolov8n")

	agg.Add("080000", []common.BoundingBox{
		{Confidence: 0.8, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{Confidence: 0.6, X1: 0, Y1: 0, X2: 20, Y2: 10},
	}, 10*time.Millisecond)
	agg.Add("083000", nil, 20*time.Millisecond)
	agg.Add("090000", []common.BoundingBox{
		{Confidence: 0.4, X1: 5, Y1: 5, X2: 15, Y2: 35},
		{Confidence: 0.6, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{Confidence: 0.6, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{Confidence: 0.6, X1: 0, Y1: 0, X2: 10, Y2: 10},
	}, 30*time.Millisecond)
	agg.AddFailure()

	m := agg.Metrics()
	assert.Equal(t, "yolov8n", m.Model)
	assert.InDelta(t, 2.0, m.AvgDetections, 1e-12)
	// Population standard deviation of {2, 0, 4}.
	assert.InDelta(t, 1.632993161855452, m.StdDetections, 1e-9)
	assert.Equal(t, 0, m.MinDetections)
	assert.Equal(t, 4, m.MaxDetections)
	assert.InDelta(t, 0.6, m.AvgConfidence, 1e-6)
	assert.InDelta(t, 20.0, m.AvgInferenceTime, 1e-9)
	// Areas: 100, 200, 300, 100, 100, 100.
	assert.InDelta(t, 150.0, m.AvgDetectionSize, 1e-6)
	assert.Equal(t, 3, m.TotalImages)
	assert.Equal(t, 1, m.FailedImages)
	assert.Equal(t, []TimelinePoint{
		{Timestamp: "080000", Count: 2},
		{Timestamp: "083000", Count: 0},
		{Timestamp: "090000", Count: 4},
	}, m.Timeline)
}

func TestTimeSeriesMetricsEmpty(t *testing.T) {
	m := NewTimeSeriesAggregator("none").Metrics()

	assert.Equal(t, 0, m.TotalImages)
	assert.Equal(t, 0.0, m.AvgDetections)
	assert.Equal(t, 0.0, m.StdDetections)
	assert.Empty(t, m.Timeline)
}
