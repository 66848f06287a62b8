package evaluation

import (
	"errors"
	"testing"
	"time"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricHelpers(t *testing.T) {
	assert.Equal(t, 0.0, Precision(0, 0))
	assert.Equal(t, 0.0, Recall(0, 0))
	assert.Equal(t, 0.0, F1(0, 0))

	assert.InDelta(t, 0.75, Precision(3, 1), 1e-12)
	assert.InDelta(t, 0.6, Recall(3, 2), 1e-12)
	assert.InDelta(t, 2*0.75*0.6/1.35, F1(0.75, 0.6), 1e-12)
}

func TestAggregatorMetrics(t *testing.T) {
	agg := NewAggregator("yolov8s")
	agg.Add(ImageResult{
		TruePositives:  3,
		FalsePositives: 1,
		FalseNegatives: 1,
		IoUSum:         2.4,
		Confidences:    []float64{0.9, 0.8, 0.7, 0.6},
		InferenceTime:  20 * time.Millisecond,
	})
	agg.Add(ImageResult{
		FalseNegatives: 1,
		InferenceTime:  10 * time.Millisecond,
	})

	m := agg.Metrics()
	assert.Equal(t, "yolov8s", m.Model)
	assert.InDelta(t, 0.75, m.Precision, 1e-12)
	assert.InDelta(t, 0.6, m.Recall, 1e-12)
	assert.InDelta(t, F1(0.75, 0.6), m.F1Score, 1e-12)
	assert.InDelta(t, 0.8, m.AvgIoU, 1e-12)
	assert.InDelta(t, 15.0, m.AvgInferenceTime, 1e-9)
	assert.InDelta(t, 0.75, m.AvgConfidence, 1e-12)
	// The zero-detection image counts towards the mean.
	assert.InDelta(t, 2.0, m.AvgDetections, 1e-12)
	assert.Equal(t, 2, m.TotalImages)
	assert.Equal(t, 3, m.TruePositives)
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 2, m.FalseNegatives)
}

func TestAggregatorEmpty(t *testing.T) {
	m := NewAggregator("empty").Metrics()

	assert.Equal(t, 0.0, m.Precision)
	assert.Equal(t, 0.0, m.Recall)
	assert.Equal(t, 0.0, m.F1Score)
	assert.Equal(t, 0.0, m.AvgIoU)
	assert.Equal(t, 0.0, m.AvgInferenceTime)
	assert.Equal(t, 0.0, m.AvgDetections)
	assert.Equal(t, 0, m.TotalImages)
}

func TestAggregatorFailuresExcludedFromMeans(t *testing.T) {
	agg := NewAggregator("yolov8n")
	agg.Add(ImageResult{TruePositives: 2, IoUSum: 1.6, InferenceTime: 8 * time.Millisecond})
	agg.AddFailure("broken.jpg", errors.New("decode failed"))
	agg.AddFailure("nil.jpg", nil)

	m := agg.Metrics()
	assert.Equal(t, 1, m.TotalImages)
	assert.Equal(t, 2, m.FailedImages)
	assert.InDelta(t, 8.0, m.AvgInferenceTime, 1e-9)
	assert.InDelta(t, 2.0, m.AvgDetections, 1e-12)

	failures := agg.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, Failure{Image: "broken.jpg", Error: "decode failed"}, failures[0])
	assert.Equal(t, "", failures[1].Error)
}

func TestAggregatorMerge(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	truth := []common.GroundTruthBox{gt(0.5, 0.5, 0.2, 0.2)}

	whole := NewAggregator("m")
	left := NewAggregator("m")
	right := NewAggregator("m")

	results := []ImageResult{
		matcher.Match([]common.Detection{det(0.5, 0.5, 0.2, 0.2, 0.9)}, truth),
		matcher.Match([]common.Detection{det(0.1, 0.1, 0.1, 0.1, 0.3)}, truth),
		matcher.Match(nil, truth),
	}
	for i, r := range results {
		whole.Add(r)
		if i%2 == 0 {
			left.Add(r)
		} else {
			right.Add(r)
		}
	}
	left.AddFailure("x.jpg", errors.New("boom"))
	whole.AddFailure("x.jpg", errors.New("boom"))

	left.Merge(right)
	assert.Equal(t, whole.Metrics().Precision, left.Metrics().Precision)
	assert.Equal(t, whole.Metrics().Recall, left.Metrics().Recall)
	assert.Equal(t, whole.Metrics().TotalImages, left.Metrics().TotalImages)
	assert.Equal(t, whole.Metrics().FailedImages, left.Metrics().FailedImages)
	assert.InDelta(t, whole.Metrics().AvgConfidence, left.Metrics().AvgConfidence, 1e-12)
}

func TestAggregatorMetricsBounded(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	agg := NewAggregator("bounded")

	frames := []struct {
		dets  []common.Detection
		truth []common.GroundTruthBox
	}{
		{
			dets:  []common.Detection{det(0.3, 0.3, 0.2, 0.2, 0.9), det(0.35, 0.3, 0.2, 0.2, 0.5)},
			truth: []common.GroundTruthBox{gt(0.3, 0.3, 0.2, 0.2)},
		},
		{
			dets:  nil,
			truth: []common.GroundTruthBox{gt(0.6, 0.6, 0.1, 0.1), gt(0.1, 0.1, 0.05, 0.05)},
		},
		{
			dets:  []common.Detection{det(0.9, 0.9, 0.1, 0.1, 0.2)},
			truth: nil,
		},
	}
	for _, f := range frames {
		agg.Add(matcher.Match(f.dets, f.truth))
	}

	m := agg.Metrics()
	for _, v := range []float64{m.Precision, m.Recall, m.F1Score, m.AvgIoU} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 2, m.FalsePositives)
	assert.Equal(t, 2, m.FalseNegatives)
}
