package evaluation

import (
	"time"

	"github.com/nvr-ai/horti-vision/common"
)

// Pair links a detection to the ground-truth box it was matched with.
type Pair struct {
	Detection   int     `json:"detection"`
	GroundTruth int     `json:"ground_truth"`
	IoU         float64 `json:"iou"`
}

// ImageResult is the outcome of matching one image's detections.
type ImageResult struct {
	Image          string        `json:"image,omitempty"`
	TruePositives  int           `json:"true_positives"`
	FalsePositives int           `json:"false_positives"`
	FalseNegatives int           `json:"false_negatives"`
	IoUSum         float64       `json:"iou_sum"`
	Pairs          []Pair        `json:"pairs,omitempty"`
	Confidences    []float64     `json:"confidences,omitempty"`
	InferenceTime  time.Duration `json:"inference_time"`
}

// Detections returns how many detections the image produced.
func (r ImageResult) Detections() int {
	return r.TruePositives + r.FalsePositives
}

// Matcher assigns detections to ground-truth boxes greedily.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher with the given configuration.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Match pairs detections with ground truth for a single image.
//
// Detections are visited in the order given, without sorting by confidence.
// Each one takes the unmatched ground-truth box with the highest IoU (the
// lowest index wins a tie) and becomes a true positive only when that IoU is
// strictly above the threshold; the box is then retired. Everything else is a
// false positive. Ground truth left over at the end is counted as false
// negatives. This is a local, not a globally optimal, assignment.
//
// Arguments:
//   - detections: The normalized predictions for the image.
//   - groundTruth: The annotated boxes for the image.
//
// Returns:
//   - The per-image counts and matched pairs.
func (m *Matcher) Match(detections []common.Detection, groundTruth []common.GroundTruthBox) ImageResult {
	result := ImageResult{
		Confidences: make([]float64, 0, len(detections)),
	}
	matched := make([]bool, len(groundTruth))

	for i, det := range detections {
		result.Confidences = append(result.Confidences, det.Confidence)

		bestIoU := 0.0
		bestIdx := -1
		for j := range groundTruth {
			if matched[j] {
				continue
			}
			if iou := common.IoU(det.Box, groundTruth[j].Box); iou > bestIoU {
				bestIoU = iou
				bestIdx = j
			}
		}

		if bestIdx >= 0 && bestIoU > m.cfg.IoUThreshold {
			matched[bestIdx] = true
			result.TruePositives++
			result.IoUSum += bestIoU
			result.Pairs = append(result.Pairs, Pair{Detection: i, GroundTruth: bestIdx, IoU: bestIoU})
			continue
		}
		result.FalsePositives++
	}

	for _, ok := range matched {
		if !ok {
			result.FalseNegatives++
		}
	}

	return result
}
