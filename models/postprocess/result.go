// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/horti-vision/common"
)

// SortByConfidence orders detections from most to least confident. The sort
// is stable so equal scores keep their decode order.
func SortByConfidence(detections []common.BoundingBox) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
}

// FilterByConfidence keeps detections whose confidence is at least min.
func FilterByConfidence(detections []common.BoundingBox, min float32) []common.BoundingBox {
	out := detections[:0:0]
	for _, d := range detections {
		if d.Confidence >= min {
			out = append(out, d)
		}
	}
	return out
}
