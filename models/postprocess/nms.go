// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import "github.com/nvr-ai/horti-vision/common"

// DefaultIoUThreshold is the overlap above which the YOLO exports suppress
// a lower-scoring box.
const DefaultIoUThreshold float32 = 0.7

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap threshold for suppression.
	ClassAware   bool    `json:"class_aware"   yaml:"class_aware"`   // If true, suppress only within same label.
}

// DefaultNMSConfig returns class-agnostic suppression at DefaultIoUThreshold.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: DefaultIoUThreshold}
}

// ApplyNMS performs standard greedy Non-Maximum Suppression.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: IoU threshold and class awareness.
//
// Returns:
//   - Filtered slice of detections, still in descending confidence order.
//     If no detections are provided, returns nil.
func ApplyNMS(detections []common.BoundingBox, config NMSConfig) []common.BoundingBox {
	n := len(detections)
	if n == 0 {
		return nil
	}

	filtered := make([]common.BoundingBox, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Label != detections[j].Label {
				continue
			}

			// Suppress if IoU exceeds threshold
			if anchor.IoU(&detections[j]) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
