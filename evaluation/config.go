// Package evaluation - Matching detections to ground truth and aggregating
// detection-quality metrics.
package evaluation

import "github.com/pkg/errors"

// DefaultIoUThreshold is the overlap a detection must exceed to count as a
// true positive.
const DefaultIoUThreshold = 0.5

// Config holds the matching parameters.
type Config struct {
	// IoUThreshold is compared with a strict greater-than.
	IoUThreshold float64 `json:"iou_threshold" yaml:"iou_threshold"`
}

// DefaultConfig returns the configuration used for baseline numbers.
func DefaultConfig() Config {
	return Config{
		IoUThreshold: DefaultIoUThreshold,
	}
}

// Validate checks that the threshold is a usable overlap ratio.
func (c Config) Validate() error {
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return errors.Errorf("iou threshold must be within [0, 1], got %f", c.IoUThreshold)
	}
	return nil
}
