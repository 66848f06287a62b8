// Package yolov8 - Input preparation and output decoding for Ultralytics
// YOLO exports (v8, v9, v11 heads and the end-to-end v10 head).
package yolov8

import (
	"github.com/nvr-ai/horti-vision/models"
	"github.com/pkg/errors"
)

const (
	// InputSize is the square side length the exports are traced with.
	InputSize = 640
	// InputName is the ONNX input tensor name.
	InputName = "images"
	// OutputName is the ONNX output tensor name.
	OutputName = "output0"
	// Anchors is the number of candidate boxes a 640 input produces.
	Anchors = 8400
	// EndToEndCandidates is the number of rows the NMS-free v10 head emits.
	EndToEndCandidates = 300
	// EndToEndStride is the number of values per row of the v10 head:
	// x1, y1, x2, y2, score, class.
	EndToEndStride = 6
)

// Head identifies the layout of the output tensor.
type Head string

const (
	// HeadAnchors is the [1, 4+C, 8400] layout that needs NMS.
	HeadAnchors Head = "anchors"
	// HeadEndToEnd is the [1, 300, 6] layout with NMS applied in-graph.
	HeadEndToEnd Head = "end_to_end"
)

// HeadForShape picks the output layout from the ONNX output dimensions.
//
// Arguments:
//   - dims: The output shape as reported by the runtime.
//
// Returns:
//   - HeadEndToEnd when the last dimension is 6, otherwise HeadAnchors.
func HeadForShape(dims []int64) Head {
	if len(dims) == 3 && dims[2] == EndToEndStride {
		return HeadEndToEnd
	}
	return HeadAnchors
}

// OutputShape returns the output dimensions for a head and class count.
func OutputShape(head Head, numClasses int) []int64 {
	if head == HeadEndToEnd {
		return []int64{1, EndToEndCandidates, EndToEndStride}
	}
	return []int64{1, int64(4 + numClasses), Anchors}
}

// CheckOutputShape verifies that a static output shape matches the class
// set the detector decodes with.
//
// Arguments:
//   - dims: The output shape as reported by the runtime.
//   - numClasses: The number of classes in the decode configuration.
//
// Returns:
//   - error: An error when the anchor head carries a different number of
//     score rows than numClasses.
func CheckOutputShape(dims []int64, numClasses int) error {
	if len(dims) != 3 {
		return errors.Errorf("expected a 3-dimensional output, got %v", dims)
	}
	if HeadForShape(dims) == HeadEndToEnd {
		return nil
	}
	if dims[1] > 0 && dims[1] != int64(4+numClasses) {
		return errors.Errorf("output %v carries %d classes, expected %d", dims, dims[1]-4, numClasses)
	}
	return nil
}

// Config controls output decoding.
type Config struct {
	// Head is the output layout.
	Head Head `json:"head" yaml:"head"`
	// Classes maps class indices to labels.
	Classes models.OutputClassSet `json:"-" yaml:"-"`
	// NMSThreshold is the IoU above which overlapping anchors are dropped.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`
	// Anchors is the expected number of candidate columns. Zero accepts
	// any column count that divides the output.
	Anchors int `json:"anchors" yaml:"anchors"`
}

// DefaultConfig returns the anchor head with the tomato class set.
func DefaultConfig() Config {
	return Config{
		Head:         HeadAnchors,
		Classes:      models.TomatoClasses,
		NMSThreshold: 0.7,
		Anchors:      Anchors,
	}
}
