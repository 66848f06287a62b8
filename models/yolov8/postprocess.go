package yolov8

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// PostProcess decodes a raw output tensor into pixel-space detections for
// the original image.
//
// Arguments:
//   - output: The flat output tensor data.
//   - cfg: The head layout, classes and NMS threshold.
//   - confidence: Detections scoring below this are dropped.
//   - width: The original image width in pixels.
//   - height: The original image height in pixels.
//
// Returns:
//   - The detections sorted by descending confidence.
//   - error: An error if the output length does not fit the head layout.
func PostProcess(output []float32, cfg Config, confidence float32, width, height int) ([]common.BoundingBox, error) {
	var (
		boxes []common.BoundingBox
		err   error
	)
	if cfg.Head == HeadEndToEnd {
		boxes, err = decodeEndToEnd(output, cfg, confidence)
	} else {
		boxes, err = decodeAnchors(output, cfg, confidence)
	}
	if err != nil {
		return nil, err
	}

	sx := float32(width) / InputSize
	sy := float32(height) / InputSize
	for i := range boxes {
		boxes[i].X1 = clamp(boxes[i].X1*sx, float32(width))
		boxes[i].Y1 = clamp(boxes[i].Y1*sy, float32(height))
		boxes[i].X2 = clamp(boxes[i].X2*sx, float32(width))
		boxes[i].Y2 = clamp(boxes[i].Y2*sy, float32(height))
	}

	postprocess.SortByConfidence(boxes)
	if cfg.Head == HeadEndToEnd {
		return boxes, nil
	}
	return postprocess.ApplyNMS(boxes, postprocess.NMSConfig{IoUThreshold: cfg.NMSThreshold}), nil
}

// decodeAnchors reads the [4+C, N] layout. Rows 0-3 hold the box center and
// size in input pixels, rows 4.. hold the per-class scores.
func decodeAnchors(output []float32, cfg Config, confidence float32) ([]common.BoundingBox, error) {
	rows := 4 + cfg.Classes.Len()
	if cfg.Classes.Len() == 0 || len(output) == 0 || len(output)%rows != 0 {
		return nil, errors.Errorf("output of %d values does not fit %d rows", len(output), rows)
	}
	cols := len(output) / rows
	if cfg.Anchors > 0 && cols != cfg.Anchors {
		return nil, errors.Errorf("output of %d values does not fit %d rows by %d anchors", len(output), rows, cfg.Anchors)
	}

	t := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(output))

	at := func(r, c int) (float32, error) {
		v, err := t.At(r, c)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read output at (%d, %d)", r, c)
		}
		return v.(float32), nil
	}

	boxes := make([]common.BoundingBox, 0, 64)
	for idx := 0; idx < cols; idx++ {
		classID := 0
		probability := float32(-1e9)
		for c := 0; c < cfg.Classes.Len(); c++ {
			p, err := at(4+c, idx)
			if err != nil {
				return nil, err
			}
			if p > probability {
				probability = p
				classID = c
			}
		}
		if probability < confidence {
			continue
		}

		var geom [4]float32
		for r := range geom {
			v, err := at(r, idx)
			if err != nil {
				return nil, err
			}
			geom[r] = v
		}
		xc, yc, w, h := geom[0], geom[1], geom[2], geom[3]

		label, err := cfg.Classes.Name(classID)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, common.BoundingBox{
			Label:      label,
			Confidence: probability,
			X1:         xc - w/2,
			Y1:         yc - h/2,
			X2:         xc + w/2,
			Y2:         yc + h/2,
		})
	}
	return boxes, nil
}

// decodeEndToEnd reads the [N, 6] layout of corner boxes in input pixels.
func decodeEndToEnd(output []float32, cfg Config, confidence float32) ([]common.BoundingBox, error) {
	if len(output) == 0 || len(output)%EndToEndStride != 0 {
		return nil, errors.Errorf("output of %d values is not a multiple of %d", len(output), EndToEndStride)
	}
	rows := len(output) / EndToEndStride
	t := tensor.New(tensor.WithShape(rows, EndToEndStride), tensor.WithBacking(output))

	boxes := make([]common.BoundingBox, 0, 64)
	for r := 0; r < rows; r++ {
		var row [EndToEndStride]float32
		for c := range row {
			v, err := t.At(r, c)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read output at (%d, %d)", r, c)
			}
			row[c] = v.(float32)
		}
		// Unused candidate slots are zero-padded.
		if row[4] <= 0 {
			continue
		}
		label, err := cfg.Classes.Name(int(row[5]))
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, common.BoundingBox{
			Label:      label,
			Confidence: row[4],
			X1:         row[0],
			Y1:         row[1],
			X2:         row[2],
			Y2:         row[3],
		})
	}
	return postprocess.FilterByConfidence(boxes, confidence), nil
}

func clamp(v, max float32) float32 {
	return math32.Min(math32.Max(v, 0), max)
}
