// Package labels - Ground-truth label files in YOLO text format.
//
// Each line holds `class_id x1 y1 x2 y2 ... xn yn` with coordinates normalized
// to the image size. Two points describe a bounding box by its corners, more
// points describe a polygon; either way the axis-aligned bounding rectangle
// of all points is used.
package labels

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/pkg/errors"
)

// MinTokens is the smallest number of whitespace-separated tokens a label
// line must have: a class identifier followed by four coordinates.
const MinTokens = 5

// Dir is the name of the directory holding label files next to the images.
const Dir = "labels"

// Ext is the label file extension.
const Ext = ".txt"

// Format describes how annotations are stored in a label file.
type Format string

const (
	// FormatUnknown means the file had no usable line.
	FormatUnknown Format = "unknown"
	// FormatBoundingBox is one box (four coordinates) per line.
	FormatBoundingBox Format = "bounding_box"
	// FormatPolygon is a polygon outline (more than four coordinates) per line.
	FormatPolygon Format = "polygon"
)

// ParseLine parses a single label line.
//
// Arguments:
//   - line: One line of a label file.
//
// Returns:
//   - The ground-truth box derived from the line.
//   - false when the line is blank, has fewer than MinTokens tokens or holds
//     a value that is not a number.
func ParseLine(line string) (common.GroundTruthBox, bool) {
	parts := strings.Fields(line)
	if len(parts) < MinTokens {
		return common.GroundTruthBox{}, false
	}

	class, err := strconv.Atoi(parts[0])
	if err != nil {
		return common.GroundTruthBox{}, false
	}

	coords := make([]float64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return common.GroundTruthBox{}, false
		}
		coords = append(coords, v)
	}

	return common.GroundTruthBox{
		Box:   BoundingRect(coords),
		Class: class,
	}, true
}

// BoundingRect returns the axis-aligned bounding box of a flat list of
// coordinates, taking even positions as x and odd positions as y.
//
// @example
// b := BoundingRect([]float64{0.1, 0.1, 0.3, 0.1, 0.3, 0.4, 0.1, 0.4})
// // b == Box{X: 0.2, Y: 0.25, Width: 0.2, Height: 0.3}
func BoundingRect(coords []float64) common.Box {
	if len(coords) == 0 {
		return common.Box{}
	}

	xMin, xMax := coords[0], coords[0]
	yMin, yMax := 0.0, 0.0
	if len(coords) > 1 {
		yMin, yMax = coords[1], coords[1]
	}

	for i, v := range coords {
		if i%2 == 0 {
			xMin = min(xMin, v)
			xMax = max(xMax, v)
		} else {
			yMin = min(yMin, v)
			yMax = max(yMax, v)
		}
	}

	return common.BoxFromCorners(xMin, yMin, xMax, yMax)
}

// Parse reads every label line from r. Malformed lines are skipped.
func Parse(r io.Reader) ([]common.GroundTruthBox, error) {
	var boxes []common.GroundTruthBox

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if box, ok := ParseLine(scanner.Text()); ok {
			boxes = append(boxes, box)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan labels")
	}

	return boxes, nil
}

// Load reads the label file at path.
//
// A missing file is not an error: the image simply has no ground truth.
//
// Arguments:
//   - path: The label file path.
//
// Returns:
//   - The ground-truth boxes, empty when the file does not exist.
//   - An error if the file exists but cannot be read.
func Load(path string) ([]common.GroundTruthBox, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to open label file %s", path)
	}
	defer f.Close()

	boxes, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse label file %s", path)
	}
	return boxes, nil
}

// PathFor returns the label file for an image stored as
// <split>/images/<stem>.<ext>, which is <split>/labels/<stem>.txt.
func PathFor(imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	split := filepath.Dir(filepath.Dir(imagePath))
	return filepath.Join(split, Dir, stem+Ext)
}

// LoadFor loads the labels belonging to an image.
func LoadFor(imagePath string) ([]common.GroundTruthBox, error) {
	return Load(PathFor(imagePath))
}

// DetectFormat inspects the first usable line of a label file.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, errors.Wrapf(err, "failed to open label file %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < MinTokens {
			continue
		}
		if len(parts) > MinTokens {
			return FormatPolygon, nil
		}
		return FormatBoundingBox, nil
	}
	if err := scanner.Err(); err != nil {
		return FormatUnknown, errors.Wrapf(err, "failed to scan label file %s", path)
	}

	return FormatUnknown, nil
}
