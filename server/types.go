package server

import (
	"time"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/growth"
	"github.com/nvr-ai/horti-vision/models"
)

// Point is a pixel position.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Size is a pixel extent.
type Size struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Detection is one detected head as reported by the API.
type Detection struct {
	// BBox is [x1, y1, x2, y2] in pixels.
	BBox       [4]float32 `json:"bbox"`
	Confidence float32    `json:"confidence"`
	Class      string     `json:"class"`
	Center     Point      `json:"center"`
	Size       Size       `json:"size"`
}

// NewDetection converts a detector box into its API form.
func NewDetection(b common.BoundingBox) Detection {
	class := b.Label
	if class == "" {
		class = models.TomatoHead
	}
	return Detection{
		BBox:       [4]float32{b.X1, b.Y1, b.X2, b.Y2},
		Confidence: b.Confidence,
		Class:      class,
		Center:     Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2},
		Size:       Size{Width: b.Width(), Height: b.Height()},
	}
}

// Dimensions is an image size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectionResult is the stored and returned outcome of one detection.
type DetectionResult struct {
	DetectionID       string      `json:"detection_id"`
	Timestamp         time.Time   `json:"timestamp"`
	ModelUsed         string      `json:"model_used"`
	Detections        []Detection `json:"detections"`
	TotalTomatoes     int         `json:"total_tomatoes"`
	AverageConfidence float64     `json:"average_confidence"`
	ImageDimensions   Dimensions  `json:"image_dimensions"`
	ProcessingTimeMS  float64     `json:"processing_time_ms"`
	GreenhouseID      *string     `json:"greenhouse_id"`
}

// Sample reduces the result to its growth analysis input.
func (r *DetectionResult) Sample() growth.Sample {
	areas := make([]float64, 0, len(r.Detections))
	for _, d := range r.Detections {
		areas = append(areas, float64(d.Size.Width)*float64(d.Size.Height))
	}
	return growth.Sample{Timestamp: r.Timestamp, Count: r.TotalTomatoes, Areas: areas}
}

// BatchFailure is reported in place of a result for a file that failed.
type BatchFailure struct {
	Error    string `json:"error"`
	Filename string `json:"filename"`
}

// BatchResponse is the body of /batch-process. Results holds a
// *DetectionResult or a BatchFailure per file, in upload order.
type BatchResponse struct {
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Results    []interface{} `json:"results"`
}

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Service         string   `json:"service"`
	Status          string   `json:"status"`
	CurrentModel    string   `json:"current_model"`
	AvailableModels []string `json:"available_models"`
}

// MessageResponse carries a plain message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
