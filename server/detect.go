package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/horti-vision/images"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// formatOf picks the image format from the file name, falling back to
// content sniffing.
func formatOf(filename string, data []byte) images.ImageFormat {
	if f := images.FormatFromPath(filename); f.Supported() {
		return f
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return images.FormatJPEG
	case "image/png":
		return images.FormatPNG
	case "image/webp":
		return images.FormatWebP
	default:
		return images.FormatUnknown
	}
}

// detect runs one upload through the named model, stores the upload, the
// annotated image and the result, and returns the result.
//
// Arguments:
//   - ctx: The request context.
//   - filename: The client file name, used for the format.
//   - data: The encoded image.
//   - model: The registry name of the model.
//   - confidence: The minimum detection confidence.
//   - greenhouseID: The optional greenhouse tag.
//
// Returns:
//   - The stored result.
//   - error: A statusError for client mistakes, otherwise a wrapped failure.
func (s *Server) detect(
	ctx context.Context,
	filename string,
	data []byte,
	model string,
	confidence float32,
	greenhouseID string,
) (*DetectionResult, error) {
	start := time.Now()
	defer s.profiler.StartOperation("detect")()
	id := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"detection_id": id, "model": model})

	format := formatOf(filename, data)
	if !format.Supported() {
		return nil, badRequest("unsupported image type: %s", filename)
	}

	detector, err := s.cache.Get(model)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.SaveUpload(id, format.Extension(), data); err != nil {
		return nil, err
	}

	decoded := &images.Image{Format: format, Data: data}
	img, err := images.DecodeImage(decoded)
	if err != nil {
		return nil, &statusError{status: http.StatusBadRequest, err: err}
	}

	boxes, elapsed, err := inference.TimedDetect(ctx, detector, img, confidence)
	if err != nil {
		return nil, errors.Wrap(err, "detection failed")
	}
	s.profiler.Tracker("inference").Record(elapsed)
	s.setCurrentModel(model)

	if err := images.SaveAnnotated(s.store.AnnotatedPath(id), img, boxes); err != nil {
		log.WithError(err).Warn("failed to save annotated image")
	}

	detections := make([]Detection, 0, len(boxes))
	confidences := make([]float64, 0, len(boxes))
	for _, b := range boxes {
		detections = append(detections, NewDetection(b))
		confidences = append(confidences, float64(b.Confidence))
	}
	var avgConfidence float64
	if len(confidences) > 0 {
		avgConfidence = stat.Mean(confidences, nil)
	}

	result := &DetectionResult{
		DetectionID:       id,
		Timestamp:         time.Now().UTC(),
		ModelUsed:         model,
		Detections:        detections,
		TotalTomatoes:     len(detections),
		AverageConfidence: avgConfidence,
		ImageDimensions:   Dimensions{Width: decoded.Width, Height: decoded.Height},
	}
	if greenhouseID != "" {
		result.GreenhouseID = &greenhouseID
	}
	result.ProcessingTimeMS = float64(time.Since(start).Nanoseconds()) / 1e6

	if err := s.store.Save(result); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"tomatoes":  result.TotalTomatoes,
		"inference": elapsed.String(),
	}).Info("detection complete")
	return result, nil
}
