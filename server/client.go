package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/pkg/errors"
)

// ClientConfig configures detection through a running service.
type ClientConfig struct {
	// BaseURL is the service root, e.g. "http://localhost:8000".
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Timeout bounds a single request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// JPEGQuality is the quality uploads are encoded with.
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`
}

// DefaultClientConfig returns the settings for a local service.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:     "http://localhost:8000",
		Timeout:     60 * time.Second,
		JPEGQuality: 95,
	}
}

// Client is a detector that uploads each image to POST /detect.
type Client struct {
	endpoint *url.URL
	model    string
	quality  int
	http     *http.Client
}

// NewClientLoader returns an inference.Loader that evaluates models through
// the service at cfg.BaseURL instead of loading them locally.
func NewClientLoader(cfg ClientConfig) inference.Loader {
	return func(m models.Model) (inference.Detector, error) {
		return NewClient(cfg, m.Name)
	}
}

// NewClient creates a detector for one model served remotely.
//
// Arguments:
//   - cfg: The service location and request settings.
//   - model: The registry name sent as the model parameter.
//
// Returns:
//   - *Client: The detector.
//   - error: An error if the base URL is not an http(s) URL.
func NewClient(cfg ClientConfig, model string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid service url %q", cfg.BaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, errors.Errorf("service url %q must be http or https", cfg.BaseURL)
	}

	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultClientConfig().JPEGQuality
	}
	return &Client{
		endpoint: base.JoinPath("detect"),
		model:    model,
		quality:  quality,
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Detect uploads img and converts the returned detections back to boxes.
func (c *Client) Detect(ctx context.Context, img image.Image, confidence float32) ([]common.BoundingBox, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create upload")
	}
	if err := imaging.Encode(part, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, errors.Wrap(err, "failed to encode upload")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish upload")
	}

	target := *c.endpoint
	q := target.Query()
	q.Set("model", c.model)
	q.Set("confidence_threshold", strconv.FormatFloat(float64(confidence), 'f', -1, 32))
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", c.endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, errors.Errorf("detect returned %d: %s", resp.StatusCode, e.Detail)
	}

	var result DetectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode detection result")
	}

	boxes := make([]common.BoundingBox, 0, len(result.Detections))
	for _, d := range result.Detections {
		boxes = append(boxes, common.BoundingBox{
			Label:      d.Class,
			Confidence: d.Confidence,
			X1:         d.BBox[0],
			Y1:         d.BBox[1],
			X2:         d.BBox[2],
			Y2:         d.BBox[3],
		})
	}
	return boxes, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
