package inference

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/pkg/errors"
)

// Detector finds tomato heads in an image.
type Detector interface {
	// Detect returns pixel-space boxes scoring at least confidence, most
	// confident first.
	Detect(ctx context.Context, img image.Image, confidence float32) ([]common.BoundingBox, error)
	// Close releases the detector's resources.
	Close() error
}

// Loader creates a detector for a registered model.
type Loader func(m models.Model) (Detector, error)

// TimedDetect runs d and measures the inference wall time.
//
// Arguments:
//   - ctx: The context for the detection.
//   - d: The detector.
//   - img: The decoded image.
//   - confidence: The minimum confidence to keep.
//
// Returns:
//   - The detections, the elapsed time, and any detector error.
func TimedDetect(
	ctx context.Context,
	d Detector,
	img image.Image,
	confidence float32,
) ([]common.BoundingBox, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	boxes, err := d.Detect(ctx, img, confidence)
	return boxes, time.Since(start), err
}

// Cache keeps one detector per model, loading each on first use.
type Cache struct {
	mu        sync.Mutex
	registry  *models.Registry
	load      Loader
	detectors map[string]Detector
}

// NewCache creates a cache that resolves names through registry.
func NewCache(registry *models.Registry, load Loader) *Cache {
	return &Cache{
		registry:  registry,
		load:      load,
		detectors: make(map[string]Detector),
	}
}

// Get returns the detector for name, loading it if needed.
//
// Arguments:
//   - name: The registry key of the model.
//
// Returns:
//   - The detector, or an error wrapping models.ErrModelNotFound or the load failure.
func (c *Cache) Get(name string) (Detector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.detectors[name]; ok {
		return d, nil
	}
	m, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}
	d, err := c.load(m)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load model %s", name)
	}
	c.detectors[name] = d
	return d, nil
}

// Loaded returns the names of the detectors currently held.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.detectors))
	for name := range c.detectors {
		names = append(names, name)
	}
	return names
}

// Close closes every loaded detector and empties the cache.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for name, d := range c.detectors {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close model %s", name)
		}
		delete(c.detectors, name)
	}
	return firstErr
}
