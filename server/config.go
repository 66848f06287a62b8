package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvr-ai/horti-vision/growth"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config contains the settings of the detection service.
type Config struct {
	// Addr is the listen address.
	Addr string `json:"addr" yaml:"addr"`
	// UploadDir stores the original uploads.
	UploadDir string `json:"upload_dir" yaml:"upload_dir"`
	// ResultsDir stores result JSON and annotated images.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
	// DefaultModel is used when a request names no model.
	DefaultModel string `json:"default_model" yaml:"default_model"`
	// Confidence is the default detection threshold for /detect.
	Confidence float32 `json:"confidence" yaml:"confidence"`
	// BatchConfidence is the threshold used by /batch-process.
	BatchConfidence float32 `json:"batch_confidence" yaml:"batch_confidence"`
	// GrowthWindowDays is the default analysis window of /analyze-growth.
	GrowthWindowDays int `json:"growth_window_days" yaml:"growth_window_days"`
	// MaxUploadBytes bounds the in-memory part of a multipart form.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	// AllowedOrigins are the CORS origins. "*" allows any origin.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	// ReadTimeout and WriteTimeout bound a request.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	// Growth holds the growth analysis thresholds.
	Growth growth.Config `json:"growth" yaml:"growth"`
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8000",
		UploadDir:        "uploads",
		ResultsDir:       "results",
		DefaultModel:     models.DefaultModel,
		Confidence:       0.4,
		BatchConfidence:  0.4,
		GrowthWindowDays: 7,
		MaxUploadBytes:   32 << 20,
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     60 * time.Second,
		Growth:           growth.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.UploadDir == "" || c.ResultsDir == "" {
		return errors.New("upload_dir and results_dir are required")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.Errorf("confidence must be in [0, 1], got %v", c.Confidence)
	}
	if c.BatchConfidence < 0 || c.BatchConfidence > 1 {
		return errors.Errorf("batch_confidence must be in [0, 1], got %v", c.BatchConfidence)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// LoadConfig reads a YAML or JSON file over DefaultConfig. The format
// follows the extension.
//
// Arguments:
//   - path: The configuration file.
//
// Returns:
//   - The merged configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, cfg.Validate()
}
