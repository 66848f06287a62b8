// Package benchmark - Baseline evaluation of the tomato detection models.
package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/horti-vision/evaluation"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config contains the settings of a baseline evaluation run.
type Config struct {
	// DataDir is the dataset root.
	DataDir string `json:"data_dir" yaml:"data_dir"`
	// TrainingDir is the labeled dataset under DataDir, with train, valid
	// and test splits.
	TrainingDir string `json:"training_dir" yaml:"training_dir"`
	// TestSplit is the split evaluated against ground truth.
	TestSplit string `json:"test_split" yaml:"test_split"`
	// TimeSeriesDir is the unlabeled, time-ordered capture under DataDir.
	TimeSeriesDir string `json:"time_series_dir" yaml:"time_series_dir"`
	// OutputDir receives the JSON and CSV reports.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// SampleSize is how many time-series frames are evaluated.
	SampleSize int `json:"sample_size" yaml:"sample_size"`
	// Confidence is the minimum detection confidence.
	Confidence float32 `json:"confidence" yaml:"confidence"`
	// Evaluation holds the matching thresholds.
	Evaluation evaluation.Config `json:"evaluation" yaml:"evaluation"`
	// Concurrency is how many models are evaluated at once.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
	// Models restricts the run to these registry names. Empty means all.
	Models []string `json:"models" yaml:"models"`
	// Progress enables progress bars on stderr.
	Progress bool `json:"progress" yaml:"progress"`
}

// DefaultConfig returns the default baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "data",
		TrainingDir:   "training_version_2",
		TestSplit:     "test",
		TimeSeriesDir: "Total",
		OutputDir:     "baseline_results",
		SampleSize:    100,
		Confidence:    0.25,
		Evaluation:    evaluation.DefaultConfig(),
		Concurrency:   1,
		Progress:      true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if c.SampleSize <= 0 {
		return errors.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.Errorf("confidence must be in [0, 1], got %v", c.Confidence)
	}
	if c.Concurrency < 1 {
		return errors.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return c.Evaluation.Validate()
}

// TrainingPath returns the labeled dataset directory.
func (c *Config) TrainingPath() string {
	return filepath.Join(c.DataDir, c.TrainingDir)
}

// TestPath returns the split evaluated against ground truth.
func (c *Config) TestPath() string {
	return filepath.Join(c.TrainingPath(), c.TestSplit)
}

// TimeSeriesPath returns the time-series capture directory.
func (c *Config) TimeSeriesPath() string {
	return filepath.Join(c.DataDir, c.TimeSeriesDir)
}

// LoadConfig reads a YAML or JSON configuration over DefaultConfig.
//
// Arguments:
//   - path: The configuration file. ".json" selects JSON, anything else YAML.
//
// Returns:
//   - The configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
