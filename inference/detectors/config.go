// Package detectors - ONNX Runtime implementations of inference.Detector.
package detectors

import (
	"github.com/nvr-ai/horti-vision/inference/providers"
	"github.com/nvr-ai/horti-vision/models/postprocess"
)

// Config represents the configuration shared by every YOLO detector.
type Config struct {
	// Execution provider configuration.
	Provider providers.Config `json:"provider" yaml:"provider"`

	// NMSThreshold controls the Non-Maximum Suppression IoU threshold.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`

	// Warmup is the number of blank inferences run after loading.
	Warmup int `json:"warmup" yaml:"warmup"`
}

// DefaultConfig returns a CPU configuration with the export's default NMS.
//
// @example
// cfg := DefaultConfig()
// cfg.Provider.Backend = providers.CUDAProviderBackend
// load := NewLoader(cfg)
func DefaultConfig() Config {
	return Config{
		Provider:     providers.DefaultConfig(),
		NMSThreshold: postprocess.DefaultIoUThreshold,
	}
}
