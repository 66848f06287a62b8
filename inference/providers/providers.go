// Package providers - ONNX Runtime execution provider selection.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend uses the default CPU kernels.
	CPUProviderBackend ProviderBackend = "cpu"
	// CUDAProviderBackend uses NVIDIA CUDA for GPU acceleration.
	CUDAProviderBackend ProviderBackend = "cuda"
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// Backends lists every supported backend.
var Backends = []ProviderBackend{
	CPUProviderBackend,
	CUDAProviderBackend,
	CoreMLProviderBackend,
	OpenVINOProviderBackend,
}

// SessionOptions builds ONNX Runtime session options for the configured
// backend. The caller owns the returned options and must Destroy them once
// the session has been created.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: Options with threading and the provider applied.
//   - error: An error if the configuration is invalid or the provider is unavailable.
func SessionOptions(cfg Config) (*ort.SessionOptions, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := applyThreads(options, cfg); err != nil {
		options.Destroy()
		return nil, err
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	switch cfg.Backend {
	case CUDAProviderBackend:
		err = appendCUDA(options, cfg.CUDA)
	case CoreMLProviderBackend:
		err = appendCoreML(options, cfg.CoreML)
	case OpenVINOProviderBackend:
		err = appendOpenVINO(options, cfg.OpenVINO)
	}
	if err != nil {
		options.Destroy()
		return nil, errors.Wrapf(err, "error enabling %s", cfg.Backend)
	}

	return options, nil
}
