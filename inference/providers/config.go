package providers

import "github.com/pkg/errors"

// Config selects an execution provider and its options.
type Config struct {
	// Backend is the execution provider. Empty means CPU.
	Backend ProviderBackend `json:"backend" yaml:"backend"`

	// IntraOpThreads parallelizes execution within graph nodes. 0 uses the
	// runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`

	// InterOpThreads parallelizes execution across graph nodes. 0 uses the
	// runtime default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`

	CUDA     CUDAOptions     `json:"cuda"     yaml:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml"   yaml:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns the CPU provider with runtime-chosen threading.
//
// @example
// cfg := DefaultConfig()
// cfg.Backend = CoreMLProviderBackend
// options, err := SessionOptions(cfg)
func DefaultConfig() Config {
	return Config{
		Backend:  CPUProviderBackend,
		OpenVINO: DefaultOpenVINOOptions(),
	}
}

// Validate checks the backend name and thread counts.
func (c Config) Validate() error {
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.Errorf("thread counts must not be negative, got intra=%d inter=%d",
			c.IntraOpThreads, c.InterOpThreads)
	}
	if c.Backend == "" {
		return nil
	}
	for _, b := range Backends {
		if c.Backend == b {
			return nil
		}
	}
	return errors.Errorf("unsupported execution provider %q", c.Backend)
}
