// Package providers - CPU based execution provider.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// applyThreads sets the thread pools that the CPU kernels run on. Other
// providers fall back to the CPU for unsupported nodes, so it is applied for
// every backend.
func applyThreads(options *ort.SessionOptions, cfg Config) error {
	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			return errors.Wrap(err, "error setting inter-op threads")
		}
	}
	return nil
}
