package providers

import (
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type (CPU, GPU, NPU).
	DeviceType string `json:"deviceType"   yaml:"deviceType"`
	// FP32, FP16 or ACCURACY.
	Precision string `json:"precision"    yaml:"precision"`
	// Overrides the accelerator default number of threads. 0 leaves the default.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads"`
	// Overrides the accelerator default streams. 0 leaves the default.
	NumStreams int `json:"numStreams"   yaml:"numStreams"`
	// Directory for compiled blobs. Empty disables caching.
	CacheDir string `json:"cacheDir"     yaml:"cacheDir"`
}

// DefaultOpenVINOOptions runs FP32 on the CPU device.
func DefaultOpenVINOOptions() OpenVINOOptions {
	return OpenVINOOptions{
		DeviceType: "CPU",
		Precision:  "FP32",
	}
}

// ToMap renders the options with the keys ONNX Runtime expects. Unset
// values are omitted.
func (o OpenVINOOptions) ToMap() map[string]string {
	m := map[string]string{}
	if o.DeviceType != "" {
		m["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		m["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		m["num_streams"] = strconv.Itoa(o.NumStreams)
	}
	if o.CacheDir != "" {
		m["cache_dir"] = o.CacheDir
	}
	return m
}

func appendOpenVINO(options *ort.SessionOptions, o OpenVINOOptions) error {
	return options.AppendExecutionProviderOpenVINO(o.ToMap())
}
