package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"empty backend", Config{}, false},
		{"cuda", Config{Backend: CUDAProviderBackend}, false},
		{"unknown backend", Config{Backend: "tensorrt"}, true},
		{"negative threads", Config{IntraOpThreads: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001|0x010), CoreMLOptions{CPUOnly: true, MLProgram: true}.Flags())
	assert.Equal(t, uint32(0x01f), CoreMLOptions{
		CPUOnly:                  true,
		EnableOnSubgraphs:        true,
		OnlyWithANE:              true,
		RequireStaticInputShapes: true,
		MLProgram:                true,
	}.Flags())
}

func TestCUDAOptionsToMap(t *testing.T) {
	assert.Equal(t, map[string]string{
		"device_id":                 "0",
		"do_copy_in_default_stream": "0",
	}, CUDAOptions{}.ToMap())

	assert.Equal(t, map[string]string{
		"device_id":                 "1",
		"do_copy_in_default_stream": "1",
		"gpu_mem_limit":             "2147483648",
		"cudnn_conv_algo_search":    "HEURISTIC",
	}, CUDAOptions{
		DeviceID:              1,
		GPUMemLimit:           2 << 30,
		CudnnConvAlgoSearch:   "HEURISTIC",
		DoCopyInDefaultStream: true,
	}.ToMap())
}

func TestOpenVINOOptionsToMap(t *testing.T) {
	assert.Equal(t, map[string]string{
		"device_type": "CPU",
		"precision":   "FP32",
	}, DefaultOpenVINOOptions().ToMap())

	assert.Equal(t, map[string]string{
		"device_type":    "GPU",
		"num_of_threads": "4",
		"num_streams":    "2",
		"cache_dir":      "/tmp/ov",
	}, OpenVINOOptions{DeviceType: "GPU", NumOfThreads: 4, NumStreams: 2, CacheDir: "/tmp/ov"}.ToMap())
}
