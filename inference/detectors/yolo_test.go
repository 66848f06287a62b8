package detectors

import (
	"path/filepath"
	"testing"

	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/inference/providers"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, providers.CPUProviderBackend, cfg.Provider.Backend)
	assert.Equal(t, float32(0.7), cfg.NMSThreshold)
	assert.NoError(t, cfg.Provider.Validate())
}

func TestIsStatic(t *testing.T) {
	assert.True(t, isStatic([]int64{1, 5, 8400}))
	assert.False(t, isStatic([]int64{-1, 5, 8400}))
	assert.False(t, isStatic(nil))
}

func TestNewYOLOWithoutRuntime(t *testing.T) {
	t.Setenv(inference.SharedLibEnv, filepath.Join(t.TempDir(), "missing.so"))

	load := NewLoader(DefaultConfig())
	_, err := load(models.Model{Name: "yolov8n", Path: "yolov8n_tomato.onnx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "onnxruntime library not found")
}
