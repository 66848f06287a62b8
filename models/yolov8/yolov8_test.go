package yolov8

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/horti-vision/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anchorOutput lays candidates out as [5, N]: xc, yc, w, h, score.
func anchorOutput(candidates [][5]float32) []float32 {
	n := len(candidates)
	out := make([]float32, 5*n)
	for c, cand := range candidates {
		for r := 0; r < 5; r++ {
			out[r*n+c] = cand[r]
		}
	}
	return out
}

func TestPostProcessAnchors(t *testing.T) {
	output := anchorOutput([][5]float32{
		{320, 320, 64, 64, 0.9},
		{322, 320, 64, 64, 0.8},
		{100, 100, 20, 20, 0.1},
		{600, 40, 100, 100, 0.5},
	})

	cfg := DefaultConfig()
	cfg.Anchors = 4
	boxes, err := PostProcess(output, cfg, 0.25, 1280, 640)
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	assert.Equal(t, models.TomatoHead, boxes[0].Label)
	assert.Equal(t, float32(0.9), boxes[0].Confidence)
	assert.InDelta(t, 576, boxes[0].X1, 1e-3)
	assert.InDelta(t, 288, boxes[0].Y1, 1e-3)
	assert.InDelta(t, 704, boxes[0].X2, 1e-3)
	assert.InDelta(t, 352, boxes[0].Y2, 1e-3)

	// Clipped to the image.
	assert.InDelta(t, 1100, boxes[1].X1, 1e-3)
	assert.InDelta(t, 1280, boxes[1].X2, 1e-3)
	assert.InDelta(t, 0, boxes[1].Y1, 1e-3)
}

func TestPostProcessAnchorsBadLength(t *testing.T) {
	_, err := PostProcess(make([]float32, 7), DefaultConfig(), 0.25, 640, 640)
	assert.Error(t, err)

	_, err = PostProcess(nil, DefaultConfig(), 0.25, 640, 640)
	assert.Error(t, err)
}

func TestPostProcessAnchorsClassMismatch(t *testing.T) {
	// A two-class export decoded with the single tomato class.
	output := make([]float32, 6*Anchors)
	output[0*Anchors] = 320
	output[1*Anchors] = 320
	output[2*Anchors] = 100
	output[3*Anchors] = 100
	output[5*Anchors] = 0.9

	_, err := PostProcess(output, DefaultConfig(), 0.25, 640, 640)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Classes = models.OutputClassSet{Classes: []models.OutputClass{
		{Index: 0, Name: "a"},
		{Index: 1, Name: "b"},
	}}
	boxes, err := PostProcess(output, cfg, 0.25, 640, 640)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "b", boxes[0].Label)
	assert.InDelta(t, 270, boxes[0].X1, 1e-3)
	assert.InDelta(t, 370, boxes[0].Y2, 1e-3)
}

func TestCheckOutputShape(t *testing.T) {
	assert.NoError(t, CheckOutputShape([]int64{1, 5, 8400}, 1))
	assert.NoError(t, CheckOutputShape([]int64{1, -1, -1}, 1))
	assert.NoError(t, CheckOutputShape([]int64{1, 300, 6}, 1))
	assert.Error(t, CheckOutputShape([]int64{1, 6, 8400}, 1))
	assert.Error(t, CheckOutputShape([]int64{1, 8400}, 1))
}

func TestPostProcessEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Head = HeadEndToEnd

	output := []float32{
		10, 20, 110, 220, 0.6, 0,
		0, 0, 5, 5, 0.1, 0,
		10, 20, 110, 220, 0.9, 0,
	}
	boxes, err := PostProcess(output, cfg, 0.25, 640, 640)
	require.NoError(t, err)
	// No suppression for the end-to-end head.
	require.Len(t, boxes, 2)
	assert.Equal(t, float32(0.9), boxes[0].Confidence)
	assert.Equal(t, float32(110), boxes[1].X2)

	output[5] = 3
	_, err = PostProcess(output, cfg, 0.25, 640, 640)
	assert.Error(t, err, "unknown class index")
}

func TestHeadForShape(t *testing.T) {
	assert.Equal(t, HeadEndToEnd, HeadForShape([]int64{1, 300, 6}))
	assert.Equal(t, HeadAnchors, HeadForShape([]int64{1, 5, 8400}))
	assert.Equal(t, []int64{1, 5, Anchors}, OutputShape(HeadAnchors, 1))
	assert.Equal(t, []int64{1, EndToEndCandidates, EndToEndStride}, OutputShape(HeadEndToEnd, 1))
}

func TestPreProcess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	dst := make([]float32, InputLen)
	require.NoError(t, PreProcess(img, dst))

	plane := InputSize * InputSize
	for _, i := range []int{0, plane / 2, plane - 1} {
		assert.InDelta(t, 1.0, dst[i], 1e-6)
		assert.InDelta(t, 0.0, dst[plane+i], 1e-6)
		assert.InDelta(t, 0.2, dst[2*plane+i], 1e-6)
	}

	assert.Error(t, PreProcess(img, make([]float32, 10)))
}
