package images

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nvr-ai/horti-vision/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func getTestImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	return img
}

func encode(t *testing.T, format imaging.Format) []byte {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, getTestImage(), format))
	return buf.Bytes()
}

func getWebPBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, getTestImage(), &webp.Options{Quality: 80}))
	return buf.Bytes()
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want ImageFormat
	}{
		{"a.jpg", FormatJPEG},
		{"b.JPEG", FormatJPEG},
		{"c.png", FormatPNG},
		{"dir/d.webp", FormatWebP},
		{"e.gif", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
	assert.Equal(t, ".jpg", FormatJPEG.Extension())
	assert.False(t, FormatUnknown.Supported())
}

func TestDecode(t *testing.T) {
	for name, data := range map[ImageFormat][]byte{
		FormatJPEG: encode(t, imaging.JPEG),
		FormatPNG:  encode(t, imaging.PNG),
		FormatWebP: getWebPBytes(t),
	} {
		t.Run(string(name), func(t *testing.T) {
			in := &Image{Format: name, Data: data}
			img, err := DecodeImage(in)
			require.NoError(t, err)
			assert.Equal(t, 120, img.Bounds().Dx())
			assert.Equal(t, 120, in.Width)
			assert.Equal(t, 80, in.Height)
		})
	}

	_, err := Decode(nil, FormatPNG)
	assert.Error(t, err)
	_, err = Decode([]byte("not an image"), FormatJPEG)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "frame.png")
	require.NoError(t, imaging.Save(getTestImage(), pngPath))
	img, err := Load(pngPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())

	webpPath := filepath.Join(dir, "frame.webp")
	require.NoError(t, os.WriteFile(webpPath, getWebPBytes(t), 0o644))
	img, err = Load(webpPath)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dy())

	_, err = Load(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestSaveAnnotated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotated.jpg")
	boxes := []common.BoundingBox{
		{Label: "tomato_head", Confidence: 0.91, X1: 10, Y1: 20, X2: 50, Y2: 60},
		{Label: "tomato_head", Confidence: 0.42, X1: 0, Y1: 0, X2: 30, Y2: 10},
	}

	require.NoError(t, SaveAnnotated(path, getTestImage(), boxes))

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	require.False(t, mat.Empty())
	assert.Equal(t, 120, mat.Cols())
	assert.Equal(t, 80, mat.Rows())
}

func TestAnnotateEmptyImage(t *testing.T) {
	mat, err := Annotate(image.NewRGBA(image.Rectangle{}), nil)
	assert.Error(t, err)
	assert.Equal(t, gocv.Mat{}, mat)

	path := filepath.Join(t.TempDir(), "empty.jpg")
	assert.Error(t, SaveAnnotated(path, image.NewRGBA(image.Rectangle{}), nil))
	assert.NoFileExists(t, path)
}
