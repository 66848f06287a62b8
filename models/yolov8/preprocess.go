package yolov8

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// InputLen is the number of floats in one CHW input tensor.
const InputLen = 3 * InputSize * InputSize

// PreProcess resizes img to the network input and writes it into dst as
// planar RGB scaled to [0, 1].
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination tensor data, at least InputLen long.
//
// Returns:
//   - error: An error if dst is too small.
func PreProcess(img image.Image, dst []float32) error {
	channelSize := InputSize * InputSize
	if len(dst) < InputLen {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), InputLen)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	resized := resize.Resize(InputSize, InputSize, img, resize.Bilinear)
	bounds := resized.Bounds()

	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+InputSize; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+InputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
