package images

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	boxColor  = color.RGBA{R: 0, G: 200, B: 60, A: 255}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	boxThickness = 2
	fontScale    = 0.5
)

// Annotate draws every box with its label and confidence onto a copy of img.
//
// Arguments:
//   - img: The source image.
//   - boxes: Pixel-space detections.
//
// Returns:
//   - gocv.Mat: The annotated BGR image. The caller must Close it. On error
//     no native memory is held.
//   - error: An error if img is empty or cannot be converted.
func Annotate(img image.Image, boxes []common.BoundingBox) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.Mat{}, errors.New("cannot annotate an empty image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		mat.Close()
		return gocv.Mat{}, errors.Wrap(err, "failed to convert image to mat")
	}

	for i := range boxes {
		rect := boxes[i].ToRect()
		gocv.Rectangle(&mat, rect, boxColor, boxThickness)

		label := fmt.Sprintf("%s %.2f", boxes[i].Label, boxes[i].Confidence)
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, fontScale, 1)
		top := rect.Min.Y - size.Y - 4
		if top < 0 {
			top = rect.Min.Y
		}
		bg := image.Rect(rect.Min.X, top, rect.Min.X+size.X+4, top+size.Y+4)
		gocv.Rectangle(&mat, bg, boxColor, -1)
		gocv.PutText(&mat, label, image.Pt(bg.Min.X+2, bg.Max.Y-2),
			gocv.FontHersheySimplex, fontScale, textColor, 1)
	}
	return mat, nil
}

// SaveAnnotated writes the annotated image to path. The encoding follows
// the extension.
func SaveAnnotated(path string, img image.Image, boxes []common.BoundingBox) error {
	mat, err := Annotate(img, boxes)
	if err != nil {
		return err
	}
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		return errors.Errorf("failed to write annotated image %s", path)
	}
	return nil
}
