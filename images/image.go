// Package images - Image decoding, resizing and annotation.
package images

import (
	"bytes"
	"image"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Load reads and decodes an image file, applying its EXIF orientation.
//
// Arguments:
//   - path: The image file. WebP is detected by extension.
//
// Returns:
//   - The decoded image.
//   - error: An error if the file cannot be read or decoded.
func Load(path string) (image.Image, error) {
	if FormatFromPath(path) == FormatWebP {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		return Decode(data, FormatWebP)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return img, nil
}

// Decode decodes image bytes.
//
// Arguments:
//   - data: The encoded image.
//   - format: FormatWebP selects the WebP decoder; anything else is sniffed.
//
// Returns:
//   - The decoded image.
//   - error: An error if data is empty or cannot be decoded.
func Decode(data []byte, format ImageFormat) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	if format == FormatWebP {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode WebP")
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	return img, nil
}

// DecodeImage decodes an Image and fills in its dimensions.
func DecodeImage(in *Image) (image.Image, error) {
	img, err := Decode(in.Data, in.Format)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	in.Width, in.Height = b.Dx(), b.Dy()
	return img, nil
}
