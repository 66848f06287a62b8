package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is any other extension.
	FormatUnknown ImageFormat = ""
)

// FormatFromPath returns the format implied by a file extension.
//
// @example
// FormatFromPath("plant_01.JPG") // FormatJPEG
func FormatFromPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// Extension returns the canonical file extension, with the dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	default:
		return ""
	}
}

// Supported reports whether the format can be decoded.
func (f ImageFormat) Supported() bool {
	return f != FormatUnknown
}
