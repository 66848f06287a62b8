// Package util - Dataset directory helpers.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Default image extensions for the labeled splits and the time-series capture.
var (
	LabeledExtensions    = []string{".jpg"}
	TimeSeriesExtensions = []string{".png"}
)

// ImageFile represents an image file from a time-ordered capture.
type ImageFile struct {
	// Path is the path to the image file.
	Path string `json:"path"`
	// Timestamp is the capture time parsed from the file name.
	Timestamp string `json:"timestamp"`
}

// ListImages returns the files in dir whose extension is one of exts,
// sorted by name. Extensions compare case-insensitively.
//
// Arguments:
// - dir: Directory path containing image files.
// - exts: Extensions with the leading dot, e.g. ".jpg".
//
// Returns:
// - []string: Full paths of the matching files.
// - error: Error if the directory cannot be read.
func ListImages(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list images in %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == strings.ToLower(want) {
				paths = append(paths, filepath.Join(dir, e.Name()))
				break
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// SampleEvenly picks up to n files spread across the whole list, taking
// every step-th file from the start where step is len(files)/n.
//
// Arguments:
// - files: The ordered file list.
// - n: The sample size.
//
// Returns:
// - []string: At most n files in their original order.
//
// @example
// SampleEvenly([]string{"a", "b", "c", "d", "e"}, 2) // ["a", "c"]
func SampleEvenly(files []string, n int) []string {
	if n <= 0 || len(files) == 0 {
		return nil
	}
	if n > len(files) {
		n = len(files)
	}
	step := len(files) / n

	out := make([]string, 0, n)
	for i := 0; i < len(files) && len(out) < n; i += step {
		out = append(out, files[i])
	}
	return out
}

// TimestampFromName extracts the capture time from a file name of the form
// "<timestamp>_<anything>.<ext>". Any '@' characters are removed.
//
// @example
// TimestampFromName("/data/Total/@1632144000_cam2.png") // "1632144000"
func TimestampFromName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(stem, "_"); i >= 0 {
		stem = stem[:i]
	}
	return strings.ReplaceAll(stem, "@", "")
}

// TimeSeries lists, samples and timestamps the capture images in dir.
//
// Arguments:
// - dir: The capture directory.
// - sampleSize: How many frames to keep.
//
// Returns:
// - []ImageFile: The sampled frames in name order.
// - error: Error if the directory cannot be read.
func TimeSeries(dir string, sampleSize int) ([]ImageFile, error) {
	paths, err := ListImages(dir, TimeSeriesExtensions...)
	if err != nil {
		return nil, err
	}

	sampled := SampleEvenly(paths, sampleSize)
	files := make([]ImageFile, 0, len(sampled))
	for _, p := range sampled {
		files = append(files, ImageFile{Path: p, Timestamp: TimestampFromName(p)})
	}
	return files, nil
}
