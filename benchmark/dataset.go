package benchmark

import (
	"os"
	"path/filepath"

	"github.com/nvr-ai/horti-vision/labels"
	"github.com/nvr-ai/horti-vision/util"
	"github.com/pkg/errors"
)

// Splits of the labeled dataset.
var Splits = []string{"train", "valid", "test"}

// timestampStride is the spacing of the sampled capture timestamps.
const timestampStride = 60

// SplitInfo counts the files of one labeled split.
type SplitInfo struct {
	Name   string `json:"name"`
	Images int    `json:"images"`
	Labels int    `json:"labels"`
}

// TimeSeriesInfo describes the time-series capture.
type TimeSeriesInfo struct {
	TotalImages      int      `json:"total_images"`
	FirstTimestamp   string   `json:"first_timestamp,omitempty"`
	LastTimestamp    string   `json:"last_timestamp,omitempty"`
	SampleTimestamps []string `json:"sample_timestamps,omitempty"`
}

// DatasetInfo summarizes the dataset layout.
type DatasetInfo struct {
	Splits             []SplitInfo     `json:"splits,omitempty"`
	TotalLabeledImages int             `json:"total_labeled_images"`
	LabelFormat        labels.Format   `json:"label_format"`
	TimeSeries         *TimeSeriesInfo `json:"timeseries,omitempty"`
}

func exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// countFiles counts the files of dir with one of exts. A missing directory
// counts as empty.
func countFiles(dir string, exts ...string) ([]string, error) {
	if !exists(dir) {
		return nil, nil
	}
	return util.ListImages(dir, exts...)
}

// AnalyzeDataset inspects the labeled splits and the time-series capture
// described by cfg. Missing parts are left out of the result.
//
// Arguments:
//   - cfg: The run configuration naming the dataset directories.
//
// Returns:
//   - The dataset summary.
//   - error: An error if an existing directory cannot be read.
func AnalyzeDataset(cfg *Config) (*DatasetInfo, error) {
	info := &DatasetInfo{LabelFormat: labels.FormatUnknown}

	if root := cfg.TrainingPath(); exists(root) {
		for _, split := range Splits {
			imgs, err := countFiles(filepath.Join(root, split, "images"), util.LabeledExtensions...)
			if err != nil {
				return nil, err
			}
			lbls, err := countFiles(filepath.Join(root, split, labels.Dir), labels.Ext)
			if err != nil {
				return nil, err
			}
			info.Splits = append(info.Splits, SplitInfo{Name: split, Images: len(imgs), Labels: len(lbls)})
			info.TotalLabeledImages += len(imgs)

			if info.LabelFormat == labels.FormatUnknown && len(lbls) > 0 {
				format, err := labels.DetectFormat(lbls[0])
				if err != nil {
					return nil, errors.Wrap(err, "failed to detect label format")
				}
				info.LabelFormat = format
			}
		}
	}

	if dir := cfg.TimeSeriesPath(); exists(dir) {
		frames, err := util.ListImages(dir, util.TimeSeriesExtensions...)
		if err != nil {
			return nil, err
		}
		ts := &TimeSeriesInfo{TotalImages: len(frames)}
		if len(frames) > 0 {
			ts.FirstTimestamp = util.TimestampFromName(frames[0])
			ts.LastTimestamp = util.TimestampFromName(frames[len(frames)-1])
			for i := 0; i < len(frames); i += timestampStride {
				ts.SampleTimestamps = append(ts.SampleTimestamps, util.TimestampFromName(frames[i]))
			}
		}
		info.TimeSeries = ts
	}

	return info, nil
}
