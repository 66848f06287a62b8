package benchmark

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// TimestampLayout formats the run timestamp in report file names.
const TimestampLayout = "20060102_150405"

// SummaryHeader is the header row of the CSV summary.
var SummaryHeader = []string{
	"model",
	"precision",
	"recall",
	"f1_score",
	"avg_iou",
	"inference_time_ms",
	"avg_detections",
	"detection_std",
	"timeseries_confidence",
}

// Report holds the paths written by SaveResults.
type Report struct {
	JSONPath string `json:"json_path"`
	CSVPath  string `json:"csv_path"`
}

// SaveResults persists the results to outputDir as
// "baseline_results_<ts>.json" and "baseline_summary_<ts>.csv".
//
// Arguments:
//   - outputDir: The report directory, created if needed.
//   - results: The run results.
//
// Returns:
//   - The written paths.
//   - error: An error if a file cannot be written.
func SaveResults(outputDir string, results *Results) (*Report, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	ts := results.Timestamp.Format(TimestampLayout)
	report := &Report{
		JSONPath: filepath.Join(outputDir, fmt.Sprintf("baseline_results_%s.json", ts)),
		CSVPath:  filepath.Join(outputDir, fmt.Sprintf("baseline_summary_%s.csv", ts)),
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(report.JSONPath, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write results file")
	}

	if err := saveSummaryCSV(report.CSVPath, results.Summary()); err != nil {
		return nil, errors.Wrap(err, "failed to save summary CSV")
	}
	return report, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func saveSummaryCSV(filename string, rows []SummaryRow) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(SummaryHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, len(SummaryHeader))
		record[0] = row.Model
		if row.HasTestSet {
			record[1] = formatFloat(row.Precision)
			record[2] = formatFloat(row.Recall)
			record[3] = formatFloat(row.F1Score)
			record[4] = formatFloat(row.AvgIoU)
			record[5] = formatFloat(row.InferenceTimeMS)
		}
		if row.HasTimeSeries {
			record[6] = formatFloat(row.AvgDetections)
			record[7] = formatFloat(row.DetectionStd)
			record[8] = formatFloat(row.TimeSeriesConfidence)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
