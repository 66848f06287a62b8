package benchmark

import (
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/evaluation"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/labels"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDetector returns the same boxes for every image.
type MockDetector struct {
	boxes  []common.BoundingBox
	closed atomic.Bool
}

func (m *MockDetector) Detect(_ context.Context, _ image.Image, confidence float32) ([]common.BoundingBox, error) {
	out := make([]common.BoundingBox, 0, len(m.boxes))
	for _, b := range m.boxes {
		if b.Confidence >= confidence {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockDetector) Close() error {
	m.closed.Store(true)
	return nil
}

// The polygon label below covers pixels (10,10)-(30,40) of a 100x100 image.
const polygonLabel = "0 0.1 0.1 0.3 0.1 0.3 0.4 0.1 0.4\n"

var mockBoxes = []common.BoundingBox{
	{Label: models.TomatoHead, Confidence: 0.9, X1: 10, Y1: 10, X2: 30, Y2: 40},
	{Label: models.TomatoHead, Confidence: 0.8, X1: 60, Y1: 60, X2: 90, Y2: 90},
	{Label: models.TomatoHead, Confidence: 0.1, X1: 0, Y1: 0, X2: 5, Y2: 5},
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := imaging.New(100, 100, color.NRGBA{R: 180, G: 40, B: 30, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newDataset lays out a small dataset and returns a config pointing at it.
func newDataset(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.Progress = false

	test := cfg.TestPath()
	writeImage(t, filepath.Join(test, "images", "a.jpg"))
	writeFile(t, filepath.Join(test, labels.Dir, "a.txt"), polygonLabel)
	writeImage(t, filepath.Join(test, "images", "b.jpg"))
	writeFile(t, filepath.Join(test, "images", "c.jpg"), "not a jpeg")

	train := filepath.Join(cfg.TrainingPath(), "train")
	writeImage(t, filepath.Join(train, "images", "t1.jpg"))
	writeImage(t, filepath.Join(train, "images", "t2.jpg"))
	writeFile(t, filepath.Join(train, labels.Dir, "t1.txt"), polygonLabel)

	for _, name := range []string{"@0800_cam.png", "@0830_cam.png", "@0900_cam.png"} {
		writeImage(t, filepath.Join(cfg.TimeSeriesPath(), name))
	}
	return cfg
}

func mockLoader(fail ...string) inference.Loader {
	return func(m models.Model) (inference.Detector, error) {
		for _, name := range fail {
			if m.Name == name {
				return nil, errors.New("corrupt model file")
			}
		}
		return &MockDetector{boxes: mockBoxes}, nil
	}
}

func TestEvaluateImage(t *testing.T) {
	cfg := newDataset(t)
	suite, err := NewSuite(cfg, models.DefaultRegistry("models"), mockLoader(), nil)
	require.NoError(t, err)

	path := filepath.Join(cfg.TestPath(), "images", "a.jpg")
	result, err := suite.EvaluateImage(context.Background(), &MockDetector{boxes: mockBoxes}, path)
	require.NoError(t, err)

	assert.Equal(t, path, result.Image)
	assert.Equal(t, 1, result.TruePositives)
	assert.Equal(t, 1, result.FalsePositives)
	assert.Equal(t, 0, result.FalseNegatives)
	assert.InDelta(t, 1.0, result.IoUSum, 1e-6)
	assert.Len(t, result.Confidences, 2)

	_, err = suite.EvaluateImage(context.Background(), &MockDetector{}, filepath.Join(cfg.TestPath(), "images", "c.jpg"))
	assert.Error(t, err)
}

func TestSuiteRun(t *testing.T) {
	cfg := newDataset(t)
	cfg.Models = []string{"yolov8n", "yolov9t"}
	suite, err := NewSuite(cfg, models.DefaultRegistry("models"), mockLoader("yolov9t"), nil)
	require.NoError(t, err)

	results, report, err := suite.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results.TestSet, 1)
	m := results.TestSet["yolov8n"]
	assert.Equal(t, 2, m.TotalImages)
	assert.Equal(t, 1, m.FailedImages)
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 3, m.FalsePositives)
	assert.Equal(t, 0, m.FalseNegatives)
	assert.InDelta(t, 0.25, m.Precision, 1e-9)
	assert.InDelta(t, 1.0, m.Recall, 1e-9)
	assert.InDelta(t, 0.4, m.F1Score, 1e-9)
	assert.InDelta(t, 2.0, m.AvgDetections, 1e-9)
	require.Len(t, results.Failures["yolov8n"], 1)
	assert.Equal(t, filepath.Join(cfg.TestPath(), "images", "c.jpg"), results.Failures["yolov8n"][0].Image)

	ts := results.TimeSeries["yolov8n"]
	assert.Equal(t, 3, ts.TotalImages)
	assert.InDelta(t, 2.0, ts.AvgDetections, 1e-9)
	assert.Zero(t, ts.StdDetections)
	require.Len(t, ts.Timeline, 3)
	assert.Equal(t, "0800", ts.Timeline[0].Timestamp)
	assert.NotContains(t, results.TimeSeries, "yolov9t")

	assert.Len(t, results.Runs, 2)
	require.NotNil(t, results.Dataset)
	assert.Equal(t, 5, results.Dataset.TotalLabeledImages)

	assert.FileExists(t, report.JSONPath)
	f, err := os.Open(report.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, SummaryHeader, rows[0])
	assert.Equal(t, []string{"yolov8n", "0.25", "1", "0.4"}, rows[1][:4])
	assert.Equal(t, "2", rows[1][6])
}

func TestSuiteRunParallel(t *testing.T) {
	cfg := newDataset(t)
	cfg.Concurrency = 3
	suite, err := NewSuite(cfg, models.DefaultRegistry("models"), mockLoader(), nil)
	require.NoError(t, err)

	got, err := suite.EvaluateTestSet(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for name, m := range got {
		assert.Equal(t, name, m.Model)
		assert.Equal(t, 1, m.TruePositives)
	}
}

func TestSuiteRunCancelled(t *testing.T) {
	cfg := newDataset(t)
	suite, err := NewSuite(cfg, models.DefaultRegistry("models"), mockLoader(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = suite.EvaluateTestSet(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuiteMissingData(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	cfg.Progress = false
	suite, err := NewSuite(cfg, models.DefaultRegistry("models"), mockLoader(), nil)
	require.NoError(t, err)

	_, _, err = suite.Run(context.Background())
	assert.Error(t, err)
}

func TestNewSuiteValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models = []string{"yolov5"}
	_, err := NewSuite(cfg, models.DefaultRegistry("models"), mockLoader(), nil)
	assert.ErrorIs(t, err, models.ErrModelNotFound)

	cfg = DefaultConfig()
	cfg.Concurrency = 0
	_, err = NewSuite(cfg, models.DefaultRegistry("models"), mockLoader(), nil)
	assert.Error(t, err)
}

func TestBestModel(t *testing.T) {
	r := NewResults(DefaultConfig())
	_, _, ok := r.BestModel()
	assert.False(t, ok)

	r.TestSet["yolov8n"] = evaluation.ModelMetrics{Model: "yolov8n", F1Score: 0.81}
	r.TestSet["yolov8s"] = evaluation.ModelMetrics{Model: "yolov8s", F1Score: 0.86}
	r.TestSet["yolov11n"] = evaluation.ModelMetrics{Model: "yolov11n", F1Score: 0.86}

	name, m, ok := r.BestModel()
	require.True(t, ok)
	assert.Equal(t, "yolov11n", name)
	assert.InDelta(t, 0.86, m.F1Score, 1e-9)
}

func TestSaveResultsPartialRows(t *testing.T) {
	r := NewResults(DefaultConfig())
	r.TestSet["yolov8n"] = evaluation.ModelMetrics{Model: "yolov8n", Precision: 0.5}
	r.TimeSeries["yolov8s"] = evaluation.TimeSeriesMetrics{Model: "yolov8s", AvgDetections: 12.5}

	report, err := SaveResults(t.TempDir(), r)
	require.NoError(t, err)

	f, err := os.Open(report.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"yolov8n", "0.5", "0", "0", "0", "0", "", "", ""}, rows[1])
	assert.Equal(t, []string{"yolov8s", "", "", "", "", "", "12.5", "0", "0"}, rows[2])
	assert.Contains(t, filepath.Base(report.JSONPath), "baseline_results_")
}

func TestAnalyzeDataset(t *testing.T) {
	cfg := newDataset(t)
	info, err := AnalyzeDataset(cfg)
	require.NoError(t, err)

	require.Len(t, info.Splits, 3)
	assert.Equal(t, SplitInfo{Name: "train", Images: 2, Labels: 1}, info.Splits[0])
	assert.Equal(t, SplitInfo{Name: "valid"}, info.Splits[1])
	assert.Equal(t, SplitInfo{Name: "test", Images: 3, Labels: 1}, info.Splits[2])
	assert.Equal(t, 5, info.TotalLabeledImages)
	assert.Equal(t, labels.FormatPolygon, info.LabelFormat)

	require.NotNil(t, info.TimeSeries)
	assert.Equal(t, 3, info.TimeSeries.TotalImages)
	assert.Equal(t, "0800", info.TimeSeries.FirstTimestamp)
	assert.Equal(t, "0900", info.TimeSeries.LastTimestamp)
	assert.Equal(t, []string{"0800"}, info.TimeSeries.SampleTimestamps)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "baseline.yaml")
	writeFile(t, yamlPath, "data_dir: /data\nsample_size: 20\nevaluation:\n  iou_threshold: 0.6\nmodels: [yolov8n]\n")
	cfg, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, 20, cfg.SampleSize)
	assert.InDelta(t, 0.6, cfg.Evaluation.IoUThreshold, 1e-9)
	assert.Equal(t, []string{"yolov8n"}, cfg.Models)
	assert.InDelta(t, 0.25, cfg.Confidence, 1e-6)
	assert.Equal(t, filepath.Join("/data", "training_version_2", "test"), cfg.TestPath())

	jsonPath := filepath.Join(dir, "baseline.json")
	writeFile(t, jsonPath, `{"sample_size": 0}`)
	_, err = LoadConfig(jsonPath)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
