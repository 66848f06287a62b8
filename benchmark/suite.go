package benchmark

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/evaluation"
	"github.com/nvr-ai/horti-vision/images"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/labels"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/nvr-ai/horti-vision/util"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Suite evaluates every configured model over the dataset.
type Suite struct {
	cfg      *Config
	registry *models.Registry
	load     inference.Loader
	matcher  *evaluation.Matcher
	log      *logrus.Entry
	output   io.Writer

	mu      sync.Mutex
	results *Results
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - cfg: The run configuration.
//   - registry: The available models. cfg.Models selects a subset.
//   - load: Creates a detector per model.
//   - log: The logger, or nil for the standard logger.
//
// Returns:
//   - *Suite: The benchmark suite.
//   - error: An error if cfg is invalid or names an unknown model.
func NewSuite(cfg *Config, registry *models.Registry, load inference.Loader, log *logrus.Entry) (*Suite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Models) > 0 {
		subset, err := registry.Subset(cfg.Models)
		if err != nil {
			return nil, err
		}
		registry = subset
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	output := io.Discard
	if cfg.Progress {
		output = os.Stderr
	}

	return &Suite{
		cfg:      cfg,
		registry: registry,
		load:     load,
		matcher:  evaluation.NewMatcher(cfg.Evaluation),
		log:      log.WithField("component", "benchmark"),
		output:   output,
		results:  NewResults(cfg),
	}, nil
}

// Results returns the results gathered so far.
func (s *Suite) Results() *Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *Suite) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(s.output),
		progressbar.OptionSetWidth(15),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
}

// EvaluateImage runs d on one labeled image and matches the result against
// its label file.
//
// Arguments:
//   - ctx: The context for the detection.
//   - d: The detector under test.
//   - path: The image path inside "<split>/images".
//
// Returns:
//   - The per-image counts, with the image path and inference time set.
//   - error: An error if the image cannot be decoded or the detector fails.
func (s *Suite) EvaluateImage(ctx context.Context, d inference.Detector, path string) (evaluation.ImageResult, error) {
	img, err := images.Load(path)
	if err != nil {
		return evaluation.ImageResult{}, err
	}

	boxes, elapsed, err := inference.TimedDetect(ctx, d, img, s.cfg.Confidence)
	if err != nil {
		return evaluation.ImageResult{}, errors.Wrapf(err, "detection failed for %s", path)
	}

	truth, err := labels.LoadFor(path)
	if err != nil {
		return evaluation.ImageResult{}, err
	}

	b := img.Bounds()
	result := s.matcher.Match(common.NormalizeAll(boxes, b.Dx(), b.Dy()), truth)
	result.Image = path
	result.InferenceTime = elapsed
	return result, nil
}

// modelRun is the work done for one model during a phase.
type modelRun func(ctx context.Context, m models.Model, d inference.Detector) (processed, failed int)

// forEachModel loads each model and runs fn with at most cfg.Concurrency
// models in flight. Models that fail to load are logged and skipped.
func (s *Suite) forEachModel(ctx context.Context, phase Phase, fn modelRun) {
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, m := range s.registry.Models() {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(m models.Model) {
			defer wg.Done()
			defer func() { <-sem }()

			log := s.log.WithFields(logrus.Fields{"model": m.Name, "phase": phase})
			d, err := s.load(m)
			if err != nil {
				log.WithError(err).Warn("failed to load model, skipping")
				return
			}
			defer func() {
				if err := d.Close(); err != nil {
					log.WithError(err).Warn("failed to close detector")
				}
			}()

			startMem := memorySnapshot()
			start := time.Now()
			processed, failed := fn(ctx, m, d)
			elapsed := time.Since(start)

			stats := RunStats{
				Model:         m.Name,
				Phase:         phase,
				Timestamp:     start,
				TotalDuration: elapsed,
				MemoryStats:   memoryDelta(startMem, memorySnapshot()),
			}
			if total := processed + failed; total > 0 {
				stats.ImagesPerSecond = float64(processed) / elapsed.Seconds()
				stats.ErrorRate = float64(failed) / float64(total)
			}

			s.mu.Lock()
			s.results.Runs = append(s.results.Runs, stats)
			s.mu.Unlock()
		}(m)
	}
	wg.Wait()
}

// EvaluateTestSet evaluates every model on the labeled test split.
//
// Returns:
//   - The metrics per model.
//   - error: An error if the test split cannot be listed or holds no images.
func (s *Suite) EvaluateTestSet(ctx context.Context) (map[string]evaluation.ModelMetrics, error) {
	paths, err := util.ListImages(filepath.Join(s.cfg.TestPath(), "images"), util.LabeledExtensions...)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no test images found in %s", s.cfg.TestPath())
	}
	s.log.WithField("images", len(paths)).Info("evaluating on labeled test set")

	s.forEachModel(ctx, PhaseTestSet, func(ctx context.Context, m models.Model, d inference.Detector) (int, int) {
		agg := evaluation.NewAggregator(m.Name)
		bar := s.newBar(len(paths), m.Name)
		for _, p := range paths {
			if ctx.Err() != nil {
				break
			}
			result, err := s.EvaluateImage(ctx, d, p)
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{"model": m.Name, "image": p}).Warn("image failed")
				agg.AddFailure(p, err)
			} else {
				agg.Add(result)
			}
			_ = bar.Add(1)
		}
		_ = bar.Finish()

		metrics := agg.Metrics()
		s.log.WithFields(logrus.Fields{
			"model":     m.Name,
			"precision": metrics.Precision,
			"recall":    metrics.Recall,
			"f1":        metrics.F1Score,
			"avg_iou":   metrics.AvgIoU,
			"avg_ms":    metrics.AvgInferenceTime,
		}).Info("test set evaluated")

		s.mu.Lock()
		s.results.TestSet[m.Name] = metrics
		if failures := agg.Failures(); len(failures) > 0 {
			s.results.Failures[m.Name] = failures
		}
		s.mu.Unlock()
		return metrics.TotalImages, metrics.FailedImages
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]evaluation.ModelMetrics, len(s.results.TestSet))
	for k, v := range s.results.TestSet {
		out[k] = v
	}
	return out, ctx.Err()
}

// EvaluateTimeSeries evaluates every model on an even sample of the
// time-series capture.
//
// Returns:
//   - The statistics per model.
//   - error: An error if the capture cannot be listed or holds no images.
func (s *Suite) EvaluateTimeSeries(ctx context.Context) (map[string]evaluation.TimeSeriesMetrics, error) {
	frames, err := util.TimeSeries(s.cfg.TimeSeriesPath(), s.cfg.SampleSize)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no time-series images found in %s", s.cfg.TimeSeriesPath())
	}
	s.log.WithField("images", len(frames)).Info("evaluating on time-series data")

	s.forEachModel(ctx, PhaseTimeSeries, func(ctx context.Context, m models.Model, d inference.Detector) (int, int) {
		agg := evaluation.NewTimeSeriesAggregator(m.Name)
		bar := s.newBar(len(frames), m.Name+" timeseries")
		for _, f := range frames {
			if ctx.Err() != nil {
				break
			}
			img, err := images.Load(f.Path)
			var boxes []common.BoundingBox
			var elapsed time.Duration
			if err == nil {
				boxes, elapsed, err = inference.TimedDetect(ctx, d, img, s.cfg.Confidence)
			}
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{"model": m.Name, "image": f.Path}).Warn("frame failed")
				agg.AddFailure()
			} else {
				agg.Add(f.Timestamp, boxes, elapsed)
			}
			_ = bar.Add(1)
		}
		_ = bar.Finish()

		metrics := agg.Metrics()
		s.log.WithFields(logrus.Fields{
			"model":          m.Name,
			"avg_detections": metrics.AvgDetections,
			"std_detections": metrics.StdDetections,
			"avg_confidence": metrics.AvgConfidence,
		}).Info("time series evaluated")

		s.mu.Lock()
		s.results.TimeSeries[m.Name] = metrics
		s.mu.Unlock()
		return metrics.TotalImages, metrics.FailedImages
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]evaluation.TimeSeriesMetrics, len(s.results.TimeSeries))
	for k, v := range s.results.TimeSeries {
		out[k] = v
	}
	return out, ctx.Err()
}

// Run analyzes the dataset, evaluates the test split and the time series
// where present, and saves the reports.
//
// Returns:
//   - The results and the written report paths.
//   - error: An error if a phase or the report writing fails.
func (s *Suite) Run(ctx context.Context) (*Results, *Report, error) {
	dataset, err := AnalyzeDataset(s.cfg)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	s.results.Dataset = dataset
	s.mu.Unlock()

	ran := false
	if exists(s.cfg.TestPath()) {
		if _, err := s.EvaluateTestSet(ctx); err != nil {
			return nil, nil, err
		}
		ran = true
	} else {
		s.log.WithField("dir", s.cfg.TestPath()).Warn("test directory not found")
	}

	if exists(s.cfg.TimeSeriesPath()) {
		if _, err := s.EvaluateTimeSeries(ctx); err != nil {
			return nil, nil, err
		}
		ran = true
	} else {
		s.log.WithField("dir", s.cfg.TimeSeriesPath()).Warn("time-series directory not found")
	}

	if !ran {
		return nil, nil, errors.Errorf("nothing to evaluate under %s", s.cfg.DataDir)
	}

	results := s.Results()
	report, err := SaveResults(s.cfg.OutputDir, results)
	if err != nil {
		return nil, nil, err
	}
	return results, report, nil
}
