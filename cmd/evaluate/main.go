package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvr-ai/horti-vision/benchmark"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/inference/detectors"
	"github.com/nvr-ai/horti-vision/inference/providers"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/nvr-ai/horti-vision/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type options struct {
	configFile   string
	registryFile string
	dataDir      string
	outputDir    string
	modelsDir    string
	modelNames   string
	sampleSize   int
	confidence   float64
	iou          float64
	concurrency  int
	backend      string
	libPath      string
	apiURL       string
	analyzeOnly  bool
	noProgress   bool
	timeout      time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "Path to evaluation configuration file (YAML or JSON)")
	flag.StringVar(&opts.registryFile, "registry", "", "Path to a model registry file; defaults to the built-in tomato models")
	flag.StringVar(&opts.dataDir, "data", "", "Dataset root directory")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.StringVar(&opts.modelsDir, "models-dir", "models", "Directory holding the exported ONNX models")
	flag.StringVar(&opts.modelNames, "models", "", "Comma-separated model names to evaluate (default all)")
	flag.IntVar(&opts.sampleSize, "sample-size", 0, "Number of time-series frames to evaluate")
	flag.Float64Var(&opts.confidence, "confidence", -1, "Minimum detection confidence")
	flag.Float64Var(&opts.iou, "iou", -1, "IoU threshold for a true positive")
	flag.IntVar(&opts.concurrency, "concurrency", 0, "Models evaluated in parallel")
	flag.StringVar(&opts.backend, "provider", string(providers.CPUProviderBackend), "Execution provider: cpu, cuda, coreml or openvino")
	flag.StringVar(&opts.libPath, "lib", "", "Path to the onnxruntime shared library")
	flag.StringVar(&opts.apiURL, "api", "", "Evaluate through a running detection service at this URL instead of local models")
	flag.BoolVar(&opts.analyzeOnly, "analyze", false, "Only summarize the dataset and model files")
	flag.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bars")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Hour, "Evaluation timeout duration")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(logrus.NewEntry(log), opts); err != nil {
		log.Fatal(err)
	}
}

func run(log *logrus.Entry, opts options) error {
	cfg := benchmark.DefaultConfig()
	if opts.configFile != "" {
		var err error
		cfg, err = benchmark.LoadConfig(opts.configFile)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.modelNames != "" {
		cfg.Models = strings.Split(opts.modelNames, ",")
	}
	if opts.sampleSize > 0 {
		cfg.SampleSize = opts.sampleSize
	}
	if opts.confidence >= 0 {
		cfg.Confidence = float32(opts.confidence)
	}
	if opts.iou >= 0 {
		cfg.Evaluation.IoUThreshold = opts.iou
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if opts.noProgress {
		cfg.Progress = false
	}

	registry := models.DefaultRegistry(opts.modelsDir)
	if opts.registryFile != "" {
		var err error
		registry, err = models.LoadRegistry(opts.registryFile)
		if err != nil {
			return errors.Wrap(err, "failed to load registry")
		}
	}

	if opts.analyzeOnly {
		return analyze(cfg, opts.modelsDir)
	}

	var loader inference.Loader
	if opts.apiURL != "" {
		clientCfg := server.DefaultClientConfig()
		clientCfg.BaseURL = opts.apiURL
		loader = server.NewClientLoader(clientCfg)
		log.WithField("api", opts.apiURL).Info("Evaluating through the detection service")
	} else {
		if err := inference.InitializeRuntime(opts.libPath); err != nil {
			return errors.Wrap(err, "failed to initialize ONNX Runtime")
		}
		defer inference.ShutdownRuntime()

		detectorCfg := detectors.DefaultConfig()
		detectorCfg.Provider.Backend = providers.ProviderBackend(opts.backend)
		loader = detectors.NewLoader(detectorCfg)
	}

	suite, err := benchmark.NewSuite(cfg, registry, loader, log)
	if err != nil {
		return errors.Wrap(err, "failed to create suite")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	log.Info("Starting baseline evaluation")
	start := time.Now()

	results, report, err := suite.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "evaluation failed")
	}

	log.WithField("duration", time.Since(start).Round(time.Millisecond)).Info("Evaluation complete")
	printSummary(results)
	fmt.Printf("\nResults saved to: %s\n", report.JSONPath)
	fmt.Printf("Summary saved to: %s\n", report.CSVPath)
	return nil
}

func analyze(cfg *benchmark.Config, modelsDir string) error {
	files, err := models.Inventory(modelsDir)
	if err != nil {
		return errors.Wrap(err, "failed to list models")
	}
	fmt.Printf("=== Model Files (%s) ===\n", modelsDir)
	for _, f := range files {
		fmt.Printf("  %-28s %8.1f MB  %s\n", f.File, f.SizeMB, f.Architecture)
	}

	info, err := benchmark.AnalyzeDataset(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to analyze dataset")
	}
	fmt.Printf("\n=== Dataset (%s) ===\n", cfg.DataDir)
	for _, s := range info.Splits {
		fmt.Printf("  %-6s %5d images, %5d labels\n", s.Name, s.Images, s.Labels)
	}
	fmt.Printf("  Total labeled images: %d\n", info.TotalLabeledImages)
	fmt.Printf("  Label format: %s\n", info.LabelFormat)
	if ts := info.TimeSeries; ts != nil {
		fmt.Printf("  Time-series images: %d (%s to %s)\n", ts.TotalImages, ts.FirstTimestamp, ts.LastTimestamp)
	}
	return nil
}

func printSummary(results *benchmark.Results) {
	fmt.Printf("\n=== Performance Summary ===\n")
	fmt.Printf("%-10s %9s %7s %7s %7s %10s %9s %7s\n",
		"model", "precision", "recall", "f1", "iou", "ms/image", "avg_det", "std")
	for _, row := range results.Summary() {
		fmt.Printf("%-10s %9.3f %7.3f %7.3f %7.3f %10.2f %9.1f %7.1f\n",
			row.Model, row.Precision, row.Recall, row.F1Score, row.AvgIoU,
			row.InferenceTimeMS, row.AvgDetections, row.DetectionStd)
	}

	if name, m, ok := results.BestModel(); ok {
		fmt.Printf("\nBest Performing Model: %s\n", name)
		fmt.Printf("   F1 Score: %.3f\n", m.F1Score)
		fmt.Printf("   Precision: %.3f\n", m.Precision)
		fmt.Printf("   Recall: %.3f\n", m.Recall)
		fmt.Printf("   Inference Speed: %.2fms\n", m.AvgInferenceTime)
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Baseline evaluation of the tomato head detection models.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -data ./data -models-dir ./models\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -config ./baseline.yaml -models yolov8n,yolov8s -concurrency 2\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -data ./data -analyze\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -data ./data -api http://localhost:8000\n", filepath.Base(os.Args[0]))
	}
}
