package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/inference/detectors"
	"github.com/nvr-ai/horti-vision/inference/providers"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/nvr-ai/horti-vision/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to server configuration file (YAML or JSON)")
		registryFile = flag.String("registry", "", "Path to a model registry file; defaults to the built-in tomato models")
		modelsDir    = flag.String("models-dir", "models", "Directory holding the exported ONNX models")
		addr         = flag.String("addr", "", "Listen address")
		backend      = flag.String("provider", string(providers.CPUProviderBackend), "Execution provider: cpu, cuda, coreml or openvino")
		libPath      = flag.String("lib", "", "Path to the onnxruntime shared library")
		warmup       = flag.Int("warmup", 1, "Blank inferences run after loading a model")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(logrus.NewEntry(log), *configFile, *registryFile, *modelsDir, *addr, *backend, *libPath, *warmup); err != nil {
		log.Fatal(err)
	}
}

func run(log *logrus.Entry, configFile, registryFile, modelsDir, addr, backend, libPath string, warmup int) error {
	cfg := server.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = server.LoadConfig(configFile)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
	}
	if addr != "" {
		cfg.Addr = addr
	}

	registry := models.DefaultRegistry(modelsDir)
	if registryFile != "" {
		var err error
		registry, err = models.LoadRegistry(registryFile)
		if err != nil {
			return errors.Wrap(err, "failed to load registry")
		}
	}

	if err := inference.InitializeRuntime(libPath); err != nil {
		return errors.Wrap(err, "failed to initialize ONNX Runtime")
	}
	defer inference.ShutdownRuntime()

	detectorCfg := detectors.DefaultConfig()
	detectorCfg.Provider.Backend = providers.ProviderBackend(backend)
	detectorCfg.Warmup = warmup

	cache := inference.NewCache(registry, detectors.NewLoader(detectorCfg))
	defer cache.Close()

	srv, err := server.New(cfg, registry, cache, log)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	log.Info("Starting Horti-IoT AI Service...")
	if err := srv.Warmup(); err != nil {
		log.WithError(err).Warn("Failed to preload default model")
	}
	log.Info("AI Service ready!")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return errors.Wrap(srv.Run(ctx), "server stopped")
}
