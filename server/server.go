// Package server - HTTP service for tomato head detection and growth analysis.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/nvr-ai/horti-vision/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Horti-IoT AI Service"

// Server serves detection requests backed by a detector cache.
type Server struct {
	cfg      Config
	registry *models.Registry
	cache    *inference.Cache
	store    *Store
	profiler *profiler.Profiler
	log      *logrus.Entry

	mu           sync.RWMutex
	currentModel string
}

// New creates the service.
//
// Arguments:
//   - cfg: The service configuration.
//   - registry: The models that may be requested.
//   - cache: The detector cache resolving registry names.
//   - log: The logger, or nil for the standard logger.
//
// Returns:
//   - The service.
//   - error: An error if cfg is invalid or the store directories cannot be created.
func New(cfg Config, registry *models.Registry, cache *inference.Cache, log *logrus.Entry) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := registry.Get(cfg.DefaultModel); err != nil {
		return nil, errors.Wrap(err, "invalid default model")
	}
	store, err := NewStore(cfg.UploadDir, cfg.ResultsDir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Server{
		cfg:          cfg,
		registry:     registry,
		cache:        cache,
		store:        store,
		profiler:     profiler.New(profiler.DefaultMaxSamples),
		log:          log.WithField("component", "server"),
		currentModel: cfg.DefaultModel,
	}, nil
}

// Warmup loads the default model so the first request does not pay for it.
func (s *Server) Warmup() error {
	_, err := s.cache.Get(s.cfg.DefaultModel)
	return err
}

// CurrentModel returns the most recently used model.
func (s *Server) CurrentModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentModel
}

func (s *Server) setCurrentModel(name string) {
	s.mu.Lock()
	s.currentModel = name
	s.mu.Unlock()
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods("GET")
	r.HandleFunc("/models", s.handleModels).Methods("GET")
	r.HandleFunc("/detect", s.handleDetect).Methods("POST")
	r.HandleFunc("/batch-process", s.handleBatch).Methods("POST")
	r.HandleFunc("/analyze-growth", s.handleAnalyzeGrowth).Methods("POST")
	r.HandleFunc("/results/{id}", s.handleGetResult).Methods("GET")
	r.HandleFunc("/results/{id}", s.handleDeleteResult).Methods("DELETE")
	r.HandleFunc("/stats", s.handleStats).Methods("GET")
	r.Use(s.logRequests)
	return r
}

// Handler returns the router wrapped in the CORS layer.
func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
		handlers.AllowCredentials(),
	)(s.Router())
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		Addr:         s.cfg.Addr,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.profiler.Report(s.log)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown failed")
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}
