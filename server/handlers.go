package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nvr-ai/horti-vision/growth"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/nvr-ai/horti-vision/profiler"
	"github.com/pkg/errors"
)

// statusError carries the HTTP status for a client error.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }

func badRequest(format string, args ...interface{}) error {
	return &statusError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).WithField("status", status).Error("failed to encode response")
	}
}

func (s *Server) sendErrorResponse(w http.ResponseWriter, detail string, status int) {
	s.writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeError maps err onto a status code and a detail message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var se *statusError
	switch {
	case errors.As(err, &se):
		s.sendErrorResponse(w, se.Error(), se.status)
	case errors.Is(err, ErrResultNotFound):
		s.sendErrorResponse(w, "Results not found", http.StatusNotFound)
	case errors.Is(err, growth.ErrNoData):
		s.sendErrorResponse(w, "No data found for greenhouse", http.StatusNotFound)
	case errors.Is(err, models.ErrModelNotFound):
		s.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		s.sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseConfidence(raw string, fallback float32) (float32, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil || v < 0 || v > 1 {
		return 0, badRequest("confidence_threshold must be a number in [0, 1]")
	}
	return float32(v), nil
}

func (s *Server) modelParam(r *http.Request) string {
	if m := r.FormValue("model"); m != "" {
		return m
	}
	return s.cfg.DefaultModel
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", fh.Filename)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Service:         ServiceName,
		Status:          "running",
		CurrentModel:    s.CurrentModel(),
		AvailableModels: s.registry.Names(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]models.Model, s.registry.Len())
	for _, m := range s.registry.Models() {
		out[m.Name] = m
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.sendErrorResponse(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.sendErrorResponse(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	confidence, err := parseConfidence(r.FormValue("confidence_threshold"), s.cfg.Confidence)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.detect(r.Context(), header.Filename, data, s.modelParam(r), confidence, r.FormValue("greenhouse_id"))
	if err != nil {
		s.log.WithError(err).WithField("image", header.Filename).Error("detection failed")
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.sendErrorResponse(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.sendErrorResponse(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	model := s.modelParam(r)
	greenhouseID := r.FormValue("greenhouse_id")
	resp := BatchResponse{Results: make([]interface{}, 0, len(files))}
	for _, fh := range files {
		data, err := readPart(fh)
		var result *DetectionResult
		if err == nil {
			result, err = s.detect(r.Context(), fh.Filename, data, model, s.cfg.BatchConfidence, greenhouseID)
		}
		if err != nil {
			s.log.WithError(err).WithField("image", fh.Filename).Error("batch item failed")
			resp.Results = append(resp.Results, BatchFailure{Error: err.Error(), Filename: fh.Filename})
			continue
		}
		resp.Successful++
		resp.Results = append(resp.Results, result)
	}
	resp.Processed = len(resp.Results)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Detection results deleted successfully"})
}

func (s *Server) handleAnalyzeGrowth(w http.ResponseWriter, r *http.Request) {
	greenhouseID := r.FormValue("greenhouse_id")
	if greenhouseID == "" {
		s.sendErrorResponse(w, "greenhouse_id is required", http.StatusBadRequest)
		return
	}
	days := s.cfg.GrowthWindowDays
	if raw := r.FormValue("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.sendErrorResponse(w, "days must be an integer", http.StatusBadRequest)
			return
		}
		days = v
	}

	stored, err := s.store.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var samples []growth.Sample
	for _, res := range stored {
		if res.GreenhouseID != nil && *res.GreenhouseID == greenhouseID {
			samples = append(samples, res.Sample())
		}
	}

	analysis, err := growth.Analyze(greenhouseID, growth.Window(samples, days, time.Now()), s.cfg.Growth)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	CurrentModel string                    `json:"current_model"`
	LoadedModels []string                  `json:"loaded_models"`
	Operations   []profiler.OperationStats `json:"operations"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	loaded := s.cache.Loaded()
	sort.Strings(loaded)
	s.writeJSON(w, http.StatusOK, StatsResponse{
		CurrentModel: s.CurrentModel(),
		LoadedModels: loaded,
		Operations:   s.profiler.Snapshot(),
	})
}
