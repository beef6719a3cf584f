package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/himanishpuri/CardioDNA/internal/metrics"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/features"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service cardiodna.Service
	config  *ServerConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
	RequireAPIKey  bool
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service cardiodna.Service, config *ServerConfig, m *metrics.Metrics) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
		metrics: m,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, reason, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Reason:  reason,
		Message: message,
		Code:    statusCode,
	})
}

// respondPipelineError maps typed pipeline errors onto status codes.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	var verr *waveform.ValidationError
	if errors.As(err, &verr) {
		s.respondError(w, http.StatusBadRequest, string(verr.Reason), verr.Error())
		return
	}
	var eerr *features.ExtractionError
	if errors.As(err, &eerr) {
		s.respondError(w, http.StatusUnprocessableEntity, eerr.Reason, eerr.Error())
		return
	}

	s.log.Errorf("Prediction failed: %v", err)
	s.respondError(w, http.StatusInternalServerError, ReasonInternal, "prediction failed")
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, ReasonNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "CardioDNA API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"prometheus":  "GET /metrics",
			"predict":     "POST /api/predict",
			"predictions": "POST /api/predictions",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	mv := s.service.ModelInfo()
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:        "healthy",
		DatabasePath:  s.config.DBPath,
		ModelVersion:  mv.Version,
		ModelDigest:   mv.Digest,
		ModelPath:     mv.Path,
		SampleRate:    waveform.SampleRate,
		WindowLength:  waveform.Length,
		RequireAPIKey: s.config.RequireAPIKey,
	})
}

// handlePredict handles POST /api/predict and POST /api/predictions
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.respondError(w, http.StatusMethodNotAllowed, ReasonMethodNotAllowed, "use POST")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Debugf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, ReasonInvalidRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return
	}

	res, err := s.service.Predict(r.Context(), *req.ECGSignal)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, newPredictResponse(res))
}
