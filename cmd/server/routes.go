package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/utils"
)

// APIKeyHeader carries the client key on prediction requests.
const APIKeyHeader = "x-api-key"

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)

	// Health endpoints
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health/metrics", s.handleMetrics)
	mux.Handle("/metrics", s.metrics.Handler())

	// Prediction endpoints
	predict := s.apiKeyMiddleware(http.HandlerFunc(s.handlePredict))
	mux.Handle("/api/predict", predict)
	mux.Handle("/api/predictions", predict)

	var handler http.Handler = mux
	handler = s.metricsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	return corsMiddleware(s.config.AllowedOrigins)(handler)
}

// apiKeyMiddleware rejects requests without a valid, active key when the
// server runs with RequireAPIKey.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.RequireAPIKey || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		_, err := s.service.ValidateAPIKey(r.Context(), r.Header.Get(APIKeyHeader))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, cardiodna.ErrMissingAPIKey):
			s.respondError(w, http.StatusUnauthorized, ReasonMissingAPIKey, fmt.Sprintf("%s header is required", APIKeyHeader))
		case errors.Is(err, cardiodna.ErrInvalidAPIKey), errors.Is(err, cardiodna.ErrInactiveAPIKey):
			s.respondError(w, http.StatusUnauthorized, ReasonInvalidAPIKey, "invalid or inactive API key")
		default:
			s.log.Errorf("API key check failed: %v", err)
			s.respondError(w, http.StatusInternalServerError, ReasonInternal, "could not verify API key")
		}
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware tags every request with an id and logs its outcome
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = utils.NewRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		if s.config.LogRequests {
			s.log.With("request_id", requestID).Infof("%s %s from %s -> %d (%s)",
				r.Method, r.URL.Path, getClientIP(r), wrapped.statusCode, time.Since(start))
		}
	})
}

// metricsMiddleware records request counts and latency per route
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		s.metrics.RecordHTTP(routeLabel(r.URL.Path), wrapped.statusCode, time.Since(start))
	})
}

// routeLabel keeps the metric label set bounded.
func routeLabel(path string) string {
	switch path {
	case "/", "/health", "/api/health/metrics", "/metrics", "/api/predict", "/api/predictions":
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	mv := s.service.ModelInfo()
	s.log.Infof("🚀 CardioDNA server starting on %s", addr)
	s.log.Infof("   Database: %s", s.config.DBPath)
	s.log.Infof("   Model: v%d (%s)", mv.Version, mv.Path)
	s.log.Infof("   API key required: %t", s.config.RequireAPIKey)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /                    - Index")
	s.log.Infof("   GET    /health              - Health check")
	s.log.Infof("   GET    /api/health/metrics  - Model and server info")
	s.log.Infof("   GET    /metrics             - Prometheus metrics")
	s.log.Infof("   POST   /api/predict         - Classify one ECG window")
	s.log.Infof("   POST   /api/predictions     - Alias of /api/predict")

	return srv.ListenAndServe()
}
