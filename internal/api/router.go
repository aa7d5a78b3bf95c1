package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/CedricEugeni/MoMentor/internal/api/handlers"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

// Handlers groups the endpoint handlers. Stream may be nil.
type Handlers struct {
	Runs      *handlers.RunHandler
	Portfolio *handlers.PortfolioHandler
	Stream    *handlers.StreamHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Runs
	api.HandleFunc("/runs/generate", h.Runs.Generate).Methods("POST")
	api.HandleFunc("/runs/trigger-monthly", h.Runs.TriggerMonthly).Methods("POST")
	api.HandleFunc("/runs/has-pending", h.Runs.HasPending).Methods("GET")
	api.HandleFunc("/runs", h.Runs.List).Methods("GET")
	api.HandleFunc("/runs/{id:[0-9]+}/details", h.Runs.Details).Methods("GET")
	api.HandleFunc("/runs/{id:[0-9]+}/confirm-positions", h.Runs.Confirm).Methods("POST")
	api.HandleFunc("/reset", h.Runs.Reset).Methods("POST")

	// Portfolio
	api.HandleFunc("/portfolio/current", h.Portfolio.Current).Methods("GET")

	// Live valuation stream
	if h.Stream != nil {
		r.HandleFunc("/ws/portfolio", h.Stream.Portfolio).Methods("GET")
	}

	// Apply middleware
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "momentor-api",
	})
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			entry := log.WithFields(map[string]interface{}{
				"request_id": r.Header.Get(RequestIDHeader),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Warn("HTTP request")
			} else {
				entry.Debug("HTTP request")
			}
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error":      err,
						"path":       r.URL.Path,
						"request_id": r.Header.Get(RequestIDHeader),
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
