// Package api exposes the prediction service, the reference dataset and the assistant
// over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"iot-device-id/internal/assistant"
	"iot-device-id/internal/dataset"
	"iot-device-id/internal/ml"
	"iot-device-id/internal/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the request metrics the API reports.
type MetricsInterface interface {
	HTTPRequestInc(route string, code int)
	ChatMessagesInc()
}

// Dependencies are the components the handlers serve. Catalog and Metrics may be nil.
type Dependencies struct {
	Service        *ml.Service
	Dataset        *dataset.Dataset
	Assistant      *assistant.Assistant
	Catalog        *storage.Store
	Metrics        MetricsInterface
	RequestTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	deps     Dependencies
	router   *mux.Router
	server   *http.Server
	upgrader websocket.Upgrader
	started  time.Time
}

// NewServer wires all routes. It does not start listening.
func NewServer(deps Dependencies, port int) *Server {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		deps:     deps,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		started:  time.Now(),
	}

	r := mux.NewRouter()
	r.Use(s.observe)
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/predict", s.handlePredict).Methods("POST")
	r.HandleFunc("/sample_data", s.handleSampleData).Methods("GET")
	r.HandleFunc("/dataset_info", s.handleDatasetInfo).Methods("GET")
	r.HandleFunc("/chat/start_session", s.handleStartSession).Methods("POST")
	r.HandleFunc("/chat/message", s.handleChatMessage).Methods("POST")
	r.HandleFunc("/ws/chat", s.handleChatSocket).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/model/info", s.handleModelInfo).Methods("GET")
	r.HandleFunc("/models/history", s.handleHistory).Methods("GET")
	r.HandleFunc("/models/history/{id:[0-9]+}", s.handleHistoryEntry).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: deps.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// observe logs and counts every request by route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.HTTPRequestInc(route, rec.status)
		}
		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
