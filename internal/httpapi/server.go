// Package httpapi is the transport layer of the prediction service: one
// POST endpoint accepting a telemetry record or an array of them, plus
// health and metrics.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"voltguard/internal/observe"
	"voltguard/internal/predict"
	"voltguard/internal/reconcile"
)

// ErrMalformedInput marks payloads that are structurally not a record or
// an array of records. Everything else degrades inside reconciliation.
var ErrMalformedInput = errors.New("body must be a JSON object or array of objects")

// Server serves the prediction API.
type Server struct {
	pipe    *predict.Pipeline
	metrics *observe.Metrics
	log     *slog.Logger
}

// NewServer builds the API server. metrics may be nil.
func NewServer(pipe *predict.Pipeline, metrics *observe.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{pipe: pipe, metrics: metrics, log: log}
}

// Router builds the HTTP handler with recovery and request-ID middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(s.requestID)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(r)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	records, single, err := decodeRecords(r)
	if err != nil {
		s.log.Warn("rejecting malformed request",
			"request_id", w.Header().Get("X-Request-ID"), "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	verdicts, err := s.pipe.Predict(r.Context(), records)
	if err != nil {
		s.log.Error("prediction failed",
			"request_id", w.Header().Get("X-Request-ID"), "records", len(records), "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	if single {
		writeJSON(w, http.StatusOK, verdicts[0])
		return
	}
	writeJSON(w, http.StatusOK, verdicts)
}

// decodeRecords accepts either one JSON object or an array of objects,
// mirroring what station controllers actually send. single reports the
// object form so the response shape can match the request shape.
func decodeRecords(r *http.Request) ([]reconcile.Record, bool, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	switch payload := raw.(type) {
	case map[string]any:
		return []reconcile.Record{reconcile.CoerceRecord(payload)}, true, nil
	case []any:
		records := make([]reconcile.Record, 0, len(payload))
		for i, item := range payload {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, false, fmt.Errorf("%w: element %d is not an object", ErrMalformedInput, i)
			}
			records = append(records, reconcile.CoerceRecord(obj))
		}
		return records, false, nil
	}
	return nil, false, ErrMalformedInput
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
