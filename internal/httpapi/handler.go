// Package httpapi exposes the trajectory-matching Service over HTTP:
// POST /spans to ingest a span, POST /predict to answer a query, and
// GET /healthz / GET /metrics for operability. Stdlib net/http and log
// only, matching the teacher's pkg/server use of stdlib rather than a
// web framework.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/orneryd/trajmatch/internal/service"
	"github.com/orneryd/trajmatch/pkg/matcher"
	"github.com/orneryd/trajmatch/pkg/span"
)

// Handler wraps a Service behind net/http.Handler.
type Handler struct {
	svc *service.Service
	mux *http.ServeMux
}

// New builds a Handler routing /spans, /predict, /healthz, and
// /metrics to svc.
func New(svc *service.Service) *Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /spans", h.handleAddSpan)
	h.mux.HandleFunc("POST /predict", h.handlePredict)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /metrics", h.handleMetrics)
	return h
}

// ServeHTTP implements http.Handler, wrapping every request in
// recovery and logging middleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.recoveryMiddleware(h.loggingMiddleware(h.mux)).ServeHTTP(w, r)
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if r.URL.Path != "/healthz" {
			log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start))
		}
	})
}

func (h *Handler) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic: %v\n%s", err, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) handleAddSpan(w http.ResponseWriter, r *http.Request) {
	var s span.Span
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid span payload: "+err.Error())
		return
	}
	if s.ID == "" {
		writeError(w, http.StatusBadRequest, "span.id is required")
		return
	}
	if err := h.svc.AddSpan(s); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID})
}

// predictRequest is the wire shape for POST /predict.
type predictRequest struct {
	Context matcher.Context     `json:"context"`
	Action  string              `json:"action"`
	Plan    *matcher.SearchPlan `json:"plan,omitempty"`
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid predict payload: "+err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	prediction := h.svc.Predict(r.Context(), req.Context, req.Action, req.Plan)
	writeJSON(w, http.StatusOK, prediction)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Metrics())
}
