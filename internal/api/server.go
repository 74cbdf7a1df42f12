// Package api exposes the HTTP interface for the scraper service.
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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/graviris/wildweb-scraper/internal/metrics"
	"github.com/graviris/wildweb-scraper/internal/storage/sqlite"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// Server wires HTTP handlers to the incident store.
type Server struct {
	router chi.Router
	store  wildweb.Store
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store wildweb.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Get("/status", s.getStatus)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Get("/centers", s.listCenters)
		r.Get("/states", s.stateSummary)
		r.Get("/incidents/{incident_id}/history", s.incidentHistory)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Readiness means the database answers queries.
	if _, err := s.store.StateSummary(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.LatestCycle(r.Context())
	if err != nil {
		if errors.Is(err, sqlite.ErrNoCycles) {
			writeJSON(w, http.StatusOK, map[string]any{"cycle": nil}, s.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch cycle status", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycle": record}, s.logger)
}

func (s *Server) listCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := s.store.ListCenters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list centers", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"centers": centers, "count": len(centers)}, s.logger)
}

func (s *Server) stateSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.StateSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize states", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": summary}, s.logger)
}

func (s *Server) incidentHistory(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "incident_id")
	if _, err := uuid.Parse(incidentID); err != nil {
		writeError(w, http.StatusBadRequest, "incident_id must be a UUID", s.logger)
		return
	}
	history, err := s.store.IncidentHistory(r.Context(), incidentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch incident history", s.logger)
		return
	}
	if len(history) == 0 {
		writeError(w, http.StatusNotFound, "incident not found", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incident_id": incidentID,
		"history":     history,
		"count":       len(history),
	}, s.logger)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
			)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, elapsed)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error", logger)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
