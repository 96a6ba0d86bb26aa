// Package server exposes symptom diagnosis over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carcare/internal/diagnosis"
	"carcare/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRequestBytes = 64 << 10
const shutdownTimeout = 10 * time.Second

type diagnoseRequest struct {
	Prompt *string `json:"prompt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ruleSummary struct {
	ID       string          `json:"id"`
	Problem  string          `json:"problem"`
	Severity domain.Severity `json:"severity"`
	Priority int             `json:"priority"`
}

type Server struct {
	addr       string
	backend    string
	classifier diagnosis.Classifier
	rules      []ruleSummary
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New builds the HTTP handler set. rules is the table listed by /api/rules;
// it may be empty when a remote backend is in use.
func New(addr, backend string, classifier diagnosis.Classifier, rules []domain.DiagnosticRule, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:       addr,
		backend:    backend,
		classifier: classifier,
		logger:     logger,
		rules:      make([]ruleSummary, 0, len(rules)),
	}
	for _, r := range rules {
		s.rules = append(s.rules, ruleSummary{ID: r.ID, Problem: r.Problem, Severity: r.Severity, Priority: r.Priority})
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/api/diagnose", s.handleDiagnose)
	s.mux.HandleFunc("/api/rules", s.handleRules)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr), zap.String("backend", s.backend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

type ctxKeyRequestID struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, requestID)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		s.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req diagnoseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == nil || strings.TrimSpace(*req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := s.classifier.Classify(r.Context(), *req.Prompt)
	if err != nil {
		status := http.StatusInternalServerError
		message := "diagnosis service unavailable"
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
			message = "prompt is required"
		}
		s.logger.Warn("diagnosis failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("backend", s.backend),
			zap.Error(err))
		writeError(w, status, message)
		return
	}

	s.logger.Debug("diagnosis",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("problem", result.PossibleProblem),
		zap.String("severity", string(result.Severity)),
		zap.Int("confidence", result.Confidence))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.rules)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": s.backend})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
