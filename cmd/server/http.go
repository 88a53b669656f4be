package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/KivDB/db"
	"github.com/nickyhof/KivDB/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxStatementBytes bounds the body of POST /exec.
const maxStatementBytes = 16 << 20

const KindRequest = "requestError"

// HTTPServer exposes the engine over HTTP: POST /exec takes a statement as
// the request body and answers with the result or error envelope.
type HTTPServer struct {
	engine *db.Engine
	auth   *Authenticator
	logger *slog.Logger
	server *http.Server
}

func NewHTTPServer(addr string, engine *db.Engine, auth *Authenticator, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = engine.Logger()
	}
	h := &HTTPServer{
		engine: engine,
		auth:   auth,
		logger: logger.With("component", "http"),
	}
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Handler returns the routed handler wrapped in recovery and logging.
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /exec", h.handleExec)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return h.LoggingMiddleware(h.RecoveryMiddleware(mux))
}

func (h *HTTPServer) ListenAndServe() error {
	h.logger.Info("HTTP server listening", "addr", h.server.Addr)
	return ignoreClosed(h.server.ListenAndServe())
}

func (h *HTTPServer) ListenAndServeTLS(certFile, keyFile string) error {
	h.logger.Info("HTTP server listening", "addr", h.server.Addr, "tls", true)
	return ignoreClosed(h.server.ListenAndServeTLS(certFile, keyFile))
}

func (h *HTTPServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (h *HTTPServer) handleExec(w http.ResponseWriter, r *http.Request) {
	if h.auth != nil {
		if _, err := h.auth.bearerIdentity(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, db.ErrorInfo{Kind: KindAuth, Code: "invalidToken", Detail: err.Error()})
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStatementBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, db.ErrorInfo{Kind: KindRequest, Code: "bodyTooLarge"})
			return
		}
		writeJSON(w, http.StatusBadRequest, db.ErrorInfo{Kind: KindRequest, Code: "unreadableBody", Detail: err.Error()})
		return
	}

	result, err := h.engine.Execute(string(body))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, db.Envelope(result))
	case db.IsCompileError(err):
		writeJSON(w, http.StatusBadRequest, db.DescribeError(err))
	default:
		h.logger.Error("statement failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, db.DescribeError(err))
	}
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// RecoveryMiddleware catches panics, logs the stack trace, and returns a 500 error.
func (h *HTTPServer) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, db.ErrorInfo{Kind: KindRequest, Code: "internal"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs each request and records its duration and status.
func (h *HTTPServer) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		// The mux fills in Pattern; unmatched paths share one label.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}

		h.logger.Info("HTTP request",
			"request", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration.String(),
			"ip", r.RemoteAddr,
		)

		metrics.HttpRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())
		metrics.HttpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

// responseWrapper captures the status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
