package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/cookgrid/internal/ctxlog"
)

// httpCollectors are the metrics of the health check server itself.
type httpCollectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPCollectors(reg prometheus.Registerer) *httpCollectors {
	factory := promauto.With(reg)
	return &httpCollectors{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cookgrid_http_requests_total",
			Help: "Total number of health check server requests",
		}, []string{"path", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cookgrid_http_request_duration_seconds",
			Help:    "Duration of health check server requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// responseWrapper captures the status code written by a handler.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrument logs every request and records its metrics.
func (a *App) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		elapsed := time.Since(start)

		a.logger.Debug("Health check server request.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", elapsed.String(),
			"remote_addr", r.RemoteAddr,
		)
		a.httpMetrics.duration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())
		a.httpMetrics.requests.WithLabelValues(r.URL.Path, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.statusReport()); err != nil {
		a.logger.Error("Failed to write status.", "error", err)
	}
}

// metricsHandler serves the app metrics together with those of the current
// scene, which change whenever the scene is rebuilt.
func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	gatherers := prometheus.Gatherers{a.metrics}
	a.mu.RLock()
	if a.sceneMetrics != nil {
		gatherers = append(gatherers, a.sceneMetrics)
	}
	a.mu.RUnlock()
	promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (a *App) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /status", a.statusHandler)
	mux.HandleFunc("GET /metrics", a.metricsHandler)
	return a.instrument(mux)
}

// startHealthcheckServer runs the health check HTTP server in the background.
func (a *App) startHealthcheckServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthcheckServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return
	}
	logger.Debug("Health check server shut down gracefully.")
}
