package observability

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsMux serves /metrics plus, when hc is set, /health and /ready
func MetricsMux(hc *HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if hc != nil {
		mux.Handle("GET /health", hc.HealthHandler())
		mux.Handle("GET /ready", hc.ReadyHandler())
	}
	return mux
}

// StartMetricsServer serves MetricsMux on its own port so scrapes and
// probes bypass the storefront middleware. The caller owns shutdown.
func StartMetricsServer(port int, hc *HealthChecker, logger *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           MetricsMux(hc),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		logger.Info("Metrics server listening", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return server
}
