package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amiryogi/bivanhandicraft-sub001/internal/config"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/esewa"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/handlers"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/logger"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/metrics"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/storage"
)

var (
	// Standard HTTP metrics recorded by the instrumentation middleware
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	metrics.Register()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingSecret) {
			logger.Fatal("refusing to start without a signing secret", map[string]interface{}{
				"error": err.Error(),
			})
		}
		logger.Fatal("failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer store.Close()

	gateway, err := esewa.New(esewa.Config{
		SecretKey:   cfg.ESewaSecretKey,
		ProductCode: cfg.ProductCode,
		SuccessURL:  cfg.FrontendURL + "/payment/success",
		FailureURL:  cfg.FrontendURL + "/payment/failure",
	})
	if err != nil {
		logger.Fatal("failed to configure gateway client", map[string]interface{}{
			"error": err.Error(),
		})
	}

	h := handlers.New(store, gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/payment/initiate", instrumentHandler("payment-initiate", h.Initiate))
	mux.HandleFunc("/api/payment/verify", instrumentHandler("payment-verify", h.Verify))
	mux.HandleFunc("/health", instrumentHandler("health", h.Health))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting payment server", map[string]interface{}{
		"port":         cfg.Port,
		"product_code": cfg.ProductCode,
		"frontend_url": cfg.FrontendURL,
	})

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	logger.Info("shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("server shutdown complete", nil)
}

// instrumentHandler wraps an HTTP handler with Prometheus instrumentation
func instrumentHandler(handlerName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(wrapped, r)

		duration := time.Since(startTime).Seconds()
		httpRequestDuration.WithLabelValues(handlerName, r.Method).Observe(duration)
		httpRequestsTotal.WithLabelValues(handlerName, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	}
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
