// Package metrics exposes Prometheus counters, histograms, and gauges for
// the pipeline's concerns: messages processed per stage/topic, processing
// latency, ingestion connection status, WebSocket reconnects, backpressure
// pauses, and state-store operations, served over a small /metrics +
// /health HTTP server.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PrometheusMetrics handles all Prometheus metrics for cryptopulse.
type PrometheusMetrics struct {
	// Pipeline Metrics
	MessagesProcessed *prometheus.CounterVec
	ProcessingLatency *prometheus.HistogramVec
	ActiveConnections *prometheus.GaugeVec

	// Exchange Metrics
	ExchangeStatus      *prometheus.GaugeVec
	WebSocketReconnects *prometheus.CounterVec

	// Bus Metrics
	BackpressurePauses *prometheus.CounterVec

	// Service Health
	ServiceUptime   *prometheus.GaugeVec
	StateOperations *prometheus.CounterVec

	logger *zap.Logger
	server *http.Server
}

// NewPrometheusMetrics creates a new Prometheus metrics instance.
func NewPrometheusMetrics(logger *zap.Logger) *PrometheusMetrics {
	metrics := &PrometheusMetrics{
		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopulse_messages_processed_total",
				Help: "Total number of messages processed",
			},
			[]string{"stage", "topic"},
		),

		ProcessingLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptopulse_processing_latency_seconds",
				Help:    "Message processing latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"stage", "operation"},
		),

		ActiveConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptopulse_active_connections",
				Help: "Number of active live ingestion connections",
			},
			[]string{"exchange"},
		),

		ExchangeStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptopulse_exchange_status",
				Help: "Exchange connection status (1=connected, 0=disconnected)",
			},
			[]string{"exchange"},
		),

		WebSocketReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopulse_websocket_reconnects_total",
				Help: "Total number of WebSocket reconnections",
			},
			[]string{"exchange", "reason"},
		),

		BackpressurePauses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopulse_backpressure_pauses_total",
				Help: "Total number of consumer partition pauses due to backpressure",
			},
			[]string{"topic", "partition"},
		),

		ServiceUptime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptopulse_service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
			[]string{"service"},
		),

		StateOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptopulse_state_operations_total",
				Help: "Total number of state-store get/set operations",
			},
			[]string{"operation", "status"},
		),

		logger: logger,
	}

	prometheus.MustRegister(
		metrics.MessagesProcessed,
		metrics.ProcessingLatency,
		metrics.ActiveConnections,
		metrics.ExchangeStatus,
		metrics.WebSocketReconnects,
		metrics.BackpressurePauses,
		metrics.ServiceUptime,
		metrics.StateOperations,
	)

	return metrics
}

// Start starts the Prometheus metrics HTTP server.
func (m *PrometheusMetrics) Start(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	m.logger.Info("starting metrics server", zap.String("port", port))

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Prometheus metrics server.
func (m *PrometheusMetrics) Stop() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.logger.Info("stopping metrics server")
	return m.server.Shutdown(ctx)
}

// RecordMessageProcessed records a processed message.
func (m *PrometheusMetrics) RecordMessageProcessed(stage, topic string) {
	m.MessagesProcessed.WithLabelValues(stage, topic).Inc()
}

// RecordProcessingLatency records processing latency.
func (m *PrometheusMetrics) RecordProcessingLatency(stage, operation string, duration time.Duration) {
	m.ProcessingLatency.WithLabelValues(stage, operation).Observe(duration.Seconds())
}

// SetActiveConnections sets the number of active connections.
func (m *PrometheusMetrics) SetActiveConnections(exchange string, count int) {
	m.ActiveConnections.WithLabelValues(exchange).Set(float64(count))
}

// SetExchangeStatus sets the exchange connection status.
func (m *PrometheusMetrics) SetExchangeStatus(exchange string, connected bool) {
	status := 0.0
	if connected {
		status = 1.0
	}
	m.ExchangeStatus.WithLabelValues(exchange).Set(status)
}

// RecordWebSocketReconnect records a WebSocket reconnection.
func (m *PrometheusMetrics) RecordWebSocketReconnect(exchange, reason string) {
	m.WebSocketReconnects.WithLabelValues(exchange, reason).Inc()
}

// RecordBackpressurePause records a consumer partition pause.
func (m *PrometheusMetrics) RecordBackpressurePause(topic, partition string) {
	m.BackpressurePauses.WithLabelValues(topic, partition).Inc()
}

// SetServiceUptime sets the service uptime.
func (m *PrometheusMetrics) SetServiceUptime(service string, uptime time.Duration) {
	m.ServiceUptime.WithLabelValues(service).Set(uptime.Seconds())
}

// RecordStateOperation records a state-store get/set operation.
func (m *PrometheusMetrics) RecordStateOperation(operation, status string) {
	m.StateOperations.WithLabelValues(operation, status).Inc()
}
