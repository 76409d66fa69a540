package metrics

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestPrometheusMetricsRecorders exercises construction plus every recorder
// once against the process-wide default registry. All assertions live in
// one test function because NewPrometheusMetrics registers its collectors
// via prometheus.MustRegister against the global registry, and a second
// construction in another test would panic on a duplicate-metric collision.
func TestPrometheusMetricsRecorders(t *testing.T) {
	m := NewPrometheusMetrics(zap.NewNop())

	m.RecordMessageProcessed("trades", "trades.live")
	m.RecordProcessingLatency("trades", "publish", 5*time.Millisecond)
	m.SetActiveConnections("KRAKEN", 1)
	m.SetExchangeStatus("KRAKEN", true)
	m.RecordWebSocketReconnect("KRAKEN", "stream_error")
	m.RecordBackpressurePause("candles.1m", "0")
	m.SetServiceUptime("trades", time.Minute)
	m.RecordStateOperation("get", "hit")

	if err := m.Stop(); err != nil {
		t.Errorf("expected Stop before Start to be a no-op, got %v", err)
	}
}
