// Command ta runs the technical-analysis stage: it consumes finalized
// candles off the bus, maintains a per-key bounded ring buffer, computes
// the streaming-last-value indicator bundle, and republishes the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cryptopulse/internal/bus"
	"cryptopulse/internal/config"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/health"
	"cryptopulse/internal/metrics"
	"cryptopulse/internal/state"
	"cryptopulse/internal/ta"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Printf("failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	settings := config.LoadTASettings()
	logger.Info("starting ta service", zap.Int("max_candles", settings.MaxCandles))

	m := metrics.NewPrometheusMetrics(logger)
	if err := m.Start(settings.MetricsPort); err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}
	defer m.Stop()

	healthSrv := health.New(":"+settings.HealthPort, logger)
	healthSrv.Start()
	defer healthSrv.Stop()

	store, err := state.NewStore(settings.RedisAddress, logger)
	if err != nil {
		logger.Fatal("failed to connect to state store", zap.Error(err))
	}
	defer store.Close()

	consumer := bus.NewConsumer(settings.BrokerAddress, settings.ConsumerGroup, settings.InputTopic,
		config.OffsetLatestOnStart, logger)
	defer consumer.Close()

	producer := bus.NewProducer(settings.BrokerAddress, settings.OutputTopic, logger)
	defer producer.Close()

	op := ta.NewOperator(settings.MaxCandles, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForShutdown(logger)
		cancel()
	}()

	logger.Info("ta service ready")
	for {
		select {
		case <-ctx.Done():
			logger.Info("ta service stopped")
			return
		default:
		}

		rec, err := consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("ta service stopped")
				return
			}
			logger.Error("failed to fetch candle", zap.Error(err))
			continue
		}

		var c domain.Candle
		if err := bus.Decode(rec.Value, &c); err != nil {
			logger.Warn("dropping undecodable candle record", zap.Error(err))
			continue
		}
		if err := c.Validate(); err != nil {
			logger.Warn("dropping invalid candle", zap.Error(err))
			continue
		}

		start := time.Now()
		analysis, ok := op.Process(ctx, c)
		if !ok {
			continue
		}

		if err := producer.Publish(ctx, analysis.Key(), analysis); err != nil {
			if bp, ok := bus.AsBackpressure(err); ok {
				m.RecordBackpressurePause(settings.OutputTopic, fmt.Sprint(rec.Partition))
				consumer.Pause(ctx, bp.RetryAfter)
				continue
			}
			logger.Error("failed to publish technical analysis", zap.Error(err))
			continue
		}
		m.RecordMessageProcessed("ta", settings.OutputTopic)
		m.RecordProcessingLatency("ta", "compute", time.Since(start))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}
