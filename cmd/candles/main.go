// Command candles runs the candle-aggregation stage: it consumes trades
// off the bus, reduces them into tumbling-window OHLCV candles, and
// republishes finalized/partial candles depending on the configured
// emission mode.
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
	"cryptopulse/internal/candle"
	"cryptopulse/internal/config"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/health"
	"cryptopulse/internal/metrics"
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

	settings := config.LoadCandlesSettings()
	logger.Info("starting candles service",
		zap.String("timeframe", settings.Timeframe),
		zap.String("emission_mode", string(settings.EmissionMode)))

	m := metrics.NewPrometheusMetrics(logger)
	if err := m.Start(settings.MetricsPort); err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}
	defer m.Stop()

	healthSrv := health.New(":"+settings.HealthPort, logger)
	healthSrv.Start()
	defer healthSrv.Stop()

	consumer := bus.NewConsumer(settings.BrokerAddress, settings.ConsumerGroup, settings.InputTopic,
		config.OffsetResetFor(settings.IngestionMode), logger)
	defer consumer.Close()

	producer := bus.NewProducer(settings.BrokerAddress, settings.OutputTopic, logger)
	defer producer.Close()

	op := candle.NewOperator(settings.EmissionMode, logger)
	timeframe := domain.Timeframe(settings.Timeframe)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForShutdown(logger)
		cancel()
	}()

	logger.Info("candles service ready")
	for {
		select {
		case <-ctx.Done():
			logger.Info("candles service stopped")
			return
		default:
		}

		rec, err := consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("candles service stopped")
				return
			}
			logger.Error("failed to fetch trade", zap.Error(err))
			continue
		}

		var trade domain.Trade
		if err := bus.Decode(rec.Value, &trade); err != nil {
			logger.Warn("dropping undecodable trade record", zap.Error(err))
			continue
		}
		if err := trade.Validate(); err != nil {
			logger.Warn("dropping invalid trade", zap.Error(err))
			continue
		}

		start := time.Now()
		c, emit := op.Process(trade, timeframe)
		if emit {
			publishCandle(ctx, c, producer, consumer, m, settings, rec.Partition, logger)
			m.RecordProcessingLatency("candles", "reduce", time.Since(start))
		}

		// A key that has gone quiet never rolls its window over on its own:
		// nothing arrives to trigger Process's start>ws.start branch for it.
		// Driving CloseExpired off the latest observed trade timestamp
		// finalizes any such idle window once time has moved past its end.
		for _, closed := range op.CloseExpired(trade.Timestamp) {
			publishCandle(ctx, closed, producer, consumer, m, settings, rec.Partition, logger)
		}
	}
}

func publishCandle(ctx context.Context, c domain.Candle, producer *bus.Producer, consumer *bus.Consumer, m *metrics.PrometheusMetrics, settings config.CandlesSettings, partition int, logger *zap.Logger) {
	if err := c.Validate(); err != nil {
		logger.Error("computed candle failed validation, dropping", zap.Error(err))
		return
	}

	key := candle.Key(c.Exchange, c.Symbol, c.Timeframe)
	if err := producer.Publish(ctx, key, c); err != nil {
		if bp, ok := bus.AsBackpressure(err); ok {
			m.RecordBackpressurePause(settings.OutputTopic, fmt.Sprint(partition))
			consumer.Pause(ctx, bp.RetryAfter)
			return
		}
		logger.Error("failed to publish candle", zap.Error(err))
		return
	}
	m.RecordMessageProcessed("candles", settings.OutputTopic)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}
