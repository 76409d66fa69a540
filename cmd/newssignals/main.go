// Command newssignals runs the sentiment-classification stage: it
// consumes news stories off the bus, classifies each story's per-asset
// sentiment via an LLM, and republishes the encoded feature vector.
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
	"cryptopulse/internal/sentiment"
	"cryptopulse/pkg/llmclient"
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

	settings := config.LoadNewsSignalsSettings()
	logger.Info("starting newssignals service", zap.String("llm_model", settings.LLMModel))

	m := metrics.NewPrometheusMetrics(logger)
	if err := m.Start(settings.MetricsPort); err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}
	defer m.Stop()

	healthSrv := health.New(":"+settings.HealthPort, logger)
	healthSrv.Start()
	defer healthSrv.Stop()

	consumer := bus.NewConsumer(settings.BrokerAddress, settings.ConsumerGroup, settings.InputTopic,
		config.OffsetLatestOnStart, logger)
	defer consumer.Close()

	producer := bus.NewProducer(settings.BrokerAddress, settings.OutputTopic, logger)
	defer producer.Close()

	llm := llmclient.NewClient(settings.LLMEndpoint, settings.LLMAPIKey, settings.LLMModel)
	analyzer := sentiment.NewAnalyzer(llm, settings.LLMModel, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForShutdown(logger)
		cancel()
	}()

	logger.Info("newssignals service ready")
	for {
		select {
		case <-ctx.Done():
			logger.Info("newssignals service stopped")
			return
		default:
		}

		rec, err := consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("newssignals service stopped")
				return
			}
			logger.Error("failed to fetch news story", zap.Error(err))
			continue
		}

		var story domain.NewsStory
		if err := bus.Decode(rec.Value, &story); err != nil {
			logger.Warn("dropping undecodable news record", zap.Error(err))
			continue
		}

		start := time.Now()
		analysis, err := analyzer.Analyze(ctx, story)
		if err != nil {
			logger.Error("sentiment analysis failed", zap.Error(err))
			continue
		}

		if err := producer.Publish(ctx, string(story.Outlet), analysis.Encoded()); err != nil {
			if bp, ok := bus.AsBackpressure(err); ok {
				m.RecordBackpressurePause(settings.OutputTopic, fmt.Sprint(rec.Partition))
				consumer.Pause(ctx, bp.RetryAfter)
				continue
			}
			logger.Error("failed to publish sentiment analysis", zap.Error(err))
			continue
		}
		m.RecordMessageProcessed("newssignals", settings.OutputTopic)
		m.RecordProcessingLatency("newssignals", "classify", time.Since(start))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}
