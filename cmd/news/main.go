// Command news runs the news-ingestion stage: it either polls the live
// news provider's paginated feed or replays a historical CSV export,
// publishing every story to the bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cryptopulse/internal/bus"
	"cryptopulse/internal/config"
	"cryptopulse/internal/domain"
	"cryptopulse/internal/health"
	"cryptopulse/internal/metrics"
	"cryptopulse/internal/news"
	"cryptopulse/internal/state"
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

	settings := config.LoadNewsSettings()
	logger.Info("starting news service", zap.String("mode", string(settings.IngestionMode)))

	m := metrics.NewPrometheusMetrics(logger)
	if err := m.Start(settings.MetricsPort); err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}
	defer m.Stop()

	healthSrv := health.New(":"+settings.HealthPort, logger)
	healthSrv.Start()
	defer healthSrv.Stop()

	producer := bus.NewProducer(settings.BrokerAddress, settings.OutputTopic, logger)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForShutdown(logger)
		cancel()
	}()

	emit := func(s domain.NewsStory) error {
		return producer.Publish(ctx, string(s.Outlet), s)
	}

	if settings.IngestionMode == config.IngestionHistorical {
		runHistorical(settings, emit, logger, m)
		return
	}
	runLive(ctx, settings, emit, logger, m)
}

func runHistorical(settings config.NewsSettings, emit func(domain.NewsStory) error, logger *zap.Logger, m *metrics.PrometheusMetrics) {
	if settings.HistoricalCSVPath == "" {
		logger.Fatal("news_historical_csv_path must be set in historical mode")
	}

	f, err := os.Open(settings.HistoricalCSVPath)
	if err != nil {
		logger.Fatal("failed to open historical CSV", zap.Error(err))
	}
	defer f.Close()

	source, err := news.NewHistoricalSource(f)
	if err != nil {
		logger.Fatal("failed to parse historical CSV header", zap.Error(err))
	}

	counted := func(s domain.NewsStory) error {
		if err := emit(s); err != nil {
			return err
		}
		m.RecordMessageProcessed("news", settings.OutputTopic)
		return nil
	}

	if err := source.ReplayAll(counted); err != nil {
		logger.Fatal("historical replay failed", zap.Error(err))
	}
	logger.Info("historical replay complete")
}

func runLive(ctx context.Context, settings config.NewsSettings, emit func(domain.NewsStory) error, logger *zap.Logger, m *metrics.PrometheusMetrics) {
	store, err := state.NewStore(settings.RedisAddress, logger)
	if err != nil {
		logger.Fatal("failed to connect to state store", zap.Error(err))
	}
	defer store.Close()

	poller := news.NewPoller(settings.ProviderEndpoint, settings.ProviderAPIKey, settings.PollInterval, store, logger)
	if err := poller.LoadWatermark(ctx); err != nil {
		logger.Warn("failed to load news watermark, starting fresh", zap.Error(err))
	}

	counted := func(s domain.NewsStory) error {
		if err := emit(s); err != nil {
			return err
		}
		m.RecordMessageProcessed("news", settings.OutputTopic)
		return nil
	}

	logger.Info("news service ready")
	if err := poller.Run(ctx, counted); err != nil && ctx.Err() == nil {
		logger.Error("news poller stopped with error", zap.Error(err))
	}
	logger.Info("news service stopped")
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}
