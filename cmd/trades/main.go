// Command trades runs the ingestion stage: it streams normalized trades
// from one exchange (live over WebSocket, or historical over REST replay)
// and publishes them to the bus. One process handles exactly one exchange,
// supervised per symbol set.
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
	"cryptopulse/internal/exchanges"
	"cryptopulse/internal/health"
	"cryptopulse/internal/metrics"
	"cryptopulse/internal/supervisor"
)

const exchangesConfigPath = "configs/exchanges.yaml"

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}

func symbolsOf(raw []string) []domain.Symbol {
	out := make([]domain.Symbol, 0, len(raw))
	for _, s := range raw {
		out = append(out, domain.Symbol(s))
	}
	return out
}

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Printf("failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	settings := config.LoadTradesSettings()
	logger.Info("starting trades service",
		zap.String("exchange", settings.Exchange),
		zap.Strings("symbols", settings.Symbols),
		zap.String("mode", string(settings.IngestionMode)))

	m := metrics.NewPrometheusMetrics(logger)
	if err := m.Start(settings.MetricsPort); err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}
	defer m.Stop()

	healthSrv := health.New(":"+settings.HealthPort, logger)
	healthSrv.Start()
	defer healthSrv.Stop()

	topic := settings.LiveTopic
	if settings.IngestionMode == config.IngestionHistorical {
		topic = bus.HistoricalTopic(settings.HistoricalJobTopicPrefix, time.Now().Format("20060102150405"))
	}

	producer := bus.NewProducer(settings.BrokerAddress, topic, logger)
	defer producer.Close()

	exchangesCfg, err := config.LoadExchangesConfig(exchangesConfigPath)
	if err != nil {
		logger.Fatal("failed to load exchanges config", zap.Error(err))
	}
	endpoints, ok := exchangesCfg.ByName(settings.Exchange)
	if !ok {
		logger.Fatal("exchange not found in exchanges config", zap.String("exchange", settings.Exchange))
	}

	sup := supervisor.NewSupervisor(logger)
	symbols := symbolsOf(settings.Symbols)

	workerFn := tradesWorker(settings, symbols, endpoints, producer, m, logger)
	err = sup.AddWorker(supervisor.WorkerConfig{
		Name:           fmt.Sprintf("trades-%s", settings.Exchange),
		Detail:         fmt.Sprintf("%s/%v", settings.Exchange, settings.Symbols),
		MaxRetries:     0,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     60 * time.Second,
		BackoffFactor:  2.0,
	}, workerFn)
	if err != nil {
		logger.Fatal("failed to register trades worker", zap.Error(err))
	}

	if err := sup.Start(); err != nil {
		logger.Fatal("failed to start supervisor", zap.Error(err))
	}

	waitForShutdown(logger)

	if err := sup.Stop(); err != nil {
		logger.Error("error stopping supervisor", zap.Error(err))
	}
	logger.Info("trades service stopped")
}

func tradesWorker(settings config.TradesSettings, symbols []domain.Symbol, endpoints config.ExchangeEndpoints, producer *bus.Producer, m *metrics.PrometheusMetrics, logger *zap.Logger) supervisor.WorkerFunc {
	return func(ctx context.Context) error {
		if settings.IngestionMode == config.IngestionHistorical {
			return runHistorical(ctx, settings, symbols, endpoints, producer, m, logger)
		}
		// Live ingestion reconnects on every clean disconnect instead of
		// letting the supervisor's backoff own reconnection: a closed
		// WebSocket is the normal steady state for a long-lived feed, not
		// a failure the supervisor should count against the worker.
		for {
			if err := runLive(ctx, settings, symbols, endpoints, producer, m, logger); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
				logger.Info("reconnecting after clean disconnect", zap.String("exchange", settings.Exchange))
			}
		}
	}
}

func runLive(ctx context.Context, settings config.TradesSettings, symbols []domain.Symbol, endpoints config.ExchangeEndpoints, producer *bus.Producer, m *metrics.PrometheusMetrics, logger *zap.Logger) error {
	client, err := liveClientFor(settings.Exchange, symbols, endpoints.WebSocketURL, logger)
	if err != nil {
		return err
	}

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("trades: failed to connect to %s: %w", settings.Exchange, err)
	}
	defer client.Close()

	m.SetExchangeStatus(settings.Exchange, true)
	m.SetActiveConnections(settings.Exchange, 1)
	defer m.SetExchangeStatus(settings.Exchange, false)
	defer m.SetActiveConnections(settings.Exchange, 0)

	tradesCh, errCh := client.StreamTrades(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errCh:
			if !ok || err == nil {
				return nil
			}
			m.RecordWebSocketReconnect(settings.Exchange, "stream_error")
			return fmt.Errorf("trades: stream error: %w", err)
		case trade, ok := <-tradesCh:
			if !ok {
				return nil
			}
			start := time.Now()
			if err := trade.Validate(); err != nil {
				logger.Warn("dropping invalid trade", zap.Error(err))
				continue
			}
			if err := producer.Publish(ctx, string(trade.Symbol), trade); err != nil {
				if bp, ok := bus.AsBackpressure(err); ok {
					m.RecordBackpressurePause(settings.LiveTopic, "0")
					time.Sleep(bp.RetryAfter)
					continue
				}
				return fmt.Errorf("trades: failed to publish trade: %w", err)
			}
			m.RecordMessageProcessed("trades", settings.LiveTopic)
			m.RecordProcessingLatency("trades", "publish", time.Since(start))
		}
	}
}

func runHistorical(ctx context.Context, settings config.TradesSettings, symbols []domain.Symbol, endpoints config.ExchangeEndpoints, producer *bus.Producer, m *metrics.PrometheusMetrics, logger *zap.Logger) error {
	client := exchanges.NewKrakenRESTClient(symbols, endpoints.RESTURL, settings.RateLimit, logger)
	since := time.Now().Add(-24 * time.Hour)

	tradesCh, errCh := client.StreamTrades(ctx, since)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("trades: historical fetch failed: %w", err)
			}
		case trade, ok := <-tradesCh:
			if !ok {
				logger.Info("historical replay complete")
				return nil
			}
			if err := producer.Publish(ctx, string(trade.Symbol), trade); err != nil {
				return fmt.Errorf("trades: failed to publish historical trade: %w", err)
			}
			m.RecordMessageProcessed("trades", "historical")
		}
	}
}

func liveClientFor(exchange string, symbols []domain.Symbol, wsURL string, logger *zap.Logger) (exchanges.LiveClient, error) {
	switch domain.Exchange(exchange) {
	case domain.ExchangeKraken:
		return exchanges.NewKrakenWSClient(symbols, wsURL, logger), nil
	case domain.ExchangeBinance:
		return exchanges.NewBinanceWSClient(symbols, wsURL, logger), nil
	case domain.ExchangeBybit:
		return exchanges.NewBybitWSClient(symbols, wsURL, logger), nil
	default:
		return nil, fmt.Errorf("trades: unsupported exchange %q", exchange)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}
