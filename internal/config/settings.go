package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IngestionMode selects whether a stage reads the live feed or replays
// history; it drives the bus offset-reset policy.
type IngestionMode string

const (
	IngestionLive       IngestionMode = "LIVE"
	IngestionHistorical IngestionMode = "HISTORICAL"
)

// OffsetReset is the consumer-group offset-reset policy for a Kafka topic.
type OffsetReset string

const (
	OffsetLatestOnStart    OffsetReset = "latest-only-on-start"
	OffsetReplayFromEarliest OffsetReset = "replay-from-earliest"
)

// OffsetResetFor derives the offset-reset policy from the ingestion mode.
func OffsetResetFor(mode IngestionMode) OffsetReset {
	if mode == IngestionHistorical {
		return OffsetReplayFromEarliest
	}
	return OffsetLatestOnStart
}

// EmissionMode selects partial vs finalized candle emission.
type EmissionMode string

const (
	EmissionLive EmissionMode = "LIVE"
	EmissionFull EmissionMode = "FULL"
)

// loadDotenv loads a local .env file, if present, on every Load*Settings
// call; variables already set are not overwritten. A missing
// file is not an error — env vars set by the environment still apply, the
// way pydantic-settings' env_file only supplements os.environ.
func loadDotenv() {
	_ = godotenv.Load()
}

func getEnv(prefix, key, fallback string) string {
	if v, ok := os.LookupEnv(strings.ToUpper(prefix + key)); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(prefix, key string, fallback int) int {
	v := getEnv(prefix, key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(prefix, key string, fallback time.Duration) time.Duration {
	v := getEnv(prefix, key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvStringSlice(prefix, key string, fallback []string) []string {
	v := getEnv(prefix, key, "")
	if v == "" {
		return fallback
	}
	return strings.Split(v, ",")
}

// TradesSettings configures the trade producer (env prefix "trades_").
type TradesSettings struct {
	BrokerAddress string
	ConsumerGroup string
	LiveTopic     string
	HistoricalJobTopicPrefix string
	Exchange      string
	Symbols       []string
	IngestionMode IngestionMode
	RateLimit     time.Duration
	HealthPort    string
	MetricsPort   string
}

// LoadTradesSettings reads trades_* env vars, defaulting like the original
// Python trades_settings().
func LoadTradesSettings() TradesSettings {
	loadDotenv()
	const p = "trades_"
	return TradesSettings{
		BrokerAddress:            getEnv(p, "broker_address", "localhost:9092"),
		ConsumerGroup:            getEnv(p, "consumer_group", "trades_consumer_group"),
		LiveTopic:                getEnv(p, "topic", "trades"),
		HistoricalJobTopicPrefix: getEnv(p, "historical_topic_prefix", "trades_historical_"),
		Exchange:                 getEnv(p, "exchange", "KRAKEN"),
		Symbols:                  getEnvStringSlice(p, "symbols", []string{"XRPUSD"}),
		IngestionMode:            IngestionMode(getEnv(p, "ingestion_mode", string(IngestionLive))),
		RateLimit:                getEnvDuration(p, "rate_limit", time.Second),
		HealthPort:               getEnv(p, "health_port", "8081"),
		MetricsPort:              getEnv(p, "metrics_port", "9101"),
	}
}

// CandlesSettings configures the candle operator (env prefix "candles_").
type CandlesSettings struct {
	BrokerAddress string
	ConsumerGroup string
	InputTopic    string
	OutputTopic   string
	Timeframe     string
	EmissionMode  EmissionMode
	IngestionMode IngestionMode
	HealthPort    string
	MetricsPort   string
}

func LoadCandlesSettings() CandlesSettings {
	loadDotenv()
	const p = "candles_"
	return CandlesSettings{
		BrokerAddress: getEnv(p, "broker_address", "localhost:9092"),
		ConsumerGroup: getEnv(p, "consumer_group", "candles_consumer_group"),
		InputTopic:    getEnv(p, "input_topic", "trades"),
		OutputTopic:   getEnv(p, "output_topic", "candles"),
		Timeframe:     getEnv(p, "timeframe", "1m"),
		EmissionMode:  EmissionMode(getEnv(p, "emission_mode", string(EmissionFull))),
		IngestionMode: IngestionMode(getEnv(p, "ingestion_mode", string(IngestionLive))),
		HealthPort:    getEnv(p, "health_port", "8082"),
		MetricsPort:   getEnv(p, "metrics_port", "9102"),
	}
}

// TASettings configures the TA operator (env prefix "ta_").
type TASettings struct {
	BrokerAddress string
	ConsumerGroup string
	InputTopic    string
	OutputTopic   string
	MaxCandles    int
	RedisAddress  string
	HealthPort    string
	MetricsPort   string
}

func LoadTASettings() TASettings {
	loadDotenv()
	const p = "ta_"
	return TASettings{
		BrokerAddress: getEnv(p, "broker_address", "localhost:9092"),
		ConsumerGroup: getEnv(p, "consumer_group", "ta_consumer_group"),
		InputTopic:    getEnv(p, "input_topic", "candles"),
		OutputTopic:   getEnv(p, "output_topic", "ta"),
		MaxCandles:    getEnvInt(p, "max_candles", 60),
		RedisAddress:  getEnv(p, "redis_address", "localhost:6379"),
		HealthPort:    getEnv(p, "health_port", "8083"),
		MetricsPort:   getEnv(p, "metrics_port", "9103"),
	}
}

// NewsSettings configures the news source (env prefix "news_").
type NewsSettings struct {
	BrokerAddress    string
	ConsumerGroup    string
	OutputTopic      string
	ProviderEndpoint string
	ProviderAPIKey   string
	PollInterval     time.Duration
	HistoricalCSVPath string
	RedisAddress     string
	IngestionMode    IngestionMode
	HealthPort       string
	MetricsPort      string
}

func LoadNewsSettings() NewsSettings {
	loadDotenv()
	const p = "news_"
	return NewsSettings{
		BrokerAddress:     getEnv(p, "broker_address", "localhost:9092"),
		ConsumerGroup:     getEnv(p, "consumer_group", "news_consumer_group"),
		OutputTopic:       getEnv(p, "output_topic", "news"),
		ProviderEndpoint:  getEnv(p, "provider_endpoint", "https://cryptopanic.com/api/v1/posts/"),
		ProviderAPIKey:    getEnv(p, "provider_api_key", ""),
		PollInterval:      getEnvDuration(p, "poll_interval", 10*time.Second),
		HistoricalCSVPath: getEnv(p, "historical_csv_path", ""),
		RedisAddress:      getEnv(p, "redis_address", "localhost:6379"),
		IngestionMode:     IngestionMode(getEnv(p, "ingestion_mode", string(IngestionLive))),
		HealthPort:        getEnv(p, "health_port", "8084"),
		MetricsPort:       getEnv(p, "metrics_port", "9104"),
	}
}

// NewsSignalsSettings configures the sentiment operator (env prefix
// "newssignals_").
type NewsSignalsSettings struct {
	BrokerAddress string
	ConsumerGroup string
	InputTopic    string
	OutputTopic   string
	LLMEndpoint   string
	LLMAPIKey     string
	LLMModel      string
	HealthPort    string
	MetricsPort   string
}

func LoadNewsSignalsSettings() NewsSignalsSettings {
	loadDotenv()
	const p = "newssignals_"
	return NewsSignalsSettings{
		BrokerAddress: getEnv(p, "broker_address", "localhost:9092"),
		ConsumerGroup: getEnv(p, "consumer_group", "news_signals_consumer_group"),
		InputTopic:    getEnv(p, "input_topic", "news"),
		OutputTopic:   getEnv(p, "output_topic", "news_signals"),
		LLMEndpoint:   getEnv(p, "llm_endpoint", "https://api.anthropic.com/v1/messages"),
		LLMAPIKey:     getEnv(p, "llm_api_key", ""),
		LLMModel:      getEnv(p, "llm_model", "claude-3-5-sonnet-20240620"),
		HealthPort:    getEnv(p, "health_port", "8085"),
		MetricsPort:   getEnv(p, "metrics_port", "9105"),
	}
}
