// Package state provides the per-key state handles the pipeline's stateful
// operators need: a candle ring buffer keyed by (symbol, timeframe), and a
// news watermark keyed by source name. Both are owned exclusively by the
// partition that processes that key and are checkpointed here so a restart
// resumes instead of reprocessing or duplicating.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is a Redis-backed get/set handle for per-key operator state.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewStore connects to Redis and verifies connectivity before returning.
func NewStore(addr string, logger *zap.Logger) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("state: failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("state store connected", zap.String("addr", addr))
	return &Store{rdb: rdb, logger: logger}, nil
}

// Get decodes the JSON value stored under key into dest, returning
// found=false (not an error) when the key does not exist.
func (s *Store) Get(ctx context.Context, key string, dest any) (found bool, err error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("state: failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set JSON-encodes value and stores it under key, replacing any prior
// value. Callers invoke it once per record boundary, after a key's
// in-memory state has settled, so it acts as that key's commit point.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: failed to encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("state: failed to set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// CandleRingKey is the state key for a TA operator's candle ring, keyed by
// (symbol, timeframe).
func CandleRingKey(symbol, timeframe string) string {
	return fmt.Sprintf("ta:ring:%s:%s", symbol, timeframe)
}

// WatermarkKey is the state key for a news source's watermark, keyed by
// source name.
func WatermarkKey(source string) string {
	return fmt.Sprintf("news:watermark:%s", source)
}
