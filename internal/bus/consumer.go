package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"cryptopulse/internal/config"
)

// Consumer reads JSON-encoded records from a topic under a consumer group,
// applying the ingestion-mode-derived offset-reset policy.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
	topic  string
}

// NewConsumer opens a consumer handle. offsetReset selects whether a group
// with no committed offset starts at the tail (LIVE) or the head
// (HISTORICAL) of the topic.
func NewConsumer(brokerAddress, groupID, topic string, offsetReset config.OffsetReset, logger *zap.Logger) *Consumer {
	startOffset := kafka.LastOffset
	if offsetReset == config.OffsetReplayFromEarliest {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{brokerAddress},
		GroupID:        groupID,
		Topic:          topic,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})

	return &Consumer{reader: reader, logger: logger.With(zap.String("topic", topic)), topic: topic}
}

// Record is a decoded message read from the bus.
type Record struct {
	Key       string
	Value     []byte
	Partition int
}

// Fetch blocks for the next message, decoding its key. It returns ctx.Err()
// unmodified on cancellation so callers can treat it as a clean shutdown.
func (c *Consumer) Fetch(ctx context.Context) (Record, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Record{}, err
	}
	return Record{Key: string(msg.Key), Value: msg.Value, Partition: msg.Partition}, nil
}

// Pause blocks for at least d, honoring a Backpressure signal's RetryAfter
// before the caller attempts the next Fetch on the affected partition.
func (c *Consumer) Pause(ctx context.Context, d time.Duration) error {
	c.logger.Warn("pausing consumption for backpressure", zap.Duration("retry_after", d))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Close releases the underlying connection.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("bus: failed to close consumer for %s: %w", c.topic, err)
	}
	return nil
}
