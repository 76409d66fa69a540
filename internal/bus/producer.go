package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes JSON-encoded, string-keyed records to a topic.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
	topic  string
}

// backpressureRetryAfter is how long a caller should pause before retrying
// a publish that failed because the broker couldn't keep up.
const backpressureRetryAfter = 2 * time.Second

// NewProducer opens a producer handle for a topic. Producer handles are
// meant to be long-lived, one per topic, held for the life of the process
// and closed on shutdown.
func NewProducer(brokerAddress, topic string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddress),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger.With(zap.String("topic", topic)),
		topic:  topic,
	}
}

// Publish JSON-encodes value and writes it under key. A write that fails
// because the broker is too slow to keep up (a write timeout or a
// temporary/retriable transport error) is surfaced as a *Backpressure
// instead of a plain error, so the caller can pause the affected partition
// and retry rather than treating the publish as a hard failure.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	payload, err := Encode(value)
	if err != nil {
		return fmt.Errorf("bus: failed to encode message for %s: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if isBackpressure(err) {
			p.logger.Warn("publish backpressure, pausing partition", zap.String("key", key), zap.Error(err))
			return NewBackpressure(p.topic, -1, backpressureRetryAfter)
		}
		p.logger.Error("failed to publish message", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("bus: failed to publish to %s: %w", p.topic, err)
	}

	p.logger.Debug("published message", zap.String("key", key))
	return nil
}

// temporary is satisfied by net.Error and kafka-go's own Error type, both
// of which distinguish a transient condition from a permanent one.
type temporary interface {
	Temporary() bool
}

// isBackpressure reports whether err indicates the broker is temporarily
// unable to keep up with writes, rather than a permanent failure: a write
// that blew through WriteTimeout, or an error the transport itself marks
// temporary/retriable.
func isBackpressure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}

// Close drains and closes the producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
