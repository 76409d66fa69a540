// Package bus wires the pipeline's stages together over Kafka: topic
// creation is implicit (broker auto-create), JSON serialization, consumer
// groups, offset-reset policy and a typed backpressure signal a sink can
// raise when it falls behind.
package bus

import (
	"encoding/json"
	"fmt"
)

// TimestampExtractor reads the message-time field from a decoded payload,
// so windowing can key off the event's own timestamp rather than the
// time the broker happened to receive it.
type TimestampExtractor func(payload map[string]any) (int64, error)

// ExtractTimestampField is the default extractor: it reads the top-level
// "timestamp" field every record on the bus carries.
func ExtractTimestampField(payload map[string]any) (int64, error) {
	v, ok := payload["timestamp"]
	if !ok {
		return 0, fmt.Errorf("bus: payload missing \"timestamp\" field")
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("bus: \"timestamp\" field has unexpected type %T", v)
	}
}

// Encode JSON-encodes a record for publication.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode JSON-decodes a record read from the bus.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// HistoricalTopic returns the per-job historical trades topic name, so
// live and historical trades never interleave into the same partition.
func HistoricalTopic(prefix, jobID string) string {
	return prefix + jobID
}
