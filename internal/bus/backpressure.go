package bus

import (
	"fmt"
	"time"
)

// Backpressure is the typed signal a sink raises when it cannot keep up:
// the runtime must pause the affected partition for at least RetryAfter
// before retrying.
type Backpressure struct {
	Topic     string
	Partition int
	RetryAfter time.Duration
}

func (b *Backpressure) Error() string {
	return fmt.Sprintf("bus: backpressure on %s[%d], retry after %s", b.Topic, b.Partition, b.RetryAfter)
}

// NewBackpressure constructs a Backpressure signal, flooring retryAfter at
// zero so a negative duration can never shrink the pause below "none".
func NewBackpressure(topic string, partition int, retryAfter time.Duration) *Backpressure {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Backpressure{Topic: topic, Partition: partition, RetryAfter: retryAfter}
}

// AsBackpressure unwraps err into a *Backpressure signal, if it is one.
func AsBackpressure(err error) (*Backpressure, bool) {
	bp, ok := err.(*Backpressure)
	return bp, ok
}
