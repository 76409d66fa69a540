// Package exchanges implements live WebSocket and historical REST trade
// ingestion for each supported exchange, normalizing every raw message
// into a domain.Trade.
package exchanges

import (
	"context"
	"time"

	"cryptopulse/internal/domain"
)

// LiveClient is the live WebSocket ingestion contract: Connect opens the
// transport and subscribes, StreamTrades yields a lazy, potentially
// infinite sequence of normalized trades on a channel, closed when the
// connection ends (normal close) or when an error is pushed to the error
// channel (abnormal close).
type LiveClient interface {
	Connect(ctx context.Context) error
	StreamTrades(ctx context.Context) (<-chan domain.Trade, <-chan error)
	Close() error
}

// HistoricalClient is the paginated REST backfill contract: StreamTrades
// yields a lazy finite sequence of trades from since up to the wall clock
// at call time.
type HistoricalClient interface {
	StreamTrades(ctx context.Context, since time.Time) (<-chan domain.Trade, <-chan error)
}

// tradeChannels returns the buffered trade/error channel pair every
// connector uses.
func tradeChannels() (chan domain.Trade, chan error) {
	return make(chan domain.Trade, 4096), make(chan error, 8)
}
