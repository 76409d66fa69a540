// Package candle implements the tumbling-window reduction of trades into
// OHLCV candles per (exchange, symbol, timeframe): a per-key window state
// map guarded by a mutex, rolled over on message time rather than a
// wall-clock poll.
package candle

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cryptopulse/internal/config"
	"cryptopulse/internal/domain"
)

// key identifies one operator partition: a single (exchange, symbol,
// timeframe) tuple never mixes with another.
type key struct {
	exchange  domain.Exchange
	symbol    domain.Symbol
	timeframe domain.Timeframe
}

// Operator is the keyed tumbling-window reducer. One instance owns every
// key it has seen a trade for; in the real deployment a partition range
// maps to one operator instance.
type Operator struct {
	mu      sync.Mutex
	windows map[key]windowState
	mode    config.EmissionMode
	logger  *zap.Logger
}

// windowState pairs the current window's candle with its bounds, computed
// once from the trade that opened the window.
type windowState struct {
	candle     domain.Candle
	start, end int64
}

// NewOperator builds a candle operator in the given emission mode.
func NewOperator(mode config.EmissionMode, logger *zap.Logger) *Operator {
	return &Operator{
		windows: make(map[key]windowState),
		mode:    mode,
		logger:  logger,
	}
}

// Process applies one trade to the (exchange, symbol, timeframe) window it
// belongs to and returns the candle to emit, if any, per the configured
// emission mode. A trade that fails domain.Trade.Validate is rejected and
// produces no emission. A trade for a prior, already-closed window (one
// whose bucket is behind the operator's current window for that key) is
// dropped rather than reopening a stale window.
func (o *Operator) Process(trade domain.Trade, timeframe domain.Timeframe) (domain.Candle, bool) {
	if err := trade.Validate(); err != nil {
		o.logger.Warn("rejecting invalid trade", zap.Error(err))
		return domain.Candle{}, false
	}

	k := key{exchange: trade.Exchange, symbol: trade.Symbol, timeframe: timeframe}
	start, end := domain.WindowBounds(timeframe, trade.Timestamp)

	o.mu.Lock()
	defer o.mu.Unlock()

	ws, exists := o.windows[k]

	var closedForFull *domain.Candle
	switch {
	case !exists:
		ws = windowState{candle: domain.Init(timeframe, trade), start: start, end: end}
	case ws.start == start:
		ws.candle = ws.candle.Update(trade)
	case start > ws.start:
		if o.mode == config.EmissionFull {
			c := ws.candle.CloseWindow(ws.start, ws.end)
			closedForFull = &c
		}
		ws = windowState{candle: domain.Init(timeframe, trade), start: start, end: end}
	default:
		o.logger.Debug("dropping trade for closed window",
			zap.String("symbol", string(trade.Symbol)), zap.Int64("trade_start", start), zap.Int64("window_start", ws.start))
		return domain.Candle{}, false
	}

	o.windows[k] = ws

	if o.mode == config.EmissionFull {
		if closedForFull != nil {
			return *closedForFull, true
		}
		return domain.Candle{}, false
	}

	out := ws.candle.CloseWindow(ws.start, ws.end)
	return out, true
}

// CloseExpired finalizes and removes every window whose end bound is at or
// before cutoffMs, returning the finalized candles. Callers drive cutoffMs
// from the timestamp of the latest observed trade across all keys, since
// message-time windowing has no wall clock of its own to notice a key has
// gone idle: a symbol with no further trades would otherwise sit in its
// last window forever and never finalize.
func (o *Operator) CloseExpired(cutoffMs int64) []domain.Candle {
	o.mu.Lock()
	defer o.mu.Unlock()

	var closed []domain.Candle
	for k, ws := range o.windows {
		if ws.end <= cutoffMs {
			closed = append(closed, ws.candle.CloseWindow(ws.start, ws.end))
			delete(o.windows, k)
		}
	}
	return closed
}

// Key formats the bus partition key for a candle's (exchange, symbol,
// timeframe).
func Key(exchange domain.Exchange, symbol domain.Symbol, timeframe domain.Timeframe) string {
	return fmt.Sprintf("%s:%s:%s", exchange, symbol, timeframe)
}
