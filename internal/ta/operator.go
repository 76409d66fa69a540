package ta

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/state"
)

// Operator is the keyed TA operator: one Ring per (symbol, timeframe),
// checkpointed to the state store so a restart resumes with the same
// buffer instead of recomputing indicators from a cold, empty ring.
type Operator struct {
	mu     sync.Mutex
	rings  map[string]*Ring
	n      int
	store  *state.Store
	logger *zap.Logger
}

// NewOperator builds a TA operator bounding every ring at n candles
// (60 by default).
func NewOperator(n int, store *state.Store, logger *zap.Logger) *Operator {
	return &Operator{rings: make(map[string]*Ring), n: n, store: store, logger: logger}
}

// ringKey identifies a ring by (symbol, timeframe), matching
// state.CandleRingKey's key shape.
func ringKey(c domain.Candle) string {
	return state.CandleRingKey(string(c.Symbol), string(c.Timeframe))
}

// Process pushes a finalized (or LIVE-updated) candle into its ring,
// persists the ring, and returns the recomputed indicator bundle. It
// reports false if the candle was rejected (incompatible with the ring's
// current key) so callers don't emit a TA record for it.
func (o *Operator) Process(ctx context.Context, c domain.Candle) (domain.TechnicalAnalysis, bool) {
	key := ringKey(c)

	o.mu.Lock()
	ring, exists := o.rings[key]
	if !exists {
		ring = NewRing(o.n)
		if o.store != nil {
			var persisted []domain.Candle
			if found, err := o.store.Get(ctx, key, &persisted); err != nil {
				o.logger.Warn("failed to load persisted ring, starting empty", zap.String("key", key), zap.Error(err))
			} else if found {
				ring.Candles = persisted
			}
		}
		o.rings[key] = ring
	}
	o.mu.Unlock()

	if !ring.Push(c) {
		o.logger.Debug("dropping candle incompatible with ring key", zap.String("key", key))
		return domain.TechnicalAnalysis{}, false
	}

	if o.store != nil {
		if err := o.store.Set(ctx, key, ring.Candles); err != nil {
			o.logger.Warn("failed to persist ring", zap.String("key", key), zap.Error(err))
		}
	}

	return Compute(ring), true
}
