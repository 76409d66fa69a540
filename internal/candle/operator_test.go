package candle

import (
	"testing"

	"go.uber.org/zap"

	"cryptopulse/internal/config"
	"cryptopulse/internal/domain"
)

func tradeAt(price, volume float64, ts int64) domain.Trade {
	return domain.Trade{Exchange: domain.ExchangeKraken, Symbol: domain.SymbolXRPUSD, Price: price, Volume: volume, Timestamp: ts}
}

func TestLiveSingleWindow(t *testing.T) {
	op := NewOperator(config.EmissionLive, zap.NewNop())

	trades := []domain.Trade{tradeAt(10, 1, 1000), tradeAt(12, 2, 5000), tradeAt(11, 3, 59000)}

	var last domain.Candle
	for i, tr := range trades {
		c, ok := op.Process(tr, domain.Timeframe1m)
		if !ok {
			t.Fatalf("trade %d: expected an emission", i)
		}
		last = c
	}

	if last.Open != 10 || last.High != 12 || last.Low != 10 || last.Close != 11 || last.Volume != 6 {
		t.Errorf("got OHLCV %+v, want open=10 high=12 low=10 close=11 volume=6", last)
	}
	if last.Start != 0 || last.End != 60000 || last.Timestamp != 59000 {
		t.Errorf("got bounds start=%d end=%d ts=%d, want start=0 end=60000 ts=59000", last.Start, last.End, last.Timestamp)
	}
}

// TestFullWindowBoundary checks that FULL mode emits only once, at window
// close, and that a trade at t=60000 starts a new window rather than
// entering the prior candle.
func TestFullWindowBoundary(t *testing.T) {
	op := NewOperator(config.EmissionFull, zap.NewNop())

	for i, tr := range []domain.Trade{tradeAt(10, 1, 1000), tradeAt(12, 2, 5000), tradeAt(11, 3, 59000)} {
		if _, ok := op.Process(tr, domain.Timeframe1m); ok {
			t.Fatalf("trade %d: unexpected emission before window close", i)
		}
	}

	closing := tradeAt(99, 5, 60000)
	c, ok := op.Process(closing, domain.Timeframe1m)
	if !ok {
		t.Fatal("expected emission on window rollover")
	}
	if c.Open != 10 || c.High != 12 || c.Low != 10 || c.Close != 11 || c.Volume != 6 {
		t.Errorf("got OHLCV %+v, want open=10 high=12 low=10 close=11 volume=6", c)
	}
	if c.Start != 0 || c.End != 60000 {
		t.Errorf("got bounds start=%d end=%d, want start=0 end=60000", c.Start, c.End)
	}

	// the closing trade must not have entered the prior candle
	if c.Timestamp != 59000 {
		t.Errorf("closing trade leaked into prior candle: timestamp=%d, want 59000", c.Timestamp)
	}
}

func TestProcessRejectsInvalidTrade(t *testing.T) {
	op := NewOperator(config.EmissionLive, zap.NewNop())
	bad := domain.Trade{Exchange: domain.ExchangeKraken, Symbol: domain.SymbolXRPUSD, Price: -1, Volume: 1, Timestamp: 1000}
	if _, ok := op.Process(bad, domain.Timeframe1m); ok {
		t.Error("expected no emission for invalid trade")
	}
}

func TestProcessDropsTradeForClosedWindow(t *testing.T) {
	op := NewOperator(config.EmissionLive, zap.NewNop())
	if _, ok := op.Process(tradeAt(10, 1, 61000), domain.Timeframe1m); !ok {
		t.Fatal("expected emission opening the second window")
	}
	if _, ok := op.Process(tradeAt(99, 1, 1000), domain.Timeframe1m); ok {
		t.Error("expected stale trade for an already-advanced window to be dropped")
	}
}

func TestCloseExpiredReturnsWindowsPastCutoff(t *testing.T) {
	op := NewOperator(config.EmissionFull, zap.NewNop())
	op.Process(tradeAt(10, 1, 1000), domain.Timeframe1m)

	if closed := op.CloseExpired(30000); len(closed) != 0 {
		t.Errorf("expected no closures before window end, got %d", len(closed))
	}

	closed := op.CloseExpired(60000)
	if len(closed) != 1 {
		t.Fatalf("expected 1 closure at window end, got %d", len(closed))
	}
	if closed[0].Start != 0 || closed[0].End != 60000 {
		t.Errorf("got bounds start=%d end=%d, want start=0 end=60000", closed[0].Start, closed[0].End)
	}
}
