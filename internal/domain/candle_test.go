package domain

import "testing"

func tradeAt(price, volume float64, ts int64) Trade {
	return Trade{Exchange: ExchangeKraken, Symbol: SymbolXRPUSD, Price: price, Volume: volume, Timestamp: ts}
}

func TestCandleLiveSingleWindow(t *testing.T) {
	// timeframe 1m, trades at t=1000,5000,59000, all within one window.
	trades := []Trade{
		tradeAt(10, 1, 1000),
		tradeAt(12, 2, 5000),
		tradeAt(11, 3, 59000),
	}

	c := Init(Timeframe1m, trades[0])
	for _, tr := range trades[1:] {
		c = c.Update(tr)
	}
	start, end := WindowBounds(Timeframe1m, trades[0].Timestamp)
	c = c.CloseWindow(start, end)

	if c.Open != 10 || c.High != 12 || c.Low != 10 || c.Close != 11 {
		t.Fatalf("unexpected OHLC: %+v", c)
	}
	if c.Volume != 6 {
		t.Fatalf("expected volume 6, got %f", c.Volume)
	}
	if c.Start != 0 || c.End != 60000 {
		t.Fatalf("expected window [0,60000], got [%d,%d]", c.Start, c.End)
	}
	if c.Timestamp != 59000 {
		t.Fatalf("expected timestamp 59000, got %d", c.Timestamp)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid candle, got %v", err)
	}
}

func TestCandleNewWindowTradeExcluded(t *testing.T) {
	// A trade at t=60000 falls in the next 1m bucket and starts a new window.
	first := tradeAt(10, 1, 1000)
	c := Init(Timeframe1m, first)
	c = c.Update(tradeAt(12, 2, 5000))

	startA, endA := WindowBounds(Timeframe1m, first.Timestamp)
	next := tradeAt(99, 5, 60000)
	startB, endB := WindowBounds(Timeframe1m, next.Timestamp)

	if startA == startB {
		t.Fatalf("expected trade at 60000ms to fall into a new window")
	}
	closed := c.CloseWindow(startA, endA)
	if closed.Close == next.Price {
		t.Fatalf("trade at window boundary must not be folded into the prior candle")
	}
	_ = endB
}

func TestCandleUpdateCommutesForHighLowVolume(t *testing.T) {
	c := Init(Timeframe1m, tradeAt(10, 1, 5000))
	outOfOrder := c.Update(tradeAt(20, 1, 1000)) // earlier timestamp than current state
	if outOfOrder.High != 20 {
		t.Fatalf("expected high to widen regardless of trade order, got %f", outOfOrder.High)
	}
	if outOfOrder.Volume != 2 {
		t.Fatalf("expected volume to accumulate regardless of order, got %f", outOfOrder.Volume)
	}
	if outOfOrder.Close != 10 {
		t.Fatalf("close must stay order-sensitive, got %f", outOfOrder.Close)
	}
}

func TestCloseWindowIdempotent(t *testing.T) {
	c := Init(Timeframe1m, tradeAt(10, 1, 1000))
	first := c.CloseWindow(0, 60000)
	second := first.CloseWindow(0, 60000)
	if first != second {
		t.Fatalf("expected CloseWindow to be idempotent for identical bounds")
	}
}

func TestIsCompatibleAndSameWindow(t *testing.T) {
	a := Candle{Symbol: SymbolXRPUSD, Timeframe: Timeframe1m, Start: 0, End: 60000}
	b := Candle{Symbol: SymbolXRPUSD, Timeframe: Timeframe1m, Start: 0, End: 60000}
	c := Candle{Symbol: SymbolBTCUSD, Timeframe: Timeframe1m, Start: 0, End: 60000}
	d := Candle{Symbol: SymbolXRPUSD, Timeframe: Timeframe1m, Start: 60000, End: 120000}

	if !a.IsCompatible(b) || !a.IsSameWindow(b) {
		t.Fatalf("expected a and b to be compatible and same-window")
	}
	if a.IsCompatible(c) {
		t.Fatalf("different symbols must not be compatible")
	}
	if a.IsSameWindow(d) {
		t.Fatalf("different windows must not be same-window despite being compatible")
	}
}

func TestCandleValidateRejectsBadOHLC(t *testing.T) {
	bad := Candle{Open: 10, High: 5, Low: 1, Close: 10, Volume: 1}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected validation error when high < open")
	}
}
