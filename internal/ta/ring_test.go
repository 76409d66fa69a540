package ta

import (
	"testing"

	"cryptopulse/internal/domain"
)

func candleAt(open, high, low, close_, volume float64, start int64) domain.Candle {
	end := start + domain.Timeframe1m.Millis()
	return domain.Candle{
		Exchange: domain.ExchangeKraken, Symbol: domain.SymbolXRPUSD, Timeframe: domain.Timeframe1m,
		Open: open, High: high, Low: low, Close: close_, Volume: volume,
		Timestamp: end - 1, Start: start, End: end,
	}
}

func TestRingAppendsAndBoundsAtN(t *testing.T) {
	r := NewRing(3)
	for i := int64(0); i < 5; i++ {
		r.Push(candleAt(1, 2, 0.5, 1.5, 10, i*60000))
	}
	if r.Len() != 3 {
		t.Fatalf("expected ring bounded at 3, got %d", r.Len())
	}
}

func TestRingReplacesLastOnSameWindow(t *testing.T) {
	r := NewRing(3)
	r.Push(candleAt(1, 2, 0.5, 1.5, 10, 0))
	r.Push(candleAt(1, 3, 0.5, 2, 12, 0)) // LIVE update to same window
	if r.Len() != 1 {
		t.Fatalf("expected same-window update to replace, got len %d", r.Len())
	}
	if r.Last().High != 3 {
		t.Errorf("expected replaced candle with high=3, got %v", r.Last())
	}
}

func TestRingDropsIncompatibleCandle(t *testing.T) {
	r := NewRing(3)
	r.Push(candleAt(1, 2, 0.5, 1.5, 10, 0))
	other := candleAt(1, 2, 0.5, 1.5, 10, 60000)
	other.Symbol = domain.SymbolBTCUSD
	if r.Push(other) {
		t.Error("expected incompatible candle to be dropped")
	}
	if r.Len() != 1 {
		t.Errorf("expected ring unchanged, got len %d", r.Len())
	}
}

func TestComputeNullsIndicatorsBelowPeriod(t *testing.T) {
	r := NewRing(60)
	r.Push(candleAt(1, 2, 0.5, 1.5, 10, 0))

	ta := Compute(r)
	if ta.RSI9 != nil {
		t.Error("expected RSI9 to be null with only 1 candle buffered")
	}
	if ta.SMA7 != nil {
		t.Error("expected SMA7 to be null with only 1 candle buffered")
	}
	if ta.IchimokuConv != nil {
		t.Error("expected IchimokuConv to be null with only 1 candle buffered")
	}
}

func TestComputeFillsIndicatorsOnceWarm(t *testing.T) {
	r := NewRing(60)
	for i := int64(0); i < 40; i++ {
		price := 1.0 + float64(i)*0.01
		r.Push(candleAt(price, price+0.1, price-0.1, price, 10, i*60000))
	}

	ta := Compute(r)
	if ta.RSI9 == nil {
		t.Error("expected RSI9 to be computed with 40 candles buffered")
	}
	if ta.SMA7 == nil {
		t.Error("expected SMA7 to be computed with 40 candles buffered")
	}
	if ta.IchimokuConv == nil || ta.IchimokuBase == nil || ta.IchimokuSpanA == nil {
		t.Error("expected Ichimoku conv/base/span_a to be computed with 40 candles buffered")
	}
	if ta.IchimokuSpanB == nil {
		t.Error("expected IchimokuSpanB to be computed once the buffer reaches 40 candles")
	}
}

func TestTAKeyFormat(t *testing.T) {
	r := NewRing(5)
	r.Push(candleAt(1, 2, 0.5, 1.5, 10, 0))
	ta := Compute(r)
	want := "XRPUSD-1m-59999"
	if ta.Key() != want {
		t.Errorf("got key %q, want %q", ta.Key(), want)
	}
}
