package ta

import (
	talib "github.com/markcheno/go-talib"

	"cryptopulse/internal/domain"
)

// Fixed indicator periods.
const (
	periodRSI9   = 9
	periodRSI14  = 14
	periodRSI21  = 21
	periodRSI28  = 28
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	bbPeriod     = 20
	bbNbDevUp    = 2.0
	bbNbDevDown  = 2.0
	stochRSIPeriod = 10
	stochRSIFastK  = 5
	stochRSIFastD  = 3
	adxPeriod      = 14
	volumeEMAPeriod = 10
	ichimokuConv   = 9
	ichimokuBase   = 20
	ichimokuSpanB  = 40
	mfiPeriod      = 14
	atrPeriod      = 10
	priceROCPeriod = 6
	sma7Period     = 7
	sma14Period    = 14
	sma21Period    = 21
	sma28Period    = 28
)

// Compute builds the full TechnicalAnalysis vector for the ring's current
// state. Every field whose underlying indicator needs more history than
// the ring currently holds is left nil rather than computed against a
// too-short series, and every indicator returns only the value at the end
// of the series, not the full history.
func Compute(r *Ring) domain.TechnicalAnalysis {
	high, low, close_, volume := r.Series()
	n := len(close_)

	out := domain.TechnicalAnalysis{Candle: r.Last()}

	// gate skips the go-talib call entirely while the buffer is shorter
	// than period, instead of relying on the library's warm-up handling.
	gate := func(period int, values func() []float64) *float64 {
		if n < period {
			return nil
		}
		return lastIfReady(values(), n, period)
	}

	out.RSI9 = gate(periodRSI9, func() []float64 { return talib.Rsi(close_, periodRSI9) })
	out.RSI14 = gate(periodRSI14, func() []float64 { return talib.Rsi(close_, periodRSI14) })
	out.RSI21 = gate(periodRSI21, func() []float64 { return talib.Rsi(close_, periodRSI21) })
	out.RSI28 = gate(periodRSI28, func() []float64 { return talib.Rsi(close_, periodRSI28) })

	if n >= macdSlow+macdSignal {
		macd, signal, hist := talib.Macd(close_, macdFast, macdSlow, macdSignal)
		out.MACD = lastIfReady(macd, n, macdSlow+macdSignal)
		out.MACDSignal = lastIfReady(signal, n, macdSlow+macdSignal)
		out.MACDHist = lastIfReady(hist, n, macdSlow+macdSignal)
	}

	if n >= bbPeriod {
		upper, middle, lower := talib.BBands(close_, bbPeriod, bbNbDevUp, bbNbDevDown, talib.SMA)
		out.BBUpper = lastIfReady(upper, n, bbPeriod)
		out.BBMiddle = lastIfReady(middle, n, bbPeriod)
		out.BBLower = lastIfReady(lower, n, bbPeriod)
	}

	if n >= stochRSIPeriod*2 {
		fastK, fastD := talib.StochRsi(close_, stochRSIPeriod, stochRSIFastK, stochRSIFastD, talib.SMA)
		out.StochRSIFastK = lastIfReady(fastK, n, stochRSIPeriod*2)
		out.StochRSIFastD = lastIfReady(fastD, n, stochRSIPeriod*2)
	}

	if n >= adxPeriod*2 {
		out.ADX = lastIfReady(talib.Adx(high, low, close_, adxPeriod), n, adxPeriod*2)
	}

	out.VolumeEMA = gate(volumeEMAPeriod, func() []float64 { return talib.Ema(volume, volumeEMAPeriod) })

	out.IchimokuConv, out.IchimokuBase, out.IchimokuSpanA, out.IchimokuSpanB = ichimoku(high, low)

	if n >= mfiPeriod {
		out.MFI = lastIfReady(talib.Mfi(high, low, close_, volume, mfiPeriod), n, mfiPeriod)
	}

	if n >= atrPeriod {
		out.ATR = lastIfReady(talib.Atr(high, low, close_, atrPeriod), n, atrPeriod)
	}

	out.PriceROC = gate(priceROCPeriod, func() []float64 { return talib.Roc(close_, priceROCPeriod) })

	out.SMA7 = gate(sma7Period, func() []float64 { return talib.Sma(close_, sma7Period) })
	out.SMA14 = gate(sma14Period, func() []float64 { return talib.Sma(close_, sma14Period) })
	out.SMA21 = gate(sma21Period, func() []float64 { return talib.Sma(close_, sma21Period) })
	out.SMA28 = gate(sma28Period, func() []float64 { return talib.Sma(close_, sma28Period) })

	return out
}

// lastIfReady returns a pointer to the last element of values, unless the
// buffer (length n) is shorter than the indicator's required period, in
// which case it returns nil (null).
func lastIfReady(values []float64, n, requiredPeriod int) *float64 {
	if n < requiredPeriod || len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	return &v
}

// ichimoku hand-computes the four Ichimoku reference lines go-talib has
// no builtin for: conv = midpoint of the high/low extremes over the last
// convPeriod candles, base over basePeriod, span_a = (conv+base)/2, span_b
// over spanBPeriod.
func ichimoku(high, low []float64) (conv, base, spanA, spanB *float64) {
	n := len(high)
	if n >= ichimokuConv {
		v := midpoint(high, low, n-ichimokuConv, n)
		conv = &v
	}
	if n >= ichimokuBase {
		v := midpoint(high, low, n-ichimokuBase, n)
		base = &v
	}
	if conv != nil && base != nil {
		v := (*conv + *base) / 2
		spanA = &v
	}
	if n >= ichimokuSpanB {
		v := midpoint(high, low, n-ichimokuSpanB, n)
		spanB = &v
	}
	return
}

// midpoint returns (max(high[start:end]) + min(low[start:end])) / 2.
func midpoint(high, low []float64, start, end int) float64 {
	hi, lo := high[start], low[start]
	for i := start + 1; i < end; i++ {
		if high[i] > hi {
			hi = high[i]
		}
		if low[i] < lo {
			lo = low[i]
		}
	}
	return (hi + lo) / 2
}
