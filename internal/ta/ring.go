// Package ta implements the keyed technical-analysis operator: a bounded
// ring of the N most-recent finalized candles per (symbol, timeframe), and
// the fixed indicator bundle computed over it on every update, returning
// only the latest value of each indicator rather than a full series.
package ta

import "cryptopulse/internal/domain"

// Ring holds at most N finalized candles for one (symbol, timeframe) key,
// replacing the last entry on a LIVE update to the same window instead of
// appending a duplicate.
type Ring struct {
	N       int
	Candles []domain.Candle
}

// NewRing builds an empty ring bounded at n candles.
func NewRing(n int) *Ring {
	return &Ring{N: n}
}

// Push applies one incoming candle to the ring:
//  1. if non-empty and c is not compatible with the last buffered candle,
//     drop c;
//  2. if c.IsSameWindow(last), replace the last entry (LIVE update);
//  3. otherwise append, dropping the oldest entry past N.
//
// It reports whether c was accepted.
func (r *Ring) Push(c domain.Candle) bool {
	if len(r.Candles) == 0 {
		r.Candles = append(r.Candles, c)
		return true
	}

	last := r.Candles[len(r.Candles)-1]
	if !c.IsCompatible(last) {
		return false
	}

	if c.IsSameWindow(last) {
		r.Candles[len(r.Candles)-1] = c
		return true
	}

	r.Candles = append(r.Candles, c)
	if len(r.Candles) > r.N {
		r.Candles = r.Candles[len(r.Candles)-r.N:]
	}
	return true
}

// Len returns the number of candles currently buffered.
func (r *Ring) Len() int {
	return len(r.Candles)
}

// Series extracts the high/low/close/volume series the indicator bundle
// is computed over, oldest first.
func (r *Ring) Series() (high, low, close_, volume []float64) {
	high = make([]float64, len(r.Candles))
	low = make([]float64, len(r.Candles))
	close_ = make([]float64, len(r.Candles))
	volume = make([]float64, len(r.Candles))
	for i, c := range r.Candles {
		high[i] = c.High
		low[i] = c.Low
		close_[i] = c.Close
		volume[i] = c.Volume
	}
	return
}

// Last returns the most recently pushed candle.
func (r *Ring) Last() domain.Candle {
	return r.Candles[len(r.Candles)-1]
}
