package domain

import "fmt"

// TechnicalAnalysis is the indicator vector computed for one candle. Every
// indicator field is a pointer so it can be emitted as null when the
// buffer backing it doesn't yet hold enough history to compute it.
type TechnicalAnalysis struct {
	Candle

	RSI9  *float64 `json:"rsi_9"`
	RSI14 *float64 `json:"rsi_14"`
	RSI21 *float64 `json:"rsi_21"`
	RSI28 *float64 `json:"rsi_28"`

	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	MACDHist   *float64 `json:"macd_hist"`

	BBUpper  *float64 `json:"bb_upper"`
	BBMiddle *float64 `json:"bb_middle"`
	BBLower  *float64 `json:"bb_lower"`

	StochRSIFastK *float64 `json:"stoch_rsi_fast_k"`
	StochRSIFastD *float64 `json:"stoch_rsi_fast_d"`

	ADX *float64 `json:"adx"`

	VolumeEMA *float64 `json:"volume_ema"`

	IchimokuConv   *float64 `json:"ichimoku_conv"`
	IchimokuBase   *float64 `json:"ichimoku_base"`
	IchimokuSpanA  *float64 `json:"ichimoku_span_a"`
	IchimokuSpanB  *float64 `json:"ichimoku_span_b"`

	MFI *float64 `json:"mfi"`
	ATR *float64 `json:"atr"`

	PriceROC *float64 `json:"price_roc"`

	SMA7  *float64 `json:"sma_7"`
	SMA14 *float64 `json:"sma_14"`
	SMA21 *float64 `json:"sma_21"`
	SMA28 *float64 `json:"sma_28"`
}

// Key returns the TA record's output key, "{symbol}-{timeframe}-{timestamp}".
func (a TechnicalAnalysis) Key() string {
	return fmt.Sprintf("%s-%s-%d", a.Symbol, a.Timeframe, a.Timestamp)
}
