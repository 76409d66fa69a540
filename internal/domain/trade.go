// Package domain holds the value types exchanged on the message bus:
// Trade, Candle, TechnicalAnalysis, NewsStory and the sentiment records.
// Every type here is immutable once published; mutation only happens while
// a stage still owns the value (see Candle.Update).
package domain

import "fmt"

// Exchange identifies the venue a Trade was observed on.
type Exchange string

const (
	ExchangeKraken  Exchange = "KRAKEN"
	ExchangeBinance Exchange = "BINANCE"
	ExchangeBybit   Exchange = "BYBIT"
)

// Symbol is a market pair identifier, e.g. "XRPUSD". It maps 1:1 to an Asset.
type Symbol string

const (
	SymbolXRPUSD Symbol = "XRPUSD"
	SymbolBTCUSD Symbol = "BTCUSD"
	SymbolETHUSD Symbol = "ETHUSD"
)

// Asset is the base currency of a Symbol.
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
	AssetXRP Asset = "XRP"
)

// symbolAssets is the closed symbol -> asset map the pipeline supports;
// a trade for any symbol outside it fails validation.
var symbolAssets = map[Symbol]Asset{
	SymbolXRPUSD: AssetXRP,
	SymbolBTCUSD: AssetBTC,
	SymbolETHUSD: AssetETH,
}

// AssetOf returns the base asset for a known symbol and whether it is known.
func AssetOf(s Symbol) (Asset, bool) {
	a, ok := symbolAssets[s]
	return a, ok
}

// Assets returns the closed set of assets the sentiment pipeline is allowed
// to emit signals for.
func Assets() []Asset {
	return []Asset{AssetBTC, AssetETH, AssetXRP}
}

// Trade is a normalized market trade.
type Trade struct {
	Exchange  Exchange `json:"exchange"`
	Symbol    Symbol   `json:"symbol"`
	Price     float64  `json:"price"`
	Volume    float64  `json:"volume"`
	Timestamp int64    `json:"timestamp"` // ms since epoch
}

// Validate checks that a Trade has a positive price and volume, a
// non-negative timestamp, and a known symbol.
func (t Trade) Validate() error {
	if t.Price <= 0 {
		return fmt.Errorf("trade: price must be > 0, got %f", t.Price)
	}
	if t.Volume <= 0 {
		return fmt.Errorf("trade: volume must be > 0, got %f", t.Volume)
	}
	if t.Timestamp < 0 {
		return fmt.Errorf("trade: timestamp must be >= 0, got %d", t.Timestamp)
	}
	if _, ok := AssetOf(t.Symbol); !ok {
		return fmt.Errorf("trade: unknown symbol %q", t.Symbol)
	}
	return nil
}
