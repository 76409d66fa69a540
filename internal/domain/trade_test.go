package domain

import "testing"

func TestTradeValidate(t *testing.T) {
	cases := []struct {
		name    string
		trade   Trade
		wantErr bool
	}{
		{"valid", Trade{Exchange: ExchangeKraken, Symbol: SymbolXRPUSD, Price: 1, Volume: 1, Timestamp: 0}, false},
		{"zero price", Trade{Exchange: ExchangeKraken, Symbol: SymbolXRPUSD, Price: 0, Volume: 1}, true},
		{"negative volume", Trade{Exchange: ExchangeKraken, Symbol: SymbolXRPUSD, Price: 1, Volume: -1}, true},
		{"negative timestamp", Trade{Exchange: ExchangeKraken, Symbol: SymbolXRPUSD, Price: 1, Volume: 1, Timestamp: -1}, true},
		{"unknown symbol", Trade{Exchange: ExchangeKraken, Symbol: "DOGEUSD", Price: 1, Volume: 1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.trade.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAssetOf(t *testing.T) {
	asset, ok := AssetOf(SymbolBTCUSD)
	if !ok || asset != AssetBTC {
		t.Fatalf("expected BTCUSD -> BTC, got %v ok=%v", asset, ok)
	}
	if _, ok := AssetOf("NOPE"); ok {
		t.Fatalf("expected unknown symbol to report ok=false")
	}
}
