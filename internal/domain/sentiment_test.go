package domain

import "testing"

func TestNewAnalysisFiltersDisallowedAssets(t *testing.T) {
	// "Solana rises 20%" carries no allowed-asset hits (SOL is not in the
	// allowed set), so the sentiment should be filtered out entirely.
	analysis := NewAnalysis("Solana rises 20%", "claude-3-5-sonnet-20240620", []AssetSentiment{
		{Asset: "SOL", Sentiment: SignalBullish},
	})
	if len(analysis.AssetSentiments) != 0 {
		t.Fatalf("expected disallowed asset to be filtered out, got %+v", analysis.AssetSentiments)
	}
}

func TestNewAnalysisKeepsAllowedAssetsAndDropsBadLabels(t *testing.T) {
	analysis := NewAnalysis("USD/BTC pair shows strength", "claude-3-5-sonnet-20240620", []AssetSentiment{
		{Asset: "BTC", Sentiment: SignalBullish},
		{Asset: "ETH", Sentiment: "NEUTRAL"},
	})
	if len(analysis.AssetSentiments) != 1 || analysis.AssetSentiments[0].Asset != "BTC" {
		t.Fatalf("expected only the valid BTC/BULLISH pair to survive, got %+v", analysis.AssetSentiments)
	}
}

func TestEncodedFlattensSignals(t *testing.T) {
	analysis := NewAnalysis("USD/BTC pair shows strength", "claude-3-5-sonnet-20240620", []AssetSentiment{
		{Asset: "BTC", Sentiment: SignalBullish},
	})
	encoded := analysis.Encoded()
	if encoded["BTC"] != 1 {
		t.Fatalf("expected BTC to encode to +1, got %v", encoded["BTC"])
	}
	if _, ok := encoded["ETH"]; ok {
		t.Fatalf("expected omitted assets to be absent from the encoded map")
	}
}

func TestSentimentSignalEncoded(t *testing.T) {
	if SignalBullish.Encoded() != 1 {
		t.Fatalf("expected BULLISH to encode to +1")
	}
	if SignalBearish.Encoded() != -1 {
		t.Fatalf("expected BEARISH to encode to -1")
	}
}
