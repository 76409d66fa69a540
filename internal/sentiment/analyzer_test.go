package sentiment

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"cryptopulse/internal/domain"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestAnalyzeFiltersDisallowedAssetsAndBadLabels(t *testing.T) {
	a := NewAnalyzer(fakeCompleter{response: `[
		{"asset": "BTC", "sentiment": "BULLISH"},
		{"asset": "SOL", "sentiment": "BULLISH"},
		{"asset": "ETH", "sentiment": "NEUTRAL"}
	]`}, "claude-3-5-sonnet", zap.NewNop())

	result, err := a.Analyze(context.Background(), domain.NewStory(domain.OutletCryptoPanic, "Solana and BTC rally", "x", "u", "2024-01-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.AssetSentiments) != 1 || result.AssetSentiments[0].Asset != "BTC" {
		t.Errorf("expected only BTC to survive filtering, got %+v", result.AssetSentiments)
	}
}

func TestAnalyzeDegradesToEmptyOnMalformedResponse(t *testing.T) {
	a := NewAnalyzer(fakeCompleter{response: "not a json array"}, "claude-3-5-sonnet", zap.NewNop())

	result, err := a.Analyze(context.Background(), domain.NewStory(domain.OutletCryptoPanic, "whatever", "x", "u", "2024-01-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("expected malformed response to degrade, not error: %v", err)
	}
	if len(result.AssetSentiments) != 0 {
		t.Errorf("expected empty analysis, got %+v", result.AssetSentiments)
	}
}
