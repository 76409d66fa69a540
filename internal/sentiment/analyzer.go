package sentiment

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"cryptopulse/internal/domain"
)

// Completer is the minimal LLM capability the analyzer needs; satisfied
// by pkg/llmclient.Client, and by a fake in tests.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Analyzer classifies a news story's sentiment per-asset using an LLM:
// build the prompt, get a raw completion, best-effort parse a JSON array
// of {asset, sentiment} objects, and fall back to an empty result (not an
// error) on any parse failure.
type Analyzer struct {
	llm     Completer
	llmName string
	logger  *zap.Logger
}

// NewAnalyzer builds an Analyzer backed by the given LLM client.
func NewAnalyzer(llm Completer, llmName string, logger *zap.Logger) *Analyzer {
	return &Analyzer{llm: llm, llmName: llmName, logger: logger}
}

type rawAssetSentiment struct {
	Asset     string `json:"asset"`
	Sentiment string `json:"sentiment"`
}

// Analyze prompts the LLM for the story's title and returns the filtered
// per-asset sentiment analysis. An LLM error is propagated; a malformed
// or unparseable completion degrades to an empty analysis rather than an
// error, since one bad completion shouldn't stall the rest of the feed.
func (a *Analyzer) Analyze(ctx context.Context, story domain.NewsStory) (domain.NewsStorySentimentAnalysis, error) {
	prompt := BuildPrompt(story.Title)

	text, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return domain.NewsStorySentimentAnalysis{}, fmt.Errorf("sentiment: llm completion failed: %w", err)
	}

	var raw []rawAssetSentiment
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		a.logger.Error("invalid LLM response, treating as empty", zap.String("llm", a.llmName), zap.Error(err), zap.String("response", text))
		return domain.NewAnalysis(story.Title, a.llmName, nil), nil
	}

	sentiments := make([]domain.AssetSentiment, 0, len(raw))
	for _, r := range raw {
		sentiments = append(sentiments, domain.AssetSentiment{Asset: r.Asset, Sentiment: domain.SentimentSignal(r.Sentiment)})
	}

	return domain.NewAnalysis(story.Title, a.llmName, sentiments), nil
}
