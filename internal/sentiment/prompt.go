// Package sentiment implements the LLM-backed per-asset classifier: a
// fixed base prompt enumerating the allowed assets and labels, raw-text
// completion, and a best-effort JSON array parse that falls back to an
// empty result on any parse failure.
package sentiment

import (
	"fmt"
	"strings"

	"cryptopulse/internal/domain"
)

// BasePrompt is the fixed instruction prefix every analysis request
// shares: the allowed asset list and the allowed sentiment labels, with
// explicit instructions to return [] for anything else.
func BasePrompt() string {
	assets := make([]string, 0, len(domain.Assets()))
	for _, a := range domain.Assets() {
		assets = append(assets, string(a))
	}

	return fmt.Sprintf(`You are an expert crypto financial analyst with deep knowledge of market dynamics and sentiment analysis.

Analyze the following news story and determine its potential impact ONLY on these specific assets: %s.

You MUST completely ignore any assets not in that list, even if they are explicitly mentioned in the news.
If the news only talks about non-listed assets, return an empty array [].

The "sentiment" field must be either "BULLISH" or "BEARISH", never any other value and never empty.

Response format:
- "asset" must be EXACTLY one of: %s
- "sentiment" must be either "BULLISH" or "BEARISH"
- Return ONLY the JSON array, with no other text.

Example of a valid response:
[{"asset": "BTC", "sentiment": "BULLISH"}, {"asset": "ETH", "sentiment": "BEARISH"}]`,
		strings.Join(assets, ", "), strings.Join(assets, ", "))
}

// BuildPrompt appends the story title to the base prompt.
func BuildPrompt(storyTitle string) string {
	return fmt.Sprintf("%s\n\nNews story to analyze:\n%q\n\nResponse (valid JSON array only):", BasePrompt(), storyTitle)
}
