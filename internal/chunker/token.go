package chunker

import "strings"

// EstimateTokens gives a rough token count for budget packing.
// Exact tokenization is not required; the retrieval budget treats this
// estimate as the token count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 1.33 tokens per word for English text.
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
