package utils

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter provides approximate token counting for prompt budgeting.
// All supported models are close enough to GPT-4 encoding for budget
// decisions; exact provider-side counts are not required.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a token counter for the given model name.
func NewTokenCounter(model string) (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.codec == nil {
		// Character-based estimation fallback (4 chars ≈ 1 token)
		return len(text) / 4
	}

	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

var (
	simpleCounter     *TokenCounter
	simpleCounterOnce sync.Once
)

// CountTokensSimple counts tokens using a shared GPT-4 codec. Useful where
// constructing a TokenCounter per call site is not worth it.
func CountTokensSimple(text string) int {
	simpleCounterOnce.Do(func() {
		tc, err := NewTokenCounter("gpt-4")
		if err != nil {
			tc = &TokenCounter{}
		}
		simpleCounter = tc
	})
	return simpleCounter.CountTokens(text)
}

// WithinLimit reports whether text fits the given token limit.
func (tc *TokenCounter) WithinLimit(text string, limit int) bool {
	return tc.CountTokens(text) <= limit
}

// TruncateToLimit truncates text so it fits the token limit. The cut is by
// characters, proportional to the overshoot, not on a token boundary.
func (tc *TokenCounter) TruncateToLimit(text string, limit int) string {
	currentTokens := tc.CountTokens(text)
	if currentTokens <= limit {
		return text
	}

	ratio := float64(limit) / float64(currentTokens)
	charLimit := int(float64(len(text)) * ratio * 0.9) // safety margin

	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}
