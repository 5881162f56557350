// Package tokens bounds how much extracted text is forwarded to a
// generation backend. Counting uses the cl100k_base encoding; oversized
// content is shrunk by repeated proportional truncation.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingName is the fixed tokenization scheme used for budgeting.
const EncodingName = "cl100k_base"

// EmptyContentPlaceholder replaces content that is empty or whitespace-only
// before budgeting, so the naming model always receives something to work
// with.
const EmptyContentPlaceholder = "Content is empty or contains only whitespace."

var (
	defaultEncoder *tiktoken.Tiktoken
	encoderOnce    sync.Once
	encoderErr     error
)

// getEncoder returns the shared tiktoken encoder, initializing it lazily.
func getEncoder() (*tiktoken.Tiktoken, error) {
	encoderOnce.Do(func() {
		defaultEncoder, encoderErr = tiktoken.GetEncoding(EncodingName)
	})
	return defaultEncoder, encoderErr
}

// CountTokens returns the token count of text under cl100k_base. If the
// encoder cannot be loaded it falls back to a conservative len/3 estimate so
// counting never fails.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}

	enc, err := getEncoder()
	if err != nil {
		estimate := len(text) / 3
		if estimate < 1 {
			estimate = 1
		}
		return estimate
	}

	// Allow all special tokens so inputs containing sequences like
	// "<|endoftext|>" are counted instead of panicking.
	return len(enc.Encode(text, []string{"all"}, nil))
}

// NormalizeContent substitutes the placeholder for content that trims to
// empty. Non-empty content passes through unchanged.
func NormalizeContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return EmptyContentPlaceholder
	}
	return content
}

// FitToBudget returns content whose token count does not exceed maxTokens.
// Content already under budget is returned unchanged. Oversized content is
// repeatedly cut to the first 90% of its characters, recounting each round,
// until it fits or nothing is left. Truncation length is recomputed from the
// current length every iteration, so the decay compounds.
func FitToBudget(content string, maxTokens int) string {
	for CountTokens(content) > maxTokens {
		runes := []rune(content)
		if len(runes) == 0 {
			return content
		}
		content = string(runes[:len(runes)*9/10])
	}
	return content
}
