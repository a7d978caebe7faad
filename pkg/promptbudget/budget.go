// Package promptbudget trims conversation history to a token budget before
// prompt injection, so long sessions never overflow the context window.
package promptbudget

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"consilium/pkg/history"
)

// Counter provides token counting for prompt budgeting. All supported
// backends are approximated with the GPT-4 encoding, which is close enough
// for a safety margin.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a token counter.
func NewCounter() (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the token count of text, falling back to a conservative
// bytes/3 estimate if encoding fails.
func (c *Counter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return len(text) / 3
	}
	return len(ids)
}

// TrimHistory returns the newest suffix of exchanges that fits within
// budget tokens. Older turns are dropped first; a single oversized turn is
// kept alone rather than producing an empty history, since the newest turn
// carries the information the specialists need most. A budget <= 0
// disables trimming.
func (c *Counter) TrimHistory(exchanges []history.Exchange, budget int) []history.Exchange {
	if budget <= 0 || len(exchanges) == 0 {
		return exchanges
	}

	total := 0
	cut := len(exchanges)
	for i := len(exchanges) - 1; i >= 0; i-- {
		n := c.Count(exchanges[i].Text)
		if total+n > budget {
			break
		}
		total += n
		cut = i
	}

	if cut == len(exchanges) {
		// Nothing fit; keep the most recent turn regardless.
		return exchanges[len(exchanges)-1:]
	}
	return exchanges[cut:]
}
