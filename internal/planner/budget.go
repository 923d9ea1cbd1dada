package planner

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Budget trims a transcript to a token budget so planner prompts stay
// inside the model's context window. Recent messages win: trimming
// drops from the front of the history.
type Budget struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// NewBudget creates a budget for the given model's tokenizer, falling
// back to cl100k_base when the model is unknown. maxTokens is the
// history budget, not the full context window.
func NewBudget(model string, maxTokens int) (*Budget, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Budget{tokenizer: enc, maxTokens: maxTokens}, nil
}

func (b *Budget) countTokens(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// Trim returns the longest suffix of history that fits the budget.
func (b *Budget) Trim(history []Message) []Message {
	if b.maxTokens <= 0 {
		return history
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.countTokens(history[i].Role) + b.countTokens(history[i].Text)
		if used+cost > b.maxTokens {
			break
		}
		used += cost
		start = i
	}
	return history[start:]
}
