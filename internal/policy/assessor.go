package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/tradeagent/pkg/llm"
)

const assessorSystemPrompt = "You are a risk-focused crypto trading gatekeeper. " +
	"You veto entries and cap position size; you never give trading instructions. " +
	"Output ONLY valid JSON with keys: allow(boolean), reason(string), confidence(number 0-1), max_position_ratio(number 0-1)."

// LLMAssessor asks a completion provider for an entry verdict.
type LLMAssessor struct {
	provider llm.Provider
}

// NewLLMAssessor wraps a provider as a risk assessor.
func NewLLMAssessor(provider llm.Provider) *LLMAssessor {
	return &LLMAssessor{provider: provider}
}

// Assess serializes the request, calls the model, and decodes the
// verdict. Decode failures return a nil-Allow verdict rather than an
// error so the gate can report the schema fail-open path distinctly
// from an unreachable model.
func (a *LLMAssessor) Assess(ctx context.Context, req *EntryRequest) (*Verdict, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal entry request: %w", err)
	}

	text, err := a.provider.Complete(ctx, assessorSystemPrompt, string(body))
	if err != nil {
		return nil, fmt.Errorf("assessor completion: %w", err)
	}

	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return &Verdict{}, nil
	}
	var verdict Verdict
	if err := json.Unmarshal(payload, &verdict); err != nil {
		return &Verdict{}, nil
	}
	return &verdict, nil
}
